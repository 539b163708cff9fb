package cmd

import (
	"fmt"

	"github.com/KaramelBytes/pondstat-cli/internal/study"
	"github.com/spf13/cobra"
)

var (
	listStudies   bool
	listArtifacts bool
	listStudyName string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List studies or the artifacts of a study",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listStudies == listArtifacts { // either both true or both false
			return fmt.Errorf("specify exactly one of --studies or --artifacts")
		}
		if listStudies {
			return listAllStudies()
		}
		if listStudyName == "" {
			return fmt.Errorf("--study is required when using --artifacts")
		}
		s, err := loadStudy(listStudyName)
		if err != nil {
			return err
		}
		if len(s.Artifacts) == 0 {
			fmt.Println("(no artifacts)")
			return nil
		}
		for _, a := range s.Artifacts {
			fmt.Printf("- %s: %s [%s, %d rows] (%s)\n", a.ID, a.Path, a.Kind, a.Rows, a.Description)
		}
		return nil
	},
}

func listAllStudies() error {
	root, err := defaultStudiesDir()
	if err != nil {
		return err
	}
	names, err := study.List(root)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("(no studies)")
		return nil
	}
	for _, n := range names {
		fmt.Printf("- %s\n", n)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listStudies, "studies", false, "list studies")
	listCmd.Flags().BoolVar(&listArtifacts, "artifacts", false, "list artifacts in a study")
	listCmd.Flags().StringVarP(&listStudyName, "study", "s", "", "study name for --artifacts")
}
