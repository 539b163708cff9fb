package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/pondstat-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	addStudyName string
	addDesc      string
	addKind      string
)

var addCmd = &cobra.Command{
	Use:   "add <files...>",
	Short: "Copy raw input files (lab sheets, exports, station data) into a study",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if addStudyName == "" {
			return fmt.Errorf("--study is required")
		}
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		s, err := loadStudy(addStudyName)
		if err != nil {
			return err
		}
		for _, file := range files {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			out, err := s.OutputPath(filepath.Join("raw", filepath.Base(file)))
			if err != nil {
				return err
			}
			if err := utils.SafeWriteFile(out, data); err != nil {
				return fmt.Errorf("copy input: %w", err)
			}
			a := s.Record(out, addKind, addDesc, dataRows(data))
			fmt.Printf("✓ File added: %s\n", a.Path)
		}
		return s.Save()
	},
}

// dataRows counts lines after the header line.
func dataRows(b []byte) int {
	n := bytes.Count(b, []byte("\n"))
	if len(b) > 0 && b[len(b)-1] != '\n' {
		n++
	}
	if n > 0 {
		n--
	}
	return n
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addStudyName, "study", "s", "", "study name")
	addCmd.Flags().StringVar(&addDesc, "desc", "", "file description")
	addCmd.Flags().StringVar(&addKind, "kind", "raw", "artifact kind recorded in the manifest")
}
