package cmd

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/pondstat-cli/internal/store"
	"github.com/spf13/cobra"
)

var (
	runsDB      string
	runsSigOnly bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect lag correlation runs stored in the results database",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openRunsDB()
		if err != nil {
			return err
		}
		defer st.Close()
		runs, err := st.Runs()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("(no runs)")
			return nil
		}
		for _, r := range runs {
			fmt.Printf("- %s: %s, %d cells, %s\n  params: %s\n", r.ID, r.Kind, r.Cells, r.CreatedAt.Format("2006-01-02 15:04:05"), string(r.Params))
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the cells of a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openRunsDB()
		if err != nil {
			return err
		}
		defer st.Close()
		cells, err := st.LagCells(args[0])
		if err != nil {
			return err
		}
		var b strings.Builder
		b.WriteString("| Weather | Pond | Lag | n | rho | p | Significant |\n| --- | --- | ---: | ---: | ---: | ---: | --- |\n")
		shown := 0
		for _, c := range cells {
			if runsSigOnly && !c.Significant {
				continue
			}
			shown++
			b.WriteString(fmt.Sprintf("| %s | %s | %+d | %d | %s | %s | %t |\n",
				c.WeatherVar, c.PondVar, c.Lag, c.N, fmtCell(c.Coef, 3), fmtCell(c.PValue, 4), c.Significant))
		}
		if shown == 0 {
			fmt.Println("(no cells)")
			return nil
		}
		fmt.Print(b.String())
		return nil
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openRunsDB()
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.DeleteRun(args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ Deleted run %s\n", args[0])
		return nil
	},
}

func openRunsDB() (*store.Store, error) {
	path := runsDB
	if path == "" && cfg != nil {
		path = cfg.ResultsDB
	}
	if path == "" {
		return nil, errors.New("no results database: pass --db or set results_db")
	}
	return store.Open(path)
}

func fmtCell(v float64, prec int) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.*f", prec, v)
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsDeleteCmd)
	runsCmd.PersistentFlags().StringVar(&runsDB, "db", "", "SQLite results database (default results_db from config)")
	runsShowCmd.Flags().BoolVar(&runsSigOnly, "significant", false, "only show significant cells")
}
