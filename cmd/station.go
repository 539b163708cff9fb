package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/KaramelBytes/pondstat-cli/internal/dataset"
	"github.com/spf13/cobra"
)

var (
	stTable   tableFlags
	stOut     outputFlags
	stSumCols []string
	stFrom    string
	stTo      string
)

var stationCmd = &cobra.Command{
	Use:   "station",
	Short: "Weather station data preparation",
}

var stationDailyCmd = &cobra.Command{
	Use:   "daily <hourly.csv>",
	Short: "Resample hourly station data to daily values (sums for precipitation, means otherwise)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hourly, err := stTable.read(args[0], "")
		if err != nil {
			return err
		}
		sums := stSumCols
		if !cmd.Flags().Changed("sum") && cfg != nil && len(cfg.SumColumns) > 0 {
			sums = cfg.SumColumns
		}
		daily, err := dataset.ResampleDaily(hourly, sums)
		if err != nil {
			return err
		}
		if daily, err = windowFlags(daily, stFrom, stTo); err != nil {
			return err
		}
		if daily.Len() == 0 {
			fmt.Fprintln(os.Stderr, "⚠ Warning: no days left in the selected range")
		}
		name := "daily_" + stem(args[0]) + ".csv"
		return stOut.emit(name, "daily weather", daily.Len(), func(w io.Writer) error {
			return dataset.WriteCSV(w, daily, dataset.WriteOptions{DateHeader: "datetime"})
		})
	},
}

func init() {
	rootCmd.AddCommand(stationCmd)
	stationCmd.AddCommand(stationDailyCmd)
	stTable.bind(stationDailyCmd, "", "hourly table", "datetime", "")
	stOut.bind(stationDailyCmd, false)
	stationDailyCmd.Flags().StringSliceVar(&stSumCols, "sum", []string{"PCP"}, "columns summed per day (default sum_columns from config)")
	stationDailyCmd.Flags().StringVar(&stFrom, "from", "", "first day to keep (YYYY-MM-DD)")
	stationDailyCmd.Flags().StringVar(&stTo, "to", "", "last day to keep (YYYY-MM-DD)")
}
