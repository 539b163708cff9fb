package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/KaramelBytes/pondstat-cli/internal/analysis"
	"github.com/KaramelBytes/pondstat-cli/internal/dataset"
	"github.com/KaramelBytes/pondstat-cli/internal/store"
	"github.com/spf13/cobra"
)

var (
	lagPond        tableFlags
	lagWeather     tableFlags
	lagOut         outputFlags
	lagLags        []int
	lagPondVars    []string
	lagWeatherVars []string
	lagAlpha       float64
	lagAverage     bool
	lagFrom        string
	lagTo          string
	lagDB          string
)

var lagCmd = &cobra.Command{
	Use:   "lag <pond.csv> <weather.csv>",
	Short: "Lagged Spearman correlations of pond variables against daily weather",
	Long: `lag pairs every pond measurement taken on day D with the weather of day D-L
for each lag L and reports Spearman's rho, its p-value and significance per
pond variable, lag and weather variable. Positive lags look back in time.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := lagOut.resolvedFormat()
		if err != nil {
			return err
		}
		pond, err := lagPond.read(args[0], configLayout())
		if err != nil {
			return err
		}
		weather, err := lagWeather.read(args[1], "")
		if err != nil {
			return err
		}
		if lagAverage && pond.HasGroups() {
			pond = dataset.AverageReplicates(pond, locationPrefix())
		}
		if weather, err = windowFlags(weather, lagFrom, lagTo); err != nil {
			return err
		}

		opt := analysis.LagOptions{
			Lags:              lagLags,
			PondVars:          lagPondVars,
			WeatherVars:       lagWeatherVars,
			SignificanceLevel: lagAlpha,
			Logger:            logger,
		}
		if cfg != nil {
			if !cmd.Flags().Changed("lags") {
				opt.Lags = cfg.Lags
			}
			if !cmd.Flags().Changed("pond-vars") {
				opt.PondVars = cfg.PondVars
			}
			if !cmd.Flags().Changed("weather-vars") {
				opt.WeatherVars = cfg.WeatherVars
			}
			if !cmd.Flags().Changed("alpha") {
				opt.SignificanceLevel = cfg.SignificanceLevel
			}
			opt.Workers = cfg.Workers
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		res, err := analysis.LagCorrelateContext(ctx, pond, weather, opt)
		if err != nil {
			return err
		}
		for i, n := range res.Pairs {
			if n == 0 {
				fmt.Fprintf(os.Stderr, "⚠ Warning: no date-aligned rows at lag %+d\n", res.Lags[i])
			}
		}

		dbPath := lagDB
		if dbPath == "" && cfg != nil {
			dbPath = cfg.ResultsDB
		}
		if dbPath != "" {
			if err := storeLagRun(dbPath, res, args); err != nil {
				return err
			}
		}

		cells := len(res.Matrices) * len(res.PondVars) * len(res.Lags)
		name := "lag_" + stem(args[0]) + "." + format
		return lagOut.emit(name, "lag correlations", cells, func(w io.Writer) error {
			if format == "csv" {
				return res.WriteCSV(w)
			}
			_, err := io.WriteString(w, res.Markdown())
			return err
		})
	},
}

func storeLagRun(dbPath string, res *analysis.LagResult, inputs []string) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()
	params := map[string]any{
		"pond":               inputs[0],
		"weather":            inputs[1],
		"lags":               res.Lags,
		"pond_vars":          res.PondVars,
		"weather_vars":       res.WeatherVars,
		"significance_level": res.SignificanceLevel,
		"averaged":           lagAverage,
	}
	id, err := st.SaveLagRun(res, params)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Stored run %s in %s\n", id, dbPath)
	return nil
}

// windowFlags restricts t to the inclusive --from/--to range; empty bounds
// are open.
func windowFlags(t *dataset.Table, from, to string) (*dataset.Table, error) {
	if from == "" && to == "" {
		return t, nil
	}
	var lo, hi time.Time
	if from != "" {
		d, err := parseDay(from)
		if err != nil {
			return nil, fmt.Errorf("invalid --from: %w", err)
		}
		lo = d
	}
	if to != "" {
		d, err := parseDay(to)
		if err != nil {
			return nil, fmt.Errorf("invalid --to: %w", err)
		}
		hi = d
	}
	if !lo.IsZero() && !hi.IsZero() && hi.Before(lo) {
		return nil, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return dataset.Window(t, lo, hi), nil
}

func parseDay(s string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(s))
}

func init() {
	rootCmd.AddCommand(lagCmd)
	lagPond.bind(lagCmd, "pond", "pond table", "Datum", "Probe")
	lagWeather.bind(lagCmd, "weather", "weather table", "datetime", "")
	lagOut.bind(lagCmd, true)
	lagCmd.Flags().IntSliceVar(&lagLags, "lags", nil, "lags in days, e.g. -7,0,3 (default from config)")
	lagCmd.Flags().StringSliceVar(&lagPondVars, "pond-vars", nil, "pond variables (default from config)")
	lagCmd.Flags().StringSliceVar(&lagWeatherVars, "weather-vars", nil, "weather variables (default from config)")
	lagCmd.Flags().Float64Var(&lagAlpha, "alpha", analysis.DefaultSignificanceLevel, "significance level; p must be strictly below it")
	lagCmd.Flags().BoolVar(&lagAverage, "average", true, "average replicate samples per location and date first")
	lagCmd.Flags().StringVar(&lagFrom, "from", "", "first weather day to use (YYYY-MM-DD)")
	lagCmd.Flags().StringVar(&lagTo, "to", "", "last weather day to use (YYYY-MM-DD)")
	lagCmd.Flags().StringVar(&lagDB, "db", "", "SQLite results database to store the run in (default results_db from config)")
}
