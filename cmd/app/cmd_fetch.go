package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"RegimeGuard/internal/di"
	"RegimeGuard/internal/domain/models"
	"RegimeGuard/pkg/util"
)

var (
	fetchFrom string
	fetchTo   string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch SYMBOL",
	Short: "Fetch every market data endpoint for a symbol",
	Long: `Fetch quote, fundamentals, insider activity, earnings and news for one
symbol through the cache and print the bundle as JSON. Endpoints that fail
are reported under "errors".

Examples:
  regimeguard fetch AAPL
  regimeguard fetch AAPL --from 2024-01-01 --to 2024-03-31`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchFrom, "from", "", "Start date (YYYY-MM-DD, RFC3339 or unix), default 30 days before --to")
	fetchCmd.Flags().StringVar(&fetchTo, "to", "", "End date (YYYY-MM-DD, RFC3339 or unix), default today")
}

// parseRange accepts dates, RFC3339 or unix seconds. Bounds are aligned to
// UTC days and swapped when reversed.
func parseRange(from, to string, now time.Time) (models.DateRange, error) {
	if from == "" && to == "" {
		return models.DateRange{}, nil
	}
	end := now
	if to != "" {
		t, ok := util.ParseTime(to)
		if !ok {
			return models.DateRange{}, fmt.Errorf("invalid --to %q", to)
		}
		end = t
	}
	start := end.AddDate(0, 0, -30)
	if from != "" {
		f, ok := util.ParseTime(from)
		if !ok {
			return models.DateRange{}, fmt.Errorf("invalid --from %q", from)
		}
		start = f
	}
	start, end = util.AlignDays(start, end)
	return models.DateRange{From: start, To: end}, nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	r, err := parseRange(fetchFrom, fetchTo, time.Now())
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	oneShot(cfg)

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer cleanup()

	md, err := app.MarketData().FetchAll(cmd.Context(), args[0], r)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), md)
}
