package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"RegimeGuard/internal/di"
	"RegimeGuard/internal/usecase"
)

var evaluateNarrate bool

var evaluateCmd = &cobra.Command{
	Use:   "evaluate SYMBOL [SYMBOL...]",
	Short: "Classify the regime and veto decision for symbols",
	Long: `Run the full pipeline for each symbol and print the evaluations as JSON.
Symbols that fail are listed under "errors"; the command fails only when
every symbol failed.

Examples:
  regimeguard evaluate AAPL
  regimeguard evaluate AAPL MSFT NVDA --narrate`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().BoolVar(&evaluateNarrate, "narrate", false, "Ask the advisor for commentary (requires advisor.enabled)")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
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

	res := app.Evaluator().EvaluateMany(cmd.Context(), args, usecase.EvaluateOptions{Narrate: evaluateNarrate})
	if err := printJSON(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if len(res.Evaluations) == 0 {
		return fmt.Errorf("no symbol could be evaluated")
	}
	return nil
}
