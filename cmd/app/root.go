package main

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"RegimeGuard/pkg/config"
)

const defaultConfigPath = "config/config.yaml"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "regimeguard",
	Short: "Market regime classifier and trade veto service",
	Long: `RegimeGuard pulls market data through a rate-limited, cached client,
computes technical indicators, classifies the market regime and decides
whether a trade signal should be vetoed.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "Path to the YAML config file")
	rootCmd.AddCommand(serveCmd, evaluateCmd, fetchCmd)
}

// loadConfig reads --config. A missing default file is not an error: the
// service then runs on defaults plus environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	return config.Load(path)
}

// oneShot keeps stdout clean for JSON output.
func oneShot(cfg *config.Config) {
	if cfg.Log.Output == "" || cfg.Log.Output == "stdout" {
		cfg.Log.Output = "stderr"
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
