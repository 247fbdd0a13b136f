// Package cmd defines the CLI commands for the harvest executable.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marketlens/harvest/internal/config"
	"github.com/marketlens/harvest/internal/engine"
	"github.com/marketlens/harvest/internal/harvest"
	"github.com/marketlens/harvest/internal/logging"
)

var cfgFile string

type engineKeyType string

const engineKey engineKeyType = "engine"

// newEngine is a factory variable so tests can swap in a stub.
var newEngine = func(cfg config.Config, logger *zap.Logger) (*engine.Engine, error) {
	return engine.New(cfg, logger)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "A resilient concurrent web-harvesting engine.",
		Long: `harvest fetches and analyzes competitor web pages at scale. Every fetch
runs behind a per-domain circuit breaker, a robots.txt policy cache, and a
two-level throttle, with automatic escalation to a headless browser for
JavaScript-heavy pages.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			eng, err := newEngine(cfg, logger)
			if err != nil {
				return fmt.Errorf("initialize engine: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), engineKey, eng))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if eng, ok := cmd.Context().Value(engineKey).(*engine.Engine); ok && eng != nil {
				eng.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., $HOME/.harvest, /etc/harvest)")

	cmd.AddCommand(newFetchCmd())
	cmd.AddCommand(newBatchCmd())
	cmd.AddCommand(newProfileCmd())
	cmd.AddCommand(newBacklinksCmd())

	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func resolveEngine(ctx context.Context) (*engine.Engine, error) {
	eng, ok := ctx.Value(engineKey).(*engine.Engine)
	if !ok || eng == nil {
		return nil, errors.New("engine not initialized")
	}
	return eng, nil
}

func parseMode(mode string) (harvest.RenderMode, error) {
	switch mode {
	case "":
		return "", nil
	case "lightweight", "rendered", "auto":
		return harvest.RenderMode(mode), nil
	default:
		return "", fmt.Errorf("mode %q is not one of lightweight, rendered, auto", mode)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
