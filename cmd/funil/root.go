package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/funil/internal/cli"
	"github.com/aretw0/funil/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "funil",
	Short: "funil runs the WhatsApp FGTS anticipation funnel",
	Long: `funil answers Digisac webhooks, compares FGTS anticipation offers across
providers and submits the chosen proposal.`,
	SilenceUsage: true,
}

// Execute runs the root command under a signal-aware context.
func Execute() {
	ctx := cli.NewSignalContext(context.Background())
	defer ctx.Cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("env", "", "Path to a .env file (defaults to ./.env when present)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides LOG_LEVEL)")
}

// loadConfig reads the environment and applies the persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	envFile, _ := cmd.Flags().GetString("env")
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	logger, err := cli.NewLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// signalContext returns the context installed by Execute.
func signalContext(cmd *cobra.Command) *cli.SignalContext {
	if sc, ok := cmd.Context().(*cli.SignalContext); ok {
		return sc
	}
	return cli.NewSignalContext(cmd.Context())
}
