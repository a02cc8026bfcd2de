package main

import (
	"github.com/aretw0/funil/internal/cli"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <cpf>",
	Short: "Compare FGTS anticipation offers for a CPF",
	Long:  `Queries both balance providers and prints the outcome the conversation would get.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		engine := cli.NewProviders(cfg, nil).Rates(logger, cli.DebugHooks(logger))
		return cli.Simulate(cmd.Context(), engine, args[0], cmd.OutOrStdout(), asJSON)
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().Bool("json", false, "Print JSON instead of YAML")
}
