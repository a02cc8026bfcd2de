package main

import (
	"fmt"
	"strings"

	funil "github.com/aretw0/funil"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of funil",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "funil version %s\n", strings.TrimSpace(funil.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
