package main

import (
	"fmt"

	"github.com/aretw0/funil/internal/dialogue"
	"github.com/aretw0/funil/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the dialogue as a Mermaid diagram",
	Long: `Prints the transition table as a Mermaid flowchart (graph TD). With
--contact, the state of that contact's stored session is highlighted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var overlay *graph.Overlay
		if contactID, _ := cmd.Flags().GetString("contact"); contactID != "" {
			sessions, err := openSessions(cmd)
			if err != nil {
				return err
			}
			defer sessions.Close()

			s, err := sessions.Manager.Get(cmd.Context(), contactID)
			if err != nil {
				return fmt.Errorf("failed to load session '%s': %w", contactID, err)
			}
			overlay = &graph.Overlay{Current: s.State}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(dialogue.Edges(), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("contact", "", "Highlight the state of this contact's session")
}
