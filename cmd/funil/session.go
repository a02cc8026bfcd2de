package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/funil/internal/cli"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored conversations",
	Long:  `List, inspect, reset and remove the sessions kept in Redis.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := openSessions(cmd)
		if err != nil {
			return err
		}
		defer sessions.Close()

		rows, err := cli.ListSessions(cmd.Context(), sessions.Manager)
		if err != nil {
			return err
		}
		return cli.PrintSessions(cmd.OutOrStdout(), rows)
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <contact-id>",
	Short: "Print a session as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := openSessions(cmd)
		if err != nil {
			return err
		}
		defer sessions.Close()

		s, err := sessions.Manager.Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load session '%s': %w", args[0], err)
		}
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <contact-id>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := openSessions(cmd)
		if err != nil {
			return err
		}
		defer sessions.Close()

		var failed int
		for _, id := range args {
			if err := sessions.Manager.Delete(cmd.Context(), id); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error removing '%s': %v\n", id, err)
				failed++
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed session '%s'\n", id)
		}
		if failed > 0 {
			return fmt.Errorf("%d session(s) not removed", failed)
		}
		return nil
	},
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset <contact-id>",
	Short: "Send a contact back to the menu",
	Long:  `Drops the offer, banking details and proposal link. Name and CPF are kept.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := openSessions(cmd)
		if err != nil {
			return err
		}
		defer sessions.Close()

		if err := sessions.Manager.Reset(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to reset session '%s': %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reset session '%s'\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd, sessionInspectCmd, sessionRmCmd, sessionResetCmd)
}

func openSessions(cmd *cobra.Command) (*cli.Sessions, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	sessions, err := cli.OpenSessions(cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	if err := sessions.Redis.Ping(cmd.Context()); err != nil {
		sessions.Close()
		return nil, fmt.Errorf("redis unreachable: %w", err)
	}
	return sessions, nil
}
