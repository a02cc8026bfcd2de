package main

import (
	"os"

	funil "github.com/aretw0/funil"
	"github.com/aretw0/funil/internal/cli"
	"github.com/aretw0/funil/internal/dialogue"
	"github.com/aretw0/funil/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the funnel in the terminal",
	Long: `Runs the conversation locally against the configured providers. Replies
are printed instead of sent; type the number of a button to press it and
"sair" to leave. Sessions live in memory unless --dir or --redis is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")
		contactID, _ := cmd.Flags().GetString("contact")
		dir, _ := cmd.Flags().GetString("dir")
		useRedis, _ := cmd.Flags().GetBool("redis")

		manager, err := cli.OpenLocalSessions(cfg, logger, dir)
		if err != nil {
			return err
		}
		if useRedis {
			sessions, err := cli.OpenSessions(cfg, logger, nil)
			if err != nil {
				return err
			}
			defer sessions.Close()
			manager = sessions.Manager
		}

		out := cmd.OutOrStdout()
		plain := out != os.Stdout || !term.IsTerminal(int(os.Stdout.Fd()))
		if !plain {
			tui.PrintBanner(out, funil.Version)
		}
		console := tui.NewConsole(out, plain)

		hooks := cli.DebugHooks(logger)
		opts, err := cli.DialogueOptions(cfg, logger, hooks)
		if err != nil {
			return err
		}
		providers := cli.NewProviders(cfg, nil)
		engine := dialogue.New(manager, console, cli.LocalContacts{Name: name},
			providers.Rates(logger, hooks),
			providers.Pipeline(logger, hooks),
			opts...,
		)

		return cli.RunChat(signalContext(cmd), engine, console, cli.ChatOptions{
			ContactID: contactID,
			Number:    "5500000000000",
			In:        cmd.InOrStdin(),
			Out:       out,
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("name", "Cliente", "Display name used in greetings")
	chatCmd.Flags().String("contact", "local", "Contact id the session is stored under")
	chatCmd.Flags().String("dir", "", "Keep sessions as files in this directory")
	chatCmd.Flags().Bool("redis", false, "Keep the session in the configured Redis")
}
