package main

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Protocol-Lattice/inbox-agent/src/config"
	"github.com/Protocol-Lattice/inbox-agent/src/logging"
)

// app is the state shared by subcommands once flags are parsed.
type app struct {
	cfg *config.Config
	log zerolog.Logger
}

func NewRootCommand() *cobra.Command {
	a := &app{log: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "inbox",
		Short: "Email triage and drafting agent",
		Long: `inbox classifies incoming emails, drafts replies from per-category prompt templates
and rewrites those templates from your feedback on the drafts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config file (default inbox.yaml in ., ./config or $HOME/.inbox)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("provider", "", "generation provider: gemini, genai, openai, anthropic, ollama, dummy")
	rootCmd.PersistentFlags().String("model", "", "model name")

	rootCmd.AddCommand(newRunCommand(a))
	rootCmd.AddCommand(newClassifyCommand(a))
	rootCmd.AddCommand(newTemplatesCommand(a))
	rootCmd.AddCommand(newToolsCommand(a))

	return rootCmd
}

func (a *app) load(cmd *cobra.Command) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.Options{ConfigFile: configFile, Flags: cmd.Flags()})
	if err != nil {
		return err
	}
	level := cfg.Log.Level
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = "debug"
	}
	a.cfg = cfg
	a.log = logging.New(level, cfg.Log.Pretty, cmd.ErrOrStderr())
	log.Logger = a.log
	a.log.Debug().Str("provider", cfg.Provider).Str("model", cfg.Model).Str("templates", cfg.Templates.Backend).Msg("configuration loaded")
	return nil
}
