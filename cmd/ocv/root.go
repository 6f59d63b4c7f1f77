package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ocv/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		jsonOutput bool
		logLevel   string
		dbPath     string
	)

	cmd := &cobra.Command{
		Use:           "ocv",
		Short:         "Ocv keeps a CV and its attachments in one portable .ocv file",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(dbPath) != "" {
				cfg.DBPath = dbPath
			}
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the session database")

	cmd.AddCommand(
		newNewCmd(cfg, &jsonOutput),
		newOpenCmd(cfg, &jsonOutput),
		newExportCmd(cfg, &jsonOutput),
		newCloseCmd(cfg),
		newShowCmd(cfg, &jsonOutput),
		newInfoCmd(cfg, &jsonOutput),
		newInspectCmd(cfg, &jsonOutput),
		newCVCmd(cfg, &jsonOutput),
		newAttachCmd(cfg, &jsonOutput),
		newConfigCmd(cfg),
		newDBCmd(cfg, &jsonOutput),
	)

	return cmd
}
