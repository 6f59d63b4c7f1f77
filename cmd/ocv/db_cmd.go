package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ocv/internal/config"
	"ocv/internal/store"
)

func newDBCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{Use: "db", Short: "Inspect the session database"}
	cmd.AddCommand(newDBStatusCmd(cfg, jsonOutput))
	return cmd
}

type dbStatus struct {
	Path       string                 `json:"path"`
	Migrations *store.MigrationStatus `json:"migrations"`
	Keys       []store.Entry          `json:"keys"`
}

func newDBStatusCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show schema version and stored keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := loadDBStatus(cmd.Context(), cfg.DBPath)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(status)
			}

			if err := writePlain("path: %s\nschema version: %d of %d\n", status.Path, status.Migrations.CurrentVersion, status.Migrations.AvailableVersion); err != nil {
				return err
			}
			for _, entry := range status.Keys {
				if err := writePlain("key %s: %s, updated %s\n", entry.Key, formatBytes(entry.Size), formatTime(entry.UpdatedAt)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func loadDBStatus(ctx context.Context, path string) (dbStatus, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := openStore(path)
	if err != nil {
		return dbStatus{}, err
	}
	defer st.Close()

	plan, err := st.MigrationPlan()
	if err != nil {
		return dbStatus{}, fmt.Errorf("inspect migrations: %w", err)
	}
	entries, err := st.Keys(ctx)
	if err != nil {
		return dbStatus{}, err
	}
	return dbStatus{Path: path, Migrations: plan, Keys: entries}, nil
}
