package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ocv/internal/config"
	"ocv/internal/container"
	"ocv/internal/persist"
	"ocv/internal/session"
	"ocv/internal/store"
)

// sessionMode controls how a command treats unreadable persisted state.
type sessionMode int

const (
	// restoreStrict fails the command when persisted state cannot be read.
	restoreStrict sessionMode = iota
	// restoreLenient logs and continues, for commands that replace the state.
	restoreLenient
)

func newCodec(cfg *config.Config) *container.Codec {
	return container.New(
		container.WithMaxMemberBytes(cfg.Container.MaxMemberBytes),
		container.WithLogger(slog.Default()),
	)
}

// withSession opens the session database, restores the current workspace
// and runs fn. A pending autosave is flushed before the database closes.
func withSession(cmd *cobra.Command, cfg *config.Config, mode sessionMode, fn func(ctx context.Context, sess *session.Session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	logger := slog.Default()
	sess := session.New(
		persist.New(st, persist.WithLogger(logger)),
		newCodec(cfg),
		session.WithAutosaveDelay(cfg.AutosaveDelayDuration()),
		session.WithLogger(logger),
	)

	if _, err := sess.Restore(ctx); err != nil {
		if mode == restoreStrict {
			return fmt.Errorf("restore workspace: %w", err)
		}
		logger.Warn("discarding unreadable saved workspace", "error", err)
	}

	runErr := fn(ctx, sess)
	if flushErr := sess.Flush(ctx); flushErr != nil && runErr == nil {
		runErr = flushErr
	}
	return runErr
}

func openStore(path string) (*store.Store, error) {
	if path == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}
	return st, nil
}
