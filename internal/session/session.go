// Package session owns the single current workspace of a process and keeps
// it in step with durable storage.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"ocv/internal/autosave"
	"ocv/internal/clock"
	"ocv/internal/container"
	"ocv/internal/persist"
	"ocv/internal/workspace"
)

// ErrNoWorkspace is returned when an operation needs an open workspace.
var ErrNoWorkspace = errors.New("no workspace is open")

// Option configures a Session.
type Option func(*Session)

func WithClock(c clock.Clock) Option {
	return func(s *Session) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithAutosaveDelay sets the idle period before an edit is saved.
func WithAutosaveDelay(d time.Duration) Option {
	return func(s *Session) {
		s.delay = d
	}
}

// WithAutosaveErrorHandler receives failures of background saves.
func WithAutosaveErrorHandler(fn func(error)) Option {
	return func(s *Session) {
		s.onAutosaveError = fn
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session serialises every edit, encode and save of the current workspace.
type Session struct {
	bridge *persist.Bridge
	codec  *container.Codec
	clock  clock.Clock
	logger *slog.Logger

	delay           time.Duration
	onAutosaveError func(error)
	autosave        *autosave.Debouncer

	mu      sync.Mutex
	current *workspace.Workspace
}

// New creates a Session with no workspace open.
func New(bridge *persist.Bridge, codec *container.Codec, opts ...Option) *Session {
	s := &Session{
		bridge: bridge,
		codec:  codec,
		clock:  clock.Real(),
		logger: slog.Default(),
		delay:  autosave.DefaultDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.codec == nil {
		s.codec = container.New(container.WithClock(s.clock), container.WithLogger(s.logger))
	}

	debounceOpts := []autosave.Option{autosave.WithLogger(s.logger)}
	if s.onAutosaveError != nil {
		debounceOpts = append(debounceOpts, autosave.WithErrorHandler(s.onAutosaveError))
	}
	s.autosave = autosave.New(s.clock, s.delay, s.saveCurrent, debounceOpts...)
	return s
}

// Restore loads the persisted workspace, if any, and makes it current.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	ws, ok, err := s.bridge.Load(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	s.mu.Lock()
	s.current = ws
	s.mu.Unlock()
	s.logger.Debug("workspace restored", "attachments", len(ws.Manifest.Files))
	return true, nil
}

// Create replaces the current workspace with an empty one and saves it.
func (s *Session) Create(ctx context.Context) (*workspace.Workspace, error) {
	s.autosave.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = workspace.New(s.clock.Now())
	if err := s.bridge.Save(ctx, s.current); err != nil {
		return s.current, err
	}
	s.logger.Info("workspace created")
	return s.current, nil
}

// Open decodes an archive and makes it the current workspace. A decode
// failure leaves the previous workspace untouched. A save failure after a
// successful decode is returned but the decoded workspace stays current.
func (s *Session) Open(ctx context.Context, data []byte) (*workspace.Workspace, error) {
	ws, err := s.codec.Decode(data)
	if err != nil {
		return nil, err
	}
	s.autosave.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = ws
	if err := s.bridge.Save(ctx, ws); err != nil {
		return ws, err
	}
	s.logger.Info("workspace opened", "attachments", len(ws.Manifest.Files), "bytes", len(data))
	return ws, nil
}

// Export encodes the current workspace. On success updatedAt of the
// current workspace becomes the export time and an autosave is scheduled.
func (s *Session) Export(ctx context.Context) ([]byte, error) {
	return s.ExportTo(ctx, nil)
}

// ExportTo encodes the current workspace and hands the bytes to commit,
// typically a file write. updatedAt is stamped and an autosave scheduled
// only after commit succeeds; a failed commit leaves the workspace as it
// was. A nil commit always succeeds.
func (s *Session) ExportTo(ctx context.Context, commit func(data []byte) error) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return nil, ErrNoWorkspace
	}
	now := s.clock.Now().UTC().Truncate(time.Millisecond)
	data, err := s.codec.EncodeAt(s.current, now)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if commit != nil {
		if err := commit(data); err != nil {
			s.mu.Unlock()
			return nil, err
		}
	}
	s.current.Manifest.UpdatedAt = now
	s.mu.Unlock()

	s.autosave.Schedule()
	s.logger.Info("workspace exported", "bytes", len(data))
	return data, nil
}

// Edit applies fn to a copy of the current workspace and keeps the result
// only when fn succeeds. A successful edit schedules an autosave.
func (s *Session) Edit(fn func(*workspace.Workspace) error) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return ErrNoWorkspace
	}
	draft := s.current.Clone()
	if err := fn(draft); err != nil {
		s.mu.Unlock()
		return err
	}
	s.current = draft
	s.mu.Unlock()

	s.autosave.Schedule()
	return nil
}

// View calls fn with the current workspace under the session lock. fn must
// not modify it.
func (s *Session) View(fn func(*workspace.Workspace) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNoWorkspace
	}
	return fn(s.current)
}

// Workspace returns the current workspace.
func (s *Session) Workspace() (*workspace.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, ErrNoWorkspace
	}
	return s.current, nil
}

// Opened reports whether a workspace is current.
func (s *Session) Opened() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Save writes the current workspace now, replacing any pending autosave.
func (s *Session) Save(ctx context.Context) error {
	s.autosave.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNoWorkspace
	}
	return s.bridge.Save(ctx, s.current)
}

// Flush runs a pending autosave immediately.
func (s *Session) Flush(ctx context.Context) error {
	return s.autosave.Flush(ctx)
}

// AutosavePending reports whether an autosave is armed.
func (s *Session) AutosavePending() bool {
	return s.autosave.Pending()
}

// Close discards the current workspace and clears persisted state.
func (s *Session) Close(ctx context.Context) error {
	s.autosave.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	if err := s.bridge.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info("workspace closed")
	return nil
}

func (s *Session) saveCurrent(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	if err := s.bridge.Save(ctx, s.current); err != nil {
		return fmt.Errorf("autosave: %w", err)
	}
	return nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// ExportName suggests a file name for an export of a CV called name:
// trimmed, whitespace runs replaced by underscores, with an .ocv suffix.
// An empty name yields fallback.
func ExportName(name, fallback string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		if fallback = strings.TrimSpace(fallback); fallback == "" {
			fallback = "cv.ocv"
		}
		return fallback
	}
	return whitespaceRun.ReplaceAllString(trimmed, "_") + ".ocv"
}
