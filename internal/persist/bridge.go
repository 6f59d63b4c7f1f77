// Package persist keeps the current workspace durable between sessions.
//
// The bridge writes one snapshot under a fixed key of a key-value store.
// Snapshots are an internal format: they are not .ocv archives and the two
// are not interchangeable.
package persist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ocv/internal/workspace"
)

// DefaultKey is the single slot the current workspace is stored under.
const DefaultKey = "current"

// KV is the durable key-value capability the bridge needs.
type KV interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithKey stores the snapshot under key instead of DefaultKey.
func WithKey(key string) Option {
	return func(b *Bridge) {
		if key = strings.TrimSpace(key); key != "" {
			b.key = key
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Bridge saves, loads and clears the persisted workspace.
type Bridge struct {
	kv     KV
	key    string
	logger *slog.Logger
}

// New creates a Bridge over kv.
func New(kv KV, opts ...Option) *Bridge {
	b := &Bridge{kv: kv, key: DefaultKey, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Key returns the slot key.
func (b *Bridge) Key() string {
	return b.key
}

// Save writes a snapshot of ws, replacing any previous one.
func (b *Bridge) Save(ctx context.Context, ws *workspace.Workspace) error {
	if err := b.ready(ctx); err != nil {
		return opError("save", err)
	}
	if ws == nil {
		return opError("save", fmt.Errorf("workspace is required"))
	}
	data, err := encodeSnapshot(ws)
	if err != nil {
		return opError("save", err)
	}
	if err := b.kv.Put(ctx, b.key, data); err != nil {
		return opError("save", err)
	}
	b.logger.Debug("workspace saved", "key", b.key, "bytes", len(data), "attachments", ws.Attachments.Len())
	return nil
}

// Load reads the persisted workspace. It returns false when nothing is
// stored.
func (b *Bridge) Load(ctx context.Context) (*workspace.Workspace, bool, error) {
	if err := b.ready(ctx); err != nil {
		return nil, false, opError("load", err)
	}
	data, ok, err := b.kv.Get(ctx, b.key)
	if err != nil {
		return nil, false, opError("load", err)
	}
	if !ok {
		return nil, false, nil
	}
	ws, err := decodeSnapshot(data)
	if err != nil {
		return nil, false, opError("load", err)
	}
	b.logger.Debug("workspace loaded", "key", b.key, "bytes", len(data))
	return ws, true, nil
}

// Clear deletes the persisted workspace. Clearing an empty slot is not an
// error.
func (b *Bridge) Clear(ctx context.Context) error {
	if err := b.ready(ctx); err != nil {
		return opError("clear", err)
	}
	if err := b.kv.Delete(ctx, b.key); err != nil {
		return opError("clear", err)
	}
	b.logger.Debug("workspace cleared", "key", b.key)
	return nil
}

func (b *Bridge) ready(ctx context.Context) error {
	if b == nil || b.kv == nil {
		return fmt.Errorf("storage is not configured")
	}
	return ctx.Err()
}
