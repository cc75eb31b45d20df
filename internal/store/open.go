package store

import (
	"context"
	"fmt"
	"io"

	"github.com/Iron-Ham/pyexpl/internal/config"
	"github.com/Iron-Ham/pyexpl/internal/db"
)

// Open returns the KV selected by cfg.Store.Backend. The returned closer must
// be called on shutdown; it is a no-op for the file and memory backends.
func Open(ctx context.Context, cfg *config.Config) (KV, io.Closer, error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		return NewMemoryKV(nil), nopCloser{}, nil
	case config.StoreSQLite:
		conn, err := db.Open(ctx, cfg.StorePath())
		if err != nil {
			return nil, nil, fmt.Errorf("open selection database: %w", err)
		}
		kv := NewSQLiteKV(conn)
		return kv, kv, nil
	case config.StoreFile, "":
		kv, err := NewFileKV(cfg.StorePath())
		if err != nil {
			return nil, nil, err
		}
		return kv, nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
