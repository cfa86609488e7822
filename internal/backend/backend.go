// Package backend opens the ledger store selected by DATA_BACKEND.
package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"kakeibo/internal/config"
	"kakeibo/internal/log"
	"kakeibo/internal/ports"
	"kakeibo/internal/storage"
	"kakeibo/internal/store/memory"
)

type Type string

const (
	SQLite Type = "sqlite"
	Memory Type = "memory"
)

// Types lists the supported backends in preference order.
func Types() []Type { return []Type{SQLite, Memory} }

// ParseType accepts a backend name case-insensitively.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Types() {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown data backend %q (want one of %v)", s, Types())
}

type Options struct {
	Type       Type
	SQLitePath string
	// DataDir holds the seed category files read by the memory backend.
	DataDir string
}

// OptionsFromConfig maps the application configuration onto backend options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	if cfg == nil {
		return Options{}, fmt.Errorf("nil configuration")
	}
	t, err := ParseType(cfg.DataBackend)
	if err != nil {
		return Options{}, err
	}
	dir := cfg.DataDirectory
	if dir == "" {
		dir = "data"
	}
	return Options{Type: t, SQLitePath: cfg.SQLiteDBPath, DataDir: dir}, nil
}

// Backend is an opened store. Queue is nil when the store cannot hold
// the durable report sync queue.
type Backend struct {
	Type  Type
	Store ports.Store
	Queue ports.SyncQueue
}

// Close releases the store if it holds resources.
func (b *Backend) Close() error {
	if c, ok := b.Store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Open creates the store described by opts.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(log.FieldComponent, log.ComponentBackend)

	switch opts.Type {
	case SQLite:
		if opts.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite backend needs a database path")
		}
		repo, err := storage.NewSQLiteRepository(opts.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.InfoContext(ctx, "Opened SQLite store", "db_path", opts.SQLitePath)
		return &Backend{Type: SQLite, Store: repo, Queue: repo}, nil

	case Memory:
		logger.InfoContext(ctx, "Opened memory store", "data_directory", opts.DataDir)
		return &Backend{Type: Memory, Store: memory.NewFromFiles(opts.DataDir)}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %q", opts.Type)
	}
}
