// Package repository selects and opens the configured artifact store.
package repository

import (
	"context"
	"fmt"

	"github.com/flowgraph/flowlogic/internal/adapters/repository/memory"
	"github.com/flowgraph/flowlogic/internal/adapters/repository/postgres"
	"github.com/flowgraph/flowlogic/internal/adapters/repository/sqlite"
	"github.com/flowgraph/flowlogic/internal/config"
	"github.com/flowgraph/flowlogic/internal/core/artifact"
	"github.com/flowgraph/flowlogic/pkg/serialization"
)

// Store is an opened artifact store and its release function.
type Store struct {
	Saver artifact.Saver
	Kind  string
	close func() error
}

// Close releases the store. Safe on a nil or storeless value.
func (s *Store) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

// Open opens the store named by cfg.Store. StoreNone yields a Store with a
// nil Saver.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	serializer, err := serialization.FromNames(cfg.Codec, cfg.Compression)
	if err != nil {
		return nil, fmt.Errorf("artifact serializer: %w", err)
	}

	switch cfg.Store {
	case config.StoreNone, "":
		return &Store{Kind: config.StoreNone}, nil

	case config.StoreMemory:
		s := memory.NewSaver(memory.Config{
			TTL:             cfg.MemoryTTL,
			CleanupInterval: cfg.MemoryTTL,
			Serializer:      serializer,
		})
		return &Store{Saver: s, Kind: cfg.Store, close: s.Close}, nil

	case config.StoreSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath, serializer)
		if err != nil {
			return nil, err
		}
		return &Store{Saver: s, Kind: cfg.Store, close: s.Close}, nil

	case config.StorePostgres:
		s, err := postgres.Connect(ctx, cfg.DatabaseURL, serializer)
		if err != nil {
			return nil, err
		}
		return &Store{Saver: s, Kind: cfg.Store, close: func() error {
			s.Close()
			return nil
		}}, nil

	default:
		return nil, fmt.Errorf("unknown artifact store %q", cfg.Store)
	}
}
