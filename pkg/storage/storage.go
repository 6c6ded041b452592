package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/hooplab/goatindex/pkg/config"
	"github.com/hooplab/goatindex/pkg/logger"
)

// Error taxonomy. Every backend normalizes its failures to one of these
// sentinels so callers can decide on retry behavior without knowing the
// backend.
var (
	// ErrNotFound means the key has no object. Not retryable.
	ErrNotFound = errors.New("storage: object not found")
	// ErrUnavailable means the backend is unreachable or timed out.
	// Callers may retry with backoff.
	ErrUnavailable = errors.New("storage: backend unavailable")
	// ErrPermission means the backend refused the operation. Fatal,
	// surfaced to the operator.
	ErrPermission = errors.New("storage: permission denied")
)

// Store is the uniform object store contract. Keys are logical slash
// separated paths, independent of backend: the same key addresses the
// same logical object on every backend.
//
// Write has atomic replace semantics: a write either fully completes or
// the prior object version remains visible.
type Store interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open selects and initializes the configured backend. Selection happens
// once here, never per call.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendLocal:
		return NewLocal(cfg.Storage.Root, log)
	case config.BackendRemote:
		return NewPostgres(ctx, cfg.Storage, log)
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Storage.Backend)
	}
}
