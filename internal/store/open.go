package store

import (
	"context"
	"fmt"
	"os"

	"github.com/tartampluch/remindme/internal/config"
)

// Open creates the backend selected by the settings.
func Open(ctx context.Context, s config.StoreSettings) (Backend, error) {
	switch s.Backend {
	case config.BackendMemory:
		return NewMemory(), nil
	case config.BackendFile:
		return NewFile(s.Path)
	case config.BackendSQLite:
		return NewSQLite(ctx, s.Path)
	case config.BackendRedis:
		return NewRedis(ctx, s)
	default:
		return nil, fmt.Errorf("%s: %q", config.ErrBackendUnsupported, s.Backend)
	}
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, config.DirPermUserRWX); err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreOpen, err)
	}
	return nil
}
