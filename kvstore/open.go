package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ScubaLog/config"
	"ScubaLog/mirror"
)

// ErrUnknownBackend is returned by Open for an unrecognised backend name.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Open returns the store selected by cfg.Backend and a function that releases it.
func Open(ctx context.Context, cfg config.Storage, logger *slog.Logger) (mirror.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemory(), noop, nil
	case config.BackendFile:
		s, err := NewFile(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case config.BackendBadger:
		s, err := OpenBadger(BadgerConfig{Dir: cfg.BadgerDir, SyncWrites: true, Logger: logger})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.BackendMySQL:
		s, err := OpenMySQL(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
