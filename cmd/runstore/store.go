package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/manifoldco/promptui"

	"github.com/sagarc03/runstore/catalog"
	"github.com/sagarc03/runstore/config"
	"github.com/sagarc03/runstore/pool"
)

// session is an acquired store together with the registry that owns it.
type session struct {
	registry *pool.Registry
	handle   *pool.Handle
}

func (s *session) Close() {
	if err := s.registry.Close(); err != nil {
		slog.Warn("close store", "err", err)
	}
}

func openSession(ctx context.Context, cfg *config.Config, readOnly bool) (*session, error) {
	reg := pool.NewRegistry(cfg.Backend())

	var opts []pool.AcquireOption
	if readOnly {
		opts = append(opts, pool.ReadOnly())
	}

	h, err := reg.Acquire(ctx, cfg.Database.Location, opts...)
	if err != nil {
		return nil, err
	}

	return &session{registry: reg, handle: h}, nil
}

func openCatalog(ctx context.Context, cfg *config.Config, readOnly bool) (*catalog.Catalog, *session, error) {
	s, err := openSession(ctx, cfg, readOnly)
	if err != nil {
		return nil, nil, err
	}

	c, err := catalog.Open(ctx, s.handle)
	if err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("open catalog: %w", err)
	}

	return c, s, nil
}

// confirm asks a yes/no question. It reports false when the user declines.
func confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
