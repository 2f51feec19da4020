package app

import (
	"context"

	"github.com/rs/zerolog/log"
)

// withLock runs fn while holding the package database lock. A nil Lock
// runs fn unguarded.
func (s Service) withLock(ctx context.Context, fn func() error) error {
	if s.Lock == nil {
		return fn()
	}
	if err := s.Lock.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := s.Lock.Release(); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("failed to release package database lock")
		}
	}()
	return fn()
}
