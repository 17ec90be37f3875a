package intent

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ExpireStale moves pending intents past their deadline to expired. Intents
// held by a live finalize claim are skipped.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	now := s.now()
	ids, err := s.store.ListExpired(ctx, now, s.lease, 500)
	if err != nil {
		return 0, internal(err, "list expired intents")
	}
	n := 0
	for _, id := range ids {
		out, err := s.store.Transition(ctx, Transition{ID: id, To: StatusExpired, At: now, Lease: s.lease})
		if errors.Is(err, ErrStale) {
			continue
		}
		if err != nil {
			return n, internal(err, "expire intent %s", id)
		}
		s.transitioned(out, StatusPending)
		n++
	}
	return n, nil
}

// RunSweeper calls ExpireStale every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := s.ExpireStale(ctx)
			if err != nil {
				s.log.Error().Err(err).Msg("sweep")
				continue
			}
			if n > 0 {
				s.log.Info().Int("expired", n).Msg("sweep")
			}
		}
	}
}
