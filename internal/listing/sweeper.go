package listing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/listing-marketplace/internal/core/events"
)

const defaultSweepBatchSize = 100

// Sweeper expires published listings whose window has elapsed. It holds no
// state between runs and may run concurrently with itself and with Publish.
type Sweeper struct {
	repo      RepositoryAPI
	publisher events.Publisher
	logger    *slog.Logger
	batchSize int
	now       func() time.Time
}

func NewSweeper(repo RepositoryAPI, publisher events.Publisher, logger *slog.Logger, batchSize int) *Sweeper {
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}
	return &Sweeper{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Sweep returns the number of listings this run moved to expired.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now().UTC()
	expired := 0

	for {
		if err := ctx.Err(); err != nil {
			return expired, err
		}

		candidates, err := s.repo.List(ctx, Filter{
			Status:            StatusPublished,
			ExpiresAtOrBefore: &now,
		}, OrderExpiresAsc, s.batchSize, 0)
		if err != nil {
			s.logger.Error("sweep candidate scan failed", "error", err, "expired_so_far", expired)
			return expired, fmt.Errorf("scan expired listings: %w", err)
		}
		if len(candidates) == 0 {
			break
		}

		appliedInBatch := 0
		for _, c := range candidates {
			applied, err := s.repo.UpdateIfStatus(ctx, c.ID, StatusPublished, Fields{
				"status":     StatusExpired,
				"updated_at": now,
			})
			if err != nil {
				s.logger.Error("expire write failed", "error", err, "listing_id", c.ID)
				return expired, fmt.Errorf("expire listing %s: %w", c.ID, err)
			}
			if !applied {
				// another sweeper got there first
				continue
			}
			appliedInBatch++
			expired++
			s.logger.Info("listing expired", "listing_id", c.ID, "expires_at", c.ExpiresAt)
			if s.publisher != nil {
				if err := s.publisher.Publish(ctx, events.NewListingExpiredEvent(c.ID, now)); err != nil {
					s.logger.Error("failed to publish event", "error", err, "listing_id", c.ID)
				}
			}
		}

		if len(candidates) < s.batchSize || appliedInBatch == 0 {
			break
		}
	}

	s.logger.Info("expiration sweep finished", "expired", expired, "as_of", now)
	return expired, nil
}
