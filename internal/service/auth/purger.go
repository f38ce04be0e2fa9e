package auth

import (
	"context"
	"time"

	"github.com/nkiryanov/tasktracker/internal/logger"
	"github.com/nkiryanov/tasktracker/internal/repository"
)

const defaultPurgeInterval = time.Hour

// Purger periodically removes revocation entries of already expired tokens
type Purger struct {
	interval time.Duration
	repo     repository.RevocationRepo
	logger   logger.Logger
	now      func() time.Time
}

func NewPurger(repo repository.RevocationRepo, interval time.Duration, l logger.Logger) *Purger {
	if interval <= 0 {
		interval = defaultPurgeInterval
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Purger{
		interval: interval,
		repo:     repo,
		logger:   l.With("component", "purger"),
		now:      time.Now,
	}
}

// PurgeOnce deletes entries that expired before now
func (p *Purger) PurgeOnce(ctx context.Context) (int64, error) {
	return p.repo.PurgeExpired(ctx, p.now())
}

// Run purges on every tick until ctx is done
// Returned channel is closed when the loop stopped
func (p *Purger) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})
	p.logger.Debug("Starting purger", "interval", p.interval)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Debug("Purger stopped by context")
				return

			case <-ticker.C:
				purged, err := p.PurgeOnce(ctx)
				if err != nil {
					p.logger.Error("Failed to purge revoked tokens", "error", err)
					continue
				}
				p.logger.Debug("Revoked tokens purged", "count", purged)
			}
		}
	}()

	return idleStopped
}
