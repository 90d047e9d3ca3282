package reconciliation

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Processor runs reconciliation passes on a fixed schedule while the API
// server is up.
type Processor struct {
	service  *Service
	interval time.Duration
}

func NewProcessor(service *Service, interval time.Duration) *Processor {
	return &Processor{
		service:  service,
		interval: interval,
	}
}

// Start begins the scheduled reconciliation loop. A failed pass is logged
// and the schedule continues; the loop stops on context cancellation.
func (p *Processor) Start(ctx context.Context) {
	logger := log.With().Str("component", "reconciliation_processor").Logger()
	logger.Info().Dur("interval", p.interval).Msg("starting reconciliation processor")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down reconciliation processor")
			return
		case <-ticker.C:
			if _, err := p.service.Run(); err != nil {
				logger.Error().Err(err).Msg("scheduled reconciliation run failed")
			}
		}
	}
}
