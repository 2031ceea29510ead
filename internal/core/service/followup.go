package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rl1809/sweetshop/internal/core/domain"
	"github.com/rl1809/sweetshop/internal/port"
)

const followUpTimeout = 5 * time.Second

// FollowUp is post-commit work attached to an order. It is best-effort:
// failures are logged and never reach the caller that placed the order.
type FollowUp struct {
	ClearCartFor string
	Event        *domain.OrderEvent
}

type FollowUpProcessor struct {
	cart      port.CartRepository
	publisher port.EventPublisher
	logger    zerolog.Logger
}

// NewFollowUpProcessor builds a processor. publisher may be nil when event
// delivery is disabled.
func NewFollowUpProcessor(cart port.CartRepository, publisher port.EventPublisher, logger zerolog.Logger) *FollowUpProcessor {
	return &FollowUpProcessor{
		cart:      cart,
		publisher: publisher,
		logger:    logger.With().Str("component", "follow_up").Logger(),
	}
}

// Process runs every step of f, logging failures. The joined error is
// returned for callers that want to observe it.
func (p *FollowUpProcessor) Process(ctx context.Context, f FollowUp) error {
	var errs []error

	if f.ClearCartFor != "" && p.cart != nil {
		if err := p.cart.ClearCart(ctx, f.ClearCartFor); err != nil {
			p.logger.Error().Err(err).Str("user_id", f.ClearCartFor).Msg("failed to clear cart")
			errs = append(errs, fmt.Errorf("clear cart: %w", err))
		}
	}

	if f.Event != nil && p.publisher != nil {
		if err := p.publisher.PublishOrderEvent(ctx, *f.Event); err != nil {
			p.logger.Error().Err(err).
				Str("order_id", f.Event.OrderID).
				Str("event", string(f.Event.Type)).
				Msg("failed to publish order event")
			errs = append(errs, fmt.Errorf("publish event: %w", err))
		}
	}

	return errors.Join(errs...)
}

// RunFollowUpWorker drains queue until it is closed.
func RunFollowUpWorker(id int, queue <-chan FollowUp, p *FollowUpProcessor) {
	for f := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), followUpTimeout)

		if err := p.Process(ctx, f); err == nil {
			ev := p.logger.Debug().Int("worker", id)
			if f.Event != nil {
				ev = ev.Str("order_id", f.Event.OrderID)
			}
			ev.Msg("follow-up done")
		}

		cancel()
	}
}
