package port

import (
	"context"

	"github.com/rl1809/sweetshop/internal/core/domain"
)

type EventPublisher interface {
	// PublishOrderEvent delivers an order lifecycle event to downstream consumers
	PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error
}
