package ports

import (
	"context"

	websocketdto "ambu-dispatch/internal/dispatch-service/core/domain/websocket_dto"
)

const (
	RouteBookingCreated = "booking.created"
	RouteBookingStatus  = "booking.status"
	RouteLocation       = "booking.location"
)

// INotificationBroker is the fire-and-forget side channel towards external
// notification consumers (SMS/email workers, hospital systems). Delivery
// failures are logged by callers, never propagated.
type INotificationBroker interface {
	Close() error
	PublishBookingEvent(ctx context.Context, routingKey string, event websocketdto.Event) error
}
