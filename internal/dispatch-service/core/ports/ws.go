package ports

import websocketdto "ambu-dispatch/internal/dispatch-service/core/domain/websocket_dto"

// IRealtimePublisher is the narrow publishing face of the broadcaster the
// dispatch and state-machine services write to. Subscription management lives
// on the concrete broadcaster owned by the transport layer.
type IRealtimePublisher interface {
	Publish(topic string, event websocketdto.Event)
}
