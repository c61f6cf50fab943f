package ws

import (
	"encoding/json"
	"time"

	websocketdto "ambu-dispatch/internal/dispatch-service/core/domain/websocket_dto"
	"ambu-dispatch/internal/dispatch-service/core/services"
	"ambu-dispatch/internal/mylogger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type Client struct {
	conn *websocket.Conn
	sub  *services.Subscription
	dis  *Dispatcher
	log  mylogger.Logger
}

func NewClient(conn *websocket.Conn, sub *services.Subscription, dis *Dispatcher, log mylogger.Logger) *Client {
	return &Client{
		conn: conn,
		sub:  sub,
		dis:  dis,
		log:  log,
	}
}

// ReadMessage drains the connection until the peer goes away. Inbound
// payloads are ignored, the subscription is one-way after auth.
func (c *Client) ReadMessage() {
	defer c.dis.dropClient(c)

	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("websocket closed unexpectedly", "topic", c.sub.Topic)
			}
			return
		}
	}
}

// WriteMessage pumps subscription events to the peer. When the bounded queue
// overflowed, the client is told to reconnect and resync, then dropped.
func (c *Client) WriteMessage() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.dis.dropClient(c)
	}()

	for {
		select {
		case event, ok := <-c.sub.Events():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
			if c.sub.NeedsReconnect() {
				c.requestReconnect()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) requestReconnect() {
	data, _ := json.Marshal(map[string]string{"reason": "event queue overflowed, resync via GET /bookings/{booking_id}"})
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteJSON(websocketdto.Event{Type: "reconnect_required", Data: data})
}
