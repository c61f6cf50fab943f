package ws

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"ambu-dispatch/internal/dispatch-service/core/domain/model"
	websocketdto "ambu-dispatch/internal/dispatch-service/core/domain/websocket_dto"
	"ambu-dispatch/internal/dispatch-service/core/services"
	"ambu-dispatch/internal/mylogger"

	"github.com/golang-jwt/jwt"
	"github.com/gorilla/websocket"
)

const authWait = 5 * time.Second

var websocketUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Dispatcher bridges websocket connections onto broadcaster subscriptions.
// Each connection authenticates with its first message, then receives the
// events of one booking topic (admins get everything).
type Dispatcher struct {
	broadcaster  *services.Broadcaster
	accessSecret string
	log          mylogger.Logger

	mu      sync.Mutex
	clients map[*Client]bool
}

func NewDispatcher(broadcaster *services.Broadcaster, accessSecret string, log mylogger.Logger) *Dispatcher {
	return &Dispatcher{
		broadcaster:  broadcaster,
		accessSecret: accessSecret,
		log:          log,
		clients:      make(map[*Client]bool),
	}
}

// WsHandler subscribes the connection to one booking's event stream.
func (d *Dispatcher) WsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.serve(w, r, r.PathValue("booking_id"))
	}
}

// WsAmbulanceHandler subscribes a crew connection to its ambulance topic,
// where booking_created events for new assignments arrive.
func (d *Dispatcher) WsAmbulanceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ambulanceID := r.PathValue("ambulance_id")
		if ambulanceID == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		d.serve(w, r, "ambulance."+ambulanceID)
	}
}

func (d *Dispatcher) serve(w http.ResponseWriter, r *http.Request, topic string) {
	log := d.log.Action("wsHandler")

	if topic == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	conn, err := websocketUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("cannot upgrade", err)
		return
	}

	role, err := d.authenticate(conn)
	if err != nil {
		log.Warn("websocket auth failed", "topic", topic, "reason", err.Error())
		_ = conn.WriteJSON(map[string]string{"error": "unauthorized"})
		conn.Close()
		return
	}

	sub := d.broadcaster.Subscribe(topic, role)
	client := NewClient(conn, sub, d, log)

	d.mu.Lock()
	d.clients[client] = true
	d.mu.Unlock()

	log.Info("websocket subscribed", "topic", topic, "role", string(role))
	go client.ReadMessage()
	go client.WriteMessage()
}

// authenticate waits for the first frame, which must carry a valid token.
func (d *Dispatcher) authenticate(conn *websocket.Conn) (model.Role, error) {
	_ = conn.SetReadDeadline(time.Now().Add(authWait))
	defer conn.SetReadDeadline(time.Time{})

	var msg websocketdto.AuthMessage
	if err := conn.ReadJSON(&msg); err != nil {
		return "", fmt.Errorf("no auth message: %w", err)
	}

	token, err := jwt.Parse(msg.Token, func(t *jwt.Token) (interface{}, error) {
		return []byte(d.accessSecret), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid claims")
	}
	rawRole, ok := claims["role"].(string)
	if !ok {
		return "", fmt.Errorf("role not found in token")
	}

	switch role := model.Role(rawRole); role {
	case model.RolePatient, model.RoleDriver, model.RoleAdmin:
		return role, nil
	default:
		return "", fmt.Errorf("unknown role %q", rawRole)
	}
}

// dropClient is idempotent, both pumps call it on the way out.
func (d *Dispatcher) dropClient(c *Client) {
	d.mu.Lock()
	_, present := d.clients[c]
	delete(d.clients, c)
	d.mu.Unlock()

	if !present {
		return
	}

	d.broadcaster.Unsubscribe(c.sub)
	c.conn.Close()
}
