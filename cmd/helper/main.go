package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"ambu-dispatch/internal/config"
	websocketdto "ambu-dispatch/internal/dispatch-service/core/domain/websocket_dto"
	"ambu-dispatch/internal/mylogger"

	"github.com/gorilla/websocket"
)

// Ambulance crew simulator. It tails a booking's event stream over the
// websocket and keeps posting fake GPS positions for the ambulance, the way
// the mobile unit would.
func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := mylogger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ambulanceID := flag.String("ambulance_id", "", "Ambulance to report positions for")
	bookingID := flag.String("booking_id", "", "Booking whose events to follow")
	token := flag.String("token", "", "Driver JWT token")
	lat := flag.Float64("lat", 12.9716, "Initial latitude")
	lon := flag.Float64("lon", 77.5946, "Initial longitude")
	flag.Parse()

	if *ambulanceID == "" || *bookingID == "" || *token == "" {
		log.Fatal("ambulance_id, booking_id and token are required")
	}

	baseURL := fmt.Sprintf("http://localhost:%s", cfg.Srv.DispatchServicePort)
	wsURL := fmt.Sprintf("ws://localhost:%s/ws/bookings/%s", cfg.Srv.DispatchServicePort, *bookingID)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect to WebSocket server: %v", err)
	}
	defer conn.Close()
	appLogger.Action("websocket_connected").Info("Connected to WebSocket server", "booking_id", *bookingID)

	// first frame authenticates the subscription
	if err := conn.WriteJSON(websocketdto.AuthMessage{Token: *token}); err != nil {
		appLogger.Error("Error sending authentication message", err)
		return
	}

	go func() {
		for {
			var event websocketdto.Event
			if err := conn.ReadJSON(&event); err != nil {
				appLogger.Error("Error reading WebSocket message", err)
				return
			}
			appLogger.Info("Received event", "type", event.Type, "data", string(event.Data))

			if event.Type == "reconnect_required" {
				appLogger.Warn("server asked for a resync", "booking_id", *bookingID)
				return
			}
		}
	}()

	position := struct {
		Latitude  float64
		Longitude float64
	}{Latitude: *lat, Longitude: *lon}

	client := &http.Client{Timeout: 5 * time.Second}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		// Simulate small movement
		position.Latitude += (rand.Float64() - 0.5) / 1000
		position.Longitude += (rand.Float64() - 0.5) / 1000

		body, _ := json.Marshal(map[string]float64{
			"latitude":  position.Latitude,
			"longitude": position.Longitude,
		})

		url := fmt.Sprintf("%s/ambulances/%s/location", baseURL, *ambulanceID)
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			appLogger.Error("Error building location request", err)
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+*token)

		resp, err := client.Do(req)
		if err != nil {
			appLogger.Error("Error reporting location", err)
			continue
		}
		resp.Body.Close()
		appLogger.Info("Reported location",
			"status", resp.StatusCode,
			"latitude", position.Latitude,
			"longitude", position.Longitude)
	}
}
