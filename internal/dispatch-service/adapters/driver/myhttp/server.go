package myhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"ambu-dispatch/internal/config"
	"ambu-dispatch/internal/dispatch-service/adapters/driven/bm"
	"ambu-dispatch/internal/dispatch-service/adapters/driven/db"
	"ambu-dispatch/internal/dispatch-service/adapters/driven/geo"
	"ambu-dispatch/internal/dispatch-service/adapters/driver/myhttp/handle"
	"ambu-dispatch/internal/dispatch-service/adapters/driver/myhttp/middleware"
	"ambu-dispatch/internal/dispatch-service/adapters/driver/myhttp/ws"
	"ambu-dispatch/internal/dispatch-service/core/domain/model"
	"ambu-dispatch/internal/dispatch-service/core/ports"
	"ambu-dispatch/internal/dispatch-service/core/services"
	"ambu-dispatch/internal/mylogger"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

var ErrServerClosed = errors.New("Server closed")

const WaitTime = 10

type Server struct {
	mux    *chi.Mux
	cfg    *config.Config
	srv    *http.Server
	mylog  mylogger.Logger
	db     *db.DB
	mb     ports.INotificationBroker
	geoIdx ports.IGeoIndex
	ctx    context.Context
	appCtx context.Context
	mu     sync.Mutex
	wg     sync.WaitGroup
}

func NewServer(ctx, appCtx context.Context, mylog mylogger.Logger, cfg *config.Config) *Server {
	s := &Server{
		ctx:    ctx,
		appCtx: appCtx,
		cfg:    cfg,
		mylog:  mylog,
		mux:    chi.NewRouter(),
	}

	return s
}

// Run initializes routes and starts listening. It returns when the server stops.
func (s *Server) Run() error {
	mylog := s.mylog.Action("server_started")

	database, err := db.New(s.ctx, s.cfg.DB, mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = database
	mylog.Info("Successful database connection")

	mb, err := bm.New(s.appCtx, *s.cfg.RabbitMq, s.mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	s.mb = mb
	mylog.Info("Successful message broker connection")

	if err := s.Configure(); err != nil {
		return fmt.Errorf("failed to configure server: %w", err)
	}

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%v", s.cfg.Srv.DispatchServicePort),
		Handler: s.mux,
	}
	s.mu.Unlock()

	mylog = mylog.WithGroup("details").With("port", s.cfg.Srv.DispatchServicePort)

	mylog.Info("server is running")
	return s.startHTTPServer()
}

// Stop provides a programmatic shutdown. Accepts a context for timeout control.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mylog.Info("Shutting down HTTP server...")

	s.wg.Wait()

	if s.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, WaitTime*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.mylog.Error("Failed to shut down HTTP server gracefully", err)
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}

	if s.mb != nil {
		if err := s.mb.Close(); err != nil {
			s.mylog.Error("Failed to close message broker", err)
		}
	}

	if s.db != nil {
		s.db.Close()
		s.mylog.Info("Database closed")
	}

	s.mylog.Info("HTTP server shut down gracefully")
	return nil
}

func (s *Server) startHTTPServer() error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-s.ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Configure wires repositories, services, handlers and routes.
func (s *Server) Configure() error {
	// Repositories
	ambulanceRepo := db.NewAmbulanceRepo(s.db)
	bookingRepo := db.NewBookingRepo(s.db)

	// dispatcher state left over from a crash is reconciled from bookings
	if br, ok := bookingRepo.(*db.BookingRepo); ok {
		released, err := br.RebuildAvailability(s.appCtx)
		if err != nil {
			return fmt.Errorf("rebuild ambulance availability: %w", err)
		}
		if released > 0 {
			s.mylog.Info("released stale ambulance reservations", "count", released)
		}
	}

	geoIdx, err := s.buildGeoIndex(ambulanceRepo)
	if err != nil {
		return err
	}
	s.geoIdx = geoIdx
	if err := s.seedGeoIndex(geoIdx, ambulanceRepo); err != nil {
		return fmt.Errorf("seed geo index: %w", err)
	}

	// services
	broadcaster := services.NewBroadcaster(s.mylog)
	dispatchService := services.NewDispatchService(s.mylog, ambulanceRepo, bookingRepo, geoIdx, s.mb, broadcaster)
	stateMachine := services.NewBookingStateMachine(s.mylog, bookingRepo, ambulanceRepo, geoIdx, broadcaster)

	// handlers
	bookingHandler := handle.NewBookingHandler(dispatchService, stateMachine, s.mylog)
	ambulanceHandler := handle.NewAmbulanceHandler(dispatchService, s.mylog)
	dispatcher := ws.NewDispatcher(broadcaster, s.cfg.Auth.JwtSecret, s.mylog)

	authMiddleware := middleware.NewAuthMiddleware(s.cfg.Auth.JwtSecret)

	patient := string(model.RolePatient)
	driver := string(model.RoleDriver)
	admin := string(model.RoleAdmin)

	s.mux.Use(chimw.RequestID)
	s.mux.Use(chimw.Recoverer)

	s.mux.Method(http.MethodPost, "/bookings", authMiddleware.Wrap(bookingHandler.CreateBooking(), patient, admin))
	s.mux.Method(http.MethodGet, "/bookings/{booking_id}", authMiddleware.Wrap(bookingHandler.GetBooking()))
	s.mux.Method(http.MethodPost, "/bookings/{booking_id}/status", authMiddleware.Wrap(bookingHandler.UpdateStatus(), driver, admin))
	s.mux.Method(http.MethodPost, "/bookings/{booking_id}/cancel", authMiddleware.Wrap(bookingHandler.CancelBooking(), patient, admin))
	s.mux.Method(http.MethodPost, "/bookings/{booking_id}/assign", authMiddleware.Wrap(bookingHandler.AssignAmbulance(), admin))
	s.mux.Method(http.MethodPost, "/ambulances/{ambulance_id}/location", authMiddleware.Wrap(ambulanceHandler.ReportLocation(), driver, admin))
	s.mux.Method(http.MethodGet, "/ambulances/nearby", authMiddleware.Wrap(ambulanceHandler.Nearby()))

	// websockets authenticate with their first frame, not a header
	s.mux.Get("/ws/bookings/{booking_id}", dispatcher.WsHandler())
	s.mux.Get("/ws/ambulances/{ambulance_id}", dispatcher.WsAmbulanceHandler())

	s.mux.Get("/health", s.healthHandler())

	return nil
}

func (s *Server) buildGeoIndex(ambulanceRepo ports.IAmbulanceRepo) (ports.IGeoIndex, error) {
	switch s.cfg.Srv.GeoBackend {
	case "redis":
		idx, err := geo.NewRedisIndex(s.cfg.Redis.Addr, ambulanceRepo, s.mylog)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		s.mylog.Info("geo index backend", "backend", "redis")
		return idx, nil
	case "", "memory":
		s.mylog.Info("geo index backend", "backend", "memory")
		return services.NewGeoIndex(), nil
	default:
		return nil, fmt.Errorf("unknown geo backend %q", s.cfg.Srv.GeoBackend)
	}
}

func (s *Server) seedGeoIndex(geoIdx ports.IGeoIndex, ambulanceRepo ports.IAmbulanceRepo) error {
	actives, err := ambulanceRepo.ListActive(s.appCtx)
	if err != nil {
		return err
	}
	for _, a := range actives {
		if err := geoIdx.Upsert(s.appCtx, a); err != nil {
			return err
		}
	}
	s.mylog.Info("geo index seeded", "ambulances", len(actives))
	return nil
}

func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbAlive := s.db.IsAlive(r.Context()) == nil
		mbAlive := false
		if mb, ok := s.mb.(*bm.RabbitMQ); ok {
			mbAlive = mb.IsAlive()
		}

		code := http.StatusOK
		if !dbAlive {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		fmt.Fprintf(w, `{"database":%t,"message_broker":%t}`, dbAlive, mbAlive)
	}
}
