package myhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"ambu-dispatch/internal/config"
	"ambu-dispatch/internal/fleet-service/adapters/driven/db"
	"ambu-dispatch/internal/fleet-service/adapters/driver/myhttp/handle"
	"ambu-dispatch/internal/fleet-service/adapters/driver/myhttp/middleware"
	"ambu-dispatch/internal/fleet-service/core/ports"
	"ambu-dispatch/internal/fleet-service/core/service"
	"ambu-dispatch/internal/mylogger"
)

const WaitTime = 10

type Server struct {
	mux    *http.ServeMux
	cfg    *config.Config
	srv    *http.Server
	mylog  mylogger.Logger
	db     ports.IDB
	ctx    context.Context
	appCtx context.Context
	mu     sync.Mutex
	wg     sync.WaitGroup
}

func NewServer(ctx, appCtx context.Context, mylog mylogger.Logger, cfg *config.Config) *Server {
	return &Server{
		ctx:    ctx,
		appCtx: appCtx,
		cfg:    cfg,
		mylog:  mylog,
		mux:    http.NewServeMux(),
	}
}

// Run initializes routes and starts listening. It returns when the server stops.
func (s *Server) Run() error {
	mylog := s.mylog.Action("server_started")

	if err := s.initializeDatabase(); err != nil {
		mylog.Action("db_connection_failed").Error("Failed to connect to database", err)
		return err
	}
	mylog.Action("db_connected").Info("Successful database connection")

	s.Configure()

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%v", s.cfg.Srv.FleetServicePort),
		Handler: s.mux,
	}
	s.mu.Unlock()

	mylog = mylog.WithGroup("details").With("port", s.cfg.Srv.FleetServicePort)

	mylog.Info("server is running")
	return s.startHTTPServer()
}

// Stop provides a programmatic shutdown. Accepts a context for timeout control.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mylog.Action("graceful_shutdown_started").Info("Shutting down HTTP server...")

	s.wg.Wait()

	if s.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, WaitTime*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.mylog.Action("graceful_shutdown_failed").Error("Failed to shut down HTTP server gracefully", err)
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.mylog.Action("db_close_failed").Error("Failed to close database", err)
			return fmt.Errorf("db close: %w", err)
		}
		s.mylog.Action("db_closed").Info("Database closed")
	}

	s.mylog.Action("graceful_shutdown_completed").Info("HTTP server shut down gracefully")

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

// Configure sets up the fleet management routes.
func (s *Server) Configure() {
	fleetRepo := db.NewFleetRepo(s.db)
	fleetService := service.NewFleetService(s.ctx, s.mylog, fleetRepo)
	fleetHandler := handle.NewFleetHandler(s.mylog, fleetService)

	authMiddleware := middleware.NewAuthMiddleware(s.cfg.Auth.AdminUser, s.cfg.Auth.AdminPasswordHash)

	s.mux.Handle("POST /fleet/ambulance-types", authMiddleware.Wrap(fleetHandler.CreateAmbulanceType()))
	s.mux.Handle("GET /fleet/ambulance-types", authMiddleware.Wrap(fleetHandler.ListAmbulanceTypes()))
	s.mux.Handle("POST /fleet/ambulances", authMiddleware.Wrap(fleetHandler.CreateAmbulance()))
	s.mux.Handle("PATCH /fleet/ambulances/{ambulance_id}", authMiddleware.Wrap(fleetHandler.UpdateAmbulance()))
	s.mux.Handle("GET /fleet/ambulances", authMiddleware.Wrap(fleetHandler.ListAmbulances()))
	s.mux.Handle("GET /fleet/overview", authMiddleware.Wrap(fleetHandler.GetFleetOverview()))
	s.mux.Handle("GET /fleet/bookings/active", authMiddleware.Wrap(fleetHandler.GetActiveBookings()))
}

func (s *Server) initializeDatabase() error {
	db, err := db.Start(s.ctx, s.cfg.DB, s.mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = db
	return nil
}
