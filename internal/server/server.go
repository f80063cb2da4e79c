package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lungscan/apiserver/config"
	"github.com/lungscan/apiserver/internal/db"
	"github.com/lungscan/apiserver/internal/events"
	"github.com/lungscan/apiserver/internal/handlers"
	"github.com/lungscan/apiserver/internal/relay"
	"github.com/lungscan/apiserver/internal/services"
	"github.com/lungscan/apiserver/internal/storage"
	"github.com/lungscan/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	publisher  events.Publisher
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	uploadStorage, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	relayClient, err := relay.NewClient(cfg.Inference)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	publisher, err := events.NewFromConfig(ctx, cfg.Events)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	predictionRepo := store.NewPredictionRepository(dbConn)
	reportRepo := store.NewReportRepository(dbConn)
	contactRepo := store.NewContactRepository(dbConn)

	userService := services.NewUserService(userRepo)
	predictionService := services.NewPredictionService(predictionRepo, publisher)
	reportService := services.NewReportService(reportRepo)
	contactService := services.NewContactService(contactRepo)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api/v1/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, jwtSecret)
	})
	router.Route("/api/v1/predict", func(r chi.Router) {
		handlers.PredictRouter(r, predictionService, relayClient, uploadStorage, jwtSecret)
	})
	router.Route("/api/v1/scan", func(r chi.Router) {
		handlers.ScanRouter(r, userService, jwtSecret)
	})
	router.Route("/api/v1/contact", func(r chi.Router) {
		handlers.ContactRouter(r, contactService, userService, jwtSecret)
	})
	router.Route("/api/report", func(r chi.Router) {
		handlers.ReportRouter(r, reportService, userService, uploadStorage, jwtSecret)
	})
	router.Route("/uploads", func(r chi.Router) {
		handlers.UploadsRouter(r, uploadStorage)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout: 15 * time.Second,
		// The relay call can legitimately take tens of seconds; the
		// write timeout must outlive the 60s request ceiling above.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		publisher:  publisher,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
