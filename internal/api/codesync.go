package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/codesync/codesync/internal/config"
	"github.com/codesync/codesync/internal/database"
	"github.com/codesync/codesync/internal/server"
	"github.com/codesync/codesync/internal/stats"
	"github.com/gorilla/handlers"
)

type CodeSyncApp struct {
	log            *log.Logger
	db             database.Store
	mux            *http.Server
	rs             *server.RelayServer
	stats          stats.StatsProvider
	allowedOrigins []string
}

func NewCodeSyncApp(mux *http.ServeMux, logger *log.Logger, rs *server.RelayServer,
	db database.Store, sp stats.StatsProvider, cfg *config.Config) *CodeSyncApp {
	s := &CodeSyncApp{
		log:            logger,
		db:             db,
		rs:             rs,
		stats:          sp,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /api/health", s.healthCheck)
	mux.HandleFunc("GET /api/rooms/new", s.newRoomId)
	mux.HandleFunc("GET /ws", s.serveWs)

	if cfg.StaticDir != "" {
		mux.Handle("/", spaHandler(cfg.StaticDir))
	}

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *CodeSyncApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *CodeSyncApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
