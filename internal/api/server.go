package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lox/solarwall/internal/models"
	"github.com/lox/solarwall/internal/scheduler"
	"github.com/lox/solarwall/internal/solar"
)

// Scheduler is the part of the scheduling engine the API drives.
type Scheduler interface {
	Status() scheduler.Status
	RunScheduler(force bool) error
	ToggleDarkMode() error
}

// History lists applied wallpapers.
type History interface {
	RecentWallpaperChanges(limit int) ([]models.WallpaperChange, error)
}

// SolarSource provides today's solar data for the status summary.
type SolarSource interface {
	GetSolarData(date time.Time) (solar.Data, error)
}

type Server struct {
	engine  Scheduler
	history History
	solar   SolarSource
	port    string
	loc     *time.Location
	logger  zerolog.Logger
	now     func() time.Time
}

func NewServer(engine Scheduler, history History, solarSource SolarSource, port string, loc *time.Location, logger zerolog.Logger) *Server {
	return &Server{
		engine:  engine,
		history: history,
		solar:   solarSource,
		port:    port,
		loc:     loc,
		logger:  logger.With().Str("component", "api").Logger(),
		now:     time.Now,
	}
}

// SetNow overrides the time source used for the solar summary.
func (s *Server) SetNow(now func() time.Time) {
	s.now = now
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("POST /api/dark-mode", s.handleDarkMode)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", server.Addr).Msg("http server listening")
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
