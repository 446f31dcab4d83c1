package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/campuscal/internal/handler"
	"github.com/dukerupert/campuscal/internal/metrics"
	"github.com/dukerupert/campuscal/internal/middleware"
	"github.com/dukerupert/campuscal/internal/store"
	ws "github.com/dukerupert/campuscal/internal/websocket"
)

const (
	writeLimit  = 120
	writeWindow = time.Minute
)

// Options configures the API server.
type Options struct {
	// Location reads zone-less times in requests and formats responses.
	Location *time.Location
	// Username and PasswordHash enable basic auth on everything except
	// /health and /metrics.
	Username     string
	PasswordHash string
	// WSOrigins are extra origins allowed to open /ws.
	WSOrigins []string
	// TrustProxy keys rate limits on CF-Connecting-IP and X-Forwarded-For.
	// Leave it off unless a reverse proxy sets those headers.
	TrustProxy bool
}

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	metrics        *metrics.Metrics
	calendarEventH *handler.CalendarEventHandler
	rateLimiter    *middleware.RateLimiter
	opts           Options
	logger         *slog.Logger
}

func New(db *sql.DB, opts Options, logger *slog.Logger) *Server {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	m := metrics.New()
	hub := ws.NewHub(logger.With("component", "websocket"), m)

	return &Server{
		db:             db,
		hub:            hub,
		metrics:        m,
		calendarEventH: handler.NewCalendarEventHandler(store.NewEventStore(db), hub, m, opts.Location, logger.With("component", "calendar")),
		rateLimiter:    middleware.NewRateLimiter(),
		opts:           opts,
		logger:         logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.Handle("GET /metrics", s.metrics.Handler())

	// Protected routes
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.BasicAuth(s.opts.Username, s.opts.PasswordHash, s.rateLimiter, middleware.ClientIP(s.opts.TrustProxy))
	outerMux.Handle("/", authMiddleware(protectedMux))

	logged := middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
	return middleware.Instrument(s.metrics)(logged)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{"status": status, "clients": s.hub.ClientCount()})
}

func (s *Server) limitWrites(h http.HandlerFunc) http.Handler {
	clientIP := middleware.ClientIP(s.opts.TrustProxy)
	return middleware.RateLimit(s.rateLimiter, func(r *http.Request) string {
		return "write:" + clientIP(r)
	}, writeLimit, writeWindow)(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/calendar/events", s.calendarEventH.List)
	mux.Handle("POST /api/calendar/events", s.limitWrites(s.calendarEventH.Create))
	mux.HandleFunc("GET /api/calendar/events/{id}", s.calendarEventH.Get)
	mux.Handle("PUT /api/calendar/events/{id}", s.limitWrites(s.calendarEventH.Update))
	mux.Handle("DELETE /api/calendar/events/{id}", s.limitWrites(s.calendarEventH.Delete))
	mux.HandleFunc("GET /api/calendar/export.ics", s.calendarEventH.Export)

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.opts.WSOrigins, s.logger.With("component", "websocket")))
}
