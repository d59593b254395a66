package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/meltforce/classpulse/internal/engine"
)

// Archiver runs an archive pass over sessions ended since the given
// time. Satisfied by the archive exporter; wired behind the ops routes.
type Archiver interface {
	ArchiveEnded(ctx context.Context, since time.Time) (any, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	engine   *engine.Engine
	hub      *watchHub
	log      *slog.Logger
	opsKey   string
	archiver Archiver
	router   chi.Router
}

// New creates a new Server with all routes configured. The watch hub
// is registered as the engine's change notifier so SSE clients see
// progress writes without waiting for the tick.
func New(eng *engine.Engine, opsKey string, log *slog.Logger) *Server {
	s := &Server{
		engine: eng,
		hub:    newWatchHub(),
		log:    log,
		opsKey: opsKey,
		router: chi.NewRouter(),
	}
	eng.SetNotifier(s.hub)
	s.routes()
	return s
}

// SetArchiver wires the ops archive endpoint.
func (s *Server) SetArchiver(a Archiver) { s.archiver = a }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Running-classes listing, the entry point for dashboards and the
	// MCP live_classes resource.
	s.router.Get("/api/v1/live-classes", s.handleListLiveClasses)

	s.router.Route("/api/v1/classes/{classID}/live", func(r chi.Router) {
		// Reads are open to any caller the gateway lets through; the
		// leaderboard is recomputed from current progress per call.
		r.Get("/", s.handleGetSession)
		r.Get("/leaderboard", s.handleRealtimeLeaderboard)
		r.Get("/leaderboard/interval", s.handleIntervalLeaderboard)
		r.Get("/leaderboard/final", s.handleFinalLeaderboard)
		r.Get("/watch", s.handleWatch)

		// Participant writes require a verified identity.
		r.Group(func(r chi.Router) {
			r.Use(RequireIdentity)
			r.Get("/me", s.handleMyProgress)
			r.Post("/advance", s.handleAdvance)
			r.Post("/partial", s.handleSubmitPartial)
			r.Post("/interval-score", s.handlePostIntervalScore)
			r.Post("/emom-mark", s.handlePostEmomMark)
			r.Put("/scaling", s.handleSetScaling)
		})

		// Coach operations additionally require the coach role; the
		// engine still checks assignment to this specific class.
		r.Group(func(r chi.Router) {
			r.Use(RequireIdentity, RequireRole("coach"))
			r.Post("/start", s.handleStart)
			r.Post("/pause", s.handlePause)
			r.Post("/resume", s.handleResume)
			r.Post("/stop", s.handleStop)
			r.Post("/override", s.handleOverride)
			r.Post("/override/ended", s.handleOverrideEnded)
			r.Get("/coach-note", s.handleGetCoachNote)
			r.Put("/coach-note", s.handleSetCoachNote)
		})
	})

	// Operational endpoints (service-to-service, API key required).
	s.router.Route("/api/v1/ops", func(r chi.Router) {
		r.Use(APIKeyAuth(s.opsKey))
		r.Post("/archive", s.handleArchive)
	})
}
