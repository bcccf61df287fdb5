// Package server is the HTTP surface of the engine: analytics reads, the
// proposal decision endpoint, history views and the write endpoints for sets,
// exercises and body weight.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/claude/liftstate/internal/analytics"
	"github.com/claude/liftstate/internal/models"
	"github.com/claude/liftstate/internal/session"
	"github.com/go-chi/chi/v5"
)

// Analytics is what the handlers need from the engine.
type Analytics interface {
	TrainingState(ctx context.Context, periodDays int, anchors []string) (analytics.TrainingState, error)
	ResolveProposal(ctx context.Context, id string, action models.ProposalStatus) (models.Proposal, error)
	LogSet(ctx context.Context, req analytics.LogSetRequest) (int64, error)
	CorrectSet(ctx context.Context, ref int64, c analytics.SetCorrection) error
	GlobalHistory(ctx context.Context, limit int) ([]session.Session, error)
	ExerciseHistory(ctx context.Context, exerciseID string, limit int) ([]session.Session, error)
	Exercises(ctx context.Context) ([]models.Exercise, error)
	CreateExercise(ctx context.Context, e models.Exercise) (models.Exercise, error)
	UpdateExercise(ctx context.Context, e models.Exercise) error
	RecordBodyWeight(ctx context.Context, weightKg float64) error
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	svc    Analytics
	log    *slog.Logger
	apiKey string
	router chi.Router
}

// New creates a new Server with all routes configured.
func New(svc Analytics, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		svc:    svc,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Read endpoints (no auth — tsnet handles access)
	s.router.Get("/api/v1/analytics", s.handleAnalytics)
	s.router.Get("/api/v1/history", s.handleGlobalHistory)
	s.router.Get("/api/v1/history/{exerciseID}", s.handleExerciseHistory)
	s.router.Get("/api/v1/exercises", s.handleListExercises)

	// Write endpoints (API key required)
	s.router.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Post("/api/v1/proposals/{id}", s.handleResolveProposal)
		r.Post("/api/v1/sets", s.handleLogSet)
		r.Patch("/api/v1/sets/{ref}", s.handleCorrectSet)
		r.Post("/api/v1/exercises", s.handleCreateExercise)
		r.Patch("/api/v1/exercises/{id}", s.handleUpdateExercise)
		r.Post("/api/v1/bodyweight", s.handleBodyWeight)
	})
}
