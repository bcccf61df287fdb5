// Package mcp exposes the engine to LLM clients over the Model Context
// Protocol: the same contracts the HTTP layer serves, as tools.
package mcp

import (
	"context"
	"log/slog"

	"github.com/claude/liftstate/internal/analytics"
	"github.com/claude/liftstate/internal/models"
	"github.com/claude/liftstate/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Engine abstracts the analytics layer for MCP tools. Both
// *analytics.Service (local) and HTTPClient (remote via REST API) satisfy
// this interface.
type Engine interface {
	TrainingState(ctx context.Context, periodDays int, anchors []string) (analytics.TrainingState, error)
	ResolveProposal(ctx context.Context, id string, action models.ProposalStatus) (models.Proposal, error)
	LogSet(ctx context.Context, req analytics.LogSetRequest) (int64, error)
	GlobalHistory(ctx context.Context, limit int) ([]session.Session, error)
	ExerciseHistory(ctx context.Context, exerciseID string, limit int) ([]session.Session, error)
	Exercises(ctx context.Context) ([]models.Exercise, error)
}

// Compile-time check: *analytics.Service satisfies Engine.
var _ Engine = (*analytics.Service)(nil)

// New creates an MCP server with all tools and resources registered.
func New(eng Engine, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("LiftState", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("LiftState training analytics server. Query training state indicators, baselines and pending proposals, browse workout history, log sets, and resolve baseline proposals."),
	)

	h := &handlers{eng: eng, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetTrainingState, Handler: h.getTrainingState},
		server.ServerTool{Tool: toolGetWorkoutHistory, Handler: h.getWorkoutHistory},
		server.ServerTool{Tool: toolGetExerciseHistory, Handler: h.getExerciseHistory},
		server.ServerTool{Tool: toolListExercises, Handler: h.listExercises},
		server.ServerTool{Tool: toolLogSet, Handler: h.logSet},
		server.ServerTool{Tool: toolResolveProposal, Handler: h.resolveProposal},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resTrainingState, Handler: h.trainingStateResource},
		server.ServerResource{Resource: resRecentSessions, Handler: h.recentSessionsResource},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	eng Engine
	log *slog.Logger
}

// --- Resource definitions ---

var resTrainingState = mcp.NewResource(
	"liftstate://training_state",
	"Training State",
	mcp.WithResourceDescription("Current training state over the default 14-day window: five indicators, frequency score, max gap, mode, baselines and pending proposals"),
	mcp.WithMIMEType("application/json"),
)

var resRecentSessions = mcp.NewResource(
	"liftstate://recent_sessions",
	"Recent Sessions",
	mcp.WithResourceDescription("The last 14 training sessions, newest first, with exercise blocks and supersets marked"),
	mcp.WithMIMEType("application/json"),
)

func (h *handlers) trainingStateResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	state, err := h.eng.TrainingState(ctx, 14, nil)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, state)
}

func (h *handlers) recentSessionsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	sessions, err := h.eng.GlobalHistory(ctx, 14)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, sessions)
}
