package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/claude/liftstate/internal/analytics"
	"github.com/claude/liftstate/internal/metrics"
	"github.com/claude/liftstate/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolGetTrainingState = mcp.NewTool("get_training_state",
	mcp.WithDescription("Compute the full training state: strength trend, stimulus volume, fatigue, efficiency, consistency, frequency score, max gap, training mode, plus current baselines and pending baseline proposals."),
	mcp.WithNumber("period", mcp.Description("Trailing window in days (7, 14, 21 or 28). Defaults to 14.")),
	mcp.WithString("anchors", mcp.Description("Comma-separated exercise ids restricting the strength trend to anchor lifts. Defaults to all exercises.")),
)

var toolGetWorkoutHistory = mcp.NewTool("get_workout_history",
	mcp.WithDescription("Day-by-day workout history, newest first. Each session lists muscle groups, exercise blocks in performed order, supersets marked, and an estimated duration."),
	mcp.WithNumber("limit", mcp.Description("Maximum number of sessions to return. Defaults to 14.")),
)

var toolGetExerciseHistory = mcp.NewTool("get_exercise_history",
	mcp.WithDescription("History of one exercise grouped by training day, newest first, with weights, reps and notes."),
	mcp.WithString("exercise_id", mcp.Required(), mcp.Description("Exercise id (see list_exercises)")),
	mcp.WithNumber("limit", mcp.Description("Maximum number of days to return. Defaults to 14.")),
)

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List all exercises with muscle group, equipment, exercise and weight types, base weight and multiplier."),
)

var toolLogSet = mcp.NewTool("log_set",
	mcp.WithDescription("Append one set to the training log with a server timestamp. Returns the row reference."),
	mcp.WithString("exercise_id", mcp.Required(), mcp.Description("Exercise id (see list_exercises)")),
	mcp.WithNumber("weight_kg", mcp.Required(), mcp.Description("Entered weight in kg, per the exercise's weight type (e.g. per-side for plate-loaded)")),
	mcp.WithNumber("reps", mcp.Required(), mcp.Description("Repetitions performed")),
	mcp.WithNumber("rest_seconds", mcp.Description("Rest before the set, in seconds")),
	mcp.WithNumber("effort", mcp.Description("Reps in reserve, if tracked")),
	mcp.WithString("note", mcp.Description("Free-form note")),
)

var toolResolveProposal = mcp.NewTool("resolve_proposal",
	mcp.WithDescription("Apply a decision to a pending baseline change proposal."),
	mcp.WithString("proposal_id", mcp.Required(), mcp.Description("Proposal id from get_training_state")),
	mcp.WithString("action", mcp.Required(), mcp.Description("Decision to apply"), mcp.Enum("CONFIRM", "SNOOZE", "DECLINE")),
)

// --- Tool handlers ---

func (h *handlers) getTrainingState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	period := req.GetInt("period", metrics.DefaultPeriodDays)
	if !metrics.ValidPeriod(period) {
		return mcp.NewToolResultError("period must be 7, 14, 21 or 28"), nil
	}
	anchors := splitIDs(req.GetString("anchors", ""))

	state, err := h.eng.TrainingState(ctx, period, anchors)
	if err != nil {
		h.log.Error("mcp get_training_state", "error", err)
		return mcp.NewToolResultError("analytics failed: " + err.Error()), nil
	}
	return toolJSON(state)
}

func (h *handlers) getWorkoutHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 14)

	sessions, err := h.eng.GlobalHistory(ctx, limit)
	if err != nil {
		h.log.Error("mcp get_workout_history", "error", err)
		return mcp.NewToolResultError("history query failed: " + err.Error()), nil
	}
	return toolJSON(sessions)
}

func (h *handlers) getExerciseHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exerciseID, err := req.RequireString("exercise_id")
	if err != nil {
		return mcp.NewToolResultError("exercise_id parameter is required"), nil
	}
	limit := req.GetInt("limit", 14)

	sessions, err := h.eng.ExerciseHistory(ctx, exerciseID, limit)
	if err != nil {
		h.log.Error("mcp get_exercise_history", "error", err)
		return mcp.NewToolResultError("history query failed: " + err.Error()), nil
	}
	return toolJSON(sessions)
}

func (h *handlers) listExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercises, err := h.eng.Exercises(ctx)
	if err != nil {
		h.log.Error("mcp list_exercises", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return toolJSON(exercises)
}

func (h *handlers) logSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exerciseID, err := req.RequireString("exercise_id")
	if err != nil {
		return mcp.NewToolResultError("exercise_id parameter is required"), nil
	}
	weight, err := req.RequireFloat("weight_kg")
	if err != nil {
		return mcp.NewToolResultError("weight_kg parameter is required"), nil
	}
	reps, err := req.RequireInt("reps")
	if err != nil {
		return mcp.NewToolResultError("reps parameter is required"), nil
	}

	logReq := analytics.LogSetRequest{
		ExerciseID:  exerciseID,
		WeightKg:    weight,
		Reps:        reps,
		RestSeconds: req.GetFloat("rest_seconds", 0),
		Note:        req.GetString("note", ""),
	}
	if effort := req.GetFloat("effort", -1); effort >= 0 {
		logReq.EffortRating = &effort
	}

	ref, err := h.eng.LogSet(ctx, logReq)
	if err != nil {
		h.log.Error("mcp log_set", "error", err)
		return mcp.NewToolResultError("logging failed: " + err.Error()), nil
	}
	return toolJSON(map[string]int64{"ref": ref})
}

func (h *handlers) resolveProposal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("proposal_id")
	if err != nil {
		return mcp.NewToolResultError("proposal_id parameter is required"), nil
	}
	action, err := req.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError("action parameter is required"), nil
	}

	p, err := h.eng.ResolveProposal(ctx, id, models.ProposalStatus(action))
	if err != nil {
		// Workflow rejections carry their reason; surface it to the client.
		return mcp.NewToolResultError("resolution rejected: " + err.Error()), nil
	}
	return toolJSON(p)
}

// --- Helpers ---

func toolJSON(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
