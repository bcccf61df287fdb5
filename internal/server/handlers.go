package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/claude/liftstate/internal/analytics"
	"github.com/claude/liftstate/internal/baseline"
	"github.com/claude/liftstate/internal/metrics"
	"github.com/claude/liftstate/internal/models"
	"github.com/claude/liftstate/internal/storage"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	period := metrics.DefaultPeriodDays
	if p := r.URL.Query().Get("period"); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil || !metrics.ValidPeriod(parsed) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "period must be 7, 14, 21 or 28"})
			return
		}
		period = parsed
	}

	var anchors []string
	if a := r.URL.Query().Get("anchors"); a != "" {
		for _, id := range strings.Split(a, ",") {
			if id = strings.TrimSpace(id); id != "" {
				anchors = append(anchors, id)
			}
		}
	}

	state, err := s.svc.TrainingState(r.Context(), period, anchors)
	if err != nil {
		s.log.Error("analytics error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleResolveProposal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	p, err := s.svc.ResolveProposal(r.Context(), id, models.ProposalStatus(body.Action))
	if err != nil {
		s.writeProposalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// writeProposalError maps workflow rejections to 4xx responses with the
// reason spelled out.
func (s *Server) writeProposalError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, baseline.ErrProposalNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, baseline.ErrProposalNotPending),
		errors.Is(err, baseline.ErrProposalExpired):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, baseline.ErrUnknownAction):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		s.log.Error("proposal resolution error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func (s *Server) handleGlobalHistory(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.svc.GlobalHistory(r.Context(), parseLimit(r, 50))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleExerciseHistory(w http.ResponseWriter, r *http.Request) {
	exerciseID := chi.URLParam(r, "exerciseID")
	sessions, err := s.svc.ExerciseHistory(r.Context(), exerciseID, parseLimit(r, 50))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	exercises, err := s.svc.Exercises(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, exercises)
}

func (s *Server) handleCreateExercise(w http.ResponseWriter, r *http.Request) {
	var e models.Exercise
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	created, err := s.svc.CreateExercise(r.Context(), e)
	if err != nil {
		s.writeWriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateExercise(w http.ResponseWriter, r *http.Request) {
	var e models.Exercise
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	e.ID = chi.URLParam(r, "id")

	if err := s.svc.UpdateExercise(r.Context(), e); err != nil {
		s.writeWriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleLogSet(w http.ResponseWriter, r *http.Request) {
	var req analytics.LogSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	ref, err := s.svc.LogSet(r.Context(), req)
	if err != nil {
		s.writeWriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"ref": ref})
}

func (s *Server) handleCorrectSet(w http.ResponseWriter, r *http.Request) {
	ref, err := strconv.ParseInt(chi.URLParam(r, "ref"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid set ref"})
		return
	}

	var c analytics.SetCorrection
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	if err := s.svc.CorrectSet(r.Context(), ref, c); err != nil {
		s.writeWriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"ref": ref})
}

func (s *Server) handleBodyWeight(w http.ResponseWriter, r *http.Request) {
	var body struct {
		WeightKg float64 `json:"weightKg"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	if err := s.svc.RecordBodyWeight(r.Context(), body.WeightKg); err != nil {
		s.writeWriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, body)
}

// writeWriteError maps validation and lookup failures on write paths.
func (s *Server) writeWriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, analytics.ErrMissingExercise),
		errors.Is(err, analytics.ErrInvalidReps),
		errors.Is(err, analytics.ErrInvalidWeight),
		errors.Is(err, analytics.ErrMissingName):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		s.log.Error("write error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func parseLimit(r *http.Request, def int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
