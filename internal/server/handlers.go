package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/josephgoksu/PRDWing/internal/app"
	"github.com/josephgoksu/PRDWing/internal/export"
	"github.com/josephgoksu/PRDWing/internal/pipeline"
	"github.com/josephgoksu/PRDWing/internal/prd"
	"github.com/josephgoksu/PRDWing/internal/stages"
	"github.com/josephgoksu/PRDWing/internal/store"
)

// maxBodyBytes bounds request bodies; attachments are sent inline.
const maxBodyBytes = 8 << 20

func writeAPIJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeAPIError maps domain errors onto HTTP status codes.
func (s *Server) writeAPIError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, store.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, stages.ErrInvalidInput), errors.Is(err, prd.ErrUnknownSection), errors.Is(err, app.ErrAmbiguous):
		status, code = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, pipeline.ErrRewindCancelled):
		status, code = http.StatusConflict, "confirm_required"
	case errors.Is(err, pipeline.ErrOutOfOrder):
		status, code = http.StatusConflict, "out_of_order"
	case errors.Is(err, app.ErrNotFinalized):
		status, code = http.StatusConflict, "not_finalized"
	case errors.Is(err, app.ErrStepBusy):
		status, code = http.StatusTooManyRequests, "busy"
	case errors.Is(err, stages.ErrGeneration):
		status, code = http.StatusBadGateway, "generation_failed"
	case errors.Is(err, context.Canceled):
		status, code = 499, "cancelled"
	}
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("request failed")
	}
	msg := err.Error()
	if code == "confirm_required" {
		msg = "this change resets later steps; retry with ?confirm=true"
	}
	writeAPIJSON(w, status, errorResponse{Error: msg, Code: code})
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decode body: %w", stages.ErrInvalidInput, err)
	}
	return nil
}

// confirmFrom approves rewinds only when the caller passed ?confirm=true.
func confirmFrom(r *http.Request) pipeline.ConfirmFunc {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return func(context.Context, string) (bool, error) { return ok, nil }
}

func pathOrder(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil || store.StepTitle(n) == "" {
		return 0, fmt.Errorf("%w: step must be 1-%d", stages.ErrInvalidInput, store.StepCount)
	}
	return n, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeAPIJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.app.ListProjects(r.Context())
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	if projects == nil {
		projects = []store.Project{}
	}
	writeAPIJSON(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeAPIError(w, err)
		return
	}
	p, err := s.app.CreateProject(r.Context(), req.Name)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.app.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, p)
}

func (s *Server) handleRenameProject(w http.ResponseWriter, r *http.Request) {
	var req renameProjectRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeAPIError(w, err)
		return
	}
	p, err := s.app.RenameProject(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.app.DeleteProject(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	if !deleted {
		s.writeAPIError(w, fmt.Errorf("project %s: %w", r.PathValue("id"), store.ErrNotFound))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRepairProject(w http.ResponseWriter, r *http.Request) {
	p, added, err := s.app.RepairProject(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, repairResponse{Project: p, Added: added})
}

// handleRunStage dispatches POST /api/projects/{id}/stages/{n}.
func (s *Server) handleRunStage(w http.ResponseWriter, r *http.Request) {
	n, err := pathOrder(r, "n")
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	ctx, ref, confirm := r.Context(), r.PathValue("id"), confirmFrom(r)

	var (
		p      *store.Project
		result any
	)
	switch n {
	case app.StepAnalysis:
		var req app.AnalyzeRequest
		if err = decodeBody(w, r, &req); err == nil {
			p, result, err = s.app.Analyze(ctx, ref, req, confirm)
		}
	case app.StepIdeas:
		var req selectIdeaRequest
		if err = decodeBody(w, r, &req); err == nil {
			p, result, err = s.app.SelectIdea(ctx, ref, req.Idea, confirm)
		}
	case app.StepRefinement:
		var req app.RefineRequest
		if err = decodeBody(w, r, &req); err == nil {
			p, result, err = s.app.Refine(ctx, ref, req, confirm)
		}
	case app.StepPRD:
		p, result, err = s.app.GeneratePRD(ctx, ref, confirm)
	case app.StepFinalize:
		p, result, err = s.app.Finalize(ctx, ref, confirm)
	}
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, stageResponse{Project: p, Result: result})
}

func (s *Server) handleEditStep(w http.ResponseWriter, r *http.Request) {
	order, err := pathOrder(r, "order")
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	var patch map[string]any
	if err := decodeBody(w, r, &patch); err != nil {
		s.writeAPIError(w, err)
		return
	}
	p, err := s.app.EditStep(r.Context(), r.PathValue("id"), order, patch, confirmFrom(r))
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, p)
}

func (s *Server) handleCompleteStep(w http.ResponseWriter, r *http.Request) {
	order, err := pathOrder(r, "order")
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	p, err := s.app.CompleteStep(r.Context(), r.PathValue("id"), order)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, p)
}

func (s *Server) handleRegenerateSection(w http.ResponseWriter, r *http.Request) {
	p, rec, err := s.app.RegenerateSection(r.Context(), r.PathValue("id"), r.PathValue("key"), confirmFrom(r))
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, stageResponse{Project: p, Result: rec})
}

func (s *Server) handleMarkdown(w http.ResponseWriter, r *http.Request) {
	doc, err := s.app.Document(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentTypeMarkdown+"; charset=utf-8")
	_, _ = io.WriteString(w, doc.Markdown)
}

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	doc, err := s.app.Document(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, doc.GettingStartedPrompt)
}
