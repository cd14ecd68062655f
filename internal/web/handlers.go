package web

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/schemamap/internal/core"
	"github.com/JonMunkholm/schemamap/internal/table"
)

// ApplyResponse is the body of an apply. A failed mapping is sent with
// status 422 and the same shape.
type ApplyResponse struct {
	RunID    string       `json:"runId"`
	OK       bool         `json:"ok"`
	Warnings []string     `json:"warnings"`
	Errors   []string     `json:"errors"`
	Table    *table.Table `json:"table,omitempty"`
}

func newApplyResponse(run *core.Run) ApplyResponse {
	return ApplyResponse{
		RunID:    run.ID,
		OK:       run.OK(),
		Warnings: run.Warnings,
		Errors:   run.Errors,
		Table:    run.Output,
	}
}

// adHocRequest is the body of POST /api/apply.
type adHocRequest struct {
	Plan  json.RawMessage `json:"plan"`
	Table table.Table     `json:"table"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"plans":   core.PlanCount(),
		"limiter": s.service.LimiterStatus(),
	}
	status := http.StatusOK

	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			resp["status"] = "degraded"
			resp["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp["database"] = "ok"
		}
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.service.Plans(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.Plan(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleSavePlan accepts a plan as JSON, or as YAML when the Content-Type
// says so.
func (s *Server) handleSavePlan(w http.ResponseWriter, r *http.Request) {
	data, err := s.readBody(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	p, err := core.DecodePlan(data, planFormat(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	saved, err := s.service.SavePlan(r.Context(), p)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeletePlan(r.Context(), chi.URLParam(r, "name")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	data, err := s.readBody(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	var tbl table.Table
	if err := json.Unmarshal(data, &tbl); err != nil {
		respondServiceError(w, r, fmt.Errorf("%w: %w", errMalformed, err))
		return
	}

	run, err := s.service.Apply(withClient(r), chi.URLParam(r, "name"), tbl)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	s.writeRun(w, run)
}

func (s *Server) handleApplyAdHoc(w http.ResponseWriter, r *http.Request) {
	data, err := s.readBody(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	var req adHocRequest
	if err := json.Unmarshal(data, &req); err != nil {
		respondServiceError(w, r, fmt.Errorf("%w: %w", errMalformed, err))
		return
	}
	if len(req.Plan) == 0 {
		respondServiceError(w, r, fmt.Errorf("%w: plan is required", errMalformed))
		return
	}

	p, err := core.DecodePlan(req.Plan, "json")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if p.Name == "" {
		p.Name = "ad-hoc"
	}

	run, err := s.service.ApplyPlan(withClient(r), p, req.Table)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	s.writeRun(w, run)
}

func (s *Server) writeRun(w http.ResponseWriter, run *core.Run) {
	status := http.StatusOK
	if !run.OK() {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, newApplyResponse(run))
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.Run(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleLimiterStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.LimiterStatus())
}

// readBody reads at most MaxBodySize bytes, dropping a UTF-8 BOM and
// replacing invalid UTF-8.
func (s *Server) readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return core.ReadDocument(r.Body, s.cfg.Server.MaxBodySize)
}

// planFormat returns "yaml" for YAML content types and "json" otherwise.
func planFormat(r *http.Request) string {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return "yaml"
	default:
		return "json"
	}
}
