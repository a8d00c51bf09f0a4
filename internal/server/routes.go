package server

import "net/http"

// registerRoutes sets up all API endpoints
func (s *Server) registerRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// Projects
	mux.HandleFunc("GET /api/projects", s.handleListProjects)
	mux.HandleFunc("POST /api/projects", s.handleCreateProject)
	mux.HandleFunc("GET /api/projects/{id}", s.handleGetProject)
	mux.HandleFunc("PATCH /api/projects/{id}", s.handleRenameProject)
	mux.HandleFunc("DELETE /api/projects/{id}", s.handleDeleteProject)
	mux.HandleFunc("POST /api/projects/{id}/repair", s.handleRepairProject)

	// Pipeline
	mux.HandleFunc("POST /api/projects/{id}/stages/{n}", s.handleRunStage)
	mux.HandleFunc("PATCH /api/projects/{id}/steps/{order}", s.handleEditStep)
	mux.HandleFunc("POST /api/projects/{id}/steps/{order}/complete", s.handleCompleteStep)
	mux.HandleFunc("POST /api/projects/{id}/prd/sections/{key}", s.handleRegenerateSection)

	// Finalized output
	mux.HandleFunc("GET /api/projects/{id}/prd.md", s.handleMarkdown)
	mux.HandleFunc("GET /api/projects/{id}/prompt", s.handlePrompt)

	return s.corsMiddleware(s.observe(mux))
}
