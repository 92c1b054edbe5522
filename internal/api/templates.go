package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/copysmith/internal/analysis"
	"github.com/foxzi/copysmith/internal/models"
)

// TemplateListResponse is the response for listing templates
type TemplateListResponse struct {
	Templates []models.EmailTemplate `json:"templates"`
	Total     int                    `json:"total"`
}

// TemplatePreviewRequest is the request for previewing a template
type TemplatePreviewRequest struct {
	Data map[string]string `json:"data"`
}

// handleTemplateList handles GET /api/v1/templates
func (s *Server) handleTemplateList(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.parseLimit(w, r)
	if !ok {
		return
	}

	templates, err := s.service.ListTemplates(r.Context(), userID(r), models.TemplateListFilter{
		Search: r.URL.Query().Get("search"),
		Limit:  limit,
	})
	if err != nil {
		s.sendServiceError(w, err, "Failed to list templates")
		return
	}
	if templates == nil {
		templates = []models.EmailTemplate{}
	}

	s.sendJSON(w, http.StatusOK, TemplateListResponse{Templates: templates, Total: len(templates)})
}

// handleTemplateCreate handles POST /api/v1/templates
func (s *Server) handleTemplateCreate(w http.ResponseWriter, r *http.Request) {
	var req analysis.TemplateInput
	if !s.decode(w, r, &req) {
		return
	}

	t, err := s.service.CreateTemplate(r.Context(), userID(r), req)
	if err != nil {
		s.sendServiceError(w, err, "Failed to save template")
		return
	}
	s.sendJSON(w, http.StatusCreated, t)
}

// handleTemplateGet handles GET /api/v1/templates/{id}
func (s *Server) handleTemplateGet(w http.ResponseWriter, r *http.Request) {
	t, err := s.service.GetTemplate(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.sendServiceError(w, err, "Failed to get template")
		return
	}
	s.sendJSON(w, http.StatusOK, t)
}

// handleTemplateUpdate handles PUT /api/v1/templates/{id}
func (s *Server) handleTemplateUpdate(w http.ResponseWriter, r *http.Request) {
	var req analysis.TemplateInput
	if !s.decode(w, r, &req) {
		return
	}

	t, err := s.service.UpdateTemplate(r.Context(), userID(r), chi.URLParam(r, "id"), req)
	if err != nil {
		s.sendServiceError(w, err, "Failed to update template")
		return
	}
	s.sendJSON(w, http.StatusOK, t)
}

// handleTemplateDelete handles DELETE /api/v1/templates/{id}
func (s *Server) handleTemplateDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteTemplate(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		s.sendServiceError(w, err, "Failed to delete template")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTemplateDuplicate handles POST /api/v1/templates/{id}/duplicate
func (s *Server) handleTemplateDuplicate(w http.ResponseWriter, r *http.Request) {
	t, err := s.service.DuplicateTemplate(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.sendServiceError(w, err, "Failed to duplicate template")
		return
	}
	s.sendJSON(w, http.StatusCreated, t)
}

// handleTemplatePreview handles POST /api/v1/templates/{id}/preview
func (s *Server) handleTemplatePreview(w http.ResponseWriter, r *http.Request) {
	var req TemplatePreviewRequest
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}

	preview, err := s.service.PreviewTemplate(r.Context(), userID(r), chi.URLParam(r, "id"), req.Data)
	if err != nil {
		s.sendServiceError(w, err, "Failed to preview template")
		return
	}
	s.sendJSON(w, http.StatusOK, preview)
}
