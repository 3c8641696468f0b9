package handlers

import (
	"net/http"

	"taskboard/internal/models"
)

type projectRequest struct {
	Title       *string `json:"title"`
	Code        *string `json:"code"`
	Description *string `json:"description"`
}

func (p projectRequest) apply(project *models.Project) {
	if p.Title != nil {
		project.Title = *p.Title
	}
	if p.Code != nil {
		project.Code = *p.Code
	}
	if p.Description != nil {
		project.Description = *p.Description
	}
}

// ListProjects returns every project without its tasks.
func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.ListProjects(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, projects)
}

// GetProject returns a project together with its board.
func (h *Handlers) GetProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r, "id")
	if err != nil {
		h.badRequest(w, "invalid project id")
		return
	}

	project, err := h.store.GetProject(ctx, id)
	if err != nil {
		h.respondErr(w, err)
		return
	}

	tasks, err := h.store.ListTasksByProject(ctx, id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	project.Tasks = tasks

	h.respondJSON(w, http.StatusOK, project)
}

// CreateProject creates a new project.
func (h *Handlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	var payload projectRequest
	if err := decodeJSON(r, &payload); err != nil {
		h.badRequest(w, "invalid json")
		return
	}

	project := &models.Project{}
	payload.apply(project)
	project.Normalize()

	if err := project.Validate(); err != nil {
		h.badRequest(w, err.Error())
		return
	}

	if err := h.store.CreateProject(r.Context(), project); err != nil {
		h.respondErr(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, project)
}

// UpdateProject updates the fields present in the request body.
func (h *Handlers) UpdateProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r, "id")
	if err != nil {
		h.badRequest(w, "invalid project id")
		return
	}

	project, err := h.store.GetProject(ctx, id)
	if err != nil {
		h.respondErr(w, err)
		return
	}

	var payload projectRequest
	if err := decodeJSON(r, &payload); err != nil {
		h.badRequest(w, "invalid json")
		return
	}
	payload.apply(project)
	project.Normalize()

	if err := project.Validate(); err != nil {
		h.badRequest(w, err.Error())
		return
	}

	if err := h.store.UpdateProject(ctx, project); err != nil {
		h.respondErr(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, project)
}

// DeleteProject deletes a project and its tasks.
func (h *Handlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		h.badRequest(w, "invalid project id")
		return
	}

	if err := h.store.DeleteProject(r.Context(), id); err != nil {
		h.respondErr(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
