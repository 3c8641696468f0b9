package handlers

import (
	"net/http"

	"taskboard/internal/board"
	"taskboard/internal/models"
)

// appendPosition is the newPosition value clients send to drop at the end of a column.
const appendPosition = 999

type taskRequest struct {
	Title         *string        `json:"title"`
	Description   *string        `json:"description"`
	Status        *models.Status `json:"status"`
	Priority      *string        `json:"priority"`
	StoryPoints   *int           `json:"storyPoints"`
	IsBlocked     *bool          `json:"isBlocked"`
	BlockedReason *string        `json:"blockedReason"`
}

// apply copies the content fields present in the request onto task.
func (p taskRequest) apply(task *models.Task) {
	if p.Title != nil {
		task.Title = *p.Title
	}
	if p.Description != nil {
		task.Description = *p.Description
	}
	if p.Priority != nil {
		task.Priority = *p.Priority
	}
	if p.StoryPoints != nil {
		points := *p.StoryPoints
		task.StoryPoints = &points
	}
	if p.IsBlocked != nil {
		task.IsBlocked = *p.IsBlocked
	}
	if p.BlockedReason != nil {
		task.BlockedReason = *p.BlockedReason
	}
	if !task.IsBlocked {
		task.BlockedReason = ""
	}
}

type reorderRequest struct {
	NewStatus   models.Status `json:"newStatus"`
	NewPosition *int          `json:"newPosition"`
}

// ListTasks returns the project's tasks in board order.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	projectID, err := parseID(r, "id")
	if err != nil {
		h.badRequest(w, "invalid project id")
		return
	}

	if _, err := h.store.GetProject(ctx, projectID); err != nil {
		h.respondErr(w, err)
		return
	}

	tasks, err := h.store.ListTasksByProject(ctx, projectID)
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, tasks)
}

// CreateTask creates a new task at the end of its column.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	projectID, err := parseID(r, "id")
	if err != nil {
		h.badRequest(w, "invalid project id")
		return
	}

	var payload taskRequest
	if err := decodeJSON(r, &payload); err != nil {
		h.badRequest(w, "invalid json")
		return
	}

	task := &models.Task{ProjectID: projectID}
	payload.apply(task)
	if payload.Status != nil {
		task.Status = *payload.Status
	}

	if err := h.engine.CreateTask(r.Context(), task); err != nil {
		h.respondErr(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, task)
}

// UpdateTask updates a task's content fields. Status and position change
// only through ReorderTask.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	projectID, err := parseID(r, "id")
	if err != nil {
		h.badRequest(w, "invalid project id")
		return
	}

	taskID, err := parseID(r, "taskId")
	if err != nil {
		h.badRequest(w, "invalid task id")
		return
	}

	var payload taskRequest
	if err := decodeJSON(r, &payload); err != nil {
		h.badRequest(w, "invalid json")
		return
	}
	if payload.Status != nil {
		h.badRequest(w, "status is changed through the reorder endpoint")
		return
	}

	task, err := h.engine.UpdateTask(r.Context(), projectID, taskID, payload.apply)
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, task)
}

// DeleteTask deletes a task.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	projectID, err := parseID(r, "id")
	if err != nil {
		h.badRequest(w, "invalid project id")
		return
	}

	taskID, err := parseID(r, "taskId")
	if err != nil {
		h.badRequest(w, "invalid task id")
		return
	}

	if err := h.store.DeleteTask(r.Context(), projectID, taskID); err != nil {
		h.respondErr(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReorderTask applies a drag-and-drop move and returns the project's tasks.
func (h *Handlers) ReorderTask(w http.ResponseWriter, r *http.Request) {
	projectID, err := parseID(r, "id")
	if err != nil {
		h.badRequest(w, "invalid project id")
		return
	}

	taskID, err := parseID(r, "taskId")
	if err != nil {
		h.badRequest(w, "invalid task id")
		return
	}

	var payload reorderRequest
	if err := decodeJSON(r, &payload); err != nil {
		h.badRequest(w, "invalid json")
		return
	}
	if payload.NewPosition == nil {
		h.badRequest(w, "newPosition is required")
		return
	}

	index := *payload.NewPosition
	if index == appendPosition {
		index = board.Append
	} else if index < 0 {
		h.badRequest(w, "newPosition must not be negative")
		return
	}

	tasks, err := h.engine.Reorder(r.Context(), board.Move{
		ProjectID: projectID,
		TaskID:    taskID,
		Status:    payload.NewStatus,
		Index:     index,
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, tasks)
}
