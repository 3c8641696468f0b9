// Package board applies drag-and-drop moves to project boards.
package board

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"taskboard/internal/models"
	"taskboard/internal/ranking"
	"taskboard/internal/store"
)

// Append is the destination index that places a task at the end of a column.
const Append = -1

// Move describes one drag-end: which task, and where it was dropped.
// Index counts the destination column without the moving task.
type Move struct {
	ProjectID int64
	TaskID    int64
	Status    models.Status
	Index     int
}

// Engine orders tasks within board columns.
type Engine struct {
	store store.Store
	ranks ranking.Strategy
	step  int
	now   func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithStrategy replaces the sparse integer placement strategy.
func WithStrategy(s ranking.Strategy) Option {
	return func(e *Engine) { e.ranks = s }
}

// WithClock sets the time source used for updatedAt and completedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine over s. step is the column spacing used for
// seeding, appending and renumbering.
func NewEngine(s store.Store, step int, opts ...Option) (*Engine, error) {
	ranks, err := ranking.NewSparse(step)
	if err != nil {
		return nil, err
	}

	e := &Engine{store: s, ranks: ranks, step: step, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Reorder moves a task to Index within the Status column of its project and
// returns the project's tasks in board order. The whole read-compute-write
// sequence runs in one project transaction.
func (e *Engine) Reorder(ctx context.Context, m Move) ([]models.Task, error) {
	if !m.Status.Valid() {
		return nil, invalidf("unknown status %q", m.Status)
	}
	if m.Index < 0 && m.Index != Append {
		return nil, invalidf("index %d is negative", m.Index)
	}

	var result []models.Task
	err := e.store.InProjectTx(ctx, m.ProjectID, func(tx store.TaskRepository) error {
		task, err := tx.GetTask(ctx, m.ProjectID, m.TaskID)
		if err != nil {
			return err
		}

		if m.Status.Terminal() && task.IsBlocked {
			log.WithFields(log.Fields{
				"project_id": m.ProjectID,
				"task_id":    task.ID,
				"status":     m.Status,
			}).Info("rejected move of blocked task")
			return &BlockedError{TaskID: task.ID, Status: m.Status}
		}

		column, err := tx.ListColumnTasks(ctx, m.ProjectID, m.Status)
		if err != nil {
			return err
		}
		others, current := withoutTask(column, task.ID)

		idx := m.Index
		if idx == Append || idx > len(others) {
			idx = len(others)
		}

		sameColumn := task.Status == m.Status
		if sameColumn && idx == current {
			result, err = tx.ListTasksByProject(ctx, m.ProjectID)
			return err
		}

		pos, err := e.place(ctx, tx, m, others, idx)
		if err != nil {
			return err
		}

		touched := e.now()
		if sameColumn {
			if err := tx.SetPosition(ctx, task.ID, pos, touched); err != nil {
				return err
			}
		} else {
			change := models.CompletionChange(task.Status, m.Status)
			if err := tx.SetStatusAndPosition(ctx, task.ID, m.Status, pos, change, touched); err != nil {
				return err
			}
			if err := tx.RenumberColumn(ctx, m.ProjectID, task.Status, e.step); err != nil {
				return err
			}
		}

		result, err = tx.ListTasksByProject(ctx, m.ProjectID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// place returns the position for inserting at idx among others. When the
// neighbours leave no room, others are respaced with slot idx left free.
func (e *Engine) place(ctx context.Context, tx store.TaskRepository, m Move, others []models.Task, idx int) (int, error) {
	var prev, next *int
	if idx > 0 {
		prev = &others[idx-1].Position
	}
	if idx < len(others) {
		next = &others[idx].Position
	}

	if pos, ok := e.ranks.Place(prev, next); ok {
		return pos, nil
	}

	spread := e.ranks.Spread(len(others) + 1)
	positions := make([]models.TaskPosition, len(others))
	for i, t := range others {
		slot := i
		if i >= idx {
			slot = i + 1
		}
		positions[i] = models.TaskPosition{TaskID: t.ID, Position: spread[slot]}
	}
	if err := tx.SetPositions(ctx, positions); err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"project_id": m.ProjectID,
		"status":     m.Status,
		"tasks":      len(others),
	}).Debug("renumbered column")

	return spread[idx], nil
}

// CreateTask validates task and inserts it at the end of its column.
func (e *Engine) CreateTask(ctx context.Context, task *models.Task) error {
	if task.Status == "" {
		task.Status = models.StatusTodo
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if err := task.Validate(); err != nil {
		return invalidf("%v", err)
	}

	return e.store.InProjectTx(ctx, task.ProjectID, func(tx store.TaskRepository) error {
		column, err := tx.ListColumnTasks(ctx, task.ProjectID, task.Status)
		if err != nil {
			return err
		}

		dest := Move{ProjectID: task.ProjectID, Status: task.Status}
		task.Position, err = e.place(ctx, tx, dest, column, len(column))
		if err != nil {
			return err
		}

		task.CompletedAt = nil
		if task.Status.Terminal() {
			at := e.now()
			task.CompletedAt = &at
		}

		return tx.InsertTask(ctx, task)
	})
}

// UpdateTask applies edit to the task's content fields and saves it.
// Placement changes made by edit are discarded. The edit is validated
// against the locked row, so it cannot race a move into done.
func (e *Engine) UpdateTask(ctx context.Context, projectID, taskID int64, edit func(*models.Task)) (*models.Task, error) {
	var updated *models.Task
	err := e.store.InProjectTx(ctx, projectID, func(tx store.TaskRepository) error {
		task, err := tx.GetTask(ctx, projectID, taskID)
		if err != nil {
			return err
		}

		status, position, completedAt := task.Status, task.Position, task.CompletedAt
		edit(task)
		task.Status, task.Position, task.CompletedAt = status, position, completedAt

		if err := task.Validate(); err != nil {
			return invalidf("%v", err)
		}

		if err := tx.UpdateTask(ctx, task); err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// withoutTask returns column minus the task with id, and the index it held
// (-1 when absent).
func withoutTask(column []models.Task, id int64) ([]models.Task, int) {
	others := make([]models.Task, 0, len(column))
	current := -1
	for i, t := range column {
		if t.ID == id {
			current = i
			continue
		}
		others = append(others, t)
	}
	return others, current
}
