package store

import (
	"context"
	"errors"
	"time"

	"taskboard/internal/models"
)

// ErrNotFound is returned when a project or task does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness constraint.
var ErrConflict = errors.New("conflict")

// TaskRepository is the transaction-scoped view of one project's tasks.
// Every call made through it observes the same snapshot and commits or
// rolls back together.
type TaskRepository interface {
	GetTask(ctx context.Context, projectID, taskID int64) (*models.Task, error)
	// ListColumnTasks returns the column ordered by position, then id.
	ListColumnTasks(ctx context.Context, projectID int64, status models.Status) ([]models.Task, error)
	ListTasksByProject(ctx context.Context, projectID int64) ([]models.Task, error)
	InsertTask(ctx context.Context, task *models.Task) error
	// UpdateTask writes the content fields of task. Status and position are
	// left alone.
	UpdateTask(ctx context.Context, task *models.Task) error

	SetPosition(ctx context.Context, taskID int64, position int, touchedAt time.Time) error
	SetStatusAndPosition(ctx context.Context, taskID int64, status models.Status, position int, completed models.CompletedAtChange, touchedAt time.Time) error
	SetPositions(ctx context.Context, positions []models.TaskPosition) error
	// RenumberColumn rewrites the column to (i+1)*step in its current order.
	RenumberColumn(ctx context.Context, projectID int64, status models.Status, step int) error
}

// Store defines the interface for data persistence operations.
type Store interface {
	// Project operations
	CreateProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, id int64) (*models.Project, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	UpdateProject(ctx context.Context, project *models.Project) error
	DeleteProject(ctx context.Context, id int64) error

	// Task operations
	GetTask(ctx context.Context, projectID, taskID int64) (*models.Task, error)
	ListTasksByProject(ctx context.Context, projectID int64) ([]models.Task, error)
	DeleteTask(ctx context.Context, projectID, taskID int64) error

	// InProjectTx runs fn inside one transaction scoped to projectID.
	// Concurrent calls for the same project are serialized. fn's writes are
	// committed only if it returns nil. ErrNotFound is returned when the
	// project does not exist.
	InProjectTx(ctx context.Context, projectID int64, fn func(TaskRepository) error) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}
