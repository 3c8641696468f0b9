package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"taskboard/internal/models"
)

// MemoryStore keeps projects and tasks in process memory. It is meant for
// local development and tests; nothing survives a restart.
type MemoryStore struct {
	mu            sync.Mutex
	projects      map[int64]models.Project
	tasks         map[int64]models.Task
	nextProjectID int64
	nextTaskID    int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects: make(map[int64]models.Project),
		tasks:    make(map[int64]models.Task),
	}
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// Ping implements Store.
func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) codeTaken(code string, except int64) bool {
	for id, p := range s.projects {
		if id != except && strings.EqualFold(p.Code, code) {
			return true
		}
	}
	return false
}

// CreateProject implements Store.
func (s *MemoryStore) CreateProject(ctx context.Context, project *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.codeTaken(project.Code, 0) {
		return fmt.Errorf("project code %q: %w", project.Code, ErrConflict)
	}

	s.nextProjectID++
	now := time.Now()
	project.ID = s.nextProjectID
	project.CreatedAt = now
	project.UpdatedAt = now

	stored := *project
	stored.Tasks = nil
	s.projects[project.ID] = stored
	return nil
}

// GetProject implements Store.
func (s *MemoryStore) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	return &p, nil
}

// ListProjects implements Store.
func (s *MemoryStore) ListProjects(ctx context.Context) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects := make([]models.Project, 0, len(s.projects))
	for _, p := range s.projects {
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	return projects, nil
}

// UpdateProject implements Store.
func (s *MemoryStore) UpdateProject(ctx context.Context, project *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.projects[project.ID]
	if !ok {
		return fmt.Errorf("project %d: %w", project.ID, ErrNotFound)
	}
	if s.codeTaken(project.Code, project.ID) {
		return fmt.Errorf("project code %q: %w", project.Code, ErrConflict)
	}

	project.CreatedAt = existing.CreatedAt
	project.UpdatedAt = time.Now()
	stored := *project
	stored.Tasks = nil
	s.projects[project.ID] = stored
	return nil
}

// DeleteProject implements Store. Tasks of the project are removed with it.
func (s *MemoryStore) DeleteProject(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	delete(s.projects, id)
	for taskID, t := range s.tasks {
		if t.ProjectID == id {
			delete(s.tasks, taskID)
		}
	}
	return nil
}

// GetTask implements Store.
func (s *MemoryStore) GetTask(ctx context.Context, projectID, taskID int64) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memoryTx{tasks: s.tasks}).GetTask(ctx, projectID, taskID)
}

// ListTasksByProject implements Store.
func (s *MemoryStore) ListTasksByProject(ctx context.Context, projectID int64) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memoryTx{tasks: s.tasks}).ListTasksByProject(ctx, projectID)
}

// DeleteTask implements Store.
func (s *MemoryStore) DeleteTask(ctx context.Context, projectID, taskID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok || t.ProjectID != projectID {
		return fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	}
	delete(s.tasks, taskID)
	return nil
}

// InProjectTx runs fn against a private copy of the task table while holding
// the store lock, and swaps the copy in only when fn succeeds.
func (s *MemoryStore) InProjectTx(ctx context.Context, projectID int64, fn func(TaskRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[projectID]; !ok {
		return fmt.Errorf("project %d: %w", projectID, ErrNotFound)
	}

	tx := &memoryTx{
		tasks:  make(map[int64]models.Task, len(s.tasks)),
		nextID: s.nextTaskID,
	}
	for id, t := range s.tasks {
		tx.tasks[id] = t
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.tasks = tx.tasks
	s.nextTaskID = tx.nextID
	return nil
}

// memoryTx implements TaskRepository over a task map.
type memoryTx struct {
	tasks  map[int64]models.Task
	nextID int64
}

func (tx *memoryTx) GetTask(ctx context.Context, projectID, taskID int64) (*models.Task, error) {
	t, ok := tx.tasks[taskID]
	if !ok || t.ProjectID != projectID {
		return nil, fmt.Errorf("task %d in project %d: %w", taskID, projectID, ErrNotFound)
	}
	out := cloneTask(t)
	return &out, nil
}

func (tx *memoryTx) ListColumnTasks(ctx context.Context, projectID int64, status models.Status) ([]models.Task, error) {
	tasks := []models.Task{}
	for _, t := range tx.tasks {
		if t.ProjectID == projectID && t.Status == status {
			tasks = append(tasks, cloneTask(t))
		}
	}
	models.SortTasks(tasks)
	return tasks, nil
}

func (tx *memoryTx) ListTasksByProject(ctx context.Context, projectID int64) ([]models.Task, error) {
	tasks := []models.Task{}
	for _, t := range tx.tasks {
		if t.ProjectID == projectID {
			tasks = append(tasks, cloneTask(t))
		}
	}
	models.SortTasks(tasks)
	return tasks, nil
}

func (tx *memoryTx) InsertTask(ctx context.Context, task *models.Task) error {
	tx.nextID++
	now := time.Now()
	task.ID = tx.nextID
	task.CreatedAt = now
	task.UpdatedAt = now
	tx.tasks[task.ID] = cloneTask(*task)
	return nil
}

func (tx *memoryTx) UpdateTask(ctx context.Context, task *models.Task) error {
	existing, ok := tx.tasks[task.ID]
	if !ok || existing.ProjectID != task.ProjectID {
		return fmt.Errorf("task %d: %w", task.ID, ErrNotFound)
	}

	task.UpdatedAt = time.Now()
	existing.Title = task.Title
	existing.Description = task.Description
	existing.Priority = task.Priority
	existing.StoryPoints = copyInt(task.StoryPoints)
	existing.IsBlocked = task.IsBlocked
	existing.BlockedReason = task.BlockedReason
	existing.UpdatedAt = task.UpdatedAt
	tx.tasks[task.ID] = existing
	return nil
}

func (tx *memoryTx) SetPosition(ctx context.Context, taskID int64, position int, touchedAt time.Time) error {
	t, ok := tx.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	}
	t.Position = position
	t.UpdatedAt = touchedAt
	tx.tasks[taskID] = t
	return nil
}

func (tx *memoryTx) SetStatusAndPosition(ctx context.Context, taskID int64, status models.Status, position int, completed models.CompletedAtChange, touchedAt time.Time) error {
	t, ok := tx.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	}
	t.Status = status
	t.Position = position
	t.UpdatedAt = touchedAt
	switch completed {
	case models.CompletedAtSet:
		at := touchedAt
		t.CompletedAt = &at
	case models.CompletedAtClear:
		t.CompletedAt = nil
	}
	tx.tasks[taskID] = t
	return nil
}

func (tx *memoryTx) SetPositions(ctx context.Context, positions []models.TaskPosition) error {
	for _, p := range positions {
		t, ok := tx.tasks[p.TaskID]
		if !ok {
			return fmt.Errorf("task %d: %w", p.TaskID, ErrNotFound)
		}
		t.Position = p.Position
		tx.tasks[p.TaskID] = t
	}
	return nil
}

func (tx *memoryTx) RenumberColumn(ctx context.Context, projectID int64, status models.Status, step int) error {
	column, _ := tx.ListColumnTasks(ctx, projectID, status)
	positions := make([]models.TaskPosition, len(column))
	for i, t := range column {
		positions[i] = models.TaskPosition{TaskID: t.ID, Position: (i + 1) * step}
	}
	return tx.SetPositions(ctx, positions)
}

func cloneTask(t models.Task) models.Task {
	t.StoryPoints = copyInt(t.StoryPoints)
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		t.CompletedAt = &at
	}
	return t
}

func copyInt(n *int) *int {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}
