package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"taskboard/internal/models"
)

// dialect captures what differs between the SQL backends.
type dialect struct {
	name string
	// lockProject selects the project row and holds it until the transaction ends.
	lockProject       string
	isUniqueViolation func(error) bool
	numbered          bool
}

// rebind rewrites ? placeholders to $n for drivers that need numbered parameters.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// SQLStore implements the Store interface on top of database/sql.
type SQLStore struct {
	db *sql.DB
	d  dialect
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies any pending schema migrations.
func (s *SQLStore) Migrate() error {
	return runMigrations(s.db, s.d)
}

func (s *SQLStore) tasks(q querier) *sqlTaskRepo {
	return &sqlTaskRepo{q: q, d: s.d}
}

// CreateProject creates a new project in the database.
func (s *SQLStore) CreateProject(ctx context.Context, project *models.Project) error {
	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now

	err := s.db.QueryRowContext(ctx, s.d.rebind(`
		INSERT INTO projects (title, code, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`), project.Title, project.Code, project.Description, now, now).Scan(&project.ID)
	if err != nil {
		if s.d.isUniqueViolation(err) {
			return fmt.Errorf("project code %q: %w", project.Code, ErrConflict)
		}
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// GetProject retrieves a project by ID.
func (s *SQLStore) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	project := &models.Project{}

	err := s.db.QueryRowContext(ctx, s.d.rebind(`
		SELECT id, title, code, description, created_at, updated_at
		FROM projects WHERE id = ?
	`), id).Scan(
		&project.ID,
		&project.Title,
		&project.Code,
		&project.Description,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return project, nil
}

// ListProjects retrieves all projects ordered by creation.
func (s *SQLStore) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, code, description, created_at, updated_at
		FROM projects ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		var project models.Project
		err := rows.Scan(
			&project.ID,
			&project.Title,
			&project.Code,
			&project.Description,
			&project.CreatedAt,
			&project.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}

	return projects, rows.Err()
}

// UpdateProject updates an existing project.
func (s *SQLStore) UpdateProject(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = time.Now()

	result, err := s.db.ExecContext(ctx, s.d.rebind(`
		UPDATE projects
		SET title = ?, code = ?, description = ?, updated_at = ?
		WHERE id = ?
	`), project.Title, project.Code, project.Description, project.UpdatedAt, project.ID)
	if err != nil {
		if s.d.isUniqueViolation(err) {
			return fmt.Errorf("project code %q: %w", project.Code, ErrConflict)
		}
		return fmt.Errorf("failed to update project: %w", err)
	}

	return expectRow(result, "project", project.ID)
}

// DeleteProject deletes a project and its associated tasks.
func (s *SQLStore) DeleteProject(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, s.d.rebind(`DELETE FROM projects WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return expectRow(result, "project", id)
}

// GetTask retrieves a task by ID within a project.
func (s *SQLStore) GetTask(ctx context.Context, projectID, taskID int64) (*models.Task, error) {
	return s.tasks(s.db).GetTask(ctx, projectID, taskID)
}

// ListTasksByProject retrieves every task of a project in board order.
func (s *SQLStore) ListTasksByProject(ctx context.Context, projectID int64) ([]models.Task, error) {
	return s.tasks(s.db).ListTasksByProject(ctx, projectID)
}

// DeleteTask deletes a task by ID.
func (s *SQLStore) DeleteTask(ctx context.Context, projectID, taskID int64) error {
	result, err := s.db.ExecContext(ctx, s.d.rebind(`DELETE FROM tasks WHERE id = ? AND project_id = ?`), taskID, projectID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return expectRow(result, "task", taskID)
}

// InProjectTx runs fn in a transaction that holds the project's row lock.
func (s *SQLStore) InProjectTx(ctx context.Context, projectID int64, fn func(TaskRepository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	if err := tx.QueryRowContext(ctx, s.d.rebind(s.d.lockProject), projectID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("project %d: %w", projectID, ErrNotFound)
		}
		return fmt.Errorf("failed to lock project: %w", err)
	}

	if err := fn(s.tasks(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const taskColumns = `id, project_id, title, description, status, position, priority, story_points, is_blocked, blocked_reason, completed_at, created_at, updated_at`

// sqlTaskRepo implements TaskRepository against a database handle or transaction.
type sqlTaskRepo struct {
	q querier
	d dialect
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(sc rowScanner) (models.Task, error) {
	var (
		task        models.Task
		status      string
		storyPoints sql.NullInt64
		completedAt sql.NullTime
	)
	err := sc.Scan(
		&task.ID,
		&task.ProjectID,
		&task.Title,
		&task.Description,
		&status,
		&task.Position,
		&task.Priority,
		&storyPoints,
		&task.IsBlocked,
		&task.BlockedReason,
		&completedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return task, err
	}

	task.Status = models.Status(status)
	if storyPoints.Valid {
		n := int(storyPoints.Int64)
		task.StoryPoints = &n
	}
	if completedAt.Valid {
		t := completedAt.Time
		task.CompletedAt = &t
	}
	return task, nil
}

func (r *sqlTaskRepo) GetTask(ctx context.Context, projectID, taskID int64) (*models.Task, error) {
	row := r.q.QueryRowContext(ctx, r.d.rebind(`
		SELECT `+taskColumns+`
		FROM tasks WHERE id = ? AND project_id = ?
	`), taskID, projectID)

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %d in project %d: %w", taskID, projectID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

func (r *sqlTaskRepo) listTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := r.q.QueryContext(ctx, r.d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

func (r *sqlTaskRepo) ListColumnTasks(ctx context.Context, projectID int64, status models.Status) ([]models.Task, error) {
	return r.listTasks(ctx, `
		SELECT `+taskColumns+`
		FROM tasks WHERE project_id = ? AND status = ?
		ORDER BY position ASC, id ASC
	`, projectID, string(status))
}

func (r *sqlTaskRepo) ListTasksByProject(ctx context.Context, projectID int64) ([]models.Task, error) {
	tasks, err := r.listTasks(ctx, `
		SELECT `+taskColumns+`
		FROM tasks WHERE project_id = ?
		ORDER BY position ASC, id ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	models.SortTasks(tasks)
	return tasks, nil
}

func (r *sqlTaskRepo) InsertTask(ctx context.Context, task *models.Task) error {
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	err := r.q.QueryRowContext(ctx, r.d.rebind(`
		INSERT INTO tasks (project_id, title, description, status, position, priority, story_points, is_blocked, blocked_reason, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), task.ProjectID, task.Title, task.Description, string(task.Status), task.Position, task.Priority,
		nullInt(task.StoryPoints), task.IsBlocked, task.BlockedReason, nullTime(task.CompletedAt), now, now,
	).Scan(&task.ID)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (r *sqlTaskRepo) UpdateTask(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now()

	result, err := r.q.ExecContext(ctx, r.d.rebind(`
		UPDATE tasks
		SET title = ?, description = ?, priority = ?, story_points = ?, is_blocked = ?, blocked_reason = ?, updated_at = ?
		WHERE id = ? AND project_id = ?
	`), task.Title, task.Description, task.Priority, nullInt(task.StoryPoints), task.IsBlocked, task.BlockedReason, task.UpdatedAt, task.ID, task.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return expectRow(result, "task", task.ID)
}

func (r *sqlTaskRepo) SetPosition(ctx context.Context, taskID int64, position int, touchedAt time.Time) error {
	result, err := r.q.ExecContext(ctx, r.d.rebind(`
		UPDATE tasks SET position = ?, updated_at = ? WHERE id = ?
	`), position, touchedAt, taskID)
	if err != nil {
		return fmt.Errorf("failed to update task position: %w", err)
	}
	return expectRow(result, "task", taskID)
}

func (r *sqlTaskRepo) SetStatusAndPosition(ctx context.Context, taskID int64, status models.Status, position int, completed models.CompletedAtChange, touchedAt time.Time) error {
	query := `UPDATE tasks SET status = ?, position = ?, updated_at = ? WHERE id = ?`
	args := []any{string(status), position, touchedAt, taskID}
	switch completed {
	case models.CompletedAtSet:
		query = `UPDATE tasks SET status = ?, position = ?, updated_at = ?, completed_at = ? WHERE id = ?`
		args = []any{string(status), position, touchedAt, touchedAt, taskID}
	case models.CompletedAtClear:
		query = `UPDATE tasks SET status = ?, position = ?, updated_at = ?, completed_at = NULL WHERE id = ?`
	}

	result, err := r.q.ExecContext(ctx, r.d.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("failed to move task: %w", err)
	}
	return expectRow(result, "task", taskID)
}

func (r *sqlTaskRepo) SetPositions(ctx context.Context, positions []models.TaskPosition) error {
	if len(positions) == 0 {
		return nil
	}

	stmt, err := r.q.PrepareContext(ctx, r.d.rebind(`UPDATE tasks SET position = ? WHERE id = ?`))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range positions {
		if _, err := stmt.ExecContext(ctx, p.Position, p.TaskID); err != nil {
			return fmt.Errorf("failed to update position: %w", err)
		}
	}

	return nil
}

func (r *sqlTaskRepo) RenumberColumn(ctx context.Context, projectID int64, status models.Status, step int) error {
	rows, err := r.q.QueryContext(ctx, r.d.rebind(`
		SELECT id FROM tasks WHERE project_id = ? AND status = ?
		ORDER BY position ASC, id ASC
	`), projectID, string(status))
	if err != nil {
		return fmt.Errorf("failed to read column: %w", err)
	}

	var positions []models.TaskPosition
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan task id: %w", err)
		}
		positions = append(positions, models.TaskPosition{TaskID: id, Position: (len(positions) + 1) * step})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("failed to read column: %w", err)
	}
	rows.Close()

	return r.SetPositions(ctx, positions)
}

func expectRow(result sql.Result, kind string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return nil
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
