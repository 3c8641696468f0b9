package models

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Status identifies the board column a task lives in.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusInReview   Status = "in-review"
	StatusDone       Status = "done"
)

// Statuses lists the board columns in display order, left to right.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusInReview, StatusDone}

// Valid reports whether s is one of the board columns.
func (s Status) Valid() bool {
	return s.Order() >= 0
}

// Terminal reports whether s is the completed-work column.
func (s Status) Terminal() bool {
	return s == StatusDone
}

// Order returns the column index of s, or -1 if s is not a board column.
func (s Status) Order() int {
	for i, st := range Statuses {
		if st == s {
			return i
		}
	}
	return -1
}

// Priority values accepted on a task.
const (
	PriorityLow      = "Low"
	PriorityMedium   = "Medium"
	PriorityHigh     = "High"
	PriorityCritical = "Critical"
)

// StoryPoints lists the accepted story point estimates.
var StoryPoints = []int{0, 1, 2, 3, 5, 8, 13, 21}

// Task represents a single card on a project board.
type Task struct {
	ID            int64      `json:"id"`
	ProjectID     int64      `json:"projectId"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Status        Status     `json:"status"`
	Position      int        `json:"position"`
	Priority      string     `json:"priority"`
	StoryPoints   *int       `json:"storyPoints,omitempty"`
	IsBlocked     bool       `json:"isBlocked"`
	BlockedReason string     `json:"blockedReason,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Validate checks that the task has valid field values.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("title is required")
	}

	if len(t.Title) > 255 {
		return errors.New("title must be 255 characters or fewer")
	}

	if t.ProjectID == 0 {
		return errors.New("project_id is required")
	}

	if !t.Status.Valid() {
		return errors.New("status must be 'todo', 'in-progress', 'in-review', or 'done'")
	}

	if t.PriorityOrder() == 99 {
		return errors.New("priority must be 'Low', 'Medium', 'High', or 'Critical'")
	}

	if t.StoryPoints != nil && !validStoryPoints(*t.StoryPoints) {
		return errors.New("story points must be one of 0, 1, 2, 3, 5, 8, 13, 21")
	}

	if t.IsBlocked && t.Status.Terminal() {
		return errors.New("blocked task cannot be done")
	}

	return nil
}

// PriorityOrder returns a numeric value for sorting by priority.
// Lower numbers indicate higher priority.
func (t *Task) PriorityOrder() int {
	switch t.Priority {
	case PriorityCritical:
		return 1
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 3
	case PriorityLow:
		return 4
	default:
		return 99
	}
}

func validStoryPoints(n int) bool {
	for _, p := range StoryPoints {
		if p == n {
			return true
		}
	}
	return false
}

// Less orders tasks the way a board renders them: column, then position, then id.
func Less(a, b *Task) bool {
	if a.Status != b.Status {
		return a.Status.Order() < b.Status.Order()
	}
	if a.Position != b.Position {
		return a.Position < b.Position
	}
	return a.ID < b.ID
}

// SortTasks sorts tasks in board order in place.
func SortTasks(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return Less(&tasks[i], &tasks[j])
	})
}

// CompletedAtChange describes what a move does to a task's completion stamp.
type CompletedAtChange int

const (
	CompletedAtKeep CompletedAtChange = iota
	CompletedAtSet
	CompletedAtClear
)

// CompletionChange returns the completion stamp change for moving a task from one column to another.
func CompletionChange(from, to Status) CompletedAtChange {
	switch {
	case to.Terminal() && !from.Terminal():
		return CompletedAtSet
	case from.Terminal() && !to.Terminal():
		return CompletedAtClear
	default:
		return CompletedAtKeep
	}
}

// TaskPosition pairs a task with a new position for bulk position updates.
type TaskPosition struct {
	TaskID   int64
	Position int
}
