package models

import (
	"errors"
	"strings"
	"time"
)

// Project represents a board that owns a set of tasks.
type Project struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Code        string    `json:"code"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Tasks holds the tasks for this project (populated by queries)
	Tasks []Task `json:"tasks,omitempty"`
}

// Normalize trims the text fields and upper-cases the project code.
func (p *Project) Normalize() {
	p.Title = strings.TrimSpace(p.Title)
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	p.Description = strings.TrimSpace(p.Description)
}

// Validate checks that the project has valid field values.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return errors.New("title is required")
	}

	if len(p.Title) > 255 {
		return errors.New("title must be 255 characters or fewer")
	}

	code := strings.TrimSpace(p.Code)
	if code == "" {
		return errors.New("code is required")
	}

	if len(code) > 10 {
		return errors.New("code must be 10 characters or fewer")
	}

	for _, r := range code {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return errors.New("code must be alphanumeric")
		}
	}

	return nil
}
