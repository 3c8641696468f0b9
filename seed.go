package main

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"taskboard/internal/board"
	"taskboard/internal/models"
	"taskboard/internal/store"
)

func seedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert a sample project for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			engine, err := board.NewEngine(s, cfg.Board.Step)
			if err != nil {
				return err
			}

			project, err := seedSample(cmd.Context(), s, engine)
			if errors.Is(err, store.ErrConflict) {
				log.Info("sample project already exists")
				return nil
			}
			if err != nil {
				return err
			}

			log.WithFields(log.Fields{"project_id": project.ID, "code": project.Code}).Info("seeded sample project")
			return nil
		},
	}
}

// seedSample creates the sample project with one task in each of the first
// three columns, the last of them blocked.
func seedSample(ctx context.Context, s store.Store, engine *board.Engine) (*models.Project, error) {
	project := &models.Project{
		Title:       "Sample Project",
		Code:        "SMPL",
		Description: "A board to try drag-and-drop ordering on",
	}
	if err := s.CreateProject(ctx, project); err != nil {
		return nil, err
	}

	points := 3
	tasks := []struct {
		task models.Task
		to   models.Status
	}{
		{
			task: models.Task{Title: "Set up repository", Priority: models.PriorityHigh, StoryPoints: &points},
			to:   models.StatusInProgress,
		},
		{
			task: models.Task{Title: "Write API docs", Description: "Cover every endpoint", Priority: models.PriorityMedium},
			to:   models.StatusInReview,
		},
		{
			task: models.Task{Title: "Deploy to staging", Priority: models.PriorityCritical, IsBlocked: true, BlockedReason: "waiting on credentials"},
			to:   models.StatusTodo,
		},
	}

	for _, t := range tasks {
		task := t.task
		task.ProjectID = project.ID
		if err := engine.CreateTask(ctx, &task); err != nil {
			return nil, fmt.Errorf("failed to seed task %q: %w", task.Title, err)
		}
		if t.to == task.Status {
			continue
		}
		move := board.Move{ProjectID: project.ID, TaskID: task.ID, Status: t.to, Index: board.Append}
		if _, err := engine.Reorder(ctx, move); err != nil {
			return nil, fmt.Errorf("failed to place task %q: %w", task.Title, err)
		}
	}

	return project, nil
}
