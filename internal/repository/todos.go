package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/householdledger/server/internal/models"
	"github.com/householdledger/server/internal/utils"
)

// AddTodoTask creates a todo task; missing steps are stored as an empty list
func (r *PostgresRepository) AddTodoTask(ctx context.Context, task models.NewTodoTask) (int64, error) {
	if strings.TrimSpace(task.ProjectName) == "" {
		return 0, NewValidationError("projectName", "project name is required")
	}
	if task.DueDate.IsZero() {
		return 0, NewValidationError("dueDate", "due date is required")
	}

	steps := task.Steps
	if steps == nil {
		steps = models.DocumentList{}
	}

	db, err := r.ensureConnection(ctx)
	if err != nil {
		return 0, err
	}

	var id int64
	err = db.GetContext(ctx, &id, `
		INSERT INTO todo_tasks (project_name, due_date, description, steps, requirements)
		VALUES ($1, $2, $3, $4::jsonb, $5)
		RETURNING id
	`, task.ProjectName, task.DueDate.Format(models.DateLayout), nullIfEmpty(task.Description), steps, nullIfEmpty(task.Requirements))
	if err != nil {
		return 0, r.writeErr("add todo task", err)
	}

	r.logger.Info("todo task created", utils.FieldID, id, "project", task.ProjectName)
	return id, nil
}

// GetTodoTasks lists todo tasks by ascending due date
func (r *PostgresRepository) GetTodoTasks(ctx context.Context) ([]models.TodoTask, error) {
	tasks := []models.TodoTask{}

	db, err := r.ensureConnection(ctx)
	if err != nil {
		return tasks, err
	}

	query := `
		SELECT id, project_name, due_date, description, steps, requirements, created_at
		FROM todo_tasks
		ORDER BY due_date ASC
	`
	if err := db.SelectContext(ctx, &tasks, query); err != nil {
		return []models.TodoTask{}, r.storageErr("list todo tasks", err)
	}
	return tasks, nil
}

// UpdateTodoTask replaces the steps of a task. A nil steps pointer means
// there is nothing to update.
func (r *PostgresRepository) UpdateTodoTask(ctx context.Context, taskID int64, steps *models.DocumentList) error {
	if steps == nil {
		return nil
	}

	value := *steps
	if value == nil {
		value = models.DocumentList{}
	}

	db, err := r.ensureConnection(ctx)
	if err != nil {
		return err
	}

	var id int64
	err = db.GetContext(ctx, &id, `
		UPDATE todo_tasks
		SET steps = $1::jsonb
		WHERE id = $2
		RETURNING id
	`, value, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("todo task", taskID)
		}
		return r.writeErr("update todo task", err)
	}

	r.logger.Info("todo task updated", utils.FieldID, taskID)
	return nil
}

// DeleteTodoTask removes a todo task
func (r *PostgresRepository) DeleteTodoTask(ctx context.Context, taskID int64) error {
	db, err := r.ensureConnection(ctx)
	if err != nil {
		return err
	}

	var id int64
	if err := db.GetContext(ctx, &id, `DELETE FROM todo_tasks WHERE id = $1 RETURNING id`, taskID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("todo task", taskID)
		}
		return r.storageErr("delete todo task", err)
	}

	r.logger.Info("todo task deleted", utils.FieldID, taskID)
	return nil
}
