package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/householdledger/server/internal/models"
	"github.com/householdledger/server/internal/utils"
)

// AddProject inserts a project and returns its id
func (r *PostgresRepository) AddProject(ctx context.Context, name string, description *string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, NewValidationError("name", "project name is required")
	}

	db, err := r.ensureConnection(ctx)
	if err != nil {
		return 0, err
	}

	var id int64
	err = db.GetContext(ctx, &id, `
		INSERT INTO projects (name, description)
		VALUES ($1, $2)
		RETURNING id
	`, name, nullIfEmpty(description))
	if err != nil {
		return 0, r.writeErr("add project", err)
	}

	r.logger.Info("project created", utils.FieldID, id, "name", name)
	return id, nil
}

// GetProjects lists projects ordered by name
func (r *PostgresRepository) GetProjects(ctx context.Context) ([]models.Project, error) {
	projects := []models.Project{}

	db, err := r.ensureConnection(ctx)
	if err != nil {
		return projects, err
	}

	if err := db.SelectContext(ctx, &projects, `SELECT * FROM projects ORDER BY name`); err != nil {
		return []models.Project{}, r.storageErr("list projects", err)
	}
	return projects, nil
}

// DeleteProject removes a project whose name no transaction carries.
// Transactions reference projects by name, not by id.
func (r *PostgresRepository) DeleteProject(ctx context.Context, projectID int64) error {
	db, err := r.ensureConnection(ctx)
	if err != nil {
		return err
	}

	var refs int
	err = db.GetContext(ctx, &refs, `
		SELECT COUNT(*) FROM transactions
		WHERE project = (SELECT name FROM projects WHERE id = $1)
	`, projectID)
	if err != nil {
		return r.storageErr("count project references", err)
	}
	if refs > 0 {
		return inUse("project")
	}

	var id int64
	if err := db.GetContext(ctx, &id, `DELETE FROM projects WHERE id = $1 RETURNING id`, projectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("project", projectID)
		}
		return r.storageErr("delete project", err)
	}

	r.logger.Info("project deleted", utils.FieldID, projectID)
	return nil
}
