package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/householdledger/server/internal/models"
	"github.com/householdledger/server/internal/utils"
)

// AddCategory inserts a category and returns its id
func (r *PostgresRepository) AddCategory(ctx context.Context, name string, description *string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, NewValidationError("name", "category name is required")
	}

	db, err := r.ensureConnection(ctx)
	if err != nil {
		return 0, err
	}

	var id int64
	err = db.GetContext(ctx, &id, `
		INSERT INTO categories (name, description)
		VALUES ($1, $2)
		RETURNING id
	`, name, nullIfEmpty(description))
	if err != nil {
		return 0, r.writeErr("add category", err)
	}

	r.logger.Info("category created", utils.FieldID, id, "name", name)
	return id, nil
}

// GetCategories lists categories ordered by name
func (r *PostgresRepository) GetCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}

	db, err := r.ensureConnection(ctx)
	if err != nil {
		return categories, err
	}

	if err := db.SelectContext(ctx, &categories, `SELECT * FROM categories ORDER BY name`); err != nil {
		return []models.Category{}, r.storageErr("list categories", err)
	}
	return categories, nil
}

// DeleteCategory removes a category that no transaction references
func (r *PostgresRepository) DeleteCategory(ctx context.Context, categoryID int64) error {
	db, err := r.ensureConnection(ctx)
	if err != nil {
		return err
	}

	var refs int
	if err := db.GetContext(ctx, &refs, `SELECT COUNT(*) FROM transactions WHERE category_id = $1`, categoryID); err != nil {
		return r.storageErr("count category references", err)
	}
	if refs > 0 {
		return inUse("category")
	}

	var id int64
	if err := db.GetContext(ctx, &id, `DELETE FROM categories WHERE id = $1 RETURNING id`, categoryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("category", categoryID)
		}
		// A transaction inserted between the count and the delete trips the FK
		wErr := r.writeErr("delete category", err)
		if IsValidation(wErr) {
			return inUse("category")
		}
		return wErr
	}

	r.logger.Info("category deleted", utils.FieldID, categoryID)
	return nil
}
