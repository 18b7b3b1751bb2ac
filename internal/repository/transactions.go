package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/householdledger/server/internal/models"
	"github.com/householdledger/server/internal/utils"
)

const transactionColumns = `
	t.id, t.date, t.montant, t.libelle, t.category_id, c.name AS category_name,
	t.type, t.project, t.payer, t.created_at
`

func validateTransaction(tx models.NewTransaction) error {
	if tx.CategoryID <= 0 {
		return NewValidationError("categoryId", "category ID must be a positive integer")
	}
	if strings.TrimSpace(tx.Libelle) == "" {
		return NewValidationError("libelle", "libelle is required")
	}
	if !tx.Montant.IsPositive() {
		return NewValidationError("montant", "montant must be greater than 0")
	}
	// montant is stored as DECIMAL(15,2)
	if !tx.Montant.Equal(tx.Montant.Round(2)) {
		return NewValidationError("montant", "montant must have at most two decimal places")
	}
	if tx.Type != models.TypeCharge && tx.Type != models.TypeRecette {
		return NewValidationError("type", "type must be 'charge' or 'recette'")
	}
	if tx.Date.IsZero() {
		return NewValidationError("date", "date is required")
	}
	return nil
}

// AddTransaction records a transaction after checking its category exists
func (r *PostgresRepository) AddTransaction(ctx context.Context, tx models.NewTransaction) (int64, error) {
	if err := validateTransaction(tx); err != nil {
		return 0, err
	}

	db, err := r.ensureConnection(ctx)
	if err != nil {
		return 0, err
	}

	var exists bool
	err = db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)`, tx.CategoryID)
	if err != nil {
		return 0, r.storageErr("check category", err)
	}
	if !exists {
		return 0, &ValidationError{
			Field:   "categoryId",
			Message: fmt.Sprintf("category with ID %d does not exist", tx.CategoryID),
			Err:     ErrNotFound,
		}
	}

	var id int64
	err = db.GetContext(ctx, &id, `
		INSERT INTO transactions (date, montant, libelle, category_id, type, project, payer)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, tx.Date.Format(models.DateLayout), tx.Montant, tx.Libelle, tx.CategoryID, tx.Type, nullIfEmpty(tx.Project), tx.Payer)
	if err != nil {
		return 0, r.writeErr("add transaction", err)
	}

	r.logger.Info("transaction created", utils.FieldID, id, "type", tx.Type, "montant", tx.Montant.String())
	return id, nil
}

// GetTransactions lists all transactions, newest first
func (r *PostgresRepository) GetTransactions(ctx context.Context) ([]models.Transaction, error) {
	transactions := []models.Transaction{}

	db, err := r.ensureConnection(ctx)
	if err != nil {
		return transactions, err
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions t
		LEFT JOIN categories c ON t.category_id = c.id
		ORDER BY t.created_at DESC, t.date DESC, t.id DESC
	`
	if err := db.SelectContext(ctx, &transactions, query); err != nil {
		return []models.Transaction{}, r.storageErr("list transactions", err)
	}
	return transactions, nil
}

// GetFilteredTransactions lists transactions of one category, or all of
// them when categoryID is nil, ordered by date descending.
func (r *PostgresRepository) GetFilteredTransactions(ctx context.Context, categoryID *int64) ([]models.Transaction, error) {
	transactions := []models.Transaction{}

	db, err := r.ensureConnection(ctx)
	if err != nil {
		return transactions, err
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions t
		LEFT JOIN categories c ON t.category_id = c.id
	`
	args := []interface{}{}

	if categoryID != nil {
		query += ` WHERE t.category_id = $1`
		args = append(args, *categoryID)
	}

	query += ` ORDER BY t.date DESC`

	if err := db.SelectContext(ctx, &transactions, query, args...); err != nil {
		return []models.Transaction{}, r.storageErr("list filtered transactions", err)
	}
	return transactions, nil
}

// DeleteTransaction removes a transaction
func (r *PostgresRepository) DeleteTransaction(ctx context.Context, transactionID int64) error {
	db, err := r.ensureConnection(ctx)
	if err != nil {
		return err
	}

	var id int64
	if err := db.GetContext(ctx, &id, `DELETE FROM transactions WHERE id = $1 RETURNING id`, transactionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("transaction", transactionID)
		}
		return r.storageErr("delete transaction", err)
	}

	r.logger.Info("transaction deleted", utils.FieldID, transactionID)
	return nil
}

// MarkAllTransactionsAsPaid sets the paid flag on every transaction and
// returns how many rows were updated.
func (r *PostgresRepository) MarkAllTransactionsAsPaid(ctx context.Context) (int64, error) {
	db, err := r.ensureConnection(ctx)
	if err != nil {
		return 0, err
	}

	res, err := db.ExecContext(ctx, `UPDATE transactions SET payer = TRUE`)
	if err != nil {
		return 0, r.storageErr("mark transactions paid", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return 0, r.storageErr("mark transactions paid", err)
	}

	r.logger.Info("all transactions marked as paid", "updated", n)
	return n, nil
}
