package repository

import (
	"context"
	"fmt"

	"github.com/householdledger/server/internal/models"
)

// periodFormat resolves the TO_CHAR pattern of a granularity. Only the
// whitelisted patterns are ever interpolated into SQL.
func periodFormat(period models.Period) (string, error) {
	format, ok := period.Format()
	if !ok {
		return "", NewValidationError("period", fmt.Sprintf("period must be one of day, month, year, got %q", period))
	}
	return format, nil
}

// GetSummaryByPeriod sums charges and recettes per period, category, type
// and paid flag, ordered by period then category.
func (r *PostgresRepository) GetSummaryByPeriod(ctx context.Context, period models.Period) ([]models.PeriodSummary, error) {
	rows := []models.PeriodSummary{}

	format, err := periodFormat(period)
	if err != nil {
		return rows, err
	}

	db, err := r.ensureConnection(ctx)
	if err != nil {
		return rows, err
	}

	query := fmt.Sprintf(`
		SELECT
			TO_CHAR(t.date, '%s') AS period,
			c.name AS category_name,
			t.type,
			t.payer,
			SUM(CASE WHEN t.type = 'charge' THEN t.montant ELSE 0 END) AS charges,
			SUM(CASE WHEN t.type = 'recette' THEN t.montant ELSE 0 END) AS recettes
		FROM transactions t
		LEFT JOIN categories c ON t.category_id = c.id
		GROUP BY period, c.name, t.type, t.payer
		ORDER BY period, c.name
	`, format)

	if err := db.SelectContext(ctx, &rows, query); err != nil {
		return []models.PeriodSummary{}, r.storageErr("summary by period", err)
	}
	return rows, nil
}

// GetCategorySummary sums charges, recettes and the recettes-minus-charges
// balance per period and category, latest period first.
func (r *PostgresRepository) GetCategorySummary(ctx context.Context, period models.Period) ([]models.CategorySummary, error) {
	rows := []models.CategorySummary{}

	format, err := periodFormat(period)
	if err != nil {
		return rows, err
	}

	db, err := r.ensureConnection(ctx)
	if err != nil {
		return rows, err
	}

	query := fmt.Sprintf(`
		SELECT
			TO_CHAR(t.date, '%s') AS period,
			c.name AS category_name,
			SUM(CASE WHEN t.type = 'charge' THEN t.montant ELSE 0 END) AS charges,
			SUM(CASE WHEN t.type = 'recette' THEN t.montant ELSE 0 END) AS recettes,
			SUM(CASE WHEN t.type = 'recette' THEN t.montant ELSE -t.montant END) AS balance
		FROM transactions t
		LEFT JOIN categories c ON t.category_id = c.id
		GROUP BY period, c.name
		ORDER BY period DESC, c.name
	`, format)

	if err := db.SelectContext(ctx, &rows, query); err != nil {
		return []models.CategorySummary{}, r.storageErr("summary by category", err)
	}
	return rows, nil
}

// GetProjectSummary sums charges, recettes and balance per period and
// project name for transactions carrying a project, latest period first.
func (r *PostgresRepository) GetProjectSummary(ctx context.Context, period models.Period) ([]models.ProjectSummary, error) {
	rows := []models.ProjectSummary{}

	format, err := periodFormat(period)
	if err != nil {
		return rows, err
	}

	db, err := r.ensureConnection(ctx)
	if err != nil {
		return rows, err
	}

	query := fmt.Sprintf(`
		SELECT
			TO_CHAR(date, '%s') AS period,
			project,
			SUM(CASE WHEN type = 'charge' THEN montant ELSE 0 END) AS charges,
			SUM(CASE WHEN type = 'recette' THEN montant ELSE 0 END) AS recettes,
			SUM(CASE WHEN type = 'recette' THEN montant ELSE -montant END) AS balance
		FROM transactions
		WHERE project IS NOT NULL
		GROUP BY period, project
		ORDER BY period DESC, project
	`, format)

	if err := db.SelectContext(ctx, &rows, query); err != nil {
		return []models.ProjectSummary{}, r.storageErr("summary by project", err)
	}
	return rows, nil
}
