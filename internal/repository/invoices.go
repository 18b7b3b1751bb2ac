package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/householdledger/server/internal/models"
	"github.com/householdledger/server/internal/utils"
	"github.com/jmoiron/sqlx"
)

// InvoicePrefix starts every invoice number
const InvoicePrefix = "297002"

// FormatInvoiceNumber builds an invoice number from the invoice date and a
// sequence value: prefix, DDMMYY, then the sequence padded to four digits.
func FormatInvoiceNumber(date time.Time, sequence int64) string {
	return fmt.Sprintf("%s%s%04d", InvoicePrefix, date.Format("020106"), sequence)
}

// NextInvoiceSequence increments the global invoice counter and returns
// the new value. Increment and read happen in a single statement so two
// callers can never observe the same value.
func (r *PostgresRepository) NextInvoiceSequence(ctx context.Context) (int64, error) {
	var next int64
	err := r.withInvoiceSchema(ctx, func(db *sqlx.DB) error {
		return db.GetContext(ctx, &next, `
			UPDATE invoice_sequence
			SET current_value = current_value + 1
			WHERE id = 1
			RETURNING current_value
		`)
	})
	if err != nil {
		return 0, r.storageErr("next invoice sequence", err)
	}
	return next, nil
}

// NextInvoiceNumber consumes a sequence value and formats it for date
func (r *PostgresRepository) NextInvoiceNumber(ctx context.Context, date time.Time) (string, error) {
	if date.IsZero() {
		return "", NewValidationError("date", "invoice date is required")
	}
	seq, err := r.NextInvoiceSequence(ctx)
	if err != nil {
		return "", err
	}
	return FormatInvoiceNumber(date, seq), nil
}

// AddInvoice stores an invoice with its structured metadata and PDF payload
func (r *PostgresRepository) AddInvoice(ctx context.Context, invoice models.NewInvoice) (int64, error) {
	if strings.TrimSpace(invoice.InvoiceNumber) == "" {
		return 0, NewValidationError("invoiceNumber", "invoice number is required")
	}
	if invoice.Date.IsZero() {
		return 0, NewValidationError("date", "invoice date is required")
	}
	if len(invoice.PDFData) == 0 {
		return 0, NewValidationError("pdfData", "PDF payload is required")
	}

	var id int64
	err := r.withInvoiceSchema(ctx, func(db *sqlx.DB) error {
		return db.GetContext(ctx, &id, `
			INSERT INTO invoices (invoice_number, date, client_info, lines, totals_info, pdf_data)
			VALUES ($1, $2, $3::jsonb, $4::jsonb, $5::jsonb, $6)
			RETURNING id
		`, invoice.InvoiceNumber, invoice.Date.Format(models.DateLayout),
			invoice.ClientInfo, invoice.Lines, invoice.TotalsInfo, invoice.PDFData)
	})
	if err != nil {
		return 0, r.writeErr("add invoice", err)
	}

	r.logger.Info("invoice stored", utils.FieldID, id, "invoice_number", invoice.InvoiceNumber)
	return id, nil
}

// GetInvoices lists invoice metadata, most recent first
func (r *PostgresRepository) GetInvoices(ctx context.Context) ([]models.Invoice, error) {
	invoices := []models.Invoice{}

	query := `
		SELECT id, invoice_number, date, client_info, lines, totals_info, created_at
		FROM invoices
		ORDER BY created_at DESC
	`
	err := r.withInvoiceSchema(ctx, func(db *sqlx.DB) error {
		return db.SelectContext(ctx, &invoices, query)
	})
	if err != nil {
		return []models.Invoice{}, r.storageErr("list invoices", err)
	}
	return invoices, nil
}

// GetInvoicePDF returns the PDF bytes of an invoice, or nil when the
// invoice does not exist or carries no payload.
func (r *PostgresRepository) GetInvoicePDF(ctx context.Context, invoiceID int64) ([]byte, error) {
	var pdf []byte
	err := r.withInvoiceSchema(ctx, func(db *sqlx.DB) error {
		return db.GetContext(ctx, &pdf, `SELECT pdf_data FROM invoices WHERE id = $1`, invoiceID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Invoice not found
		}
		return nil, r.storageErr("get invoice pdf", err)
	}
	if len(pdf) == 0 {
		return nil, nil
	}
	return pdf, nil
}

// DeleteInvoice removes an invoice
func (r *PostgresRepository) DeleteInvoice(ctx context.Context, invoiceID int64) error {
	var id int64
	err := r.withInvoiceSchema(ctx, func(db *sqlx.DB) error {
		return db.GetContext(ctx, &id, `DELETE FROM invoices WHERE id = $1 RETURNING id`, invoiceID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("invoice", invoiceID)
		}
		return r.storageErr("delete invoice", err)
	}

	r.logger.Info("invoice deleted", utils.FieldID, invoiceID)
	return nil
}

// withInvoiceSchema runs fn against a live handle once the invoice tables
// exist. If they vanished since they were created, they are recreated and
// fn runs a second time. Setup failures come back as *StorageError, fn's
// own errors come back unwrapped.
func (r *PostgresRepository) withInvoiceSchema(ctx context.Context, fn func(db *sqlx.DB) error) error {
	for attempt := 0; ; attempt++ {
		if err := r.ensureInvoiceSchema(ctx); err != nil {
			return err
		}

		db, err := r.ensureConnection(ctx)
		if err != nil {
			return err
		}

		err = fn(db)
		if attempt == 0 && isUndefinedTable(err) {
			r.logger.Warn("invoice tables missing, recreating", utils.FieldError, err)
			r.resetInvoiceSchema()
			continue
		}
		return err
	}
}
