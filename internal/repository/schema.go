package repository

import (
	"context"

	"github.com/householdledger/server/internal/models"
	"github.com/householdledger/server/internal/utils"
)

// schema lists the core tables in creation order
var schema = []struct {
	table string
	ddl   string
}{
	{"projects", `
		CREATE TABLE IF NOT EXISTS projects (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`},
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			role TEXT CHECK (role IN ('admin', 'user')) NOT NULL,
			full_name TEXT,
			email TEXT UNIQUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			last_login TIMESTAMP
		)
	`},
	{"categories", `
		CREATE TABLE IF NOT EXISTS categories (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`},
	{"transactions", `
		CREATE TABLE IF NOT EXISTS transactions (
			id SERIAL PRIMARY KEY,
			date DATE NOT NULL,
			montant DECIMAL(15,2) NOT NULL,
			libelle TEXT NOT NULL,
			category_id INTEGER REFERENCES categories(id),
			type TEXT CHECK (type IN ('charge', 'recette')) NOT NULL,
			project TEXT,
			payer BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`},
	{"todo_tasks", `
		CREATE TABLE IF NOT EXISTS todo_tasks (
			id SERIAL PRIMARY KEY,
			project_name TEXT NOT NULL,
			due_date DATE NOT NULL,
			description TEXT,
			steps JSONB DEFAULT '[]'::jsonb,
			requirements TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`},
}

const invoicesDDL = `
	CREATE TABLE IF NOT EXISTS invoices (
		id SERIAL PRIMARY KEY,
		invoice_number TEXT NOT NULL,
		date DATE NOT NULL,
		client_info JSONB NOT NULL,
		lines JSONB NOT NULL,
		totals_info JSONB NOT NULL,
		pdf_data BYTEA NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)
`

const invoiceSequenceDDL = `
	CREATE TABLE IF NOT EXISTS invoice_sequence (
		id INTEGER PRIMARY KEY,
		current_value INTEGER DEFAULT 0
	)
`

// seedAccount is a default account created on an empty users table
type seedAccount struct {
	username string
	password string
	role     string
	fullName string
	email    string
}

var seedAccounts = []seedAccount{
	{"admin", "admin123", models.RoleAdmin, "Administrateur", "admin@example.com"},
	{"user", "user123", models.RoleUser, "Utilisateur", "user@example.com"},
}

// Bootstrap creates the core tables if they are absent and seeds the two
// default accounts when the users table is empty. Safe to run on every
// startup.
func (r *PostgresRepository) Bootstrap(ctx context.Context) error {
	db, err := r.ensureConnection(ctx)
	if err != nil {
		return err
	}

	for _, t := range schema {
		if _, err := db.ExecContext(ctx, t.ddl); err != nil {
			return r.storageErr("create table "+t.table, err)
		}
		r.logger.Debug("table ready", "table", t.table)
	}

	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`); err != nil {
		return r.storageErr("count users", err)
	}
	if count > 0 {
		return nil
	}

	for _, a := range seedAccounts {
		hashed, err := utils.HashPassword(a.password)
		if err != nil {
			return r.storageErr("hash seed password", err)
		}
		_, err = db.ExecContext(ctx, `
			INSERT INTO users (username, password, role, full_name, email)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (username) DO NOTHING
		`, a.username, hashed, a.role, a.fullName, a.email)
		if err != nil {
			return r.storageErr("seed user", err)
		}
		r.logger.Info("default user created", "username", a.username, "role", a.role)
	}

	return nil
}

// ensureInvoiceSchema lazily creates the invoice tables and seeds the
// sequence counter to zero.
func (r *PostgresRepository) ensureInvoiceSchema(ctx context.Context) error {
	r.invoiceSchemaMu.Lock()
	defer r.invoiceSchemaMu.Unlock()

	if r.invoiceSchemaReady {
		return nil
	}

	db, err := r.ensureConnection(ctx)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, invoiceSequenceDDL); err != nil {
		return r.storageErr("create table invoice_sequence", err)
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO invoice_sequence (id, current_value)
		VALUES (1, 0)
		ON CONFLICT (id) DO NOTHING
	`); err != nil {
		return r.storageErr("seed invoice_sequence", err)
	}
	if _, err := db.ExecContext(ctx, invoicesDDL); err != nil {
		return r.storageErr("create table invoices", err)
	}

	r.invoiceSchemaReady = true
	return nil
}

// resetInvoiceSchema forgets that the invoice tables exist so the next
// invoice call recreates them
func (r *PostgresRepository) resetInvoiceSchema() {
	r.invoiceSchemaMu.Lock()
	defer r.invoiceSchemaMu.Unlock()
	r.invoiceSchemaReady = false
}
