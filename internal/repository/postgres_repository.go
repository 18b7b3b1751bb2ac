package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/householdledger/server/internal/models"
	"github.com/householdledger/server/internal/utils"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	// User operations
	GetAllUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, username, password, role string, fullName, email *string) (int64, error)
	UpdateUser(ctx context.Context, userID int64, fullName, email *string, newPassword string) error
	DeleteUser(ctx context.Context, userID int64) error
	VerifyLogin(ctx context.Context, username, password string) (*models.User, error)

	// Category operations
	AddCategory(ctx context.Context, name string, description *string) (int64, error)
	GetCategories(ctx context.Context) ([]models.Category, error)
	DeleteCategory(ctx context.Context, categoryID int64) error

	// Project operations
	AddProject(ctx context.Context, name string, description *string) (int64, error)
	GetProjects(ctx context.Context) ([]models.Project, error)
	DeleteProject(ctx context.Context, projectID int64) error

	// Transaction operations
	AddTransaction(ctx context.Context, tx models.NewTransaction) (int64, error)
	GetTransactions(ctx context.Context) ([]models.Transaction, error)
	GetFilteredTransactions(ctx context.Context, categoryID *int64) ([]models.Transaction, error)
	DeleteTransaction(ctx context.Context, transactionID int64) error
	MarkAllTransactionsAsPaid(ctx context.Context) (int64, error)

	// Summaries
	GetSummaryByPeriod(ctx context.Context, period models.Period) ([]models.PeriodSummary, error)
	GetCategorySummary(ctx context.Context, period models.Period) ([]models.CategorySummary, error)
	GetProjectSummary(ctx context.Context, period models.Period) ([]models.ProjectSummary, error)

	// Todo operations
	AddTodoTask(ctx context.Context, task models.NewTodoTask) (int64, error)
	GetTodoTasks(ctx context.Context) ([]models.TodoTask, error)
	UpdateTodoTask(ctx context.Context, taskID int64, steps *models.DocumentList) error
	DeleteTodoTask(ctx context.Context, taskID int64) error

	// Invoice operations
	NextInvoiceSequence(ctx context.Context) (int64, error)
	NextInvoiceNumber(ctx context.Context, date time.Time) (string, error)
	AddInvoice(ctx context.Context, invoice models.NewInvoice) (int64, error)
	GetInvoices(ctx context.Context) ([]models.Invoice, error)
	GetInvoicePDF(ctx context.Context, invoiceID int64) ([]byte, error)
	DeleteInvoice(ctx context.Context, invoiceID int64) error
}

// Connector opens a fresh database handle
type Connector func() (*sqlx.DB, error)

const defaultStaleCloseDelay = 30 * time.Second

// PostgresRepository implements the Repository interface using PostgreSQL.
// Every statement runs in autocommit mode; no operation opens a transaction.
type PostgresRepository struct {
	connect Connector
	logger  *utils.Logger

	mu sync.RWMutex
	db *sqlx.DB

	// staleCloseDelay is how long a replaced pool stays open for callers
	// that fetched it before the swap
	staleCloseDelay time.Duration

	invoiceSchemaMu    sync.Mutex
	invoiceSchemaReady bool
}

// NewPostgresRepository creates a new PostgreSQL repository and opens its connection
func NewPostgresRepository(connect Connector, logger *utils.Logger) (*PostgresRepository, error) {
	if logger == nil {
		logger = utils.NopLogger()
	}
	r := &PostgresRepository{
		connect:         connect,
		logger:          logger.WithComponent("storage"),
		staleCloseDelay: defaultStaleCloseDelay,
	}
	db, err := connect()
	if err != nil {
		r.logger.Error("database connection failed", utils.FieldError, err)
		return nil, &StorageError{Op: "connect", Err: err}
	}
	r.db = db
	r.logger.Info("database connection established")
	return r, nil
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.db
}

// Close releases the database connection
func (r *PostgresRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// ensureConnection checks the handle with a trivial round trip and
// reconnects once if the connection is gone. The caller's statement is not
// retried: if the new handle is still broken, that statement fails.
func (r *PostgresRepository) ensureConnection(ctx context.Context) (*sqlx.DB, error) {
	r.mu.RLock()
	db := r.db
	r.mu.RUnlock()

	if db != nil {
		_, err := db.ExecContext(ctx, "SELECT 1")
		if err == nil {
			return db, nil
		}
		if !isConnectionError(err) {
			return nil, r.storageErr("check connection", err)
		}

		// The pool discards the broken connection; keep it if a fresh one works
		if pingErr := db.PingContext(ctx); pingErr == nil {
			r.logger.Warn("dropped broken database connection", utils.FieldError, err)
			return db, nil
		}
		r.logger.Warn("database connection lost, reconnecting", utils.FieldError, err)
	}

	return r.reconnect(db)
}

// reconnect replaces stale with a fresh handle unless another caller
// already did so.
func (r *PostgresRepository) reconnect(stale *sqlx.DB) (*sqlx.DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db != stale && r.db != nil {
		return r.db, nil
	}
	if stale != nil && stale == r.db {
		r.retire(stale)
	}

	db, err := r.connect()
	if err != nil {
		r.db = nil
		return nil, r.storageErr("reconnect", err)
	}
	r.db = db
	r.logger.Info("database connection re-established")
	return db, nil
}

// retire closes a replaced pool once callers that still hold it have had
// staleCloseDelay to finish their statements.
func (r *PostgresRepository) retire(stale *sqlx.DB) {
	time.AfterFunc(r.staleCloseDelay, func() {
		if err := stale.Close(); err != nil {
			r.logger.Warn("closing replaced database pool failed", utils.FieldError, err)
		}
	})
}

// storageErr logs an unexpected storage failure and wraps it. Errors that
// are already storage errors pass through unchanged.
func (r *PostgresRepository) storageErr(op string, err error) error {
	if IsStorage(err) {
		return err
	}
	r.logger.Error("storage operation failed", utils.FieldOperation, op, utils.FieldError, err)
	return &StorageError{Op: op, Err: err}
}

// writeErr maps constraint violations raised by a write to validation
// errors and everything else to a storage error.
func (r *PostgresRepository) writeErr(op string, err error) error {
	if IsStorage(err) {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return &ValidationError{Field: pqErr.Column, Message: fmt.Sprintf("%s: value already exists", op), Err: ErrConflict}
		case "23503": // foreign_key_violation
			return &ValidationError{Field: pqErr.Column, Message: fmt.Sprintf("%s: referenced row does not exist", op), Err: ErrNotFound}
		case "23502", "23514", "22001", "22003", "22P02": // not null, check, too long, out of range, bad text representation
			return &ValidationError{Field: pqErr.Column, Message: fmt.Sprintf("%s: %s", op, pqErr.Message), Err: ErrInvalidInput}
		}
	}
	return r.storageErr(op, err)
}

// isConnectionError reports whether err means the connection itself is unusable
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code.Class() == "08": // connection_exception
			return true
		case pqErr.Code == "57P01", pqErr.Code == "57P02", pqErr.Code == "57P03": // shutdown, cannot connect now
			return true
		}
		return false
	}
	return strings.Contains(err.Error(), "database is closed")
}

// isUndefinedTable reports whether err is SQLSTATE 42P01 (undefined_table)
func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "42P01"
}

// rowsAffected returns the row count of an exec result
func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// nullIfEmpty turns empty optional strings into NULL
func nullIfEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
