package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/householdledger/server/internal/models"
	"github.com/householdledger/server/internal/utils"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeState holds the failures shared by every connection of one fake pool
type fakeState struct {
	mu      sync.Mutex
	execErr error
	pingErr error
}

// set makes both Exec and Ping fail with err
func (s *fakeState) set(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execErr, s.pingErr = err, err
}

// setExec makes only Exec fail with err
func (s *fakeState) setExec(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execErr, s.pingErr = err, nil
}

func (s *fakeState) errors() (execErr, pingErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.execErr, s.pingErr
}

// fakeConnector hands out connections whose every Exec and Ping returns
// the pool's current error
type fakeConnector struct {
	state *fakeState
}

func (c fakeConnector) Connect(context.Context) (driver.Conn, error) {
	return &fakeConn{state: c.state}, nil
}

func (c fakeConnector) Driver() driver.Driver { return fakeDriver{} }

type fakeDriver struct{}

func (fakeDriver) Open(string) (driver.Conn, error) { return nil, errors.New("use the connector") }

type fakeConn struct {
	state *fakeState
}

func (c *fakeConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (c *fakeConn) Close() error                        { return nil }
func (c *fakeConn) Begin() (driver.Tx, error)           { return nil, errors.New("not supported") }

func (c *fakeConn) Ping(context.Context) error {
	_, err := c.state.errors()
	return err
}

func (c *fakeConn) ExecContext(context.Context, string, []driver.NamedValue) (driver.Result, error) {
	if err, _ := c.state.errors(); err != nil {
		return nil, err
	}
	return driver.RowsAffected(0), nil
}

func fakeDB(execErr error) *sqlx.DB {
	db, _ := fakePool(execErr)
	return db
}

// fakePool returns a pool whose failure can be changed while it is in use
func fakePool(execErr error) (*sqlx.DB, *fakeState) {
	state := &fakeState{execErr: execErr, pingErr: execErr}
	return sqlx.NewDb(sql.OpenDB(fakeConnector{state: state}), "postgres"), state
}

// offlineRepository never reaches a database; any attempt fails the test
func offlineRepository(t *testing.T) *PostgresRepository {
	t.Helper()
	return &PostgresRepository{
		connect: func() (*sqlx.DB, error) {
			t.Fatal("unexpected database access")
			return nil, nil
		},
		logger: utils.NopLogger(),
	}
}

func TestEnsureConnectionReconnectsOnce(t *testing.T) {
	broken := fakeDB(driver.ErrBadConn)
	healthy := fakeDB(nil)

	connects := 0
	repo, err := NewPostgresRepository(func() (*sqlx.DB, error) {
		connects++
		if connects == 1 {
			return broken, nil
		}
		return healthy, nil
	}, nil)
	require.NoError(t, err)

	db, err := repo.ensureConnection(context.Background())
	require.NoError(t, err)
	assert.Same(t, healthy, db)
	assert.Equal(t, 2, connects)
	assert.Same(t, healthy, repo.GetDB())

	// The healed handle is reused without reconnecting
	_, err = repo.ensureConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, connects)
}

func TestReconnectKeepsReplacedPoolOpenForHolders(t *testing.T) {
	first, state := fakePool(nil)
	second := fakeDB(nil)

	connects := 0
	repo, err := NewPostgresRepository(func() (*sqlx.DB, error) {
		connects++
		if connects == 1 {
			return first, nil
		}
		return second, nil
	}, nil)
	require.NoError(t, err)
	repo.staleCloseDelay = 200 * time.Millisecond
	ctx := context.Background()

	// Caller A fetches the handle
	dbA, err := repo.ensureConnection(ctx)
	require.NoError(t, err)
	assert.Same(t, first, dbA)

	// Caller B finds the pool broken and swaps it
	state.set(driver.ErrBadConn)
	dbB, err := repo.ensureConnection(ctx)
	require.NoError(t, err)
	assert.Same(t, second, dbB)

	// A's statement still runs on the pool it was handed
	state.set(nil)
	_, err = dbA.ExecContext(ctx, "SELECT 1")
	assert.NoError(t, err)

	// The replaced pool is closed once the grace period ends
	assert.Eventually(t, func() bool {
		return dbA.PingContext(ctx) != nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestEnsureConnectionKeepsPoolWhenPingSucceeds(t *testing.T) {
	db, state := fakePool(nil)

	connects := 0
	repo, err := NewPostgresRepository(func() (*sqlx.DB, error) {
		connects++
		return db, nil
	}, nil)
	require.NoError(t, err)

	// The server terminated one pooled connection; new ones still work
	state.setExec(&pq.Error{Code: "57P01", Message: "terminating connection due to administrator command"})

	got, err := repo.ensureConnection(context.Background())
	require.NoError(t, err)
	assert.Same(t, db, got)
	assert.Same(t, db, repo.GetDB())
	assert.Equal(t, 1, connects)
}

func TestEnsureConnectionReconnectFailure(t *testing.T) {
	connects := 0
	repo, err := NewPostgresRepository(func() (*sqlx.DB, error) {
		connects++
		if connects == 1 {
			return fakeDB(driver.ErrBadConn), nil
		}
		return nil, errors.New("connection refused")
	}, nil)
	require.NoError(t, err)

	_, err = repo.ensureConnection(context.Background())
	require.Error(t, err)
	assert.True(t, IsStorage(err))
	assert.False(t, IsValidation(err))
	assert.Nil(t, repo.GetDB())

	// A later call tries to connect again
	_, err = repo.ensureConnection(context.Background())
	require.Error(t, err)
	assert.Equal(t, 3, connects)
}

func TestEnsureConnectionNonConnectionError(t *testing.T) {
	connects := 0
	repo, err := NewPostgresRepository(func() (*sqlx.DB, error) {
		connects++
		return fakeDB(&pq.Error{Code: "42601", Message: "syntax error"}), nil
	}, nil)
	require.NoError(t, err)

	_, err = repo.ensureConnection(context.Background())
	require.Error(t, err)
	assert.True(t, IsStorage(err))
	assert.Equal(t, 1, connects, "only connection-level failures trigger a reconnect")
}

func TestNewPostgresRepositoryConnectFailure(t *testing.T) {
	repo, err := NewPostgresRepository(func() (*sqlx.DB, error) {
		return nil, errors.New("no route to host")
	}, nil)
	assert.Nil(t, repo)
	assert.True(t, IsStorage(err))
	assert.ErrorContains(t, err, "no route to host")
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad conn", driver.ErrBadConn, true},
		{"conn done", sql.ErrConnDone, true},
		{"eof", io.EOF, true},
		{"wrapped eof", fmt.Errorf("read: %w", io.ErrUnexpectedEOF), true},
		{"admin shutdown", &pq.Error{Code: "57P01"}, true},
		{"connection failure", &pq.Error{Code: "08006"}, true},
		{"unique violation", &pq.Error{Code: "23505"}, false},
		{"canceled", context.Canceled, false},
		{"closed pool", errors.New("sql: database is closed"), true},
		{"other", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isConnectionError(tt.err))
		})
	}
}

func TestIsUndefinedTable(t *testing.T) {
	assert.True(t, isUndefinedTable(&pq.Error{Code: "42P01", Message: `relation "invoices" does not exist`}))
	assert.True(t, isUndefinedTable(fmt.Errorf("list invoices: %w", &pq.Error{Code: "42P01"})))
	assert.False(t, isUndefinedTable(&pq.Error{Code: "42703"}))
	assert.False(t, isUndefinedTable(nil))
}

func TestWriteErrMapping(t *testing.T) {
	repo := offlineRepository(t)

	err := repo.writeErr("add category", &pq.Error{Code: "23505", Column: "name"})
	assert.ErrorIs(t, err, ErrConflict)

	err = repo.writeErr("add transaction", &pq.Error{Code: "23503"})
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.writeErr("add transaction", &pq.Error{Code: "23514", Message: "check violated"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = repo.writeErr("add transaction", errors.New("disk full"))
	assert.True(t, IsStorage(err))
	assert.False(t, IsValidation(err))

	// Errors already classified by the connection check pass through
	setup := &StorageError{Op: "check connection", Err: &pq.Error{Code: "23505"}}
	err = repo.writeErr("add invoice", setup)
	assert.Same(t, setup, err)
}

func TestFormatInvoiceNumber(t *testing.T) {
	date := time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "2970020703240001", FormatInvoiceNumber(date, 1))
	assert.Equal(t, "2970020703240042", FormatInvoiceNumber(date, 42))
	assert.Equal(t, "2970020703249999", FormatInvoiceNumber(date, 9999))
	assert.Len(t, FormatInvoiceNumber(date, 1), 16)
}

func TestAddTransactionValidation(t *testing.T) {
	repo := offlineRepository(t)
	ctx := context.Background()

	valid := models.NewTransaction{
		Date:       time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		Montant:    decimal.NewFromInt(100),
		Libelle:    "Loyer",
		CategoryID: 1,
		Type:       models.TypeCharge,
	}

	tests := []struct {
		name   string
		mutate func(tx *models.NewTransaction)
		field  string
	}{
		{"zero amount", func(tx *models.NewTransaction) { tx.Montant = decimal.Zero }, "montant"},
		{"negative amount", func(tx *models.NewTransaction) { tx.Montant = decimal.NewFromFloat(-0.01) }, "montant"},
		{"sub-cent amount", func(tx *models.NewTransaction) { tx.Montant = decimal.RequireFromString("0.004") }, "montant"},
		{"fractional cent", func(tx *models.NewTransaction) { tx.Montant = decimal.RequireFromString("1.005") }, "montant"},
		{"empty libelle", func(tx *models.NewTransaction) { tx.Libelle = "  " }, "libelle"},
		{"bad type", func(tx *models.NewTransaction) { tx.Type = "transfer" }, "type"},
		{"missing category", func(tx *models.NewTransaction) { tx.CategoryID = 0 }, "categoryId"},
		{"missing date", func(tx *models.NewTransaction) { tx.Date = time.Time{} }, "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.mutate(&tx)

			_, err := repo.AddTransaction(ctx, tx)
			require.Error(t, err)

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestAmountPrecision(t *testing.T) {
	valid := models.NewTransaction{
		Date:       time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		Libelle:    "Courses",
		CategoryID: 1,
		Type:       models.TypeCharge,
	}

	for _, amount := range []string{"0.01", "12.5", "99.990", "1000"} {
		tx := valid
		tx.Montant = decimal.RequireFromString(amount)
		assert.NoError(t, validateTransaction(tx), amount)
	}
}

func TestInputValidationBeforeStorage(t *testing.T) {
	repo := offlineRepository(t)
	ctx := context.Background()

	_, err := repo.CreateUser(ctx, "", "pw", models.RoleUser, nil, nil)
	assert.True(t, IsValidation(err))

	_, err = repo.CreateUser(ctx, "bob", "", models.RoleUser, nil, nil)
	assert.True(t, IsValidation(err))

	_, err = repo.CreateUser(ctx, "bob", "pw", "superuser", nil, nil)
	assert.True(t, IsValidation(err))

	_, err = repo.AddCategory(ctx, "", nil)
	assert.True(t, IsValidation(err))

	_, err = repo.AddProject(ctx, " ", nil)
	assert.True(t, IsValidation(err))

	_, err = repo.AddTodoTask(ctx, models.NewTodoTask{DueDate: time.Now()})
	assert.True(t, IsValidation(err))

	_, err = repo.AddTodoTask(ctx, models.NewTodoTask{ProjectName: "Maison"})
	assert.True(t, IsValidation(err))

	_, err = repo.AddInvoice(ctx, models.NewInvoice{Date: time.Now(), PDFData: []byte("%PDF")})
	assert.True(t, IsValidation(err))

	_, err = repo.AddInvoice(ctx, models.NewInvoice{InvoiceNumber: "2970020703240001", Date: time.Now()})
	assert.True(t, IsValidation(err))

	_, err = repo.NextInvoiceNumber(ctx, time.Time{})
	assert.True(t, IsValidation(err))

	// No steps means nothing to update
	assert.NoError(t, repo.UpdateTodoTask(ctx, 1, nil))
}

func TestSummaryRejectsUnknownPeriod(t *testing.T) {
	repo := offlineRepository(t)
	ctx := context.Background()

	rows, err := repo.GetSummaryByPeriod(ctx, "week")
	assert.True(t, IsValidation(err))
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	_, err = repo.GetCategorySummary(ctx, "quarter")
	assert.True(t, IsValidation(err))

	_, err = repo.GetProjectSummary(ctx, "'; DROP TABLE transactions; --")
	assert.True(t, IsValidation(err))
}
