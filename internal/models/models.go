package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Roles a user can hold
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Transaction types
const (
	TypeCharge  = "charge"
	TypeRecette = "recette"
)

// User represents an account of the application
type User struct {
	ID        int64      `db:"id" json:"id"`
	Username  string     `db:"username" json:"username"`
	Password  string     `db:"password" json:"-"` // Password hash, not returned in JSON
	Role      string     `db:"role" json:"role"`
	FullName  *string    `db:"full_name" json:"fullName"`
	Email     *string    `db:"email" json:"email"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	LastLogin *time.Time `db:"last_login" json:"lastLogin"`
}

// Category tags transactions
type Category struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Project groups transactions by name
type Project struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Transaction is a single charge or recette, joined with its category name
type Transaction struct {
	ID           int64           `db:"id" json:"id"`
	Date         time.Time       `db:"date" json:"date"`
	Montant      decimal.Decimal `db:"montant" json:"montant"`
	Libelle      string          `db:"libelle" json:"libelle"`
	CategoryID   *int64          `db:"category_id" json:"categoryId"`
	CategoryName *string         `db:"category_name" json:"categoryName"`
	Type         string          `db:"type" json:"type"`
	Project      *string         `db:"project" json:"project"`
	Payer        bool            `db:"payer" json:"payer"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
}

// NewTransaction holds the fields needed to record a transaction
type NewTransaction struct {
	Date       time.Time
	Montant    decimal.Decimal
	Libelle    string
	CategoryID int64
	Type       string
	Project    *string
	Payer      bool
}

// TodoTask is a dated task attached to a project name
type TodoTask struct {
	ID           int64        `db:"id" json:"id"`
	ProjectName  string       `db:"project_name" json:"projectName"`
	DueDate      time.Time    `db:"due_date" json:"dueDate"`
	Description  *string      `db:"description" json:"description"`
	Steps        DocumentList `db:"steps" json:"steps"`
	Requirements *string      `db:"requirements" json:"requirements"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
}

// NewTodoTask holds the fields needed to create a todo task
type NewTodoTask struct {
	ProjectName  string
	DueDate      time.Time
	Description  *string
	Steps        DocumentList
	Requirements *string
}

// Invoice is the stored metadata of an issued invoice. The PDF payload is
// fetched separately.
type Invoice struct {
	ID            int64        `db:"id" json:"id"`
	InvoiceNumber string       `db:"invoice_number" json:"invoiceNumber"`
	Date          time.Time    `db:"date" json:"date"`
	ClientInfo    Document     `db:"client_info" json:"clientInfo"`
	Lines         DocumentList `db:"lines" json:"lines"`
	TotalsInfo    Document     `db:"totals_info" json:"totalsInfo"`
	CreatedAt     time.Time    `db:"created_at" json:"createdAt"`
}

// NewInvoice holds the fields needed to store an invoice
type NewInvoice struct {
	InvoiceNumber string
	Date          time.Time
	ClientInfo    Document
	Lines         DocumentList
	TotalsInfo    Document
	PDFData       []byte
}

// PeriodSummary is one row of the summary by period
type PeriodSummary struct {
	Period       string          `db:"period" json:"period"`
	CategoryName *string         `db:"category_name" json:"categoryName"`
	Type         string          `db:"type" json:"type"`
	Payer        bool            `db:"payer" json:"payer"`
	Charges      decimal.Decimal `db:"charges" json:"charges"`
	Recettes     decimal.Decimal `db:"recettes" json:"recettes"`
}

// CategorySummary is one row of the summary by category
type CategorySummary struct {
	Period       string          `db:"period" json:"period"`
	CategoryName *string         `db:"category_name" json:"categoryName"`
	Charges      decimal.Decimal `db:"charges" json:"charges"`
	Recettes     decimal.Decimal `db:"recettes" json:"recettes"`
	Balance      decimal.Decimal `db:"balance" json:"balance"`
}

// ProjectSummary is one row of the summary by project
type ProjectSummary struct {
	Period   string          `db:"period" json:"period"`
	Project  string          `db:"project" json:"project"`
	Charges  decimal.Decimal `db:"charges" json:"charges"`
	Recettes decimal.Decimal `db:"recettes" json:"recettes"`
	Balance  decimal.Decimal `db:"balance" json:"balance"`
}
