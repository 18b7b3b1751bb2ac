package models

import "github.com/shopspring/decimal"

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// Request models
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type CreateUserRequest struct {
	Username string  `json:"username" binding:"required"`
	Password string  `json:"password" binding:"required"`
	Role     string  `json:"role" binding:"required,oneof=admin user"`
	FullName *string `json:"fullName"`
	Email    *string `json:"email"`
}

type UpdateUserRequest struct {
	FullName    *string `json:"fullName"`
	Email       *string `json:"email"`
	NewPassword string  `json:"newPassword"`
}

type CreateCategoryRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

type CreateProjectRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

type CreateTransactionRequest struct {
	Date       string          `json:"date" binding:"required"`
	Montant    decimal.Decimal `json:"montant"`
	Libelle    string          `json:"libelle" binding:"required"`
	CategoryID int64           `json:"categoryId" binding:"required"`
	Type       string          `json:"type" binding:"required"`
	Project    *string         `json:"project"`
	Payer      bool            `json:"payer"`
}

type CreateTodoTaskRequest struct {
	ProjectName  string       `json:"projectName" binding:"required"`
	DueDate      string       `json:"dueDate" binding:"required"`
	Description  *string      `json:"description"`
	Steps        DocumentList `json:"steps"`
	Requirements *string      `json:"requirements"`
}

type UpdateTodoTaskRequest struct {
	Steps *DocumentList `json:"steps"`
}

type InvoiceNumberRequest struct {
	Date string `json:"date" binding:"required"`
}

type CreateInvoiceRequest struct {
	Date       string       `json:"date" binding:"required"`
	ClientInfo Document     `json:"clientInfo" binding:"required"`
	Lines      DocumentList `json:"lines" binding:"required"`
	TotalsInfo Document     `json:"totalsInfo" binding:"required"`
	PDFData    []byte       `json:"pdfData" binding:"required"` // base64 in JSON
}

// Response models
type AuthResponse struct {
	Status    string `json:"status"`
	UserID    int64  `json:"userId,omitempty"`
	Username  string `json:"username,omitempty"`
	Role      string `json:"role,omitempty"`
	Token     string `json:"token,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

type CreatedResponse struct {
	Status string `json:"status"`
	ID     int64  `json:"id"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type InvoiceNumberResponse struct {
	Status        string `json:"status"`
	InvoiceNumber string `json:"invoiceNumber"`
}

type InvoiceResponse struct {
	Status        string `json:"status"`
	InvoiceID     int64  `json:"invoiceId"`
	InvoiceNumber string `json:"invoiceNumber"`
}

type MarkPaidResponse struct {
	Status  string `json:"status"`
	Updated int64  `json:"updated"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
