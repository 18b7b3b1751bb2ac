package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/householdledger/server/internal/models"
	"github.com/householdledger/server/internal/repository"
)

// ErrInvalidCredentials is returned when a login does not match any user
var ErrInvalidCredentials = errors.New("invalid username or password")

// Service defines all the business logic operations. Plain data access is
// served directly by the embedded repository.
type Service interface {
	repository.Repository

	// Authentication
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)

	// Invoicing
	IssueInvoice(ctx context.Context, invoice models.NewInvoice) (*models.InvoiceResponse, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	repository.Repository
	jwtSecret     []byte
	tokenDuration time.Duration
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository, jwtSecret string) Service {
	return &DefaultService{
		Repository:    repo,
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: 24 * time.Hour, // 24 hours token validity
	}
}

// Login checks the credentials and issues a signed token
func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.VerifyLogin(ctx, req.Username, req.Password)
	if err != nil {
		return nil, fmt.Errorf("error verifying login: %w", err)
	}

	if user == nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &models.AuthResponse{
		Status:    "success",
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		Token:     token,
		ExpiresIn: int(s.tokenDuration.Seconds()),
	}, nil
}

// IssueInvoice reserves the next invoice number for the invoice date and
// stores the invoice under it. A failed insert leaves a gap in the
// numbering since the counter is never rolled back.
func (s *DefaultService) IssueInvoice(ctx context.Context, invoice models.NewInvoice) (*models.InvoiceResponse, error) {
	if len(invoice.PDFData) == 0 {
		return nil, repository.NewValidationError("pdfData", "PDF payload is required")
	}

	number, err := s.NextInvoiceNumber(ctx, invoice.Date)
	if err != nil {
		return nil, err
	}
	invoice.InvoiceNumber = number

	id, err := s.AddInvoice(ctx, invoice)
	if err != nil {
		return nil, err
	}

	return &models.InvoiceResponse{
		Status:        "success",
		InvoiceID:     id,
		InvoiceNumber: number,
	}, nil
}

// Helper methods
func (s *DefaultService) generateJWT(user *models.User) (string, error) {
	expirationTime := time.Now().Add(s.tokenDuration)

	claims := jwt.MapClaims{
		"sub":      strconv.FormatInt(user.ID, 10), // subject
		"username": user.Username,
		"role":     user.Role,
		"exp":      expirationTime.Unix(),
		"iat":      time.Now().Unix(), // issued at
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
