package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/householdledger/server/internal/models"
	"github.com/householdledger/server/internal/repository"
	"github.com/householdledger/server/internal/service"
	"github.com/householdledger/server/internal/utils"
)

// Handler exposes the service over HTTP
type Handler struct {
	svc       service.Service
	jwtSecret []byte
	logger    *utils.Logger
}

// NewHandler creates a new Handler
func NewHandler(svc service.Service, jwtSecret string, logger *utils.Logger) *Handler {
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &Handler{
		svc:       svc,
		jwtSecret: []byte(jwtSecret),
		logger:    logger.WithComponent("http"),
	}
}

// SetupRoutes registers every route on router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(RequestLogger(h.logger))

	// Make the JWT secret available to the auth middleware
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", h.jwtSecret)
		c.Next()
	})

	api := router.Group("/api")
	api.POST("/auth/login", h.Login)

	authed := api.Group("")
	authed.Use(AuthMiddleware())

	users := authed.Group("/users")
	users.Use(RequireRole(models.RoleAdmin))
	users.GET("", h.ListUsers)
	users.POST("", h.CreateUser)
	users.PUT("/:id", h.UpdateUser)
	users.DELETE("/:id", h.DeleteUser)

	authed.GET("/categories", h.ListCategories)
	authed.POST("/categories", h.CreateCategory)
	authed.DELETE("/categories/:id", h.DeleteCategory)

	authed.GET("/projects", h.ListProjects)
	authed.POST("/projects", h.CreateProject)
	authed.DELETE("/projects/:id", h.DeleteProject)

	authed.GET("/transactions", h.ListTransactions)
	authed.POST("/transactions", h.CreateTransaction)
	authed.POST("/transactions/mark-paid", h.MarkAllPaid)
	authed.DELETE("/transactions/:id", h.DeleteTransaction)

	authed.GET("/summaries/period", h.SummaryByPeriod)
	authed.GET("/summaries/category", h.CategorySummary)
	authed.GET("/summaries/project", h.ProjectSummary)

	authed.GET("/todos", h.ListTodoTasks)
	authed.POST("/todos", h.CreateTodoTask)
	authed.PATCH("/todos/:id", h.UpdateTodoTask)
	authed.DELETE("/todos/:id", h.DeleteTodoTask)

	authed.GET("/invoices", h.ListInvoices)
	authed.POST("/invoices", h.CreateInvoice)
	authed.POST("/invoices/numbers", h.ReserveInvoiceNumber)
	authed.GET("/invoices/:id/pdf", h.GetInvoicePDF)
	authed.DELETE("/invoices/:id", h.DeleteInvoice)
}

// respondError maps service errors to HTTP statuses
func (h *Handler) respondError(c *gin.Context, err error) {
	status, code, message := http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		status, code, message = http.StatusUnauthorized, "INVALID_CREDENTIALS", err.Error()
	case errors.Is(err, repository.ErrNotFound):
		status, code, message = http.StatusNotFound, "NOT_FOUND", err.Error()
	case errors.Is(err, repository.ErrInUse):
		status, code, message = http.StatusConflict, "IN_USE", err.Error()
	case errors.Is(err, repository.ErrConflict):
		status, code, message = http.StatusConflict, "CONFLICT", err.Error()
	case repository.IsValidation(err):
		status, code, message = http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	default:
		h.logger.Error("request failed",
			utils.FieldRequestID, c.GetString(ContextRequestID),
			utils.FieldError, err,
		)
	}

	c.JSON(status, models.ErrorResponse{Status: "error", Code: code, Message: message})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status:  "error",
		Code:    "INVALID_REQUEST",
		Message: message,
	})
}

// pathID parses the :id route parameter
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

// parseDate parses a YYYY-MM-DD request field
func parseDate(field, value string) (time.Time, error) {
	d, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return time.Time{}, repository.NewValidationError(field, field+" must be a date formatted YYYY-MM-DD")
	}
	return d, nil
}

func created(c *gin.Context, id int64) {
	c.JSON(http.StatusCreated, models.CreatedResponse{Status: "success", ID: id})
}

func ok(c *gin.Context, message string) {
	c.JSON(http.StatusOK, models.StatusResponse{Status: "success", Message: message})
}

// Authentication

// Login exchanges credentials for a JWT
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Users

// ListUsers returns every account
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.svc.GetAllUsers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// CreateUser adds an account
func (h *Handler) CreateUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	id, err := h.svc.CreateUser(c.Request.Context(), req.Username, req.Password, req.Role, req.FullName, req.Email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	created(c, id)
}

// UpdateUser changes an account's profile and optionally its password
func (h *Handler) UpdateUser(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.svc.UpdateUser(c.Request.Context(), id, req.FullName, req.Email, req.NewPassword); err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, "User updated")
}

// DeleteUser removes an account other than the caller's
func (h *Handler) DeleteUser(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	if id == c.GetInt64(ContextUserID) {
		badRequest(c, "you cannot delete your own account")
		return
	}

	if err := h.svc.DeleteUser(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, "User deleted")
}

// Categories

// ListCategories returns all categories
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.svc.GetCategories(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// CreateCategory adds a category
func (h *Handler) CreateCategory(c *gin.Context) {
	var req models.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	id, err := h.svc.AddCategory(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		h.respondError(c, err)
		return
	}
	created(c, id)
}

// DeleteCategory removes an unreferenced category
func (h *Handler) DeleteCategory(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	if err := h.svc.DeleteCategory(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, "Category deleted")
}

// Projects

// ListProjects returns all projects
func (h *Handler) ListProjects(c *gin.Context) {
	projects, err := h.svc.GetProjects(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// CreateProject adds a project
func (h *Handler) CreateProject(c *gin.Context) {
	var req models.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	id, err := h.svc.AddProject(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		h.respondError(c, err)
		return
	}
	created(c, id)
}

// DeleteProject removes an unreferenced project
func (h *Handler) DeleteProject(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	if err := h.svc.DeleteProject(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, "Project deleted")
}

// Transactions

// ListTransactions returns transactions, optionally filtered by category_id
func (h *Handler) ListTransactions(c *gin.Context) {
	raw := c.Query("category_id")
	if raw == "" {
		transactions, err := h.svc.GetTransactions(c.Request.Context())
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, transactions)
		return
	}

	categoryID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		badRequest(c, "category_id must be an integer")
		return
	}

	transactions, err := h.svc.GetFilteredTransactions(c.Request.Context(), &categoryID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactions)
}

// CreateTransaction records a charge or recette
func (h *Handler) CreateTransaction(c *gin.Context) {
	var req models.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	date, err := parseDate("date", req.Date)
	if err != nil {
		h.respondError(c, err)
		return
	}

	id, err := h.svc.AddTransaction(c.Request.Context(), models.NewTransaction{
		Date:       date,
		Montant:    req.Montant,
		Libelle:    req.Libelle,
		CategoryID: req.CategoryID,
		Type:       req.Type,
		Project:    req.Project,
		Payer:      req.Payer,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	created(c, id)
}

// DeleteTransaction removes a transaction
func (h *Handler) DeleteTransaction(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	if err := h.svc.DeleteTransaction(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, "Transaction deleted")
}

// MarkAllPaid flags every transaction as paid
func (h *Handler) MarkAllPaid(c *gin.Context) {
	n, err := h.svc.MarkAllTransactionsAsPaid(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MarkPaidResponse{Status: "success", Updated: n})
}

// Summaries

func granularity(c *gin.Context) (models.Period, bool) {
	period, err := models.ParsePeriod(c.Query("granularity"))
	if err != nil {
		badRequest(c, err.Error())
		return "", false
	}
	return period, true
}

// SummaryByPeriod totals transactions per period, category, type and paid flag
func (h *Handler) SummaryByPeriod(c *gin.Context) {
	period, valid := granularity(c)
	if !valid {
		return
	}

	rows, err := h.svc.GetSummaryByPeriod(c.Request.Context(), period)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// CategorySummary totals transactions per period and category
func (h *Handler) CategorySummary(c *gin.Context) {
	period, valid := granularity(c)
	if !valid {
		return
	}

	rows, err := h.svc.GetCategorySummary(c.Request.Context(), period)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// ProjectSummary totals transactions per period and project
func (h *Handler) ProjectSummary(c *gin.Context) {
	period, valid := granularity(c)
	if !valid {
		return
	}

	rows, err := h.svc.GetProjectSummary(c.Request.Context(), period)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Todo tasks

// ListTodoTasks returns todo tasks by due date
func (h *Handler) ListTodoTasks(c *gin.Context) {
	tasks, err := h.svc.GetTodoTasks(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// CreateTodoTask adds a todo task
func (h *Handler) CreateTodoTask(c *gin.Context) {
	var req models.CreateTodoTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	dueDate, err := parseDate("dueDate", req.DueDate)
	if err != nil {
		h.respondError(c, err)
		return
	}

	id, err := h.svc.AddTodoTask(c.Request.Context(), models.NewTodoTask{
		ProjectName:  req.ProjectName,
		DueDate:      dueDate,
		Description:  req.Description,
		Steps:        req.Steps,
		Requirements: req.Requirements,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	created(c, id)
}

// UpdateTodoTask replaces a task's steps
func (h *Handler) UpdateTodoTask(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	var req models.UpdateTodoTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.svc.UpdateTodoTask(c.Request.Context(), id, req.Steps); err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, "Task updated")
}

// DeleteTodoTask removes a todo task
func (h *Handler) DeleteTodoTask(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	if err := h.svc.DeleteTodoTask(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, "Task deleted")
}

// Invoices

// ListInvoices returns invoice metadata
func (h *Handler) ListInvoices(c *gin.Context) {
	invoices, err := h.svc.GetInvoices(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

// ReserveInvoiceNumber consumes the next invoice number for a date
func (h *Handler) ReserveInvoiceNumber(c *gin.Context) {
	var req models.InvoiceNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	date, err := parseDate("date", req.Date)
	if err != nil {
		h.respondError(c, err)
		return
	}

	number, err := h.svc.NextInvoiceNumber(c.Request.Context(), date)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.InvoiceNumberResponse{Status: "success", InvoiceNumber: number})
}

// CreateInvoice numbers and stores an invoice
func (h *Handler) CreateInvoice(c *gin.Context) {
	var req models.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	date, err := parseDate("date", req.Date)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp, err := h.svc.IssueInvoice(c.Request.Context(), models.NewInvoice{
		Date:       date,
		ClientInfo: req.ClientInfo,
		Lines:      req.Lines,
		TotalsInfo: req.TotalsInfo,
		PDFData:    req.PDFData,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetInvoicePDF streams an invoice's PDF
func (h *Handler) GetInvoicePDF(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	pdf, err := h.svc.GetInvoicePDF(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if pdf == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Status:  "error",
			Code:    "NOT_FOUND",
			Message: "invoice has no PDF",
		})
		return
	}
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// DeleteInvoice removes an invoice
func (h *Handler) DeleteInvoice(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	if err := h.svc.DeleteInvoice(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, "Invoice deleted")
}
