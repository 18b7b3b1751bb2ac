package testutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/householdledger/server/internal/api"
	"github.com/householdledger/server/internal/models"
	"github.com/householdledger/server/internal/repository"
	"github.com/householdledger/server/internal/service"
	dbutils "github.com/householdledger/server/internal/testutils"
	"github.com/householdledger/server/internal/utils"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret-key"

// TestContext holds all dependencies for tests
type TestContext struct {
	Router     *gin.Engine
	Repository *repository.PostgresRepository
	Service    service.Service
	AdminJWT   string
	UserJWT    string
}

// NewRouter wires a handler over svc the same way the server does
func NewRouter(svc service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api.NewHandler(svc, testJWTSecret, utils.NopLogger()).SetupRoutes(router)
	return router
}

// SetupTestContext creates a router over a freshly seeded store living in
// schema. Tests are skipped when no database is configured.
func SetupTestContext(t *testing.T, schema string) *TestContext {
	t.Helper()

	repo := dbutils.SetupTestRepository(t, schema)
	svc := service.NewDefaultService(repo, testJWTSecret)
	router := NewRouter(svc)

	return &TestContext{
		Router:     router,
		Repository: repo,
		Service:    svc,
		AdminJWT:   Login(t, router, "admin", "admin123"),
		UserJWT:    Login(t, router, "user", "user123"),
	}
}

// Login authenticates through the API and returns the issued token
func Login(t *testing.T, router http.Handler, username, password string) string {
	t.Helper()

	w := PerformRequest(router, http.MethodPost, "/api/auth/login",
		models.LoginRequest{Username: username, Password: password}, nil)
	require.Equal(t, http.StatusOK, w.Code, "login as %s: %s", username, w.Body.String())

	var resp models.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

// DecodeJSON unmarshals the recorded body into v
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), "body: %s", w.Body.String())
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}
