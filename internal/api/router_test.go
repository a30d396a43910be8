package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cordwell/shopapi/internal/auth"
	"github.com/cordwell/shopapi/internal/config"
	"github.com/cordwell/shopapi/internal/db"
	"github.com/cordwell/shopapi/internal/db/repository"
)

// newTestServer wires a full server against an in-memory database.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		Server:   config.ServerConfig{ListenAddr: ":0"},
		Database: config.DatabaseConfig{Path: ":memory:"},
		Auth:     config.AuthConfig{JWTSecret: "test-secret"},
	}
	require.NoError(t, cfg.Validate())

	log := logrus.New()
	log.SetOutput(io.Discard)

	database, err := db.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.RunMigrations(database))

	userRepo := repository.NewUserRepository(database.DB)
	categoryRepo := repository.NewCategoryRepository(database.DB)
	productRepo := repository.NewProductRepository(database.DB)
	orderRepo := repository.NewOrderRepository(database.DB)
	auditRepo := repository.NewAuditRepository(database.DB)

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.GetTokenTTL())
	require.NoError(t, err)
	totpEngine := auth.NewTOTPEngine(cfg.Auth.TOTPIssuer, userRepo)

	return NewServer(cfg, log, tokens, totpEngine, userRepo, categoryRepo, productRepo, orderRepo, auditRepo)
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func registerUser(t *testing.T, s *Server, email, password, role string) string {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/register", "", map[string]any{
		"username":   "tester",
		"email":      email,
		"password":   password,
		"first_name": "Test",
		"last_name":  "User",
		"role":       role,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["id"].(string)
}

func loginUser(t *testing.T, s *Server, email, password string) string {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/login", "", map[string]any{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := decode(t, w)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterAndDuplicate(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/register", "", map[string]any{
		"username":   "alice",
		"email":      "alice@example.com",
		"password":   "password123",
		"first_name": "Alice",
		"last_name":  "Smith",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "client", body["role"])
	assert.NotContains(t, w.Body.String(), "password")

	// Same email again conflicts
	w = doJSON(t, s, http.MethodPost, "/register", "", map[string]any{
		"username":   "alice2",
		"email":      "alice@example.com",
		"password":   "password123",
		"first_name": "Alice",
		"last_name":  "Smith",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	// Short password
	w := doJSON(t, s, http.MethodPost, "/register", "", map[string]any{
		"username":   "bob",
		"email":      "bob@example.com",
		"password":   "short",
		"first_name": "Bob",
		"last_name":  "Jones",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Bad email
	w = doJSON(t, s, http.MethodPost, "/register", "", map[string]any{
		"username":   "bob",
		"email":      "not-an-email",
		"password":   "password123",
		"first_name": "Bob",
		"last_name":  "Jones",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	registerUser(t, s, "alice@example.com", "password123", "")

	token := loginUser(t, s, "alice@example.com", "password123")
	assert.NotEmpty(t, token)

	// Wrong password and unknown email are indistinguishable
	w := doJSON(t, s, http.MethodPost, "/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "wrongpassword",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	wrongPass := decode(t, w)

	w = doJSON(t, s, http.MethodPost, "/login", "", map[string]any{
		"email":    "nobody@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	unknown := decode(t, w)

	assert.Equal(t, wrongPass, unknown)
	assert.NotContains(t, w.Body.String(), "token")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	registerUser(t, s, "alice@example.com", "password123", "")

	w := doJSON(t, s, http.MethodPost, "/recovery-key", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, s, http.MethodPost, "/recovery-key", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := loginUser(t, s, "alice@example.com", "password123")
	w = doJSON(t, s, http.MethodPost, "/recovery-key", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, decode(t, w)["recoveryKey"])
}

func TestPasswordChange(t *testing.T) {
	s := newTestServer(t)
	registerUser(t, s, "alice@example.com", "password123", "")
	token := loginUser(t, s, "alice@example.com", "password123")

	// Wrong old password
	w := doJSON(t, s, http.MethodPut, "/password-change", token, map[string]any{
		"oldpassword": "wrongpassword",
		"newpassword": "newpassword456",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Correct old password
	w = doJSON(t, s, http.MethodPut, "/password-change", token, map[string]any{
		"oldpassword": "password123",
		"newpassword": "newpassword456",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Old password no longer works, new one does
	w = doJSON(t, s, http.MethodPost, "/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	loginUser(t, s, "alice@example.com", "newpassword456")
}

func TestPasswordResetFlow(t *testing.T) {
	s := newTestServer(t)
	registerUser(t, s, "alice@example.com", "password123", "")
	token := loginUser(t, s, "alice@example.com", "password123")

	w := doJSON(t, s, http.MethodPost, "/recovery-key", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	key := decode(t, w)["recoveryKey"].(string)
	require.NotEmpty(t, key)

	// Wrong key is rejected
	w = doJSON(t, s, http.MethodPost, "/reset-password", "", map[string]any{
		"email":       "alice@example.com",
		"recoverykey": "WRONGKEY12345678",
		"newpassword": "resetpassword789",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Correct key resets the password
	w = doJSON(t, s, http.MethodPost, "/reset-password", "", map[string]any{
		"email":       "alice@example.com",
		"recoverykey": key,
		"newpassword": "resetpassword789",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	loginUser(t, s, "alice@example.com", "resetpassword789")

	// The key is single use
	w = doJSON(t, s, http.MethodPost, "/reset-password", "", map[string]any{
		"email":       "alice@example.com",
		"recoverykey": key,
		"newpassword": "anotherpassword0",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOTPFlow(t *testing.T) {
	s := newTestServer(t)
	userID := registerUser(t, s, "alice@example.com", "password123", "")
	token := loginUser(t, s, "alice@example.com", "password123")

	// Enroll
	w := doJSON(t, s, http.MethodPost, "/otp/generate", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	enrollment := decode(t, w)
	secret := enrollment["base32"].(string)
	require.NotEmpty(t, secret)
	assert.Contains(t, enrollment["otpauth_url"], "otpauth://totp/")

	// Validation is refused before the enrollment is confirmed
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	w = doJSON(t, s, http.MethodPost, "/otp/validate", "", map[string]any{
		"user_id": userID,
		"token":   code,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Confirming with a wrong code leaves two-factor disabled
	w = doJSON(t, s, http.MethodPost, "/otp/verify", token, map[string]any{
		"token": "000000",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Confirm with a real code
	code, err = totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	w = doJSON(t, s, http.MethodPost, "/otp/verify", token, map[string]any{
		"token": code,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["otp_verified"])

	// Pre-login validation now accepts a fresh code
	code, err = totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	w = doJSON(t, s, http.MethodPost, "/otp/validate", "", map[string]any{
		"user_id": userID,
		"token":   code,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["otp_valid"])

	// A wrong code is still refused
	w = doJSON(t, s, http.MethodPost, "/otp/validate", "", map[string]any{
		"user_id": userID,
		"token":   "000000",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Unknown accounts get the same refusal
	w = doJSON(t, s, http.MethodPost, "/otp/validate", "", map[string]any{
		"user_id": "missing-id",
		"token":   code,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Disable clears the enrollment
	w = doJSON(t, s, http.MethodPost, "/otp/disable", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	code, err = totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	w = doJSON(t, s, http.MethodPost, "/otp/validate", "", map[string]any{
		"user_id": userID,
		"token":   code,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminRoutesForbiddenForClients(t *testing.T) {
	s := newTestServer(t)
	registerUser(t, s, "alice@example.com", "password123", "")
	token := loginUser(t, s, "alice@example.com", "password123")

	w := doJSON(t, s, http.MethodGet, "/admin/users", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, s, http.MethodPost, "/admin/categories", token, map[string]any{"name": "Books"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCatalogAndOrderFlow(t *testing.T) {
	s := newTestServer(t)
	registerUser(t, s, "admin@example.com", "password123", "admin")
	adminToken := loginUser(t, s, "admin@example.com", "password123")
	registerUser(t, s, "client@example.com", "password123", "")
	clientToken := loginUser(t, s, "client@example.com", "password123")

	// Admin creates a category and a product
	w := doJSON(t, s, http.MethodPost, "/admin/categories", adminToken, map[string]any{
		"name":        "Books",
		"description": "Printed matter",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	categoryID := decode(t, w)["id"].(string)

	w = doJSON(t, s, http.MethodPost, "/admin/products", adminToken, map[string]any{
		"name":         "Go Primer",
		"description":  "An introduction",
		"price":        19.99,
		"stock":        5,
		"category_ids": []string{categoryID},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	productID := decode(t, w)["id"].(string)

	// Catalog is public
	w = doJSON(t, s, http.MethodGet, "/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Go Primer")

	// Client places an order
	w = doJSON(t, s, http.MethodPost, "/orders", clientToken, map[string]any{
		"productlist": []map[string]any{
			{"productid": productID, "quantity": 2},
		},
		"paymentmethod": "card",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	orderID := decode(t, w)["order_id"].(string)

	// Ordering more than the stock fails up front
	w = doJSON(t, s, http.MethodPost, "/orders", clientToken, map[string]any{
		"productlist": []map[string]any{
			{"productid": productID, "quantity": 100},
		},
		"paymentmethod": "card",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Client sees only their own order
	w = doJSON(t, s, http.MethodGet, "/orders", clientToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	require.Len(t, mine, 1)

	// Admin approves it, which decrements stock
	w = doJSON(t, s, http.MethodPut, "/admin/orders/"+orderID+"/approve", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "approved", decode(t, w)["status"])

	w = doJSON(t, s, http.MethodPut, "/admin/orders/"+orderID+"/approve", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Sales report includes the approved order
	w = doJSON(t, s, http.MethodGet, "/admin/sales", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	require.Len(t, report, 1)
	assert.Equal(t, "Go Primer", report[0]["name"])
	assert.EqualValues(t, 2, report[0]["salesAmount"])
}

func TestAdminUserManagement(t *testing.T) {
	s := newTestServer(t)
	registerUser(t, s, "admin@example.com", "password123", "admin")
	adminToken := loginUser(t, s, "admin@example.com", "password123")
	clientID := registerUser(t, s, "client@example.com", "password123", "")

	w := doJSON(t, s, http.MethodGet, "/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	users := body["users"].([]any)
	assert.Len(t, users, 2)

	// Promote the client
	w = doJSON(t, s, http.MethodPut, "/admin/users/"+clientID+"/role", adminToken, map[string]any{
		"role": "admin",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Their next session carries the admin claim
	promotedToken := loginUser(t, s, "client@example.com", "password123")
	w = doJSON(t, s, http.MethodGet, "/admin/users", promotedToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Delete the account
	w = doJSON(t, s, http.MethodDelete, "/admin/users/"+clientID, adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodPost, "/login", "", map[string]any{
		"email":    "client@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
