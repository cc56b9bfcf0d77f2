package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"garagebook/internal/bootstrap"
	"garagebook/internal/config"
	"garagebook/internal/middleware"
	"garagebook/internal/seed"
	"garagebook/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

type testOptions struct {
	flags    string
	redisURL string
}

func newTestServer(t *testing.T, opts testOptions) (*Server, *fiber.App) {
	t.Helper()
	service.PasswordCost = bcrypt.MinCost

	cfg := &config.Config{
		Port:           "0",
		Env:            "test",
		JWTSecret:      testSecret,
		StoreBackend:   config.StoreMemory,
		SessionBackend: config.SessionMemory,
		SeedMockData:   true,
		RedisURL:       opts.redisURL,
		AllowedOrigins: "*",
		FeatureFlags:   opts.flags,
	}
	rt, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{PasswordCost: bcrypt.MinCost})
	require.NoError(t, err)

	s := NewServer(rt)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
		rt.Close()
	})
	return s, s.App()
}

func tokenFor(t *testing.T, userID, username string) string {
	t.Helper()
	token, _, err := middleware.GenerateToken(testSecret, userID, username, time.Now())
	require.NoError(t, err)
	return token
}

// call performs a request and decodes the JSON body into out when out is non-nil.
func call(t *testing.T, app *fiber.App, method, path, token string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthEndpoints(t *testing.T) {
	_, app := newTestServer(t, testOptions{})

	assert.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/health/live", "", nil, nil))

	var ready struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	assert.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/health/ready", "", nil, &ready))
	assert.Equal(t, "healthy", ready.Status)
	assert.Equal(t, "memory", ready.Checks["database"])
	assert.Equal(t, "disabled", ready.Checks["redis"])
}

func TestRegisterAndLogin(t *testing.T) {
	_, app := newTestServer(t, testOptions{})

	form := RegisterRequest{
		Username:        "newdriver",
		Email:           "new@example.com",
		FullName:        "New Driver",
		Password:        "secret123",
		ConfirmPassword: "secret123",
	}

	var created AuthResponse
	require.Equal(t, http.StatusCreated, call(t, app, http.MethodPost, "/api/auth/register", "", form, &created))
	assert.NotEmpty(t, created.Token)
	assert.Equal(t, "newdriver", created.User.Username)
	assert.Empty(t, created.User.Password)

	assert.Equal(t, http.StatusConflict, call(t, app, http.MethodPost, "/api/auth/register", "", form, nil))

	var login AuthResponse
	require.Equal(t, http.StatusOK, call(t, app, http.MethodPost, "/api/auth/login", "",
		LoginRequest{Email: "new@example.com", Password: "secret123"}, &login))
	assert.Equal(t, created.User.ID, login.User.ID)

	var me map[string]any
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/api/users/me", login.Token, nil, &me))
	assert.Equal(t, "newdriver", me["username"])
}

func TestRegister_Validation(t *testing.T) {
	_, app := newTestServer(t, testOptions{})

	tests := []struct {
		name string
		form RegisterRequest
	}{
		{"mismatched passwords", RegisterRequest{Username: "abc", Email: "a@b.co", FullName: "A", Password: "secret123", ConfirmPassword: "secret124"}},
		{"short password", RegisterRequest{Username: "abc", Email: "a@b.co", FullName: "A", Password: "abc", ConfirmPassword: "abc"}},
		{"missing full name", RegisterRequest{Username: "abc", Email: "a@b.co", Password: "secret123", ConfirmPassword: "secret123"}},
		{"bad email", RegisterRequest{Username: "abc", Email: "nope", FullName: "A", Password: "secret123", ConfirmPassword: "secret123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, call(t, app, http.MethodPost, "/api/auth/register", "", tt.form, nil))
		})
	}
}

func TestLogin_Rejects(t *testing.T) {
	_, app := newTestServer(t, testOptions{})

	assert.Equal(t, http.StatusUnauthorized, call(t, app, http.MethodPost, "/api/auth/login", "",
		LoginRequest{Email: "john@example.com", Password: "wrong-password"}, nil))
	assert.Equal(t, http.StatusUnauthorized, call(t, app, http.MethodPost, "/api/auth/login", "",
		LoginRequest{Email: "nobody@example.com", Password: seed.FixturePassword}, nil))
	assert.Equal(t, http.StatusBadRequest, call(t, app, http.MethodPost, "/api/auth/login", "",
		LoginRequest{Email: "john@example.com"}, nil))
}

func TestAuthRequired(t *testing.T) {
	_, app := newTestServer(t, testOptions{})

	assert.Equal(t, http.StatusUnauthorized, call(t, app, http.MethodGet, "/api/users/me", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, call(t, app, http.MethodGet, "/api/users/me", "not-a-jwt", nil, nil))

	other, _, err := middleware.GenerateToken("some-other-secret-of-enough-length", "1", "johndoe", time.Now())
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(t, app, http.MethodGet, "/api/users/me", other, nil, nil))

	// Query tokens are only honored on the websocket route.
	req := httptest.NewRequest(http.MethodGet, "/api/users/me?token="+tokenFor(t, "1", "johndoe"), nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogout_RevokesToken(t *testing.T) {
	mr := miniredis.RunT(t)
	_, app := newTestServer(t, testOptions{redisURL: mr.Addr()})

	var login AuthResponse
	require.Equal(t, http.StatusOK, call(t, app, http.MethodPost, "/api/auth/login", "",
		LoginRequest{Email: "john@example.com", Password: seed.FixturePassword}, &login))

	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/api/users/me", login.Token, nil, nil))
	require.Equal(t, http.StatusOK, call(t, app, http.MethodPost, "/api/auth/logout", login.Token, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, call(t, app, http.MethodGet, "/api/users/me", login.Token, nil, nil))

	ready := map[string]any{}
	require.Equal(t, http.StatusOK, call(t, app, http.MethodGet, "/health/ready", "", nil, &ready))
	assert.Equal(t, "healthy", ready["checks"].(map[string]any)["redis"])
}
