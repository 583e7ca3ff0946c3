package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/example/verifly/internal/config"
	"github.com/example/verifly/internal/handlers"
	"github.com/example/verifly/internal/models"
	"github.com/example/verifly/internal/routes"
	"github.com/example/verifly/internal/store"
	"github.com/example/verifly/internal/utils"
)

func newTestApp(t *testing.T) (*fiber.App, *store.Store, *config.Config) {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:         "test-secret",
		AccessTokenTTL:    15 * time.Minute,
		RefreshTokenTTL:   24 * time.Hour,
		MaxOTPAttempts:    3,
		OTPTTL:            10 * time.Minute,
		OTPLockout:        time.Hour,
		VerifyTokenTTL:    time.Hour,
		MinPasswordLength: 6,
	}

	st := store.NewMemory()

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	routes.Register(app, st, cfg)

	return app, st, cfg
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}, token string) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	return body
}

func seedUser(t *testing.T, st *store.Store, user models.User, password string) *models.User {
	t.Helper()

	hash, err := utils.HashPassword(password)
	require.NoError(t, err)
	user.PasswordHash = hash

	require.NoError(t, st.Accounts.Create(context.Background(), &user))
	return &user
}

func mintAccess(t *testing.T, cfg *config.Config, userID uuid.UUID) string {
	t.Helper()

	pair, err := utils.GenerateTokenPair(cfg.JWTSecret, userID, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	require.NoError(t, err)
	return pair.Access
}
