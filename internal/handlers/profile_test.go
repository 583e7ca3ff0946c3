package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/verifly/internal/models"
)

func TestProfileRequiresAuth(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/api/profile", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPatch, "/api/profile",
		map[string]string{"first_name": "pooji"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProfileLifecycle(t *testing.T) {
	app, st, cfg := newTestApp(t)

	user := seedUser(t, st, models.User{Email: "a@b.com", PhoneNumber: "9876543210"}, "password123")
	token := mintAccess(t, cfg, user.ID)

	// No profile yet.
	resp := doJSON(t, app, http.MethodGet, "/api/profile", nil, token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// First update creates it.
	resp = doJSON(t, app, http.MethodPatch, "/api/profile", map[string]string{
		"first_name": "pooji",
		"last_name":  "tha",
		"address":    "123 wxyz St",
	}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := decodeBody(t, resp)["data"].(map[string]interface{})
	assert.Equal(t, "pooji", data["first_name"])
	assert.Equal(t, "tha", data["last_name"])
	assert.Equal(t, "123 wxyz St", data["address"])

	// Partial update leaves other fields alone.
	resp = doJSON(t, app, http.MethodPatch, "/api/profile",
		map[string]string{"address": "456 wxyz St"}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/profile", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data = decodeBody(t, resp)["data"].(map[string]interface{})
	assert.Equal(t, "pooji", data["first_name"])
	assert.Equal(t, "456 wxyz St", data["address"])

	// Still exactly one profile for the account.
	profile, err := st.Profiles.ByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "pooji", profile.FirstName)
}

func TestProfileOwnership(t *testing.T) {
	app, st, cfg := newTestApp(t)

	owner := seedUser(t, st, models.User{Email: "owner@b.com", PhoneNumber: "9876543210"}, "password123")
	other := seedUser(t, st, models.User{Email: "other@b.com", PhoneNumber: "9876543211"}, "password123")

	resp := doJSON(t, app, http.MethodPatch, "/api/profile",
		map[string]string{"first_name": "pooji"}, mintAccess(t, cfg, owner.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The other account sees its own (missing) profile, not the owner's.
	resp = doJSON(t, app, http.MethodGet, "/api/profile", nil, mintAccess(t, cfg, other.ID))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateProfileNoFields(t *testing.T) {
	app, st, cfg := newTestApp(t)

	user := seedUser(t, st, models.User{Email: "a@b.com", PhoneNumber: "9876543210"}, "password123")

	resp := doJSON(t, app, http.MethodPatch, "/api/profile",
		map[string]string{}, mintAccess(t, cfg, user.ID))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
