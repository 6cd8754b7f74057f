package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veraxlabs/go-access-server/auth"
	"github.com/veraxlabs/go-access-server/internal/config"
	"github.com/veraxlabs/go-access-server/internal/obs"
	"github.com/veraxlabs/go-access-server/rbac"
	"github.com/veraxlabs/go-access-server/server"
	"github.com/veraxlabs/go-access-server/token"
	"github.com/veraxlabs/go-access-server/token/refreshstore"
	"github.com/veraxlabs/go-access-server/users"
	fakeuserrepo "github.com/veraxlabs/go-access-server/users/repofake"
)

const (
	testEmail    = "john.doe@example.com"
	testPassword = "Password123"
)

func setupTestServer(t *testing.T) *server.Server {
	t.Helper()

	codec, err := token.NewCodec("access-secret-1234", "refresh-secret-5678")
	require.NoError(t, err)

	userRepo := fakeuserrepo.NewFakeUserRepo()
	passwordHash, err := users.HashPassword(testPassword)
	require.NoError(t, err)
	require.NoError(t, userRepo.Upsert(&users.User{
		ID:           "user-1",
		Email:        testEmail,
		PasswordHash: passwordHash,
		Roles:        []string{rbac.RoleUser},
		Verified:     true,
	}))

	catalog, err := rbac.NewCatalog(rbac.DefaultRoleDefinitions())
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	authService, err := auth.NewService(auth.Deps{
		Users:   userRepo,
		Store:   refreshstore.NewInMemoryStore(),
		Codec:   codec,
		Catalog: catalog,
		Metrics: obs.NewMetrics(registry),
	})
	require.NoError(t, err)

	return server.New(config.New(), authService, userRepo, registry)
}

func postJSON(t *testing.T, s *server.Server, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func loginPair(t *testing.T, s *server.Server) *token.Pair {
	t.Helper()
	rec := postJSON(t, s, "/auth/login", "", map[string]string{
		"email":    testEmail,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	pair := &token.Pair{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), pair))
	return pair
}

func TestLoginEndpoint(t *testing.T) {
	s := setupTestServer(t)

	pair := loginPair(t, s)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
}

func TestLoginEndpointBadCredentials(t *testing.T) {
	s := setupTestServer(t)

	rec := postJSON(t, s, "/auth/login", "", map[string]string{
		"email":    testEmail,
		"password": "WrongPassword1",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshEndpointRotatesAndDetectsReuse(t *testing.T) {
	s := setupTestServer(t)
	pair := loginPair(t, s)

	rec := postJSON(t, s, "/auth/refresh", "", map[string]string{"refresh_token": pair.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)

	next := &token.Pair{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), next))
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// Replaying the consumed token is rejected and kills the whole chain.
	rec = postJSON(t, s, "/auth/refresh", "", map[string]string{"refresh_token": pair.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, s, "/auth/refresh", "", map[string]string{"refresh_token": next.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshEndpointRejectsAccessToken(t *testing.T) {
	s := setupTestServer(t)
	pair := loginPair(t, s)

	rec := postJSON(t, s, "/auth/refresh", "", map[string]string{"refresh_token": pair.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutAllEndpointRequiresBearer(t *testing.T) {
	s := setupTestServer(t)

	rec := postJSON(t, s, "/auth/logout-all", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutAllEndpoint(t *testing.T) {
	s := setupTestServer(t)
	first := loginPair(t, s)
	second := loginPair(t, s)

	rec := postJSON(t, s, "/auth/logout-all", first.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body["revoked"])

	rec = postJSON(t, s, "/auth/refresh", "", map[string]string{"refresh_token": second.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangePasswordEndpoint(t *testing.T) {
	s := setupTestServer(t)
	pair := loginPair(t, s)

	rec := postJSON(t, s, "/auth/password", pair.AccessToken, map[string]string{
		"old_password": testPassword,
		"new_password": "NewPassword456",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Old refresh chain is revoked by the password change.
	rec = postJSON(t, s, "/auth/refresh", "", map[string]string{"refresh_token": pair.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	s := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
