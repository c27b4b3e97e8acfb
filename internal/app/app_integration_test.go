//go:build integration

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"exam-portal/internal/config"
)

func postgresConfig(t *testing.T) *config.Config {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("exam_portal_app"),
		postgres.WithUsername("portal"),
		postgres.WithPassword("portal_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = container.Terminate(cleanupCtx)
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := testConfig()
	cfg.StoreDriver = config.StoreDriverPostgres
	cfg.DatabaseURL = url
	cfg.DBMaxConns = 4
	return cfg
}

func authedRequest(t *testing.T, client *http.Client, method string, url string, payload any) *http.Response {
	t.Helper()

	var body *bytes.Reader
	if payload == nil {
		body = bytes.NewReader(nil)
	} else {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestPostgresAuthFlow(t *testing.T) {
	cfg := postgresConfig(t)
	_, server := newTestApp(t, cfg)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	health := authedRequest(t, client, http.MethodGet, server.URL+"/health", nil)
	require.Equal(t, http.StatusOK, health.StatusCode)
	var report struct {
		Data struct {
			Database string `json:"database"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(health.Body).Decode(&report))
	assert.Equal(t, "up", report.Data.Database)

	login := authedRequest(t, client, http.MethodPost, server.URL+"/api/v1/admin/auth/login", map[string]string{
		"email":    "root@example.com",
		"password": "bootstrap-pass",
	})
	require.Equal(t, http.StatusOK, login.StatusCode)

	invite := authedRequest(t, client, http.MethodPost, server.URL+"/api/v1/admins/invite", map[string]string{
		"fullName": "Second Admin",
		"email":    "second@example.com",
	})
	require.Equal(t, http.StatusCreated, invite.StatusCode)

	duplicate := authedRequest(t, client, http.MethodPost, server.URL+"/api/v1/auth/register", map[string]string{
		"name":     "Student",
		"email":    "SECOND@example.com",
		"password": "student-pass",
	})
	assert.Equal(t, http.StatusConflict, duplicate.StatusCode)

	sessions := authedRequest(t, client, http.MethodGet, server.URL+"/api/v1/admin/auth/sessions", nil)
	require.Equal(t, http.StatusOK, sessions.StatusCode)
	var listed struct {
		Data struct {
			Sessions []struct {
				ID string `json:"id"`
			} `json:"sessions"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(sessions.Body).Decode(&listed))
	assert.Len(t, listed.Data.Sessions, 1)

	refresh := authedRequest(t, client, http.MethodPost, server.URL+"/api/v1/admin/auth/refresh", nil)
	assert.Equal(t, http.StatusOK, refresh.StatusCode)

	logout := authedRequest(t, client, http.MethodPost, server.URL+"/api/v1/admin/auth/logout", nil)
	require.Equal(t, http.StatusOK, logout.StatusCode)

	me := authedRequest(t, client, http.MethodGet, server.URL+"/api/v1/admin/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, me.StatusCode)
}

func TestPostgresBootstrapRunsOnce(t *testing.T) {
	cfg := postgresConfig(t)
	newTestApp(t, cfg)

	cfg.BootstrapAdminEmail = "other@example.com"
	_, server := newTestApp(t, cfg)

	resp := postJSON(t, server.URL+"/api/v1/admin/auth/login", map[string]string{
		"email":    "other@example.com",
		"password": "bootstrap-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
