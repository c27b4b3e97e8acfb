package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"exam-portal/internal/config"
	"exam-portal/internal/event"
	"exam-portal/internal/handler"
	"exam-portal/internal/mailer"
	"exam-portal/internal/metrics"
	"exam-portal/internal/middleware"
	"exam-portal/internal/model"
	"exam-portal/internal/repository/memstore"
	"exam-portal/internal/service"
	"exam-portal/internal/websocket"
)

type testServer struct {
	*httptest.Server
	store  *memstore.Store
	tokens *service.TokenService
	audit  *service.AuditService
	hub    *websocket.Hub
}

func newTestServer(t *testing.T, production bool) *testServer {
	t.Helper()

	cfg := &config.Config{
		AppEnv:           "development",
		RequestTimeout:   5 * time.Second,
		AuthRateLimitRPM: 1000,
		AccessTokenTTL:   "15m",
		RefreshTokenTTL:  "7d",
	}
	if production {
		cfg.AppEnv = "production"
	}

	store := memstore.New()
	bus := event.NewBus()
	tokens := service.NewTokenService(service.TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		Issuer:        "exam-portal",
		Audience:      "exam-portal-clients",
	}, service.NewBcryptHasher(bcrypt.MinCost))

	auth := service.NewAuthService(tokens, store.Admins, store.Users, store.Sessions)
	auth.SetEventBus(bus)
	admins := service.NewAdminService(store.Admins, auth, mailer.New(mailer.Config{}))
	admins.SetEventBus(bus)
	users := service.NewUserService(store.Users)
	audit := service.NewAuditService(store.Audit, bus)
	cleaner := service.NewSessionCleaner(store.Sessions, "")

	hub := websocket.NewHub(bus, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	hubDone := make(chan struct{})
	go func() {
		audit.Run(ctx)
		close(done)
	}()
	go func() {
		hub.Run(ctx)
		close(hubDone)
	}()

	cookies := handler.CookieConfig{
		AccessTTL:    15 * time.Minute,
		RefreshTTL:   7 * 24 * time.Hour,
		ExposeTokens: !production,
	}

	h := New(cfg, metrics.New(prometheus.NewRegistry()), middleware.NewAuthMiddleware(auth), Handlers{
		Health:    handler.NewHealthHandler(nil, cleaner),
		AdminAuth: handler.NewAdminAuthHandler(auth, admins, cookies),
		Auth:      handler.NewAuthHandler(auth, cookies),
		Admins:    handler.NewAdminHandler(admins),
		Users:     handler.NewUserHandler(users),
		Audit:     handler.NewAuditHandler(audit),
		Docs:      handler.NewDocsHandler(),

		AuditStream: hub,
	})

	server := httptest.NewServer(h)
	t.Cleanup(func() {
		server.Close()
		cancel()
		<-done
		<-hubDone
	})

	return &testServer{Server: server, store: store, tokens: tokens, audit: audit, hub: hub}
}

func (s *testServer) seedAdmin(t *testing.T, email string, password string, super bool) model.Admin {
	t.Helper()

	hash, err := s.tokens.HashPassword(password)
	require.NoError(t, err)

	now := time.Now().UTC()
	admin := model.Admin{
		ID: uuid.NewString(), FullName: "Admin " + email, Email: email, PasswordHash: hash,
		IsActive: true, IsSuperAdmin: super, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.store.Admins.Create(context.Background(), admin))
	return admin
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

type response struct {
	status  int
	cookies []*http.Cookie
	raw     string
	body    struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
		Error   *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
}

func (r *response) decode(t *testing.T, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body.Data, dst))
}

func do(t *testing.T, client *http.Client, method string, url string, payload any, token string) *response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := &response{status: resp.StatusCode, cookies: resp.Cookies(), raw: string(raw)}
	require.NoError(t, json.Unmarshal(raw, &out.body), string(raw))
	return out
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

type adminLogin struct {
	Admin  model.AdminView  `json:"admin"`
	Tokens *model.TokenPair `json:"tokens"`
}

func TestAdminLoginScenario(t *testing.T) {
	srv := newTestServer(t, false)
	srv.seedAdmin(t, "ada@example.com", "s3cret-pass", false)
	client := newClient(t)

	resp := do(t, client, http.MethodPost, srv.URL+"/api/v1/admin/auth/login",
		model.LoginRequest{Email: "ADA@example.com", Password: "s3cret-pass"}, "")
	require.Equal(t, http.StatusOK, resp.status, resp.raw)
	assert.True(t, resp.body.Success)
	assert.NotContains(t, resp.raw, "password")
	assert.NotContains(t, resp.raw, "$2a$")

	var login adminLogin
	resp.decode(t, &login)
	require.NotNil(t, login.Tokens)
	assert.Equal(t, "15m", login.Tokens.AccessExpiresIn)
	assert.Equal(t, "7d", login.Tokens.RefreshExpiresIn)
	assert.Equal(t, model.RoleAdmin, login.Admin.Role)

	refresh := findCookie(resp.cookies, "refreshToken")
	require.NotNil(t, refresh)
	assert.True(t, refresh.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, refresh.SameSite)
	assert.Equal(t, handler.RefreshCookiePath, refresh.Path)
	access := findCookie(resp.cookies, middleware.AccessTokenCookie)
	require.NotNil(t, access)
	assert.True(t, access.HttpOnly)

	me := do(t, client, http.MethodGet, srv.URL+"/api/v1/admin/auth/me", nil, "")
	require.Equal(t, http.StatusOK, me.status, me.raw)
	var principal model.Principal
	me.decode(t, &principal)
	assert.Equal(t, model.PrincipalAdmin, principal.Type)
	assert.Equal(t, "ada@example.com", principal.Email)
	require.NotNil(t, principal.IsSuperAdmin)
	assert.False(t, *principal.IsSuperAdmin)

	refreshed := do(t, client, http.MethodPost, srv.URL+"/api/v1/admin/auth/refresh", nil, "")
	require.Equal(t, http.StatusOK, refreshed.status, refreshed.raw)

	out := do(t, client, http.MethodPost, srv.URL+"/api/v1/admin/auth/logout", nil, "")
	require.Equal(t, http.StatusOK, out.status)

	again := do(t, newClient(t), http.MethodPost, srv.URL+"/api/v1/admin/auth/refresh",
		model.RefreshRequest{RefreshToken: login.Tokens.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, again.status)
	assert.Equal(t, "TOKEN_REVOKED", again.body.Error.Code)
}

func TestAdminLogin_InvalidCredentialsAreGeneric(t *testing.T) {
	srv := newTestServer(t, false)
	srv.seedAdmin(t, "ada@example.com", "s3cret-pass", false)

	wrong := do(t, newClient(t), http.MethodPost, srv.URL+"/api/v1/admin/auth/login",
		model.LoginRequest{Email: "ada@example.com", Password: "nope"}, "")
	unknown := do(t, newClient(t), http.MethodPost, srv.URL+"/api/v1/admin/auth/login",
		model.LoginRequest{Email: "ghost@example.com", Password: "nope"}, "")

	assert.Equal(t, http.StatusUnauthorized, wrong.status)
	assert.Equal(t, wrong.status, unknown.status)
	assert.Equal(t, wrong.body.Message, unknown.body.Message)
	assert.False(t, wrong.body.Success)
}

func TestAdminLogin_TokensHiddenInProductionUnlessRequested(t *testing.T) {
	srv := newTestServer(t, true)
	srv.seedAdmin(t, "ada@example.com", "s3cret-pass", false)
	creds := model.LoginRequest{Email: "ada@example.com", Password: "s3cret-pass"}

	resp := do(t, newClient(t), http.MethodPost, srv.URL+"/api/v1/admin/auth/login", creds, "")
	require.Equal(t, http.StatusOK, resp.status)
	var login adminLogin
	resp.decode(t, &login)
	assert.Nil(t, login.Tokens)
	assert.NotNil(t, findCookie(resp.cookies, "refreshToken"))

	resp = do(t, newClient(t), http.MethodPost, srv.URL+"/api/v1/admin/auth/login?includeTokens=true", creds, "")
	require.Equal(t, http.StatusOK, resp.status)
	resp.decode(t, &login)
	assert.NotNil(t, login.Tokens)
}

func TestRefreshAfterDeactivation(t *testing.T) {
	srv := newTestServer(t, false)
	super := srv.seedAdmin(t, "root@example.com", "root-pass", true)
	target := srv.seedAdmin(t, "target@example.com", "target-pass", false)

	targetClient := newClient(t)
	login := do(t, targetClient, http.MethodPost, srv.URL+"/api/v1/admin/auth/login",
		model.LoginRequest{Email: "target@example.com", Password: "target-pass"}, "")
	require.Equal(t, http.StatusOK, login.status)

	superClient := newClient(t)
	require.Equal(t, http.StatusOK, do(t, superClient, http.MethodPost, srv.URL+"/api/v1/admin/auth/login",
		model.LoginRequest{Email: "root@example.com", Password: "root-pass"}, "").status)

	self := do(t, superClient, http.MethodPatch, srv.URL+"/api/v1/admins/"+super.ID+"/status",
		map[string]bool{"isActive": false}, "")
	assert.Equal(t, http.StatusForbidden, self.status)

	deactivated := do(t, superClient, http.MethodPatch, srv.URL+"/api/v1/admins/"+target.ID+"/status",
		map[string]bool{"isActive": false}, "")
	require.Equal(t, http.StatusOK, deactivated.status, deactivated.raw)

	refresh := do(t, targetClient, http.MethodPost, srv.URL+"/api/v1/admin/auth/refresh", nil, "")
	assert.Equal(t, http.StatusUnauthorized, refresh.status)
	require.NotNil(t, refresh.body.Error)
	assert.Equal(t, "ACCOUNT_DEACTIVATED", refresh.body.Error.Code)

	me := do(t, targetClient, http.MethodGet, srv.URL+"/api/v1/admin/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, me.status)
	assert.Equal(t, "ACCOUNT_DEACTIVATED", me.body.Error.Code)
}

func TestUserFlowAndRoleGates(t *testing.T) {
	srv := newTestServer(t, false)
	srv.seedAdmin(t, "ada@example.com", "s3cret-pass", false)
	client := newClient(t)

	reg := do(t, client, http.MethodPost, srv.URL+"/api/v1/auth/register",
		model.RegisterRequest{Name: "Sam", Email: "sam@example.com", Password: "student-pass"}, "")
	require.Equal(t, http.StatusCreated, reg.status, reg.raw)

	dup := do(t, newClient(t), http.MethodPost, srv.URL+"/api/v1/auth/register",
		model.RegisterRequest{Name: "Ada", Email: "ADA@example.com", Password: "whatever-pass"}, "")
	assert.Equal(t, http.StatusConflict, dup.status)

	me := do(t, client, http.MethodGet, srv.URL+"/api/v1/auth/me", nil, "")
	require.Equal(t, http.StatusOK, me.status)
	var principal model.Principal
	me.decode(t, &principal)
	assert.Equal(t, model.RoleUser, principal.Role)
	assert.Nil(t, principal.IsSuperAdmin)

	forbidden := do(t, client, http.MethodGet, srv.URL+"/api/v1/admins", nil, "")
	assert.Equal(t, http.StatusForbidden, forbidden.status)

	adminMe := do(t, client, http.MethodGet, srv.URL+"/api/v1/admin/auth/me", nil, "")
	assert.Equal(t, http.StatusForbidden, adminMe.status)

	var session model.SessionStatus
	status := do(t, client, http.MethodGet, srv.URL+"/api/v1/auth/session", nil, "")
	require.Equal(t, http.StatusOK, status.status)
	status.decode(t, &session)
	assert.True(t, session.Authenticated)

	anon := do(t, newClient(t), http.MethodGet, srv.URL+"/api/v1/auth/session", nil, "garbage")
	require.Equal(t, http.StatusOK, anon.status)
	anon.decode(t, &session)
	assert.False(t, session.Authenticated)

	out := do(t, client, http.MethodPost, srv.URL+"/api/v1/auth/logout", nil, "")
	require.Equal(t, http.StatusOK, out.status)
	assert.Equal(t, http.StatusUnauthorized, do(t, client, http.MethodGet, srv.URL+"/api/v1/auth/me", nil, "").status)
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	srv := newTestServer(t, false)
	srv.seedAdmin(t, "ada@example.com", "s3cret-pass", false)
	creds := model.LoginRequest{Email: "ada@example.com", Password: "s3cret-pass"}

	first, second := newClient(t), newClient(t)
	require.Equal(t, http.StatusOK, do(t, first, http.MethodPost, srv.URL+"/api/v1/admin/auth/login", creds, "").status)
	require.Equal(t, http.StatusOK, do(t, second, http.MethodPost, srv.URL+"/api/v1/admin/auth/login", creds, "").status)

	var sessions model.SessionList
	list := do(t, first, http.MethodGet, srv.URL+"/api/v1/admin/auth/sessions", nil, "")
	require.Equal(t, http.StatusOK, list.status)
	list.decode(t, &sessions)
	assert.Len(t, sessions.Sessions, 2)

	all := do(t, first, http.MethodPost, srv.URL+"/api/v1/admin/auth/logout-all", nil, "")
	require.Equal(t, http.StatusOK, all.status, all.raw)

	assert.Equal(t, http.StatusUnauthorized, do(t, second, http.MethodPost, srv.URL+"/api/v1/admin/auth/refresh", nil, "").status)
}

func TestLogoutWithoutSessionStillSucceeds(t *testing.T) {
	srv := newTestServer(t, false)

	resp := do(t, newClient(t), http.MethodPost, srv.URL+"/api/v1/admin/auth/logout", nil, "")
	assert.Equal(t, http.StatusOK, resp.status)

	cleared := findCookie(resp.cookies, "refreshToken")
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestAdminManagementAndAudit(t *testing.T) {
	srv := newTestServer(t, false)
	srv.seedAdmin(t, "root@example.com", "root-pass", true)
	srv.seedAdmin(t, "plain@example.com", "plain-pass", false)

	super := newClient(t)
	require.Equal(t, http.StatusOK, do(t, super, http.MethodPost, srv.URL+"/api/v1/admin/auth/login",
		model.LoginRequest{Email: "root@example.com", Password: "root-pass"}, "").status)

	plain := newClient(t)
	require.Equal(t, http.StatusOK, do(t, plain, http.MethodPost, srv.URL+"/api/v1/admin/auth/login",
		model.LoginRequest{Email: "plain@example.com", Password: "plain-pass"}, "").status)

	invite := do(t, super, http.MethodPost, srv.URL+"/api/v1/admins/invite",
		model.InviteAdminRequest{FullName: "New Admin", Email: "new@example.com"}, "")
	require.Equal(t, http.StatusCreated, invite.status, invite.raw)

	assert.Equal(t, http.StatusForbidden, do(t, plain, http.MethodPost, srv.URL+"/api/v1/admins/invite",
		model.InviteAdminRequest{FullName: "X", Email: "x@example.com"}, "").status)
	assert.Equal(t, http.StatusForbidden, do(t, plain, http.MethodGet, srv.URL+"/api/v1/audit", nil, "").status)

	missing := do(t, super, http.MethodPatch, srv.URL+"/api/v1/admins/"+uuid.NewString()+"/status",
		map[string]bool{"isActive": false}, "")
	assert.Equal(t, http.StatusNotFound, missing.status)

	noBody := do(t, super, http.MethodPatch, srv.URL+"/api/v1/admins/"+uuid.NewString()+"/status",
		map[string]string{}, "")
	assert.Equal(t, http.StatusBadRequest, noBody.status)

	var list model.AdminList
	admins := do(t, plain, http.MethodGet, srv.URL+"/api/v1/admins", nil, "")
	require.Equal(t, http.StatusOK, admins.status)
	admins.decode(t, &list)
	assert.Len(t, list.Admins, 3)

	require.Eventually(t, func() bool {
		_, meta, err := srv.audit.Query(context.Background(), service.QueryParams{Action: "admin.invited"})
		return err == nil && meta.Total == 1
	}, 2*time.Second, 20*time.Millisecond)

	audit := do(t, super, http.MethodGet, srv.URL+"/api/v1/audit?action=admin.login&limit=10", nil, "")
	require.Equal(t, http.StatusOK, audit.status, audit.raw)
	var entries model.AuditListData
	audit.decode(t, &entries)
	assert.NotEmpty(t, entries.Items)

	bad := do(t, super, http.MethodGet, srv.URL+"/api/v1/audit?from=yesterday", nil, "")
	assert.Equal(t, http.StatusBadRequest, bad.status)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, false)

	health := do(t, newClient(t), http.MethodGet, srv.URL+"/health", nil, "")
	require.Equal(t, http.StatusOK, health.status)
	assert.Contains(t, health.raw, `"sessionCleanup"`)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "exam_portal_http_requests_total")
}

func TestDocsEndpoints(t *testing.T) {
	srv := newTestServer(t, false)

	resp, err := http.Get(srv.URL + "/openapi.yaml")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(raw), "/api/v1/admin/auth/login")

	ui, err := http.Get(srv.URL + "/docs")
	require.NoError(t, err)
	defer ui.Body.Close()
	assert.Equal(t, http.StatusOK, ui.StatusCode)
	assert.Contains(t, ui.Header.Get("Content-Security-Policy"), "unpkg.com")
}

func TestAuditStreamRequiresSuperAdmin(t *testing.T) {
	srv := newTestServer(t, false)
	srv.seedAdmin(t, "root@example.com", "root-pass", true)
	srv.seedAdmin(t, "plain@example.com", "plain-pass", false)

	login := func(email string, password string) string {
		resp := do(t, newClient(t), http.MethodPost, srv.URL+"/api/v1/admin/auth/login",
			model.LoginRequest{Email: email, Password: password}, "")
		require.Equal(t, http.StatusOK, resp.status, resp.raw)
		var out adminLogin
		resp.decode(t, &out)
		require.NotNil(t, out.Tokens)
		return out.Tokens.AccessToken
	}
	superToken := login("root@example.com", "root-pass")
	plainToken := login("plain@example.com", "plain-pass")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/audit?action=admin.invited"
	header := func(token string) http.Header {
		return http.Header{"Authorization": []string{"Bearer " + token}}
	}

	_, resp, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = gorillaws.DefaultDialer.Dial(wsURL, header(plainToken))
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, header(superToken))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return srv.hub.Connected() == 1 }, 2*time.Second, 10*time.Millisecond)
	invite := do(t, newClient(t), http.MethodPost, srv.URL+"/api/v1/admins/invite",
		model.InviteAdminRequest{FullName: "Streamed", Email: "streamed@example.com"}, superToken)
	require.Equal(t, http.StatusCreated, invite.status, invite.raw)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e event.Event
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, event.TypeAdminInvited, e.Type)
	assert.Equal(t, "root@example.com", e.Actor.Email)
}
