package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/inventory-admin/internal/config"
	"github.com/iliyamo/inventory-admin/internal/handler"
	"github.com/iliyamo/inventory-admin/internal/memstore"
	"github.com/iliyamo/inventory-admin/internal/model"
	"github.com/iliyamo/inventory-admin/internal/service"
	"github.com/iliyamo/inventory-admin/internal/utils"
)

type app struct {
	e      *echo.Echo
	svc    *service.AuthService
	roles  *memstore.Roles
	roleID uint64
}

func newApp(t *testing.T, enforce bool, rdb *redis.Client) *app {
	t.Helper()
	log, _ := test.NewNullLogger()
	users, roles, tokens := memstore.NewUsers(), memstore.NewRoles(), memstore.NewTokens()
	issuer, err := utils.NewTokenIssuer("router-test-secret", time.Hour)
	require.NoError(t, err)
	opts := service.Options{BcryptCost: bcrypt.MinCost}
	if enforce {
		opts.RestrictedAccess = model.AdminAccess()
	}
	svc := service.NewAuthService(users, roles, tokens, issuer, nil, opts, log)
	gate := service.NewGate(issuer, tokens, users, time.Second, log)

	roleID, err := roles.Create(context.Background(), "admin", model.NewAccessSet("roles:read"))
	require.NoError(t, err)

	e := echo.New()
	deps := Deps{
		Gate:               gate,
		Redis:              rdb,
		RateLimit:          config.RateLimitConfig{Enabled: false},
		Cache:              config.CacheConfig{Enabled: true, Methods: map[string]bool{http.MethodGet: true}, TTL: time.Minute, Prefix: "cache"},
		EnforcePermissions: enforce,
		Log:                log,
	}
	RegisterRoutes(e, nil)
	RegisterAuth(e, handler.NewAuthHandler(svc, log), deps)
	RegisterRoles(e, handler.NewRoleHandler(svc, log), deps)
	return &app{e: e, svc: svc, roles: roles, roleID: roleID}
}

func (a *app) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var payload string
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		payload = string(b)
	}
	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func (a *app) registerAndLogin(t *testing.T, email string) (uint64, string) {
	t.Helper()
	rec, body := a.do(t, http.MethodPost, "/v1/auth/register", "", echo.Map{
		"name": "Ada", "email": email, "password": "Abcdef12", "roleId": a.roleID, "telephone": "+441234567",
	})
	require.Equal(t, http.StatusCreated, rec.Code, body)
	id := uint64(body["data"].(map[string]any)["id"].(float64))

	rec, body = a.do(t, http.MethodPost, "/v1/auth/login", "", echo.Map{"email": email, "password": "Abcdef12"})
	require.Equal(t, http.StatusOK, rec.Code, body)
	assert.Equal(t, "login successful", body["message"])
	assert.NotContains(t, body["data"], "passwordHash")
	return id, body["token"].(string)
}

func TestLoginMeLogoutFlow(t *testing.T) {
	a := newApp(t, false, nil)
	id, token := a.registerAndLogin(t, "ada@example.com")

	rec, body := a.do(t, http.MethodGet, "/v1/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(id), body["data"].(map[string]any)["id"])
	assert.Equal(t, "ada@example.com", body["data"].(map[string]any)["email"])

	rec, _ = a.do(t, http.MethodPost, "/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = a.do(t, http.MethodGet, "/v1/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "revoked", body["code"])
}

func TestDeactivationLocksOutLiveToken(t *testing.T) {
	a := newApp(t, false, nil)
	victim, victimToken := a.registerAndLogin(t, "victim@example.com")
	_, adminToken := a.registerAndLogin(t, "admin@example.com")

	rec, _ := a.do(t, http.MethodDelete, "/v1/users/"+strconv.FormatUint(victim, 10), adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := a.do(t, http.MethodGet, "/v1/me", victimToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "account_inactive", body["code"])

	rec, body = a.do(t, http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "victim@example.com", "password": "Abcdef12"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "account inactive", body["message"])

	rec, _ = a.do(t, http.MethodDelete, "/v1/users/abc", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = a.do(t, http.MethodDelete, "/v1/users/999", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthErrorMapping(t *testing.T) {
	a := newApp(t, false, nil)
	a.registerAndLogin(t, "ada@example.com")

	cases := []struct {
		name   string
		path   string
		body   any
		status int
		msg    string
	}{
		{"missing field", "/v1/auth/register", echo.Map{"name": "Bob"}, http.StatusBadRequest, "email is required"},
		{"duplicate email", "/v1/auth/register", echo.Map{
			"name": "Bob", "email": "ADA@example.com", "password": "Abcdef12", "roleId": a.roleID, "telephone": "1",
		}, http.StatusBadRequest, "email already exists"},
		{"unknown role", "/v1/auth/register", echo.Map{
			"name": "Bob", "email": "bob@example.com", "password": "Abcdef12", "roleId": 42, "telephone": "1",
		}, http.StatusNotFound, "role not found"},
		{"unknown email", "/v1/auth/login", echo.Map{"email": "nobody@example.com", "password": "x"}, http.StatusNotFound, "user not found"},
		{"wrong password", "/v1/auth/login", echo.Map{"email": "ada@example.com", "password": "Wrong1234"}, http.StatusBadRequest, "password is incorrect"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := a.do(t, http.MethodPost, tc.path, "", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.msg, body["message"])
		})
	}

	rec, body := a.do(t, http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "no token, authorization denied", body["message"])

	rec, body = a.do(t, http.MethodGet, "/v1/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token", body["message"])
}

func TestChangePasswordRoute(t *testing.T) {
	a := newApp(t, false, nil)
	_, token := a.registerAndLogin(t, "ada@example.com")

	rec, body := a.do(t, http.MethodPatch, "/v1/users/me/password", token, echo.Map{"oldPassword": "nope", "newPassword": "Newpass12"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "oldPassword", body["field"])

	rec, _ = a.do(t, http.MethodPatch, "/v1/users/me/password", token, echo.Map{"oldPassword": "Abcdef12", "newPassword": "Newpass12"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = a.do(t, http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "ada@example.com", "password": "Newpass12"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoleRoutesWithCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	a := newApp(t, false, rdb)
	_, token := a.registerAndLogin(t, "ada@example.com")

	rec, body := a.do(t, http.MethodGet, "/v1/roles", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Len(t, body["data"], 1)

	rec, _ = a.do(t, http.MethodGet, "/v1/roles", token, nil)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))

	rec, body = a.do(t, http.MethodPost, "/v1/roles", token, echo.Map{"name": "clerk", "access": []string{"products:read"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	clerkID := uint64(body["data"].(map[string]any)["id"].(float64))

	rec, body = a.do(t, http.MethodGet, "/v1/roles", token, nil)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Len(t, body["data"], 2)

	path := "/v1/roles/" + strconv.FormatUint(clerkID, 10)
	rec, _ = a.do(t, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, body = a.do(t, http.MethodPatch, path, token, echo.Map{"name": "clerk", "access": []string{"products:write"}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = a.do(t, http.MethodGet, path, token, nil)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, []any{"products:write"}, body["data"].(map[string]any)["access"])

	rec, body = a.do(t, http.MethodPost, "/v1/roles", token, echo.Map{"name": "clerk"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "role name already exists", body["message"])

	rec, _ = a.do(t, http.MethodGet, "/v1/roles", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoleMutationsRequirePermissionWhenEnforced(t *testing.T) {
	a := newApp(t, true, nil)
	_, token := a.registerAndLogin(t, "ada@example.com")

	rec, _ := a.do(t, http.MethodGet, "/v1/roles", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = a.do(t, http.MethodPost, "/v1/roles", token, echo.Map{"name": "clerk"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEnforcedPermissionsGuardAdminActions(t *testing.T) {
	a := newApp(t, true, nil)
	ctx := context.Background()
	adminRole, err := a.roles.Create(ctx, "root", model.NewAccessSet(append(model.AdminAccess(), model.PermRolesRead)...))
	require.NoError(t, err)

	rec, body := a.do(t, http.MethodPost, "/v1/auth/register", "", echo.Map{
		"name": "Eve", "email": "eve@example.com", "password": "Abcdef12", "roleId": adminRole, "telephone": "1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "roleId", body["field"])

	memberID, memberToken := a.registerAndLogin(t, "member@example.com")
	rec, _ = a.do(t, http.MethodDelete, "/v1/users/"+strconv.FormatUint(memberID, 10), memberToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	_, err = a.svc.Provision(ctx, service.RegisterInput{
		Name: "Root", Email: "root@example.com", Password: "Abcdef12", RoleID: adminRole, Telephone: "-",
	})
	require.NoError(t, err)
	rec, body = a.do(t, http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "root@example.com", "password": "Abcdef12"})
	require.Equal(t, http.StatusOK, rec.Code)
	adminToken := body["token"].(string)

	rec, _ = a.do(t, http.MethodPost, "/v1/roles", adminToken, echo.Map{"name": "clerk"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = a.do(t, http.MethodDelete, "/v1/users/"+strconv.FormatUint(memberID, 10), adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body = a.do(t, http.MethodGet, "/v1/me", memberToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "account_inactive", body["code"])
}

func TestUserDetailRoute(t *testing.T) {
	a := newApp(t, false, nil)
	id, token := a.registerAndLogin(t, "ada@example.com")
	path := "/v1/users/" + strconv.FormatUint(id, 10)

	rec, body := a.do(t, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "ada@example.com", data["email"])
	assert.NotContains(t, data, "passwordHash")

	rec, _ = a.do(t, http.MethodGet, "/v1/users/999", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = a.do(t, http.MethodGet, "/v1/users/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = a.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealth(t *testing.T) {
	a := newApp(t, false, nil)
	rec, body := a.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}
