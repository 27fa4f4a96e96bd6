package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ktarasov/placehub/internal/models"
	"github.com/ktarasov/placehub/internal/repo"
	"github.com/ktarasov/placehub/internal/service/token"
)

type guardEnv struct {
	Guard  *Guard
	Tokens *token.Service
	Repo   *repo.GormRepo
	DB     *gorm.DB
}

func newGuardEnv(t *testing.T) *guardEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.BlockedRefreshToken{}))

	dataRepo := repo.New(db)
	tokens := token.NewService(dataRepo, []byte("test-secret"), 15*time.Minute, 7*24*time.Hour)
	return &guardEnv{
		Guard:  NewGuard(tokens, dataRepo),
		Tokens: tokens,
		Repo:   dataRepo,
		DB:     db,
	}
}

func (env *guardEnv) createUser(t *testing.T, roles ...string) *models.User {
	user := &models.User{
		Email:        "user@example.com",
		FullName:     "Test User",
		PasswordHash: "x",
		Roles:        roles,
	}
	require.NoError(t, env.DB.Create(user).Error)
	return user
}

func doRequest(env *guardEnv, bearer string, mw ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		principal, ok := PrincipalFrom(c)
		if !ok {
			return echo.NewHTTPError(http.StatusInternalServerError, "principal missing")
		}
		return c.JSON(http.StatusOK, principal)
	}
	// role middleware runs after Authenticate, as it does in the router
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return rec, env.Guard.Authenticate(handler)(c)
}

func TestAuthenticateValidToken(t *testing.T) {
	env := newGuardEnv(t)
	user := env.createUser(t, models.RoleModerator)

	raw, err := env.Tokens.IssueAccess(user)
	require.NoError(t, err)

	rec, err := doRequest(env, raw)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticateMissingToken(t *testing.T) {
	env := newGuardEnv(t)

	_, err := doRequest(env, "")
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	env := newGuardEnv(t)
	user := env.createUser(t)

	env.Tokens.AccessTTL = -time.Minute
	raw, err := env.Tokens.IssueAccess(user)
	require.NoError(t, err)

	_, err = doRequest(env, raw)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestAuthenticateForeignKey(t *testing.T) {
	env := newGuardEnv(t)
	user := env.createUser(t)

	foreign := token.NewService(env.Repo, []byte("another-secret"), 15*time.Minute, time.Hour)
	raw, err := foreign.IssueAccess(user)
	require.NoError(t, err)

	_, err = doRequest(env, raw)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestAuthenticateDeletedUser(t *testing.T) {
	env := newGuardEnv(t)
	user := env.createUser(t)

	raw, err := env.Tokens.IssueAccess(user)
	require.NoError(t, err)

	require.NoError(t, env.DB.Delete(&models.User{}, user.ID).Error)

	_, err = doRequest(env, raw)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestRequireRolesPass(t *testing.T) {
	env := newGuardEnv(t)
	user := env.createUser(t, models.RoleModerator)

	raw, err := env.Tokens.IssueAccess(user)
	require.NoError(t, err)

	rec, err := doRequest(env, raw, env.Guard.RequireRoles(models.RoleModerator))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRolesForbidden(t *testing.T) {
	env := newGuardEnv(t)
	user := env.createUser(t) // no roles

	raw, err := env.Tokens.IssueAccess(user)
	require.NoError(t, err)

	_, err = doRequest(env, raw, env.Guard.RequireRoles(models.RoleModerator))
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusForbidden, he.Code)
}

func TestRequireRolesUsesCurrentRoles(t *testing.T) {
	env := newGuardEnv(t)
	user := env.createUser(t, models.RoleModerator)

	raw, err := env.Tokens.IssueAccess(user)
	require.NoError(t, err)

	// revoke the role after the token was issued; the guard re-resolves
	// the user, so the stale snapshot in the token must not help
	_, err = env.Repo.UpdateUserRoles(t.Context(), user.ID, []string{})
	require.NoError(t, err)

	_, err = doRequest(env, raw, env.Guard.RequireRoles(models.RoleModerator))
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusForbidden, he.Code)
}
