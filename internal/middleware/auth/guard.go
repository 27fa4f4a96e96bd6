package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ktarasov/placehub/internal/models"
	"github.com/ktarasov/placehub/internal/repo"
	"github.com/ktarasov/placehub/internal/service/token"
)

const principalKey = "principal"

// Principal is the authenticated identity attached to a request. It is the
// only way handlers learn who is calling; raw claims never reach them.
type Principal struct {
	UserID   uint
	Email    string
	FullName string
	Roles    []string
}

// HasAnyRole reports whether the principal's role set intersects required.
func (p *Principal) HasAnyRole(required ...string) bool {
	for _, want := range required {
		for _, have := range p.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

type UserStore interface {
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
}

// Guard performs the two-stage access check: authentication first,
// then an optional role requirement.
type Guard struct {
	Tokens *token.Service
	Repo   UserStore
}

func NewGuard(tokens *token.Service, store UserStore) *Guard {
	return &Guard{Tokens: tokens, Repo: store}
}

// Authenticate verifies the bearer access token, re-resolves the user by the
// token's subject and stores the Principal on the context. A token whose
// user no longer exists is rejected the same way as an invalid one.
func (g *Guard) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := bearerToken(c)
		if raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}

		claims, err := g.Tokens.Verify(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}

		id, err := claims.UserID()
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}

		user, err := g.Repo.FindUserByID(c.Request().Context(), id)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot resolve user")
		}

		c.Set(principalKey, &Principal{
			UserID:   user.ID,
			Email:    user.Email,
			FullName: user.FullName,
			Roles:    user.Roles,
		})
		return next(c)
	}
}

// RequireRoles passes requests whose principal holds at least one of the
// given roles. Must run after Authenticate.
func (g *Guard) RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, ok := PrincipalFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			if !principal.HasAnyRole(roles...) {
				return echo.NewHTTPError(http.StatusForbidden, "you do not have a role to access this action")
			}
			return next(c)
		}
	}
}

// PrincipalFrom returns the authenticated principal set by Authenticate.
func PrincipalFrom(c echo.Context) (*Principal, bool) {
	p, ok := c.Get(principalKey).(*Principal)
	return p, ok
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
