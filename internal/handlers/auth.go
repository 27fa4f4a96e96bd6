package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ktarasov/placehub/internal/logging"
	authmw "github.com/ktarasov/placehub/internal/middleware/auth"
	"github.com/ktarasov/placehub/internal/mykafka"
	"github.com/ktarasov/placehub/internal/service/auth"
	"github.com/ktarasov/placehub/internal/service/token"
)

type AuthHandler struct {
	Auth       *auth.Service
	Producer   *mykafka.Producer
	RefreshTTL time.Duration
}

func CreateCookie(name string, value string, path string, expTime time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expTime,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHandler) publish(c echo.Context, key string, event map[string]interface{}) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "user_events", key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, pair *auth.TokenPair) {
	c.SetCookie(CreateCookie("refreshToken", pair.RefreshToken, "/", time.Now().Add(h.RefreshTTL)))
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req struct {
		Email    string  `json:"email"`
		Tel      *string `json:"tel"`
		FullName string  `json:"fullname"`
		Password string  `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	pair, err := h.Auth.Register(ctx, auth.RegisterParams{
		Email:    req.Email,
		Tel:      req.Tel,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateEmail) || errors.Is(err, auth.ErrDuplicateTel) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		l.Error("register failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "register failed")
	}

	h.publish(c, req.Email, map[string]interface{}{
		"type":  "user_registered",
		"email": req.Email,
	})

	h.setRefreshCookie(c, pair)
	return c.JSON(http.StatusOK, pair)
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	pair, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		}
		l.Error("login failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	h.publish(c, req.Email, map[string]interface{}{
		"type":  "user_logged_in",
		"email": req.Email,
	})

	h.setRefreshCookie(c, pair)
	return c.JSON(http.StatusOK, pair)
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	raw := req.RefreshToken
	if raw == "" {
		if cookie, err := c.Cookie("refreshToken"); err == nil {
			raw = cookie.Value
		}
	}
	if raw == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "refresh token missing")
	}

	pair, err := h.Auth.Refresh(ctx, raw)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrTokenReplayed):
			return echo.NewHTTPError(http.StatusUnauthorized, token.ErrTokenReplayed.Error())
		case errors.Is(err, token.ErrInvalidToken):
			return echo.NewHTTPError(http.StatusUnauthorized, token.ErrInvalidToken.Error())
		}
		logging.FromContext(ctx).Error("refresh failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "refresh failed")
	}

	h.setRefreshCookie(c, pair)
	return c.JSON(http.StatusOK, pair)
}

// Me returns the current user's fresh record, not the token snapshot.
func (h *AuthHandler) Me(c echo.Context) error {
	principal, ok := authmw.PrincipalFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
	}

	user, err := h.Auth.Repo.FindUserByID(c.Request().Context(), principal.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
	}
	return c.JSON(http.StatusOK, user)
}

func eventKey(id uint) string { return fmt.Sprint(id) }
