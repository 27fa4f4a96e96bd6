package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ktarasov/placehub/internal/models"
	"github.com/ktarasov/placehub/internal/repo"
)

type UserHandler struct {
	Repo *repo.GormRepo
}

func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	user, err := h.Repo.FindUserByID(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load user")
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHandler) GetUserPlaces(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var places []models.Place
	err = h.Repo.DB.WithContext(c.Request().Context()).
		Where("author_id = ? AND is_published = ?", id, true).
		Find(&places).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list places")
	}
	return c.JSON(http.StatusOK, places)
}

// GiveRole adds a role to the user's set. Idempotent: granting a role the
// user already holds changes nothing.
func (h *UserHandler) GiveRole(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&req); err != nil || req.Role == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	ctx := c.Request().Context()
	user, err := h.Repo.FindUserByID(ctx, uint(id))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load user")
	}

	for _, role := range user.Roles {
		if role == req.Role {
			return c.JSON(http.StatusOK, user)
		}
	}

	updated, err := h.Repo.UpdateUserRoles(ctx, user.ID, append(user.Roles, req.Role))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update roles")
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *UserHandler) RemoveRole(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&req); err != nil || req.Role == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	ctx := c.Request().Context()
	user, err := h.Repo.FindUserByID(ctx, uint(id))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load user")
	}

	kept := make([]string, 0, len(user.Roles))
	found := false
	for _, role := range user.Roles {
		if role == req.Role {
			found = true
			continue
		}
		kept = append(kept, role)
	}
	if !found {
		return echo.NewHTTPError(http.StatusForbidden, "the user does not have this role")
	}

	updated, err := h.Repo.UpdateUserRoles(ctx, user.ID, kept)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update roles")
	}
	return c.JSON(http.StatusOK, updated)
}
