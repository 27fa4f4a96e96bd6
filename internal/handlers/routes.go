package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	authmw "github.com/ktarasov/placehub/internal/middleware/auth"
	"github.com/ktarasov/placehub/internal/models"
)

type RouteHandler struct {
	DB *gorm.DB
}

func (h *RouteHandler) CreateRoute(c echo.Context) error {
	principal, ok := authmw.PrincipalFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	route := models.Route{Title: req.Title, AuthorID: principal.UserID}
	if err := h.DB.Create(&route).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create route")
	}
	return c.JSON(http.StatusCreated, route)
}

func (h *RouteHandler) GetRoutes(c echo.Context) error {
	var routes []models.Route
	if err := h.DB.Preload("Places").Find(&routes).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list routes")
	}
	return c.JSON(http.StatusOK, routes)
}

func (h *RouteHandler) GetRoute(c echo.Context) error {
	route, err := h.loadRoute(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, route)
}

func (h *RouteHandler) DeleteRoute(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.DB.Delete(&models.Route{}, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete route")
	}
	return c.NoContent(http.StatusNoContent)
}

// SwitchPlace toggles a place's membership in the route: present means
// remove, absent means add.
func (h *RouteHandler) SwitchPlace(c echo.Context) error {
	route, err := h.loadRoute(c)
	if err != nil {
		return err
	}

	placeID, err := strconv.Atoi(c.Param("placeId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid place id")
	}

	var place models.Place
	if err := h.DB.First(&place, placeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "place not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load place")
	}

	assoc := h.DB.Model(route).Association("Places")
	member := false
	for _, p := range route.Places {
		if p.ID == place.ID {
			member = true
			break
		}
	}

	if member {
		err = assoc.Delete(&place)
	} else {
		err = assoc.Append(&place)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update route places")
	}

	if err := h.DB.Preload("Places").First(route, route.ID).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot reload route")
	}
	return c.JSON(http.StatusOK, route)
}

func (h *RouteHandler) loadRoute(c echo.Context) (*models.Route, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var route models.Route
	if err := h.DB.Preload("Places").First(&route, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "route not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "cannot load route")
	}
	return &route, nil
}
