package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/ktarasov/placehub/internal/logging"
	authmw "github.com/ktarasov/placehub/internal/middleware/auth"
	"github.com/ktarasov/placehub/internal/models"
	"github.com/ktarasov/placehub/internal/mykafka"
)

type ReviewHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

func (h *ReviewHandler) publish(c echo.Context, key string, event map[string]interface{}) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "place_events", key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

func (h *ReviewHandler) CreateReview(c echo.Context) error {
	principal, ok := authmw.PrincipalFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
	}

	placeID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Score int    `json:"score"`
		Text  string `json:"text"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.DB.First(&models.Place{}, placeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "place not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load place")
	}

	review := models.PlaceReview{
		PlaceID:  uint(placeID),
		AuthorID: principal.UserID,
		Score:    req.Score,
		Text:     req.Text,
	}
	if err := h.DB.Create(&review).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create review")
	}

	h.publish(c, eventKey(review.PlaceID), map[string]interface{}{
		"type":      "review_created",
		"place_id":  review.PlaceID,
		"review_id": review.ID,
		"score":     review.Score,
	})

	return c.JSON(http.StatusCreated, review)
}

func (h *ReviewHandler) GetPlaceReviews(c echo.Context) error {
	placeID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var reviews []models.PlaceReview
	if err := h.DB.Where("place_id = ?", placeID).Find(&reviews).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list reviews")
	}
	return c.JSON(http.StatusOK, reviews)
}

func (h *ReviewHandler) GetUserReviews(c echo.Context) error {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var reviews []models.PlaceReview
	if err := h.DB.Where("author_id = ?", userID).Find(&reviews).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list reviews")
	}
	return c.JSON(http.StatusOK, reviews)
}

func (h *ReviewHandler) PatchReview(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var review models.PlaceReview
	if err := h.DB.First(&review, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "review not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load review")
	}

	var req struct {
		Score *int    `json:"score"`
		Text  *string `json:"text"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Score != nil {
		review.Score = *req.Score
	}
	if req.Text != nil {
		review.Text = *req.Text
	}

	if err := h.DB.Save(&review).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update review")
	}
	return c.JSON(http.StatusOK, review)
}

func (h *ReviewHandler) DeleteReview(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := h.DB.Delete(&models.PlaceReview{}, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete review")
	}
	return c.NoContent(http.StatusNoContent)
}
