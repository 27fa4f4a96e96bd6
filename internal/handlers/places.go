package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/ktarasov/placehub/internal/logging"
	authmw "github.com/ktarasov/placehub/internal/middleware/auth"
	"github.com/ktarasov/placehub/internal/models"
	"github.com/ktarasov/placehub/internal/mykafka"
	"github.com/ktarasov/placehub/internal/service/geo"
	"github.com/ktarasov/placehub/internal/service/search"
	"github.com/ktarasov/placehub/internal/storage"
	"github.com/ktarasov/placehub/internal/util"
)

type PlaceHandler struct {
	DB       *gorm.DB
	Geo      *geo.Engine
	ES       *elasticsearch.Client
	Index    string
	Storage  *storage.Client
	Producer *mykafka.Producer
}

type placeResponse struct {
	models.Place
	Score string `json:"score"`
}

func withScore(place models.Place) placeResponse {
	return placeResponse{Place: place, Score: util.Score(place.Reviews)}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseFloatDefault(s string, def float64) float64 {
	if s == "" {
		return def
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return def
}

func (h *PlaceHandler) publish(c echo.Context, key string, event map[string]interface{}) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "place_events", key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

func (h *PlaceHandler) index(c echo.Context, place *models.Place) {
	if h.ES == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := search.IndexPlace(ctx, h.ES, h.Index, place); err != nil {
		logging.FromContext(c.Request().Context()).Error("es index error", "place_id", place.ID, "error", err)
	}
}

func (h *PlaceHandler) CreatePlace(c echo.Context) error {
	principal, ok := authmw.PrincipalFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
	}

	var place models.Place
	if err := c.Bind(&place); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	place.ID = 0
	place.AuthorID = principal.UserID

	if err := h.DB.Create(&place).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create place")
	}

	h.index(c, &place)
	h.publish(c, eventKey(place.ID), map[string]interface{}{
		"type":     "place_created",
		"place_id": place.ID,
		"title":    place.Title,
	})

	return c.JSON(http.StatusCreated, place)
}

// GetPlaces lists published places with the original attribute filters:
// type/activity sets, age restriction, price range, date window and text search.
func (h *PlaceHandler) GetPlaces(c echo.Context) error {
	q := h.DB.Model(&models.Place{}).Preload("Reviews").
		Where("is_published = ?", true).
		Order("start ASC")

	if types := c.QueryParam("types"); types != "" {
		q = q.Where("type IN ?", splitCSV(types))
	}
	if activities := c.QueryParam("activities"); activities != "" {
		q = q.Where("activity IN ?", splitCSV(activities))
	}
	if age := c.QueryParam("age_restriction"); age != "" {
		q = q.Where("age_restrictions <= ?", parseIntDefault(age, 0))
	}
	if minPrice := c.QueryParam("min_price"); minPrice != "" {
		q = q.Where("price >= ?", parseFloatDefault(minPrice, 0))
	}
	if maxPrice := c.QueryParam("max_price"); maxPrice != "" {
		q = q.Where("price <= ?", parseFloatDefault(maxPrice, 0))
	}

	start := time.Now()
	if s := c.QueryParam("start"); s != "" {
		if parsed, err := time.Parse(time.RFC3339, s); err == nil {
			start = parsed
		}
	}
	q = q.Where("\"end\" IS NULL OR \"end\" >= ?", start)
	if e := c.QueryParam("end"); e != "" {
		if parsed, err := time.Parse(time.RFC3339, e); err == nil {
			q = q.Where("start IS NULL OR start <= ?", parsed)
		}
	}

	if searchQuery := c.QueryParam("search"); searchQuery != "" {
		pattern := "%" + searchQuery + "%"
		q = q.Where(
			"title LIKE ? OR description LIKE ? OR location_name LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var places []models.Place
	if err := q.Find(&places).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list places")
	}

	resp := make([]placeResponse, len(places))
	for i, place := range places {
		resp[i] = withScore(place)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *PlaceHandler) GetPlace(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var place models.Place
	if err := h.DB.Preload("Reviews").First(&place, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "place not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load place")
	}
	return c.JSON(http.StatusOK, withScore(place))
}

func (h *PlaceHandler) PatchPlace(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var place models.Place
	if err := h.DB.First(&place, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "place not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load place")
	}

	var patch map[string]interface{}
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	delete(patch, "id")
	delete(patch, "author_id")
	delete(patch, "image_keys")

	if err := h.DB.Model(&place).Updates(patch).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update place")
	}

	h.index(c, &place)
	h.publish(c, eventKey(place.ID), map[string]interface{}{
		"type":     "place_updated",
		"place_id": place.ID,
	})

	return c.JSON(http.StatusOK, place)
}

func (h *PlaceHandler) DeletePlace(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var place models.Place
	if err := h.DB.First(&place, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "place not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load place")
	}

	if err := h.DB.Delete(&place).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete place")
	}

	if h.Storage != nil {
		for _, key := range place.ImageKeys {
			if err := h.Storage.Delete(c.Request().Context(), key); err != nil {
				logging.FromContext(c.Request().Context()).Error("image delete error", "key", key, "error", err)
			}
		}
	}

	if h.ES != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if err := search.DeletePlace(ctx, h.ES, h.Index, uint(id)); err != nil {
			logging.FromContext(c.Request().Context()).Error("es delete error", "place_id", id, "error", err)
		}
	}

	h.publish(c, eventKey(uint(id)), map[string]interface{}{
		"type":     "place_deleted",
		"place_id": id,
	})

	return c.NoContent(http.StatusNoContent)
}

// Nearest returns the places closest to the given one, within the radius,
// ordered by distance. An empty list is a valid answer.
func (h *PlaceHandler) Nearest(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	maxKm := parseFloatDefault(c.QueryParam("max_distance_km"), geo.DefaultMaxDistanceKm)
	limit := parseIntDefault(c.QueryParam("limit"), geo.DefaultLimit)

	results, err := h.Geo.Nearest(c.Request().Context(), uint(id), maxKm, limit)
	if err != nil {
		if errors.Is(err, geo.ErrPlaceNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "place not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot compute nearest places")
	}
	return c.JSON(http.StatusOK, results)
}

func (h *PlaceHandler) GetPlaceImages(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var place models.Place
	if err := h.DB.First(&place, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "place not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load place")
	}

	urls := make([]string, 0, len(place.ImageKeys))
	for _, key := range place.ImageKeys {
		u, err := h.Storage.Get(c.Request().Context(), key, time.Hour)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot presign image")
		}
		urls = append(urls, u)
	}
	return c.JSON(http.StatusOK, urls)
}

func (h *PlaceHandler) AddPlaceImage(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var place models.Place
	if err := h.DB.First(&place, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "place not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load place")
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "image missing")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot open image")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read image")
	}

	key, err := h.Storage.Put(c.Request().Context(), fileHeader.Filename, data)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot store image")
	}

	place.ImageKeys = append(place.ImageKeys, key)
	if err := h.DB.Model(&place).Update("image_keys", place.ImageKeys).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot save image key")
	}

	return c.JSON(http.StatusOK, echo.Map{"key": key})
}
