package geo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"

	"github.com/ktarasov/placehub/internal/repo"
)

var ErrPlaceNotFound = errors.New("place not found")

const (
	DefaultMaxDistanceKm = 200.0
	DefaultLimit         = 10
)

// Result is one neighbor of the reference place, with great-circle
// distance in kilometers.
type Result struct {
	PlaceID    uint    `json:"place_id"`
	DistanceKm float64 `json:"distance_km"`
}

// CoordStore supplies stored place coordinates (longitude first).
type CoordStore interface {
	FindPlaceCoordinate(ctx context.Context, id uint) (*repo.PlaceCoordinate, error)
	ListPlaceCoordinates(ctx context.Context) ([]repo.PlaceCoordinate, error)
}

type Engine struct {
	Repo CoordStore
}

func NewEngine(store CoordStore) *Engine {
	return &Engine{Repo: store}
}

// Nearest returns the places within maxDistanceKm of the reference place,
// closest first, excluding the reference place itself. The 200 km default
// radius is wide enough that planar distance would be visibly wrong, so
// distances are haversine over orb's lon/lat points.
func (e *Engine) Nearest(ctx context.Context, placeID uint, maxDistanceKm float64, limit int) ([]Result, error) {
	if maxDistanceKm <= 0 {
		maxDistanceKm = DefaultMaxDistanceKm
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	ref, err := e.Repo.FindPlaceCoordinate(ctx, placeID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPlaceNotFound
		}
		return nil, fmt.Errorf("load reference place: %w", err)
	}
	refPoint := orb.Point{ref.Longitude, ref.Latitude}

	coords, err := e.Repo.ListPlaceCoordinates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list place coordinates: %w", err)
	}

	results := make([]Result, 0, len(coords))
	for _, c := range coords {
		if c.ID == ref.ID {
			continue
		}
		km := orbgeo.DistanceHaversine(refPoint, orb.Point{c.Longitude, c.Latitude}) / 1000
		if km > maxDistanceKm {
			continue
		}
		results = append(results, Result{PlaceID: c.ID, DistanceKm: km})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].DistanceKm < results[j].DistanceKm
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
