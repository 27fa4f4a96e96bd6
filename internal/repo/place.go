package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ktarasov/placehub/internal/models"
)

// PlaceCoordinate is the projection used by the nearest-places query.
// Longitude comes first everywhere in this package.
type PlaceCoordinate struct {
	ID        uint
	Longitude float64
	Latitude  float64
}

func (r *GormRepo) FindPlaceCoordinate(ctx context.Context, id uint) (*PlaceCoordinate, error) {
	var coord PlaceCoordinate
	err := r.DB.WithContext(ctx).Model(&models.Place{}).
		Select("id", "longitude", "latitude").
		Where("id = ?", id).
		First(&coord).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &coord, nil
}

func (r *GormRepo) ListPlaceCoordinates(ctx context.Context) ([]PlaceCoordinate, error) {
	var coords []PlaceCoordinate
	err := r.DB.WithContext(ctx).Model(&models.Place{}).
		Select("id", "longitude", "latitude").
		Find(&coords).Error
	if err != nil {
		return nil, err
	}
	return coords, nil
}
