package util

import (
	"fmt"

	"github.com/ktarasov/placehub/internal/models"
)

const DefaultPageSize = 10

func Calculate(page, size int) (from, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = DefaultPageSize
	}
	from = (page - 1) * size
	return from, size
}

// Score averages review scores to two decimals, "0" when there are none.
func Score(reviews []models.PlaceReview) string {
	if len(reviews) == 0 {
		return "0"
	}
	sum := 0
	for _, review := range reviews {
		sum += review.Score
	}
	return fmt.Sprintf("%.2f", float64(sum)/float64(len(reviews)))
}
