package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/ktarasov/placehub/internal/models"
)

// Search runs a fuzzy multi_match over the text fields users actually type
// into: title, description and location name.
func Search(ctx context.Context, es *elasticsearch.Client, index, query string, from, size int) (int64, []models.Place, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"title^2", "description", "location_name"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search: encode query: %w", err)
	}

	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(index),
		es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}

	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Place `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	places := make([]models.Place, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		places[i] = hit.Source
	}
	return r.Hits.Total.Value, places, nil
}

// IndexPlace writes the place document so it becomes searchable. Called on
// create and update; failures are the caller's to log, not fatal.
func IndexPlace(ctx context.Context, es *elasticsearch.Client, index string, place *models.Place) error {
	doc, err := json.Marshal(place)
	if err != nil {
		return fmt.Errorf("index place: marshal: %w", err)
	}

	res, err := es.Index(
		index,
		bytes.NewReader(doc),
		es.Index.WithContext(ctx),
		es.Index.WithDocumentID(strconv.FormatUint(uint64(place.ID), 10)),
	)
	if err != nil {
		return fmt.Errorf("index place: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index place: %s", res.Status())
	}
	return nil
}

// DeletePlace removes the place document after the row is gone.
func DeletePlace(ctx context.Context, es *elasticsearch.Client, index string, id uint) error {
	res, err := es.Delete(
		index,
		strconv.FormatUint(uint64(id), 10),
		es.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete place: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete place: %s", res.Status())
	}
	return nil
}
