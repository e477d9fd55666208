package places

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	g "github.com/serpapi/google-search-results-golang"

	"github.com/avvvet/foodbuddy-agent/internal/models"
)

// fetchFunc performs one SerpApi request and returns the decoded JSON body.
type fetchFunc func(parameter map[string]string, apiKey string) (map[string]interface{}, error)

func serpFetch(parameter map[string]string, apiKey string) (map[string]interface{}, error) {
	search := g.NewGoogleSearch(parameter, apiKey)
	data, err := search.GetJSON()
	if err != nil {
		return nil, err
	}
	return data, nil
}

// SerpClient is the place-search collaborator on the SerpApi google_maps engine.
type SerpClient struct {
	apiKey  string
	timeout time.Duration
	fetch   fetchFunc
}

func NewSerpClient(apiKey string, timeout time.Duration) (*SerpClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("SerpApi key is required")
	}
	return &SerpClient{apiKey: apiKey, timeout: timeout, fetch: serpFetch}, nil
}

// Search runs a free-text maps query and returns the local results in rank order.
func (c *SerpClient) Search(ctx context.Context, query string) ([]models.Restaurant, error) {
	parameter := map[string]string{
		"engine": "google_maps",
		"type":   "search",
		"q":      query,
	}

	data, err := c.do(ctx, parameter)
	if err != nil {
		return nil, fmt.Errorf("place search failed: %w", err)
	}

	items, _ := data["local_results"].([]interface{})
	results := make([]models.Restaurant, 0, len(items))
	for _, item := range items {
		itemMap, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		restaurant := models.Restaurant{
			ID:          getString(itemMap["place_id"]),
			Name:        getString(itemMap["title"]),
			Location:    getString(itemMap["address"]),
			Description: firstString(itemMap["description"], itemMap["type"]),
		}
		if price := getString(itemMap["price"]); price != "" {
			restaurant.PriceLevel = &price
		}
		if restaurant.ID == "" || restaurant.Name == "" {
			continue
		}
		results = append(results, restaurant)
	}

	log.Printf("📍 Place search returned %d results", len(results))
	return results, nil
}

// Details returns nil, nil when SerpApi has no record for placeID.
func (c *SerpClient) Details(ctx context.Context, placeID string) (*models.PlaceDetails, error) {
	parameter := map[string]string{
		"engine":   "google_maps",
		"type":     "place",
		"place_id": placeID,
	}

	data, err := c.do(ctx, parameter)
	if err != nil {
		return nil, fmt.Errorf("place details failed: %w", err)
	}

	place, ok := data["place_results"].(map[string]interface{})
	if !ok {
		return nil, nil
	}

	details := &models.PlaceDetails{
		ID:          placeID,
		Name:        getString(place["title"]),
		Address:     getString(place["address"]),
		Phone:       getString(place["phone"]),
		Website:     getString(place["website"]),
		Rating:      getFloat(place["rating"]),
		PriceLevel:  getString(place["price"]),
		Hours:       parseHours(place),
		Description: descriptionOf(place),
	}
	if id := getString(place["place_id"]); id != "" {
		details.ID = id
	}
	return details, nil
}

// do runs the blocking SerpApi call and gives up when ctx or the client
// timeout expires first.
func (c *SerpClient) do(ctx context.Context, parameter map[string]string) (map[string]interface{}, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	type result struct {
		data map[string]interface{}
		err  error
	}
	done := make(chan result, 1)

	go func() {
		data, err := c.fetch(parameter, c.apiKey)
		done <- result{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		if msg := getString(r.data["error"]); msg != "" {
			return nil, fmt.Errorf("serpapi: %s", msg)
		}
		return r.data, nil
	}
}

func parseHours(place map[string]interface{}) []string {
	var hours []string

	if entries, ok := place["hours"].([]interface{}); ok {
		for _, entry := range entries {
			day, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			hours = append(hours, formatDays(day)...)
		}
	}

	if len(hours) == 0 {
		if operating, ok := place["operating_hours"].(map[string]interface{}); ok {
			hours = formatDays(operating)
		}
	}
	return hours
}

var weekdayOrder = map[string]int{
	"monday": 0, "tuesday": 1, "wednesday": 2, "thursday": 3,
	"friday": 4, "saturday": 5, "sunday": 6,
}

func formatDays(days map[string]interface{}) []string {
	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		oi, iok := weekdayOrder[strings.ToLower(keys[i])]
		oj, jok := weekdayOrder[strings.ToLower(keys[j])]
		if iok && jok {
			return oi < oj
		}
		if iok != jok {
			return iok
		}
		return keys[i] < keys[j]
	})

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if v := getString(days[k]); v != "" {
			out = append(out, fmt.Sprintf("%s: %s", k, v))
		}
	}
	return out
}

func descriptionOf(place map[string]interface{}) string {
	if s := getString(place["description"]); s != "" {
		return s
	}
	if d, ok := place["description"].(map[string]interface{}); ok {
		return getString(d["snippet"])
	}
	return getString(place["type"])
}

func getString(val interface{}) string {
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func firstString(vals ...interface{}) string {
	for _, v := range vals {
		if s := getString(v); s != "" {
			return s
		}
	}
	return ""
}

func getFloat(val interface{}) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
