// Package places converts free-text locations into named nearby places using
// the OpenStreetMap Nominatim and Overpass services.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// userAgent identifies this service to Nominatim, which rejects anonymous
// clients per its usage policy.
const userAgent = "NeuroCare/1.0 (neurocare@example.com)"

// Coordinates is a geocoded latitude/longitude pair.
type Coordinates struct {
	Lat float64
	Lng float64
}

// Geocoder resolves free-text locations against a Nominatim endpoint.
type Geocoder struct {
	baseURL    string
	httpClient *http.Client
}

// NewGeocoder creates a geocoder for the given Nominatim base URL.
func NewGeocoder(baseURL string) *Geocoder {
	return &Geocoder{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves a location string to coordinates. Zero results yield
// ErrLocationNotFound; an access-denial response yields ErrGeocodingBlocked.
func (g *Geocoder) Geocode(ctx context.Context, location string) (Coordinates, error) {
	query := url.Values{}
	query.Set("q", location)
	query.Set("format", "json")
	query.Set("limit", "1")

	endpoint := g.baseURL + "/search?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Coordinates{}, fmt.Errorf("geocode: create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := g.httpClient.Do(req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("geocode: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusForbidden {
		return Coordinates{}, fmt.Errorf("geocode %q: %w", location, ErrGeocodingBlocked)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return Coordinates{}, fmt.Errorf("geocode: unexpected status %d: %s", res.StatusCode, string(buf))
	}

	var results []nominatimResult
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&results); err != nil {
		return Coordinates{}, fmt.Errorf("geocode: decode response: %w", err)
	}
	if len(results) == 0 {
		return Coordinates{}, fmt.Errorf("geocode %q: %w", location, ErrLocationNotFound)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("geocode: parse latitude %q: %w", results[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("geocode: parse longitude %q: %w", results[0].Lon, err)
	}

	return Coordinates{Lat: lat, Lng: lng}, nil
}
