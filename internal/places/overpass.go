package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/neurocare-ai/companion-backend/internal/model"
)

// maxResults caps how many named places one search returns.
const maxResults = 20

// OverpassClient queries the Overpass API for named places around a point.
type OverpassClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewOverpassClient creates a client for the given Overpass interpreter URL.
func NewOverpassClient(endpoint string) *OverpassClient {
	return &OverpassClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type overpassResponse struct {
	Elements []struct {
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

// Nearby returns up to maxResults named places matching an OSM tag around the
// given coordinates. Entries without a name tag are dropped; an empty slice is
// a valid outcome.
func (c *OverpassClient) Nearby(ctx context.Context, coords Coordinates, tag string, radius int) ([]model.Place, error) {
	query := buildQuery(coords, tag, radius)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("overpass: create request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, fmt.Errorf("overpass: unexpected status %d: %s", res.StatusCode, string(buf))
	}

	var payload overpassResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 8<<20)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("overpass: decode response: %w", err)
	}

	places := make([]model.Place, 0, len(payload.Elements))
	for _, element := range payload.Elements {
		name := element.Tags["name"]
		if name == "" {
			continue
		}
		places = append(places, model.Place{Name: name})
		if len(places) == maxResults {
			break
		}
	}
	return places, nil
}

func buildQuery(coords Coordinates, tag string, radius int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:25];\n(\n")
	for _, kind := range []string{"node", "way", "relation"} {
		fmt.Fprintf(&b, "  %s[%s](around:%d,%f,%f);\n", kind, tag, radius, coords.Lat, coords.Lng)
	}
	fmt.Fprintf(&b, ");\nout center %d;\n", maxResults)
	return b.String()
}
