package places

import (
	"context"

	"go.uber.org/zap"

	"github.com/neurocare-ai/companion-backend/internal/model"
	"github.com/neurocare-ai/companion-backend/pkg/logger"
	"github.com/neurocare-ai/companion-backend/pkg/metrics"
)

// overpassTags maps search categories to OSM tag selectors.
var overpassTags = map[string]string{
	"hospital":    "amenity=hospital",
	"restaurant":  "amenity=restaurant",
	"cafe":        "amenity=cafe",
	"hotel":       "tourism=hotel",
	"museum":      "tourism=museum",
	"school":      "amenity=school",
	"supermarket": "shop=supermarket",
	"pharmacy":    "amenity=pharmacy",
	"gym":         "leisure=fitness_centre",
	"park":        "leisure=park",
}

// fallbackTag is used for categories outside the known table. Best-effort
// policy: an unrecognized category degrades to a restaurant-type search
// instead of failing the request.
const fallbackTag = "amenity=restaurant"

// Resolver turns a location string and category into a list of named places:
// geocode first, then a nearby search around the result.
type Resolver struct {
	geocoder *Geocoder
	overpass *OverpassClient
	radius   int
	logger   *logger.Logger
}

// NewResolver creates a resolver with the given search radius in meters.
func NewResolver(geocoder *Geocoder, overpass *OverpassClient, radius int, log *logger.Logger) *Resolver {
	return &Resolver{
		geocoder: geocoder,
		overpass: overpass,
		radius:   radius,
		logger:   log,
	}
}

// Resolve geocodes the location and searches for nearby places matching the
// category. An empty result list is a valid outcome, reserved for "geocoded
// fine, zero nearby matches"; a failed geocode never reaches the search step.
func (r *Resolver) Resolve(ctx context.Context, location, category string) ([]model.Place, error) {
	coords, err := r.geocoder.Geocode(ctx, location)
	if err != nil {
		return nil, err
	}

	tag, ok := overpassTags[category]
	if !ok {
		tag = fallbackTag
		r.logger.Warn("unknown place category, falling back to restaurant search",
			zap.String("category", category),
			zap.String("location", location),
		)
		metrics.CategoryFallbackTotal.WithLabelValues(category).Inc()
	}

	return r.overpass.Nearby(ctx, coords, tag, r.radius)
}
