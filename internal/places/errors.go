package places

import "errors"

var (
	// ErrLocationNotFound means the geocoder returned zero results for the
	// query. A bad location string, not a service problem.
	ErrLocationNotFound = errors.New("location not found")

	// ErrGeocodingBlocked means the geocoding service denied the request.
	// Reported distinctly from not-found: it indicates a service-level
	// problem (blocked client, missing User-Agent) rather than a bad query.
	ErrGeocodingBlocked = errors.New("geocoding request blocked")
)
