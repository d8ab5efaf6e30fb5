package address

import (
	"context"
	"fmt"
	"log/slog"

	"salestracker/geocode"
)

// Geocoder resolves a free-text address to a coordinate pair.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (geocode.Point, error)
}

// Resolved is a parsed address together with its coordinates, if any.
type Resolved struct {
	Components
	Latitude  *float64
	Longitude *float64
}

// Resolver turns a free-text address into a Resolved address. Coordinates
// supplied by the caller are trusted as-is; the geocoder is only consulted
// when they are absent.
type Resolver struct {
	geocoder Geocoder
	log      *slog.Logger
}

// NewResolver returns a Resolver using the provided geocoder.
func NewResolver(g Geocoder, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{geocoder: g, log: logger}
}

// Resolve parses fullAddress into components and determines coordinates.
// When both latitude and longitude are provided they are used directly and
// no geocoding call is made. Otherwise the full address is geocoded; the
// parsed components are returned alongside any geocoding error so the
// caller can report the failure against the address field.
func (r *Resolver) Resolve(ctx context.Context, fullAddress string, latitude, longitude *float64) (Resolved, error) {

	resolved := Resolved{Components: Parse(fullAddress)}

	if latitude != nil && longitude != nil {
		resolved.Latitude = latitude
		resolved.Longitude = longitude
		return resolved, nil
	}

	point, err := r.geocoder.Geocode(ctx, fullAddress)
	if err != nil {
		return resolved, fmt.Errorf("could not resolve address %q: %w", fullAddress, err)
	}
	resolved.Latitude = &point.Latitude
	resolved.Longitude = &point.Longitude
	return resolved, nil
}
