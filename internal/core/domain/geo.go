package domain

import (
	"fmt"
	"math"
	"strconv"
)

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate reports whether the point lies inside the valid lat/lon ranges.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return &ValidationError{Field: "latitude", Reason: fmt.Sprintf("must be between -90 and 90, got %g", p.Lat)}
	}
	if math.IsNaN(p.Lon) || p.Lon < -180 || p.Lon > 180 {
		return &ValidationError{Field: "longitude", Reason: fmt.Sprintf("must be between -180 and 180, got %g", p.Lon)}
	}
	return nil
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Label renders the point as "lat, lon", used when no address is known.
func (p GeoPoint) Label() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + ", " + strconv.FormatFloat(p.Lon, 'f', -1, 64)
}
