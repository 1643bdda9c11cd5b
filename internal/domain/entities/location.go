package entities

import "time"

// Location represents a geographic coordinate pair (latitude/longitude) in degrees.
//
// Go Learning Note — Value Types vs Reference Types:
// Location is a small, immutable data holder passed by value. It is only 16
// bytes (two float64s), so copying it is cheaper than chasing a pointer.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// UserLocationRecord is one user's persisted position and declared interests.
// Geohash is derived from Location at the configured precision and is only
// used for index bucketing; Location is the ground truth.
type UserLocationRecord struct {
	UserID    string    `json:"user_id"`
	Geohash   string    `json:"geohash"`
	Location  Location  `json:"location"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// LocationUpdate is a merge-upsert of a user's record. Tags are written only
// when non-nil so a location fix never clears declared interests.
type LocationUpdate struct {
	UserID    string
	Geohash   string
	Location  Location
	Tags      *[]string
	UpdatedAt time.Time
}

// QueryRequest describes one nearby search. It has no identity beyond the call.
type QueryRequest struct {
	Origin         Location
	RadiusMeters   float64
	RequestingTags []string
	ExcludedUserID string
}

// MatchResult is one user that satisfied both the radius and the tag predicate.
type MatchResult struct {
	UserID         string   `json:"user_id"`
	DistanceMeters float64  `json:"distance_m"`
	MatchedTags    []string `json:"matched_tags"`
}

// NewLocation creates a Location value from latitude and longitude.
func NewLocation(lat, lng float64) Location {
	return Location{
		Latitude:  lat,
		Longitude: lng,
	}
}
