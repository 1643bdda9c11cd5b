package entities

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"google.golang.org/genproto/googleapis/type/latlng"

	"nearby/internal/domain"
)

// Field names of a stored location document.
const (
	FieldGeohash   = "geohash"
	FieldLatitude  = "latitude"
	FieldLongitude = "longitude"
	FieldTags      = "tags"
	FieldUpdatedAt = "updated_at"

	// Shapes written by the web client before the canonical fields existed.
	legacyFieldLocation = "location"
	legacyFieldHashtags = "hashtags"
)

// RawRecord is a location document as a store returned it, before
// validation. Stores decode into plain Go values (float64, string, []any,
// map[string]any); anything else is rejected by ParseRecord.
type RawRecord struct {
	ID     string
	Fields map[string]any
}

// ParseRecord validates a raw document and converts it into a record.
// Failures are *domain.MalformedRecordError values.
//
// Coordinates come from "latitude"/"longitude", falling back to a
// "location" map ({lat, lng}) or a Firestore GeoPoint. Tags come from a
// "tags" list of strings, falling back to "hashtags" whose elements may be
// strings or {tag, category} objects. Missing tags mean no tags; a tags
// field that is not a list is malformed.
func ParseRecord(raw RawRecord) (UserLocationRecord, error) {
	if raw.ID == "" {
		return UserLocationRecord{}, domain.NewMalformedRecord(raw.ID, "missing user id")
	}

	lat, lng, reason := parseCoordinates(raw.Fields)
	if reason != "" {
		return UserLocationRecord{}, domain.NewMalformedRecord(raw.ID, reason)
	}

	tags, ok := parseTags(raw.Fields)
	if !ok {
		return UserLocationRecord{}, domain.NewMalformedRecord(raw.ID, "tags not a list")
	}

	rec := UserLocationRecord{
		UserID:   raw.ID,
		Location: Location{Latitude: lat, Longitude: lng},
		Tags:     tags,
	}
	if gh, ok := raw.Fields[FieldGeohash].(string); ok {
		rec.Geohash = gh
	}
	switch ts := raw.Fields[FieldUpdatedAt].(type) {
	case time.Time:
		rec.UpdatedAt = ts
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.UpdatedAt = parsed
		}
	}
	return rec, nil
}

func parseCoordinates(fields map[string]any) (lat, lng float64, reason string) {
	latRaw, hasLat := fields[FieldLatitude]
	lngRaw, hasLng := fields[FieldLongitude]

	if !hasLat || !hasLng {
		switch loc := fields[legacyFieldLocation].(type) {
		case *latlng.LatLng:
			if loc != nil {
				latRaw, hasLat = loc.GetLatitude(), true
				lngRaw, hasLng = loc.GetLongitude(), true
			}
		case map[string]any:
			if !hasLat {
				latRaw, hasLat = firstPresent(loc, "lat", "latitude")
			}
			if !hasLng {
				lngRaw, hasLng = firstPresent(loc, "lng", "lon", "longitude")
			}
		}
	}

	if !hasLat {
		return 0, 0, "missing latitude"
	}
	if !hasLng {
		return 0, 0, "missing longitude"
	}

	lat, ok := toFloat(latRaw)
	if !ok {
		return 0, 0, "latitude is not a number"
	}
	lng, ok = toFloat(lngRaw)
	if !ok {
		return 0, 0, "longitude is not a number"
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, "coordinate out of range"
	}
	return lat, lng, ""
}

func firstPresent(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func parseTags(fields map[string]any) ([]string, bool) {
	raw, ok := fields[FieldTags]
	if !ok {
		raw, ok = fields[legacyFieldHashtags]
	}
	if !ok || raw == nil {
		return []string{}, true
	}

	var list []string
	switch v := raw.(type) {
	case []string:
		list = v
	case []any:
		list = make([]string, 0, len(v))
		for _, el := range v {
			switch tag := el.(type) {
			case string:
				list = append(list, tag)
			case map[string]any:
				if s, ok := tag["tag"].(string); ok {
					list = append(list, s)
				}
			}
		}
	default:
		return nil, false
	}
	return NormalizeTags(list), true
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
