package entities

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"google.golang.org/genproto/googleapis/type/latlng"

	"nearby/internal/domain"
)

func TestParseRecord_Canonical(t *testing.T) {
	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec, err := ParseRecord(RawRecord{
		ID: "u1",
		Fields: map[string]any{
			FieldGeohash:   "dr5rsjqxyz",
			FieldLatitude:  40.7350,
			FieldLongitude: -73.9300,
			FieldTags:      []any{"#Coffee", "art"},
			FieldUpdatedAt: updated,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.UserID != "u1" || rec.Geohash != "dr5rsjqxyz" {
		t.Errorf("unexpected identity fields: %+v", rec)
	}
	if rec.Location != NewLocation(40.7350, -73.9300) {
		t.Errorf("unexpected location: %+v", rec.Location)
	}
	if !reflect.DeepEqual(rec.Tags, []string{"#art", "#coffee"}) {
		t.Errorf("unexpected tags: %v", rec.Tags)
	}
	if !rec.UpdatedAt.Equal(updated) {
		t.Errorf("unexpected updated_at: %v", rec.UpdatedAt)
	}
}

func TestParseRecord_LegacyShapes(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
	}{
		{
			name: "location map and hashtag objects",
			fields: map[string]any{
				"location": map[string]any{"lat": 48.85, "lng": 2.35},
				"hashtags": []any{
					map[string]any{"tag": "#Museums", "category": "culture"},
					map[string]any{"category": "no tag"},
					"#food",
					42,
				},
			},
		},
		{
			name: "firestore geopoint",
			fields: map[string]any{
				"location": &latlng.LatLng{Latitude: 48.85, Longitude: 2.35},
				"tags":     []string{"#museums", "#food"},
			},
		},
		{
			name: "string coordinates",
			fields: map[string]any{
				"latitude":  "48.85",
				"longitude": json.Number("2.35"),
				"tags":      []any{"#food", "#museums"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseRecord(RawRecord{ID: "u2", Fields: tt.fields})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Location != NewLocation(48.85, 2.35) {
				t.Errorf("unexpected location: %+v", rec.Location)
			}
			if !reflect.DeepEqual(rec.Tags, []string{"#food", "#museums"}) {
				t.Errorf("unexpected tags: %v", rec.Tags)
			}
		})
	}
}

func TestParseRecord_MissingTagsIsEmpty(t *testing.T) {
	rec, err := ParseRecord(RawRecord{ID: "u3", Fields: map[string]any{
		FieldLatitude:  1.0,
		FieldLongitude: 2.0,
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Tags == nil || len(rec.Tags) != 0 {
		t.Errorf("expected empty tags, got %#v", rec.Tags)
	}
}

func TestParseRecord_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		fields map[string]any
		reason string
	}{
		{"missing id", "", map[string]any{FieldLatitude: 1.0, FieldLongitude: 1.0}, "missing user id"},
		{"missing latitude", "u", map[string]any{FieldLongitude: 1.0}, "missing latitude"},
		{"missing longitude", "u", map[string]any{FieldLatitude: 1.0}, "missing longitude"},
		{"latitude not a number", "u", map[string]any{FieldLatitude: "north", FieldLongitude: 1.0}, "latitude is not a number"},
		{"latitude out of range", "u", map[string]any{FieldLatitude: 95.0, FieldLongitude: 1.0}, "coordinate out of range"},
		{"tags not a list", "u", map[string]any{FieldLatitude: 1.0, FieldLongitude: 1.0, FieldTags: "#art"}, "tags not a list"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecord(RawRecord{ID: tt.id, Fields: tt.fields})
			if !errors.Is(err, domain.ErrMalformedRecord) {
				t.Fatalf("expected ErrMalformedRecord, got %v", err)
			}
			var mr *domain.MalformedRecordError
			if !errors.As(err, &mr) {
				t.Fatalf("expected *MalformedRecordError, got %T", err)
			}
			if mr.Reason != tt.reason {
				t.Errorf("reason = %q, want %q", mr.Reason, tt.reason)
			}
		})
	}
}
