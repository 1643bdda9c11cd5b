// Package utils provides shared utility functions used across the application.
//
// Go Learning Note — "pkg/" Directory Convention:
// Code under pkg/ is intended to be importable by external projects (unlike
// internal/ which is compiler-enforced private). This is a community convention,
// not a Go language feature.
package utils

import (
	"github.com/google/uuid"
)

// GenerateID creates a new UUID v4 string, used to tag each HTTP request.
//
// Go Learning Note — "github.com/google/uuid":
// This library generates RFC 4122 UUIDs. uuid.New() creates a v4 (random) UUID
// like "550e8400-e29b-41d4-a716-446655440000". UUIDs can be generated without
// coordination, so every replica can mint request ids independently.
func GenerateID() string {
	return uuid.New().String()
}

// RequestID returns incoming when it is a well-formed UUID (a client or proxy
// already assigned one) and a fresh id otherwise. Arbitrary header values are
// never echoed into logs.
func RequestID(incoming string) string {
	if incoming != "" {
		if id, err := uuid.Parse(incoming); err == nil {
			return id.String()
		}
	}
	return GenerateID()
}
