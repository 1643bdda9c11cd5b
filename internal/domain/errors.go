package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCoordinate signals a latitude outside [-90, 90] or a longitude outside [-180, 180].
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	// ErrInvalidRadius signals a non-positive (or over-limit) search radius.
	ErrInvalidRadius = errors.New("invalid radius")
	// ErrQueryFailed signals that a range scan against the location store failed.
	ErrQueryFailed = errors.New("query failed")
	// ErrMalformedRecord signals a stored record that cannot be used as a candidate.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrNotFound signals a missing location record.
	ErrNotFound = errors.New("not found")
)

// Bound is a half-open geohash interval [Low, High).
type Bound struct {
	Low  string `json:"low"`
	High string `json:"high"`
}

func (b Bound) String() string {
	return "[" + b.Low + ", " + b.High + ")"
}

// QueryFailedError wraps the store error of a single failed range scan.
type QueryFailedError struct {
	Bound Bound
	Err   error
}

func (e *QueryFailedError) Error() string {
	return fmt.Sprintf("%s: scan %s: %v", ErrQueryFailed.Error(), e.Bound, e.Err)
}

func (e *QueryFailedError) Unwrap() error { return e.Err }

// Is lets errors.Is match both ErrQueryFailed and the wrapped cause.
func (e *QueryFailedError) Is(target error) bool { return target == ErrQueryFailed }

// NewQueryFailed wraps a scan error for the given bound.
func NewQueryFailed(b Bound, err error) error {
	return &QueryFailedError{Bound: b, Err: err}
}

// MalformedRecordError describes why a candidate record was rejected.
type MalformedRecordError struct {
	UserID string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrMalformedRecord.Error(), e.UserID, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error { return ErrMalformedRecord }

// NewMalformedRecord creates a malformed record error.
func NewMalformedRecord(userID, reason string) error {
	return &MalformedRecordError{UserID: userID, Reason: reason}
}
