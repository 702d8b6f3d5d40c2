package util

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewID generates a new ULID string; used for pipeline run ids and model versions.
func NewID() string {
	return NewIDAt(time.Now())
}

// NewIDAt generates a ULID carrying the given timestamp.
func NewIDAt(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)

	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
