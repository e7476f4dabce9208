// Package uuid generates the time-ordered identifiers used as primary keys.
package uuid

import (
	googleuuid "github.com/google/uuid"
)

// New returns a UUIDv7 string. UUIDv7 values sort by creation time, which
// keeps primary key indexes append-mostly.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does.
		return googleuuid.New().String()
	}
	return id.String()
}

// IsValid checks if a string is a UUID in canonical hyphenated form.
func IsValid(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := googleuuid.Parse(s)
	return err == nil
}
