// Package idgen issues record identifiers.
package idgen

import "github.com/google/uuid"

// New returns a time-ordered UUIDv7 string. Ids created later sort after
// earlier ones, which keeps comment and notification order stable when
// timestamps collide.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
