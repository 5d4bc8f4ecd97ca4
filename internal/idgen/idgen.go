package idgen

import "github.com/google/uuid"

// NewFunc returns a new globally unique identifier. Tests may replace it.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new identifier.
func New() string { return NewFunc() }

// Short returns the first segment of a new identifier, used for prompt markers.
func Short() string {
	id := NewFunc()
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
