// Package idgen mints the identifiers new records are keyed by.
package idgen

import (
	"fmt"

	"github.com/google/uuid"
)

// Source produces unique record identifiers.
// Implementations must be safe for concurrent use.
type Source interface {
	NewID() (uuid.UUID, error)
}

/***************
 * Random (UUID v4)
 ***************/

type randomSource struct{}

// Random returns a Source producing UUID v4 values.
func Random() Source { return randomSource{} }

func (randomSource) NewID() (uuid.UUID, error) {
	return uuid.New(), nil
}

/***************
 * Sequential (UUID v7)
 ***************/

type sequentialSource struct{}

// Sequential returns a Source producing time-ordered UUID v7 values.
func Sequential() Source { return sequentialSource{} }

func (sequentialSource) NewID() (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the platform random source does; retry once
		id, err = uuid.NewV7()
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("uuid v7 generation failed: %w", err)
	}
	return id, nil
}
