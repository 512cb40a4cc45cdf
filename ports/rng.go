package ports

import (
	"context"
	"math/rand"
)

// RNGPort hands out seeded random number generators. Every random draw in a
// run comes from a generator obtained here and passed explicitly; there is
// no process-wide generator.
type RNGPort interface {
	// SeededStream creates a deterministic generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// Stream derives a deterministic generator for one stage of a run, so
	// independent cells (e.g. stability-grid entries) never share state
	Stream(ctx context.Context, stageName, key string, baseSeed int64) (*rand.Rand, error)
}
