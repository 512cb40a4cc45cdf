package rng

import (
	"context"
	"fmt"
	"math/rand"

	"goregime/ports"
)

// SeededAdapter implements ports.RNGPort with math/rand sources
type SeededAdapter struct{}

var _ ports.RNGPort = (*SeededAdapter)(nil)

// NewSeededAdapter creates the default RNG adapter
func NewSeededAdapter() *SeededAdapter {
	return &SeededAdapter{}
}

// SeededStream creates a deterministic random number generator for a named operation
func (a *SeededAdapter) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	if name == "" {
		return nil, fmt.Errorf("rng stream name cannot be empty")
	}
	return rand.New(rand.NewSource(seed)), nil
}

// Stream derives a seed from stage name, key and base seed. The same inputs
// always give the same generator.
func (a *SeededAdapter) Stream(ctx context.Context, stageName, key string, baseSeed int64) (*rand.Rand, error) {
	seed := baseSeed
	if stageName != "" {
		seed += int64(hashString(stageName))
	}
	if key != "" {
		seed += int64(hashString(key))
	}
	return rand.New(rand.NewSource(seed)), nil
}

// hashString is djb2
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c)
	}
	return hash
}
