package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Falls back to v4 if v7 generation fails
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	RunID    ID
	MetricID ID
)

// NewRunID creates a fresh run identifier
func NewRunID() RunID { return RunID(NewID()) }

// String conversions for domain IDs
func (id RunID) String() string    { return ID(id).String() }
func (id MetricID) String() string { return ID(id).String() }

// ParseMetricID parses a string into MetricID
func ParseMetricID(s string) (MetricID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("metric ID cannot be empty")
	}
	return MetricID(s), nil
}
