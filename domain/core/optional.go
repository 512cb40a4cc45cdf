package core

import (
	"math"
	"strconv"
	"strings"
)

// OptFloat is a float64 that may be absent. Absent values render as empty
// cells; they mark degenerate input or numerical failure, never zero.
type OptFloat struct {
	Value float64
	Valid bool
}

// Some wraps a finite value. NaN and infinities become missing.
func Some(v float64) OptFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return OptFloat{}
	}
	return OptFloat{Value: v, Valid: true}
}

// Missing returns an absent value
func Missing() OptFloat {
	return OptFloat{}
}

// Get returns the value and whether it is present
func (o OptFloat) Get() (float64, bool) {
	return o.Value, o.Valid
}

// Or returns the value or fallback when absent
func (o OptFloat) Or(fallback float64) float64 {
	if !o.Valid {
		return fallback
	}
	return o.Value
}

// Format renders six decimals, or "" when absent
func (o OptFloat) Format() string {
	if !o.Valid {
		return ""
	}
	return strconv.FormatFloat(o.Value, 'f', 6, 64)
}

// ParseOptFloat parses a table cell. Blank or non-numeric cells are missing.
func ParseOptFloat(s string) OptFloat {
	s = strings.TrimSpace(s)
	if s == "" {
		return OptFloat{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return OptFloat{}
	}
	return Some(v)
}

// OptInt is an int that may be absent
type OptInt struct {
	Value int
	Valid bool
}

// SomeInt wraps a present int
func SomeInt(v int) OptInt {
	return OptInt{Value: v, Valid: true}
}

// Format renders the int, or "" when absent
func (o OptInt) Format() string {
	if !o.Valid {
		return ""
	}
	return strconv.Itoa(o.Value)
}

// ParseOptInt parses a table cell. Blank or non-integer cells are missing.
func ParseOptInt(s string) OptInt {
	s = strings.TrimSpace(s)
	if s == "" {
		return OptInt{}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return OptInt{}
	}
	return SomeInt(v)
}

// OptBool is a tri-state flag: true, false, or unknown
type OptBool struct {
	Value bool
	Valid bool
}

// SomeBool wraps a known flag
func SomeBool(v bool) OptBool {
	return OptBool{Value: v, Valid: true}
}

// Format renders "1", "0" or "" when unknown
func (o OptBool) Format() string {
	if !o.Valid {
		return ""
	}
	if o.Value {
		return "1"
	}
	return "0"
}

// ParseOptBool parses "1"/"0"/"true"/"false"; anything else is unknown
func ParseOptBool(s string) OptBool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return SomeBool(true)
	case "0", "false", "no":
		return SomeBool(false)
	}
	return OptBool{}
}
