// Package status tracks timed, stack-based effects (Bleed, Fracture, ...) applied to
// combat entities. Each application carries its own expiry; the aggregate magnitude
// of a status is the sum of its live applications.
package status

import (
	"fmt"
	"sort"
)

// Type identifies a status effect.
type Type int

const (
	Bleed Type = iota + 1
	Brittle
	Electrocute
	Soaked
	Fracture
	Vulnerable
)

// Category groups status types by their declared stacking intent.
type Category int

const (
	// Cumulative statuses grow with every application.
	Cumulative Category = iota + 1
	// HighestInstance statuses are labelled as tracking the strongest single
	// application. They aggregate by summation like Cumulative statuses.
	HighestInstance
)

var typeNames = map[Type]string{
	Bleed:       "bleed",
	Brittle:     "brittle",
	Electrocute: "electrocute",
	Soaked:      "soaked",
	Fracture:    "fracture",
	Vulnerable:  "vulnerable",
}

// String returns the lower-case status name.
func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("status(%d)", int(t))
}

// Category returns the stacking category of t.
func (t Type) Category() Category {
	switch t {
	case Fracture, Vulnerable:
		return HighestInstance
	default:
		return Cumulative
	}
}

// Parse returns the Type named s.
func Parse(s string) (Type, error) {
	for t, n := range typeNames {
		if n == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", s)
}

// All returns every status type in declaration order.
func All() []Type {
	out := make([]Type, 0, len(typeNames))
	for t := range typeNames {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
