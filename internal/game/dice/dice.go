// Package dice provides the randomness abstraction used by combat resolution and
// ability triggers.
package dice

// percentResolution is the number of discrete steps a percentage draw can take.
// Draws land on a 0.01 grid in [0, 100).
const percentResolution = 10000

// Source is the randomness provider for all combat rolls.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// Percent draws one uniform value in [0, 100) from src.
//
// Precondition: src must be non-nil.
// Postcondition: 0 <= result < 100.
func Percent(src Source) float64 {
	return float64(src.Intn(percentResolution)) / (percentResolution / 100)
}
