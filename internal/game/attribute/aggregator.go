package attribute

import "math"

// epsilon absorbs float drift left behind by add/remove pairs.
const epsilon = 1e-9

// Aggregator holds the total value of every attribute for one entity.
// It is not safe for concurrent use.
//
// Invariant: every stored total is > 0; zero totals are not stored.
type Aggregator struct {
	totals map[ID]float64
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{totals: make(map[ID]float64)}
}

// Add increases the total for id by delta. Non-positive and non-finite
// deltas are ignored.
func (a *Aggregator) Add(id ID, delta float64) {
	if !finitePositive(delta) {
		return
	}
	a.totals[id] += delta
}

// Remove decreases the total for id by delta, flooring at zero.
//
// Postcondition: Get(id) >= 0.
func (a *Aggregator) Remove(id ID, delta float64) {
	if !finitePositive(delta) {
		return
	}
	v := a.totals[id] - delta
	if v < epsilon || math.IsNaN(v) {
		delete(a.totals, id)
		return
	}
	a.totals[id] = v
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// Get returns the current total for id, or 0 if absent.
func (a *Aggregator) Get(id ID) float64 {
	return a.totals[id]
}

// Snapshot returns a copy of all non-zero totals.
func (a *Aggregator) Snapshot() map[ID]float64 {
	out := make(map[ID]float64, len(a.totals))
	for k, v := range a.totals {
		out[k] = v
	}
	return out
}

// Reset removes every total.
func (a *Aggregator) Reset() {
	a.totals = make(map[ID]float64)
}

// Levels aggregates enchantment levels for one entity.
//
// Invariant: every stored level is > 0.
type Levels struct {
	levels map[Enchantment]int
}

// NewLevels returns an empty Levels.
func NewLevels() *Levels {
	return &Levels{levels: make(map[Enchantment]int)}
}

// Add increases the level of e by n. Non-positive n is ignored.
func (l *Levels) Add(e Enchantment, n int) {
	if n <= 0 {
		return
	}
	l.levels[e] += n
}

// Remove decreases the level of e by n, flooring at zero.
func (l *Levels) Remove(e Enchantment, n int) {
	if n <= 0 {
		return
	}
	v := l.levels[e] - n
	if v <= 0 {
		delete(l.levels, e)
		return
	}
	l.levels[e] = v
}

// Get returns the aggregated level of e.
func (l *Levels) Get(e Enchantment) int {
	return l.levels[e]
}

// Snapshot returns a copy of all non-zero levels.
func (l *Levels) Snapshot() map[Enchantment]int {
	out := make(map[Enchantment]int, len(l.levels))
	for k, v := range l.levels {
		out[k] = v
	}
	return out
}
