// Package buff tracks timed additive attribute modifiers.
package buff

import (
	"errors"
	"fmt"
	"math"

	"github.com/cory-johannsen/rpgcombat/internal/game/attribute"
	"github.com/cory-johannsen/rpgcombat/internal/game/tick"
)

// ErrInvalidBuff is returned when a buff's magnitude or duration is not positive.
var ErrInvalidBuff = errors.New("buff requires positive magnitude and duration")

// ApplyFunc folds delta into entity's attribute totals. A negative delta removes
// a previously applied magnitude.
type ApplyFunc func(entity string, id attribute.ID, delta float64)

// Buff is one live additive modifier.
type Buff struct {
	ID        uint64
	Entity    string
	Attribute attribute.ID
	Magnitude float64
	ExpiresAt tick.Tick
	handle    tick.Handle
}

// Registry owns every active buff. On add the magnitude is pushed through the
// ApplyFunc; on expiry or clear exactly that magnitude is withdrawn.
// It is not safe for concurrent use.
type Registry struct {
	sched  *tick.Scheduler
	apply  ApplyFunc
	seq    uint64
	active map[string]map[uint64]*Buff
}

// NewRegistry creates a Registry.
//
// Precondition: sched and apply must be non-nil.
func NewRegistry(sched *tick.Scheduler, apply ApplyFunc) *Registry {
	return &Registry{
		sched:  sched,
		apply:  apply,
		active: make(map[string]map[uint64]*Buff),
	}
}

// Add applies magnitude to entity's attribute id for duration ticks.
//
// Precondition: magnitude > 0 and duration > 0.
// Postcondition: the attribute total rises by magnitude until the buff expires.
func (r *Registry) Add(entity string, id attribute.ID, magnitude float64, duration int) (*Buff, error) {
	if !(magnitude > 0) || math.IsInf(magnitude, 1) || duration <= 0 {
		return nil, fmt.Errorf("buffing %s on %q (magnitude=%g duration=%d): %w",
			id, entity, magnitude, duration, ErrInvalidBuff)
	}
	r.seq++
	b := &Buff{
		ID:        r.seq,
		Entity:    entity,
		Attribute: id,
		Magnitude: magnitude,
	}
	byID, ok := r.active[entity]
	if !ok {
		byID = make(map[uint64]*Buff)
		r.active[entity] = byID
	}
	byID[b.ID] = b
	r.apply(entity, id, magnitude)
	b.handle = r.sched.After(entity, duration, func() { r.expire(entity, b.ID) })
	b.ExpiresAt, _ = r.sched.Due(b.handle)
	return b, nil
}

func (r *Registry) expire(entity string, id uint64) {
	b, ok := r.active[entity][id]
	if !ok {
		return
	}
	r.drop(b)
}

func (r *Registry) drop(b *Buff) {
	byID := r.active[b.Entity]
	delete(byID, b.ID)
	if len(byID) == 0 {
		delete(r.active, b.Entity)
	}
	r.apply(b.Entity, b.Attribute, -b.Magnitude)
}

// Total returns the summed magnitude of live buffs on entity's attribute id.
func (r *Registry) Total(entity string, id attribute.ID) float64 {
	var sum float64
	for _, b := range r.active[entity] {
		if b.Attribute == id {
			sum += b.Magnitude
		}
	}
	return sum
}

// Active returns the live buffs on entity.
func (r *Registry) Active(entity string) []*Buff {
	out := make([]*Buff, 0, len(r.active[entity]))
	for _, b := range r.active[entity] {
		out = append(out, b)
	}
	return out
}

// ClearAll withdraws every buff on entity and cancels their expiry timers.
// It returns the number of buffs removed.
func (r *Registry) ClearAll(entity string) int {
	byID := r.active[entity]
	n := 0
	for _, b := range byID {
		r.sched.Cancel(b.handle)
		r.drop(b)
		n++
	}
	return n
}
