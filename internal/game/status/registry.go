package status

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/rpgcombat/internal/game/tick"
)

// ErrInvalidApplication is returned when stacks or duration are not positive.
var ErrInvalidApplication = errors.New("status application requires positive stacks and duration")

// Application is one independent application of a status.
type Application struct {
	ID        uint64
	Stacks    int
	AppliedAt tick.Tick
	ExpiresAt tick.Tick
	handle    tick.Handle
}

// Stack is the set of live applications of one status on one entity.
//
// Invariant: Aggregate == sum(Applications[i].Stacks) and Aggregate > 0.
type Stack struct {
	Type         Type
	Applications []*Application
	Aggregate    int
}

// Registry tracks every entity's active statuses. Expiry of each application is
// scheduled on the shared tick Scheduler with the entity as timer owner.
// It is not safe for concurrent use.
type Registry struct {
	sched    *tick.Scheduler
	entities map[string]map[Type]*Stack
	seq      uint64
}

// NewRegistry creates an empty Registry driven by sched.
//
// Precondition: sched must be non-nil.
func NewRegistry(sched *tick.Scheduler) *Registry {
	return &Registry{
		sched:    sched,
		entities: make(map[string]map[Type]*Stack),
	}
}

// Add applies stacks of t to entity for duration ticks. The application expires
// independently of any other application of the same status.
//
// Precondition: stacks > 0 and duration > 0.
// Postcondition: Aggregate(entity, t) increases by stacks until the application expires.
func (r *Registry) Add(entity string, t Type, stacks, duration int) (*Application, error) {
	if stacks <= 0 || duration <= 0 {
		return nil, fmt.Errorf("adding %s to %q (stacks=%d duration=%d): %w",
			t, entity, stacks, duration, ErrInvalidApplication)
	}
	byType, ok := r.entities[entity]
	if !ok {
		byType = make(map[Type]*Stack)
		r.entities[entity] = byType
	}
	st, ok := byType[t]
	if !ok {
		st = &Stack{Type: t}
		byType[t] = st
	}
	r.seq++
	app := &Application{
		ID:        r.seq,
		Stacks:    stacks,
		AppliedAt: r.sched.Now(),
	}
	app.handle = r.sched.After(entity, duration, func() { r.expire(entity, t, app.ID) })
	app.ExpiresAt, _ = r.sched.Due(app.handle)
	st.Applications = append(st.Applications, app)
	st.Aggregate += stacks
	return app, nil
}

func (r *Registry) expire(entity string, t Type, id uint64) {
	byType, ok := r.entities[entity]
	if !ok {
		return
	}
	st, ok := byType[t]
	if !ok {
		return
	}
	for i, app := range st.Applications {
		if app.ID != id {
			continue
		}
		st.Applications = append(st.Applications[:i], st.Applications[i+1:]...)
		st.Aggregate -= app.Stacks
		break
	}
	if st.Aggregate <= 0 {
		delete(byType, t)
	}
	if len(byType) == 0 {
		delete(r.entities, entity)
	}
}

// Aggregate returns the summed stacks of t on entity, or 0 if absent.
func (r *Registry) Aggregate(entity string, t Type) int {
	if st, ok := r.entities[entity][t]; ok {
		return st.Aggregate
	}
	return 0
}

// Has reports whether entity carries at least one stack of t.
func (r *Registry) Has(entity string, t Type) bool {
	return r.Aggregate(entity, t) > 0
}

// Tracked reports whether entity has any active status.
func (r *Registry) Tracked(entity string) bool {
	_, ok := r.entities[entity]
	return ok
}

// Stack returns the live applications of t on entity.
func (r *Registry) Stack(entity string, t Type) (*Stack, bool) {
	st, ok := r.entities[entity][t]
	return st, ok
}

// Snapshot returns the aggregate of every active status on entity.
func (r *Registry) Snapshot(entity string) map[Type]int {
	out := make(map[Type]int, len(r.entities[entity]))
	for t, st := range r.entities[entity] {
		out[t] = st.Aggregate
	}
	return out
}

// Clear removes every application of t from entity and cancels their expiry timers.
// It reports whether anything was removed.
func (r *Registry) Clear(entity string, t Type) bool {
	byType, ok := r.entities[entity]
	if !ok {
		return false
	}
	st, ok := byType[t]
	if !ok {
		return false
	}
	for _, app := range st.Applications {
		r.sched.Cancel(app.handle)
	}
	delete(byType, t)
	if len(byType) == 0 {
		delete(r.entities, entity)
	}
	return true
}

// ClearAll removes every status from entity and cancels all pending expiries.
//
// Postcondition: Tracked(entity) is false.
func (r *Registry) ClearAll(entity string) {
	for t := range r.entities[entity] {
		r.Clear(entity, t)
	}
	delete(r.entities, entity)
}
