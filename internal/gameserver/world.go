package gameserver

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/rpgcombat/internal/game/ability"
)

// maxEvents bounds each entity's undelivered event feed.
const maxEvents = 64

// Event is a world side effect recorded for the host to replay.
type Event struct {
	Kind   string
	Detail string
}

// HostWorld is the daemon's stand-in for the host game world. It tracks
// positions reported by the host and records every side effect an ability
// requests so the host can collect them through the Profile call.
//
// HostWorld is only touched from the tick loop goroutine.
type HostWorld struct {
	locations map[string]ability.Location
	events    map[string][]Event
	logger    *zap.Logger
}

var (
	_ ability.World    = (*HostWorld)(nil)
	_ ability.Notifier = (*HostWorld)(nil)
)

// NewHostWorld creates an empty HostWorld.
func NewHostWorld(logger *zap.Logger) *HostWorld {
	return &HostWorld{
		locations: make(map[string]ability.Location),
		events:    make(map[string][]Event),
		logger:    logger,
	}
}

// Place records entity at loc.
func (w *HostWorld) Place(entity string, loc ability.Location) { w.locations[entity] = loc }

// Forget drops entity's position and pending events.
func (w *HostWorld) Forget(entity string) {
	delete(w.locations, entity)
	delete(w.events, entity)
}

// Drain returns and clears entity's pending events, oldest first.
func (w *HostWorld) Drain(entity string) []Event {
	out := w.events[entity]
	delete(w.events, entity)
	return out
}

func (w *HostWorld) record(entity, kind, detail string) {
	feed := append(w.events[entity], Event{Kind: kind, Detail: detail})
	if len(feed) > maxEvents {
		feed = feed[len(feed)-maxEvents:]
	}
	w.events[entity] = feed
	w.logger.Debug("world event",
		zap.String("entity", entity),
		zap.String("kind", kind),
		zap.String("detail", detail),
	)
}

// Nearby returns the placed entities in entity's world within radius, nearest
// first with ties broken by id.
func (w *HostWorld) Nearby(entity string, radius float64) []string {
	origin, ok := w.locations[entity]
	if !ok {
		return nil
	}
	type hit struct {
		id   string
		dist float64
	}
	var hits []hit
	for id, loc := range w.locations {
		if id == entity || loc.World != origin.World {
			continue
		}
		if d := distance(origin, loc); d <= radius {
			hits = append(hits, hit{id, d})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].id < hits[j].id
	})
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.id
	}
	return out
}

func (w *HostWorld) ApplyPotion(entity, potion string, amplifier, duration int) {
	w.record(entity, "potion", fmt.Sprintf("%s amplifier=%d duration=%d", potion, amplifier, duration))
}

// Launch lifts entity straight up by velocity.
func (w *HostWorld) Launch(entity string, velocity float64) {
	if loc, ok := w.locations[entity]; ok {
		loc.Y += velocity
		w.locations[entity] = loc
	}
	w.record(entity, "launch", fmt.Sprintf("velocity=%g", velocity))
}

// Teleport moves entity distance blocks along +X; the host owns facing.
func (w *HostWorld) Teleport(entity string, distance float64) {
	if loc, ok := w.locations[entity]; ok {
		loc.X += distance
		w.locations[entity] = loc
	}
	w.record(entity, "teleport", fmt.Sprintf("distance=%g", distance))
}

func (w *HostWorld) Location(entity string) (ability.Location, bool) {
	loc, ok := w.locations[entity]
	return loc, ok
}

func (w *HostWorld) MoveTo(entity string, loc ability.Location) {
	w.locations[entity] = loc
	w.record(entity, "move", fmt.Sprintf("%s %g,%g,%g", loc.World, loc.X, loc.Y, loc.Z))
}

func (w *HostWorld) Cosmetic(entity, id string) { w.record(entity, "cosmetic", id) }

// Notify implements ability.Notifier.
func (w *HostWorld) Notify(entity, message string) { w.record(entity, "notice", message) }

func distance(a, b ability.Location) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
