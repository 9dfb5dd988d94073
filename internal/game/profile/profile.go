// Package profile holds the per-entity combat state: attribute and enchantment
// totals, equipment loadout and health pool.
package profile

import (
	"fmt"

	"github.com/cory-johannsen/rpgcombat/internal/game/attribute"
	"github.com/cory-johannsen/rpgcombat/internal/game/equipment"
)

// Kind distinguishes players from mobs.
type Kind int

const (
	KindPlayer Kind = iota + 1
	KindMob
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindMob:
		return "mob"
	default:
		return "unknown"
	}
}

// ParseKind returns the Kind named by s.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "player":
		return KindPlayer, nil
	case "mob":
		return KindMob, nil
	}
	return 0, fmt.Errorf("unknown entity kind %q", s)
}

// Health is an entity's health pool.
//
// Invariant: 0 <= Current <= Max.
type Health struct {
	Current float64
	Max     float64
	// BaseMax is the max health before the max_health attribute is added.
	BaseMax float64
}

// Ratio returns Current/Max, or 0 when Max is 0.
func (h Health) Ratio() float64 {
	if h.Max <= 0 {
		return 0
	}
	return h.Current / h.Max
}

// Profile is one entity's combat state.
type Profile struct {
	ID     string
	Kind   Kind
	Health Health

	attrs   *attribute.Aggregator
	levels  *attribute.Levels
	loadout *equipment.Loadout
}

// New returns a Profile at full health.
//
// Precondition: baseMax > 0.
func New(id string, kind Kind, baseMax float64) *Profile {
	return &Profile{
		ID:      id,
		Kind:    kind,
		Health:  Health{Current: baseMax, Max: baseMax, BaseMax: baseMax},
		attrs:   attribute.NewAggregator(),
		levels:  attribute.NewLevels(),
		loadout: equipment.NewLoadout(),
	}
}

// EntityID returns the profile's entity id.
func (p *Profile) EntityID() string { return p.ID }

// Attributes returns the attribute totals.
func (p *Profile) Attributes() *attribute.Aggregator { return p.attrs }

// Enchantments returns the enchantment level totals.
func (p *Profile) Enchantments() *attribute.Levels { return p.levels }

// Loadout returns the equipment loadout.
func (p *Profile) Loadout() *equipment.Loadout { return p.loadout }

// Attribute returns the total of id.
func (p *Profile) Attribute(id attribute.ID) float64 { return p.attrs.Get(id) }

// Alive reports whether the profile has health left.
func (p *Profile) Alive() bool { return p.Health.Current > 0 }

// IsPlayer reports whether the profile belongs to a player.
func (p *Profile) IsPlayer() bool { return p.Kind == KindPlayer }

// HealthSnapshot is the persisted form of a profile's health.
type HealthSnapshot struct {
	EntityID string
	Kind     Kind
	Current  float64
	Max      float64
	BaseMax  float64
}

// Snapshot captures p's health.
func (p *Profile) Snapshot() HealthSnapshot {
	return HealthSnapshot{
		EntityID: p.ID,
		Kind:     p.Kind,
		Current:  p.Health.Current,
		Max:      p.Health.Max,
		BaseMax:  p.Health.BaseMax,
	}
}

// Restore loads health from s, clamping current into [0, max].
func (p *Profile) Restore(s HealthSnapshot) {
	p.Health.BaseMax = s.BaseMax
	if s.Max > 0 {
		p.Health.Max = s.Max
	} else {
		p.Health.Max = s.BaseMax
	}
	p.Health.Current = clamp(s.Current, 0, p.Health.Max)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
