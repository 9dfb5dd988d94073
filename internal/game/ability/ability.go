// Package ability implements passive and active abilities bound to equipment:
// definition catalog, parameter parsing, trigger evaluation gated by chance and
// cooldown, and dispatch of the effect an ability produces.
package ability

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/rpgcombat/internal/game/item"
	"github.com/cory-johannsen/rpgcombat/internal/game/status"
)

var (
	// ErrMalformedParameter marks an ability whose raw parameter string cannot be parsed.
	// Such an ability is inert until its data is corrected.
	ErrMalformedParameter = errors.New("malformed ability parameter")
	// ErrUnknownAbility is returned when no definition or binding exists for an ability id.
	ErrUnknownAbility = errors.New("unknown ability")
	// ErrOnCooldown is returned when an active ability is invoked before its cooldown elapses.
	ErrOnCooldown = errors.New("ability on cooldown")
)

// Kind distinguishes hook-driven abilities from directly invoked ones.
type Kind int

const (
	Passive Kind = iota + 1
	Active
)

func (k Kind) String() string {
	switch k {
	case Passive:
		return "passive"
	case Active:
		return "active"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Trigger names the combat hook a passive ability listens on.
type Trigger string

const (
	DamageDealt Trigger = "damage_dealt"
	DamageTaken Trigger = "damage_taken"
	Kill        Trigger = "kill"
	LowHealth   Trigger = "low_health"
)

// ParseTrigger returns the Trigger named by s.
func ParseTrigger(s string) (Trigger, error) {
	switch t := Trigger(s); t {
	case DamageDealt, DamageTaken, Kill, LowHealth:
		return t, nil
	}
	return "", fmt.Errorf("unknown trigger %q", s)
}

// Condition gates whether a triggered ability fires.
type Condition int

const (
	// ChanceAndCooldown fires when off cooldown and a percentage draw succeeds.
	ChanceAndCooldown Condition = iota + 1
	// HealthThresholdChanceAndCooldown additionally requires the owner's health
	// ratio to be at or below a threshold percentage.
	HealthThresholdChanceAndCooldown
	// Cooldown fires whenever the ability is off cooldown. Actives only.
	Cooldown
)

var conditionNames = map[Condition]string{
	ChanceAndCooldown:                "chance_cooldown",
	HealthThresholdChanceAndCooldown: "health_threshold_chance_cooldown",
	Cooldown:                         "cooldown",
}

func (c Condition) String() string {
	if n, ok := conditionNames[c]; ok {
		return n
	}
	return fmt.Sprintf("condition(%d)", int(c))
}

// ParseCondition returns the Condition named by s.
func ParseCondition(s string) (Condition, error) {
	for c, n := range conditionNames {
		if n == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown condition %q", s)
}

// Effect is the tag of the effect union an ability dispatches on.
type Effect int

const (
	StackInstance Effect = iota + 1
	ChainDamage
	PotionEffect
	Movement
	Teleport
	Projection
	DistanceDamage
	ClearStatus
)

var effectNames = map[Effect]string{
	StackInstance:  "stack_instance",
	ChainDamage:    "chain_damage",
	PotionEffect:   "potion_effect",
	Movement:       "movement",
	Teleport:       "teleport",
	Projection:     "projection",
	DistanceDamage: "distance_damage",
	ClearStatus:    "clear_status",
}

func (e Effect) String() string {
	if n, ok := effectNames[e]; ok {
		return n
	}
	return fmt.Sprintf("effect(%d)", int(e))
}

// ParseEffect returns the Effect named by s.
func ParseEffect(s string) (Effect, error) {
	for e, n := range effectNames {
		if n == s {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown effect %q", s)
}

// Definition is the static description of an ability.
type Definition struct {
	ID        string
	Name      string
	Kind      Kind
	Condition Condition
	Effect    Effect
	// Status is the status applied by StackInstance or removed by ClearStatus.
	// Zero on ClearStatus means every status.
	Status status.Type
	// Potion names the potion applied by PotionEffect.
	Potion string
}

// Binding is one ability bound to an entity through an equipped slot.
type Binding struct {
	Entity  string
	Slot    item.Slot
	Def     *Definition
	Trigger Trigger
	Raw     string
	Params  Params
	// Err is non-nil when Raw failed to parse; the binding then never fires.
	Err error
}

// Inert reports whether the binding is disabled by malformed data.
func (b *Binding) Inert() bool { return b.Err != nil }

// Location is a position in the host world.
type Location struct {
	World string
	X     float64
	Y     float64
	Z     float64
}

// World is the host game world seen by ability effects.
type World interface {
	// Nearby returns the ids of entities within radius of entity, excluding entity,
	// nearest first.
	Nearby(entity string, radius float64) []string
	ApplyPotion(entity, potion string, amplifier, duration int)
	Launch(entity string, velocity float64)
	Teleport(entity string, distance float64)
	Location(entity string) (Location, bool)
	MoveTo(entity string, loc Location)
	// Cosmetic requests an opaque visual/audio cue on entity.
	Cosmetic(entity, id string)
}

// Notifier surfaces ability problems to the owning actor.
type Notifier interface {
	Notify(entity, message string)
}

// Effects is the combat side of the engine that ability effects act through.
type Effects interface {
	// Damage deals amount from source to target as ability damage and returns
	// the amount actually committed.
	Damage(source, target string, amount float64) float64
	AddStatus(entity string, t status.Type, stacks, duration int) error
	ClearStatus(entity string, t status.Type) bool
	ClearAllStatuses(entity string)
	HasStatus(entity string, t status.Type) bool
	// HealthRatio returns current/max health for entity, or false if unmanaged.
	HealthRatio(entity string) (float64, bool)
}
