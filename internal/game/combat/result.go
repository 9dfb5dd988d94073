package combat

import "github.com/cory-johannsen/rpgcombat/internal/game/item"

// DamageEvent is one incoming damage instance.
type DamageEvent struct {
	// ID correlates the event across logs and hooks. Assigned when empty.
	ID       string
	Cause    Cause
	Amount   float64
	Attacker string
	Defender string
}

// Outcome is how a damage event ended.
type Outcome int

const (
	// Committed means non-zero damage was applied to the defender.
	Committed Outcome = iota + 1
	// Cancelled means the damage was reduced to nothing by mitigation.
	Cancelled
	// Dodged means the defender evaded the attack.
	Dodged
	// Countered means a counter-attack killed the attacker first.
	Countered
	// Absorbed means toughness reduced the damage to exactly zero.
	Absorbed
	// Immune means a protection membership nullified the cause.
	Immune
	// Unmanaged means the defender has no combat profile; Final carries the
	// raw amount for the host to apply itself.
	Unmanaged
)

// String returns the lower-case outcome name.
func (o Outcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case Cancelled:
		return "cancelled"
	case Dodged:
		return "dodged"
	case Countered:
		return "countered"
	case Absorbed:
		return "absorbed"
	case Immune:
		return "immune"
	case Unmanaged:
		return "unmanaged"
	default:
		return "unknown"
	}
}

// Counter describes a counter-attack made during resolution.
type Counter struct {
	// Damage is the mitigated counter damage committed to the attacker.
	Damage float64
	// AttackerHealth is the attacker's health after the counter.
	AttackerHealth float64
	// AttackerKilled is true when the counter left the attacker at 0 health.
	AttackerKilled bool
}

// DurabilityRequest asks the host to wear down the item in an entity's slot.
type DurabilityRequest struct {
	Entity string
	Slot   item.Slot
	Amount int
}

// Cosmetic ids emitted at decision branches.
const (
	CosmeticCritical = "critical"
	CosmeticDodge    = "dodge"
	CosmeticCounter  = "counter"
	CosmeticAbsorb   = "absorb"
	CosmeticImmune   = "immune"
)

// Result is the outcome of resolving one DamageEvent.
type Result struct {
	EventID string
	Outcome Outcome
	// Final is the amount committed to the defender.
	Final    float64
	Critical bool
	// Counter is non-nil when the defender counter-attacked.
	Counter    *Counter
	Durability []DurabilityRequest
	Cosmetics  []string
	// DefenderHealth is the defender's health after resolution.
	DefenderHealth float64
}
