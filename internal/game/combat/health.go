package combat

import (
	"math"

	"github.com/cory-johannsen/rpgcombat/internal/game/attribute"
	"github.com/cory-johannsen/rpgcombat/internal/game/profile"
)

// HealthController applies committed damage, heals and max-health settles to
// profile health pools.
type HealthController struct {
	durabilityDivisor float64
}

// NewHealthController returns a HealthController whose durability loss per hit
// is max(floor(damage/divisor), 1).
//
// Precondition: divisor > 0.
func NewHealthController(divisor float64) HealthController {
	return HealthController{durabilityDivisor: divisor}
}

// Commit subtracts amount from p's health, flooring at 0, and returns the
// remaining health with one durability request per worn armor slot.
//
// Precondition: amount > 0.
// Postcondition: 0 <= p.Health.Current <= p.Health.Max.
func (h HealthController) Commit(p *profile.Profile, amount float64) (float64, []DurabilityRequest) {
	if math.IsNaN(amount) {
		return p.Health.Current, nil
	}
	p.Health.Current = math.Max(p.Health.Current-amount, 0)
	loss := int(math.Max(math.Floor(amount/h.durabilityDivisor), 1))
	var reqs []DurabilityRequest
	for _, slot := range p.Loadout().WornArmor() {
		reqs = append(reqs, DurabilityRequest{Entity: p.ID, Slot: slot, Amount: loss})
	}
	return p.Health.Current, reqs
}

// Heal adds amount to p's health without exceeding max and returns the amount
// healed. Non-positive and NaN amounts heal nothing.
func (h HealthController) Heal(p *profile.Profile, amount float64) float64 {
	if !(amount > 0) {
		return 0
	}
	before := p.Health.Current
	p.Health.Current = math.Min(before+amount, p.Health.Max)
	return p.Health.Current - before
}

// Settle recomputes max health as base max plus the max_health attribute and
// clamps current health into the new range. It reports whether max changed.
func (h HealthController) Settle(p *profile.Profile) bool {
	newMax := p.Health.BaseMax + p.Attribute(attribute.MaxHealth)
	changed := newMax != p.Health.Max
	p.Health.Max = newMax
	if p.Health.Current > newMax {
		p.Health.Current = newMax
	}
	return changed
}
