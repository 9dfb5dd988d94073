package engine

import (
	"github.com/cory-johannsen/rpgcombat/internal/game/ability"
	"github.com/cory-johannsen/rpgcombat/internal/game/combat"
	"github.com/cory-johannsen/rpgcombat/internal/game/status"
)

var (
	_ ability.Effects = abilityEffects{}
	_ combat.Triggers = (*Context)(nil)
)

// AfterHit evaluates post-hit passives: damage_dealt for the attacker,
// damage_taken and low_health for the defender while it still has health,
// then the on_hit hook.
func (c *Context) AfterHit(ev combat.DamageEvent, res combat.Result) {
	if ev.Attacker != "" {
		c.abilities.Evaluate(ability.DamageDealt, ev.Attacker, ev.Defender)
	}
	if def, ok := c.profiles.Get(ev.Defender); ok && def.Alive() {
		c.abilities.Evaluate(ability.DamageTaken, ev.Defender, ev.Attacker)
		c.abilities.Evaluate(ability.LowHealth, ev.Defender, ev.Attacker)
	}
	if c.hooks != nil {
		c.hooks.OnHit(ev, res)
	}
}

// abilityEffects is the view of a Context that ability effects act through.
type abilityEffects struct {
	c *Context
}

func (a abilityEffects) Damage(source, target string, amount float64) float64 {
	res := a.c.pipeline.Resolve(combat.DamageEvent{
		Cause:    combat.CauseAbility,
		Amount:   amount,
		Attacker: source,
		Defender: target,
	})
	if res.Outcome != combat.Committed {
		return 0
	}
	return res.Final
}

func (a abilityEffects) AddStatus(entity string, t status.Type, stacks, duration int) error {
	return a.c.AddStatus(entity, t, stacks, duration)
}

func (a abilityEffects) ClearStatus(entity string, t status.Type) bool {
	return a.c.statuses.Clear(entity, t)
}

func (a abilityEffects) ClearAllStatuses(entity string) { a.c.statuses.ClearAll(entity) }

func (a abilityEffects) HasStatus(entity string, t status.Type) bool {
	return a.c.statuses.Has(entity, t)
}

func (a abilityEffects) HealthRatio(entity string) (float64, bool) {
	p, ok := a.c.profiles.Get(entity)
	if !ok {
		return 0, false
	}
	return p.Health.Ratio(), true
}
