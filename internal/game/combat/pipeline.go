package combat

import (
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/rpgcombat/internal/game/attribute"
	"github.com/cory-johannsen/rpgcombat/internal/game/dice"
	"github.com/cory-johannsen/rpgcombat/internal/game/profile"
	"github.com/cory-johannsen/rpgcombat/internal/game/status"
)

// Profiles looks up combat profiles by entity id.
type Profiles interface {
	Get(id string) (*profile.Profile, bool)
}

// StatusReader reports status aggregates.
type StatusReader interface {
	Aggregate(entity string, t status.Type) int
}

// ProtectionReader reports protection memberships.
type ProtectionReader interface {
	HasFallProtection(entity string) bool
	HasFireProtection(entity string) bool
}

// Triggers is told about every non-zero commit that is not ability damage.
type Triggers interface {
	AfterHit(ev DamageEvent, res Result)
}

// Pipeline resolves damage events in a fixed order: cause pre-mitigation,
// critical hit, status multipliers, dodge, counter, toughness, final mitigation,
// commit, post-hit triggers. It is not safe for concurrent use.
type Pipeline struct {
	profiles    Profiles
	statuses    StatusReader
	protections ProtectionReader
	roller      *dice.Roller
	triggers    Triggers
	health      HealthController
	tuning      Tuning
	logger      *zap.Logger
}

// NewPipeline creates a Pipeline.
//
// Precondition: every argument except triggers must be non-nil; tuning.Validate() == nil.
func NewPipeline(profiles Profiles, statuses StatusReader, protections ProtectionReader,
	roller *dice.Roller, triggers Triggers, tuning Tuning, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		profiles:    profiles,
		statuses:    statuses,
		protections: protections,
		roller:      roller,
		triggers:    triggers,
		health:      NewHealthController(tuning.DurabilityDivisor),
		tuning:      tuning,
		logger:      logger,
	}
}

// Health returns the pipeline's HealthController.
func (p *Pipeline) Health() HealthController { return p.health }

// Resolve runs ev through the pipeline.
//
// Postcondition: res.Final >= 0 and the defender's health stays within [0, max].
// A defender without a profile yields Unmanaged with the raw amount.
func (p *Pipeline) Resolve(ev DamageEvent) Result {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	res := Result{EventID: ev.ID}
	def, ok := p.profiles.Get(ev.Defender)
	if !ok {
		p.logger.Debug("damage to unmanaged entity", zap.String("event", ev.ID), zap.String("defender", ev.Defender))
		res.Outcome = Unmanaged
		res.Final = math.Max(ev.Amount, 0)
		return res
	}
	res.DefenderHealth = def.Health.Current
	res.Outcome = p.resolve(ev, def, &res)
	p.logger.Debug("damage resolved",
		zap.String("event", ev.ID),
		zap.String("cause", string(ev.Cause)),
		zap.String("attacker", ev.Attacker),
		zap.String("defender", ev.Defender),
		zap.Float64("raw", ev.Amount),
		zap.Float64("final", res.Final),
		zap.Stringer("outcome", res.Outcome),
		zap.Bool("critical", res.Critical),
	)
	if res.Outcome == Committed && ev.Cause != CauseAbility && p.triggers != nil {
		p.triggers.AfterHit(ev, res)
	}
	return res
}

func (p *Pipeline) resolve(ev DamageEvent, def *profile.Profile, res *Result) Outcome {
	dmg := ev.Amount
	if dmg <= 0 {
		return Cancelled
	}

	// Cause pre-mitigation.
	switch ev.Cause {
	case CauseFall:
		if p.protections.HasFallProtection(def.ID) {
			res.Cosmetics = append(res.Cosmetics, CosmeticImmune)
			return Immune
		}
		dmg -= p.tuning.FallReduction
	case CauseFire, CauseLava:
		if p.protections.HasFireProtection(def.ID) {
			res.Cosmetics = append(res.Cosmetics, CosmeticImmune)
			return Immune
		}
		dmg = reduce(dmg, p.tuning.FirePercent/100)
	case CauseExplosion:
		dmg = reduce(dmg, p.tuning.ExplosionPercent/100)
	case CauseProjectile:
		dmg = reduce(dmg, p.tuning.ProjectilePercent/100)
	case CauseMagic, CauseAreaEffectCloud:
		dmg = reduce(dmg, p.tuning.MagicPercent/100)
	}
	if dmg <= 0 {
		return Cancelled
	}
	if ev.Cause.Magical() {
		return p.commit(def, p.protect(def, ev.Cause, dmg), res)
	}

	var att *profile.Profile
	if ev.Attacker != "" {
		att, _ = p.profiles.Get(ev.Attacker)
	}
	entity := ev.Cause.IsEntity() && ev.Attacker != ""

	// Critical hit.
	if entity && att != nil && p.roller.Chance("critical", att.Attribute(attribute.CriticalChance)) {
		dmg *= p.tuning.CriticalBase + att.Attribute(attribute.CriticalDamage)/100
		res.Critical = true
		res.Cosmetics = append(res.Cosmetics, CosmeticCritical)
	}

	// Status multipliers.
	armorApplied := false
	if fracture := p.statuses.Aggregate(def.ID, status.Fracture); fracture > 0 {
		effective := math.Max(def.Attribute(attribute.Armor)-float64(fracture), 0)
		dmg = reduce(dmg, math.Min(effective*p.tuning.ArmorFactor, p.tuning.ArmorCap))
		armorApplied = true
	}
	if vulnerable := p.statuses.Aggregate(def.ID, status.Vulnerable); vulnerable > 0 {
		dmg *= 1 + float64(vulnerable)*p.tuning.VulnerablePerStack
	}

	// Dodge.
	if entity {
		var accuracy float64
		if att != nil {
			accuracy = att.Attribute(attribute.Accuracy)
		}
		if p.roller.Chance("dodge", def.Attribute(attribute.DodgeChance)-accuracy) {
			res.Cosmetics = append(res.Cosmetics, CosmeticDodge)
			return Dodged
		}
	}

	// Counter. Only a living defender strikes back.
	if ev.Cause.IsMelee() && def.Alive() && att != nil && att.Alive() &&
		p.roller.Chance("counter", def.Attribute(attribute.CounterChance)-att.Attribute(attribute.Feint)) {
		counter := math.Trunc(def.Attribute(attribute.AttackSpeed)) * def.Attribute(attribute.AttackDamage)
		counter = p.protect(att, CauseMelee, p.armor(att, counter))
		c := &Counter{AttackerHealth: att.Health.Current}
		if counter > 0 {
			remaining, reqs := p.health.Commit(att, counter)
			c.Damage = counter
			c.AttackerHealth = remaining
			res.Durability = append(res.Durability, reqs...)
		}
		c.AttackerKilled = c.AttackerHealth <= 0
		res.Counter = c
		res.Cosmetics = append(res.Cosmetics, CosmeticCounter)
		if c.AttackerKilled {
			return Countered
		}
	}

	// Toughness.
	dmg = math.Max(dmg-def.Attribute(attribute.Toughness)/2, 0)
	if dmg == 0 {
		res.Cosmetics = append(res.Cosmetics, CosmeticAbsorb)
		return Absorbed
	}

	// Final mitigation.
	if !armorApplied {
		dmg = p.armor(def, dmg)
	}
	return p.commit(def, p.protect(def, ev.Cause, dmg), res)
}

func (p *Pipeline) commit(def *profile.Profile, dmg float64, res *Result) Outcome {
	if dmg <= 0 {
		return Cancelled
	}
	remaining, reqs := p.health.Commit(def, dmg)
	res.Final = dmg
	res.DefenderHealth = remaining
	res.Durability = append(res.Durability, reqs...)
	return Committed
}

func (p *Pipeline) armor(pr *profile.Profile, dmg float64) float64 {
	return reduce(dmg, math.Min(pr.Attribute(attribute.Armor)*p.tuning.ArmorFactor, p.tuning.ArmorCap))
}

// protect applies the protection-enchantment and resistance reductions.
func (p *Pipeline) protect(pr *profile.Profile, cause Cause, dmg float64) float64 {
	levels := pr.Enchantments()
	epf := float64(levels.Get(attribute.Protection))
	if e, ok := cause.Enchantment(); ok {
		epf += 2 * float64(levels.Get(e))
	}
	epf = math.Min(epf, p.tuning.ProtectionEPFCap)
	dmg = reduce(dmg, math.Min(epf*p.tuning.ProtectionPerEPF, p.tuning.ProtectionCap))
	resistance := math.Min(math.Max(pr.Attribute(attribute.Resistance)/100, 0), 1)
	return reduce(dmg, resistance)
}

// reduce returns dmg lowered by fraction of itself, floored at 0.
func reduce(dmg, fraction float64) float64 {
	return math.Max(dmg-dmg*fraction, 0)
}
