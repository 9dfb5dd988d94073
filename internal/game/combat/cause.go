// Package combat resolves damage events into committed health changes through
// the ordered mitigation pipeline, and owns the health pool arithmetic.
package combat

import (
	"fmt"

	"github.com/cory-johannsen/rpgcombat/internal/game/attribute"
)

// Cause categorises where incoming damage comes from.
type Cause string

const (
	CauseMelee           Cause = "melee"
	CauseProjectile      Cause = "projectile"
	CauseFall            Cause = "fall"
	CauseFire            Cause = "fire"
	CauseLava            Cause = "lava"
	CauseExplosion       Cause = "explosion"
	CauseMagic           Cause = "magic"
	CauseAreaEffectCloud Cause = "area_effect_cloud"
	// CauseAbility is damage dealt by an ability effect. It is mitigated like
	// magic and never evaluates post-hit triggers.
	CauseAbility Cause = "ability"
	CauseGeneric Cause = "generic"
)

// ParseCause returns the Cause named by s.
func ParseCause(s string) (Cause, error) {
	switch c := Cause(s); c {
	case CauseMelee, CauseProjectile, CauseFall, CauseFire, CauseLava, CauseExplosion,
		CauseMagic, CauseAreaEffectCloud, CauseAbility, CauseGeneric:
		return c, nil
	}
	return "", fmt.Errorf("unknown damage cause %q", s)
}

// IsEntity reports whether the cause is an attack by another entity.
func (c Cause) IsEntity() bool {
	return c == CauseMelee || c == CauseProjectile
}

// IsMelee reports whether the cause can be countered.
func (c Cause) IsMelee() bool { return c == CauseMelee }

// Magical reports whether the cause bypasses the physical steps of the pipeline.
func (c Cause) Magical() bool {
	return c == CauseMagic || c == CauseAreaEffectCloud || c == CauseAbility
}

// Enchantment returns the cause-specific protection enchantment, if any.
func (c Cause) Enchantment() (attribute.Enchantment, bool) {
	switch c {
	case CauseFire, CauseLava:
		return attribute.FireProtection, true
	case CauseExplosion:
		return attribute.BlastProtection, true
	case CauseProjectile:
		return attribute.ProjectileProtection, true
	case CauseFall:
		return attribute.FeatherFalling, true
	}
	return "", false
}
