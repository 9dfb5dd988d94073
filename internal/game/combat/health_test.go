package combat_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cory-johannsen/rpgcombat/internal/game/attribute"
	"github.com/cory-johannsen/rpgcombat/internal/game/combat"
	"github.com/cory-johannsen/rpgcombat/internal/game/profile"
)

func TestHealthController_CommitFloorsAtZero(t *testing.T) {
	h := combat.NewHealthController(4)
	p := profile.New("bob", profile.KindMob, 10)
	remaining, reqs := h.Commit(p, 25)
	assert.Equal(t, 0.0, remaining)
	assert.Empty(t, reqs, "nothing worn, nothing to wear down")
	assert.False(t, p.Alive())
}

func TestHealthController_HealCapsAtMax(t *testing.T) {
	h := combat.NewHealthController(4)
	p := profile.New("bob", profile.KindMob, 10)
	p.Health.Current = 4
	assert.Equal(t, 6.0, h.Heal(p, 50))
	assert.Equal(t, 10.0, p.Health.Current)
	assert.Equal(t, 0.0, h.Heal(p, -3))
}

func TestHealthController_Settle(t *testing.T) {
	h := combat.NewHealthController(4)
	p := profile.New("bob", profile.KindPlayer, 20)
	p.Attributes().Add(attribute.MaxHealth, 6)
	assert.True(t, h.Settle(p))
	assert.Equal(t, 26.0, p.Health.Max)
	assert.Equal(t, 20.0, p.Health.Current, "settle never heals")
	assert.False(t, h.Settle(p))

	p.Health.Current = 26
	p.Attributes().Remove(attribute.MaxHealth, 6)
	assert.True(t, h.Settle(p))
	assert.Equal(t, 20.0, p.Health.Current)
}

func TestTuning_Validate(t *testing.T) {
	assert.NoError(t, combat.DefaultTuning().Validate())
	bad := combat.DefaultTuning()
	bad.FirePercent = 140
	bad.ArmorCap = 2
	bad.DurabilityDivisor = 0
	err := bad.Validate()
	assert.ErrorContains(t, err, "fire_percent")
	assert.ErrorContains(t, err, "armor_cap")
	assert.ErrorContains(t, err, "durability_divisor")
}

func TestParseCause(t *testing.T) {
	c, err := combat.ParseCause("area_effect_cloud")
	assert.NoError(t, err)
	assert.True(t, c.Magical())
	_, err = combat.ParseCause("drowning")
	assert.Error(t, err)
	e, ok := combat.CauseProjectile.Enchantment()
	assert.True(t, ok)
	assert.Equal(t, attribute.ProjectileProtection, e)
}

func TestHealthController_RejectsNaN(t *testing.T) {
	h := combat.NewHealthController(4)
	p := profile.New("bob", profile.KindMob, 10)
	p.Health.Current = 4
	assert.Equal(t, 0.0, h.Heal(p, math.NaN()))
	assert.Equal(t, 4.0, p.Health.Current)

	remaining, reqs := h.Commit(p, math.NaN())
	assert.Equal(t, 4.0, remaining)
	assert.Empty(t, reqs)
}
