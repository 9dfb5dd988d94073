// Package attribute defines the numeric combat stats aggregated from equipment and
// buffs, and the per-entity aggregators that hold their totals.
package attribute

import (
	"fmt"
	"sort"
)

// ID identifies a combat attribute.
type ID string

const (
	CriticalChance ID = "critical_chance"
	CriticalDamage ID = "critical_damage"
	DodgeChance    ID = "dodge_chance"
	Accuracy       ID = "accuracy"
	CounterChance  ID = "counter_chance"
	Feint          ID = "feint"
	Toughness      ID = "toughness"
	Armor          ID = "armor"
	Resistance     ID = "resistance"
	AttackDamage   ID = "attack_damage"
	AttackSpeed    ID = "attack_speed"
	MaxHealth      ID = "max_health"
)

var knownIDs = map[ID]struct{}{
	CriticalChance: {},
	CriticalDamage: {},
	DodgeChance:    {},
	Accuracy:       {},
	CounterChance:  {},
	Feint:          {},
	Toughness:      {},
	Armor:          {},
	Resistance:     {},
	AttackDamage:   {},
	AttackSpeed:    {},
	MaxHealth:      {},
}

// Parse returns the ID named by s.
//
// Postcondition: Returns an error if s is not a known attribute.
func Parse(s string) (ID, error) {
	id := ID(s)
	if _, ok := knownIDs[id]; !ok {
		return "", fmt.Errorf("unknown attribute %q", s)
	}
	return id, nil
}

// All returns every known attribute ID in lexical order.
func All() []ID {
	out := make([]ID, 0, len(knownIDs))
	for id := range knownIDs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Enchantment identifies an item enchantment whose levels are aggregated per entity.
type Enchantment string

const (
	Protection           Enchantment = "protection"
	FireProtection       Enchantment = "fire_protection"
	BlastProtection      Enchantment = "blast_protection"
	ProjectileProtection Enchantment = "projectile_protection"
	FeatherFalling       Enchantment = "feather_falling"
)
