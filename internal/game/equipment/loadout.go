// Package equipment turns the items an entity wears into attribute, enchantment
// and ability contributions, one per slot.
package equipment

import (
	"github.com/cory-johannsen/rpgcombat/internal/game/attribute"
	"github.com/cory-johannsen/rpgcombat/internal/game/item"
)

// Contribution is everything one occupied slot adds to its wearer.
type Contribution struct {
	Slot         item.Slot
	ItemID       string
	Attributes   map[attribute.ID]float64
	Enchantments map[attribute.Enchantment]int
	Passives     []item.AbilityEntry
	Actives      []item.AbilityEntry
}

// Loadout records what occupies each slot of one entity and what it contributes.
//
// Invariant: at most one Contribution per slot.
type Loadout struct {
	items         map[item.Slot]string
	contributions map[item.Slot]*Contribution
}

// NewLoadout returns an empty Loadout.
func NewLoadout() *Loadout {
	return &Loadout{
		items:         make(map[item.Slot]string),
		contributions: make(map[item.Slot]*Contribution),
	}
}

// Item returns the id of the item in slot.
func (l *Loadout) Item(slot item.Slot) (string, bool) {
	id, ok := l.items[slot]
	return id, ok
}

// Contribution returns the contribution of slot.
func (l *Loadout) Contribution(slot item.Slot) (*Contribution, bool) {
	c, ok := l.contributions[slot]
	return c, ok
}

// Sum returns the total of id across every slot contribution.
func (l *Loadout) Sum(id attribute.ID) float64 {
	var sum float64
	for _, c := range l.contributions {
		sum += c.Attributes[id]
	}
	return sum
}

// WornArmor returns the occupied armor slots in canonical order.
func (l *Loadout) WornArmor() []item.Slot {
	var out []item.Slot
	for _, s := range item.ArmorSlots() {
		if _, ok := l.items[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Items returns slot → item id for every occupied slot.
func (l *Loadout) Items() map[item.Slot]string {
	out := make(map[item.Slot]string, len(l.items))
	for s, id := range l.items {
		out[s] = id
	}
	return out
}
