package engine

import (
	"github.com/cory-johannsen/rpgcombat/internal/game/attribute"
	"github.com/cory-johannsen/rpgcombat/internal/game/item"
	"github.com/cory-johannsen/rpgcombat/internal/game/profile"
	"github.com/cory-johannsen/rpgcombat/internal/game/status"
)

// View is a read-only copy of one entity's combat state.
type View struct {
	ID             string
	Kind           profile.Kind
	Health         profile.Health
	Attributes     map[attribute.ID]float64
	Enchantments   map[attribute.Enchantment]int
	Statuses       map[status.Type]int
	Cooldowns      map[string]int
	Items          map[item.Slot]string
	FallProtection bool
	FireProtection bool
}

// View snapshots id's combat state.
func (c *Context) View(id string) (View, bool) {
	p, ok := c.profiles.Get(id)
	if !ok {
		return View{}, false
	}
	return View{
		ID:             p.ID,
		Kind:           p.Kind,
		Health:         p.Health,
		Attributes:     p.Attributes().Snapshot(),
		Enchantments:   p.Enchantments().Snapshot(),
		Statuses:       c.statuses.Snapshot(id),
		Cooldowns:      c.abilities.Cooldowns(id),
		Items:          p.Loadout().Items(),
		FallProtection: c.equipment.HasFallProtection(id),
		FireProtection: c.equipment.HasFireProtection(id),
	}, true
}
