package equipment

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/rpgcombat/internal/game/ability"
	"github.com/cory-johannsen/rpgcombat/internal/game/attribute"
	"github.com/cory-johannsen/rpgcombat/internal/game/item"
)

// Wearer is the profile state a Tracker maintains.
type Wearer interface {
	EntityID() string
	Loadout() *Loadout
	Attributes() *attribute.Aggregator
	Enchantments() *attribute.Levels
}

// AbilityBinder attaches slot abilities to their wearer.
type AbilityBinder interface {
	Bind(entity string, slot item.Slot, passives, actives []item.AbilityEntry) []*ability.Binding
	Unbind(entity string, slot item.Slot) int
}

// Thresholds are the enchantment levels at which protection memberships apply.
type Thresholds struct {
	FallProtection int `mapstructure:"fall_protection"`
	FireProtection int `mapstructure:"fire_protection"`
}

// Change describes the outcome of one slot change.
type Change struct {
	Removed *Contribution
	Added   *Contribution
	// MaxHealthChanged is true when either contribution touched max_health.
	MaxHealthChanged bool
}

// Tracker applies slot changes to wearers and maintains the fall and fire
// protection membership sets. It is not safe for concurrent use.
type Tracker struct {
	binder     AbilityBinder
	thresholds Thresholds
	logger     *zap.Logger
	fall       map[string]struct{}
	fire       map[string]struct{}
}

// NewTracker creates a Tracker.
//
// Precondition: binder and logger must be non-nil.
func NewTracker(binder AbilityBinder, thresholds Thresholds, logger *zap.Logger) *Tracker {
	return &Tracker{
		binder:     binder,
		thresholds: thresholds,
		logger:     logger,
		fall:       make(map[string]struct{}),
		fire:       make(map[string]struct{}),
	}
}

// OnSlotChanged removes slot's previous contribution from w, then adds the
// contribution of d if d carries combat data for slot. A nil d empties the slot.
//
// Postcondition: calling twice with the same d leaves w exactly as calling once.
func (t *Tracker) OnSlotChanged(w Wearer, slot item.Slot, d *item.Descriptor) Change {
	entity := w.EntityID()
	lo := w.Loadout()
	var ch Change
	if prev, ok := lo.contributions[slot]; ok {
		for id, v := range prev.Attributes {
			w.Attributes().Remove(id, v)
		}
		for e, lvl := range prev.Enchantments {
			w.Enchantments().Remove(e, lvl)
		}
		delete(lo.contributions, slot)
		ch.Removed = prev
	}
	t.binder.Unbind(entity, slot)

	if d == nil {
		delete(lo.items, slot)
	} else {
		lo.items[slot] = d.ID
	}
	if d.HasCombatData(slot) {
		c := t.contribution(entity, slot, d)
		for id, v := range c.Attributes {
			w.Attributes().Add(id, v)
		}
		for e, lvl := range c.Enchantments {
			w.Enchantments().Add(e, lvl)
		}
		if len(c.Passives)+len(c.Actives) > 0 {
			t.binder.Bind(entity, slot, c.Passives, c.Actives)
		}
		lo.contributions[slot] = c
		ch.Added = c
	}
	t.evaluate(entity, w.Enchantments())

	for _, c := range []*Contribution{ch.Removed, ch.Added} {
		if c != nil {
			if _, ok := c.Attributes[attribute.MaxHealth]; ok {
				ch.MaxHealthChanged = true
			}
		}
	}
	return ch
}

func (t *Tracker) contribution(entity string, slot item.Slot, d *item.Descriptor) *Contribution {
	c := &Contribution{
		Slot:         slot,
		ItemID:       d.ID,
		Attributes:   make(map[attribute.ID]float64),
		Enchantments: make(map[attribute.Enchantment]int),
	}
	attrs, errs := d.Attributes(slot)
	for _, a := range attrs {
		c.Attributes[a.Attribute] += a.Value
	}
	passives, perrs := d.Passives(slot)
	actives, aerrs := d.Actives(slot)
	errs = append(append(errs, perrs...), aerrs...)
	for _, err := range errs {
		t.logger.Warn("skipping malformed item data",
			zap.String("entity", entity),
			zap.String("slot", string(slot)),
			zap.String("item", d.ID),
			zap.Error(err),
		)
	}
	c.Passives = passives
	c.Actives = actives
	if slot.IsArmor() {
		for e, lvl := range d.Enchantments {
			if lvl > 0 {
				c.Enchantments[e] = lvl
			}
		}
	}
	return c
}

func (t *Tracker) evaluate(entity string, levels *attribute.Levels) {
	toggle(t.fall, entity, meets(levels.Get(attribute.FeatherFalling), t.thresholds.FallProtection))
	toggle(t.fire, entity, meets(levels.Get(attribute.FireProtection), t.thresholds.FireProtection))
}

// meets reports whether level reaches threshold. A non-positive threshold disables the membership.
func meets(level, threshold int) bool {
	return threshold > 0 && level >= threshold
}

func toggle(set map[string]struct{}, entity string, member bool) {
	if member {
		set[entity] = struct{}{}
	} else {
		delete(set, entity)
	}
}

// HasFallProtection reports whether entity's feather falling level meets the threshold.
func (t *Tracker) HasFallProtection(entity string) bool {
	_, ok := t.fall[entity]
	return ok
}

// HasFireProtection reports whether entity's fire protection level meets the threshold.
func (t *Tracker) HasFireProtection(entity string) bool {
	_, ok := t.fire[entity]
	return ok
}

// Forget drops entity from every membership set.
func (t *Tracker) Forget(entity string) {
	delete(t.fall, entity)
	delete(t.fire, entity)
}
