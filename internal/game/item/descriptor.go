// Package item reads and writes the tag payload that equipment carries: per-slot
// attribute values and bound passive/active abilities. Every individual key is
// mirrored in a space-separated list key, and both are kept in sync on write.
package item

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/cory-johannsen/rpgcombat/internal/game/attribute"
)

const (
	attributePrefix = "attribute"
	passivePrefix   = "passive"
	activePrefix    = "active"

	// AttributeList, PassiveList and ActiveList hold the set of individual keys present.
	AttributeList = "attribute.list"
	PassiveList   = "passive.list"
	ActiveList    = "active.list"
)

// Descriptor is an item as seen by the combat engine.
type Descriptor struct {
	ID           string
	Name         string
	Enchantments map[attribute.Enchantment]int
	Tags         map[string]string
}

// New returns an empty Descriptor with initialised maps.
func New(id, name string) *Descriptor {
	return &Descriptor{
		ID:           id,
		Name:         name,
		Enchantments: make(map[attribute.Enchantment]int),
		Tags:         make(map[string]string),
	}
}

// AttributeEntry is one decoded attribute value.
type AttributeEntry struct {
	Slot      Slot
	Attribute attribute.ID
	Value     float64
}

// AbilityEntry is one decoded ability binding. Trigger is empty for actives.
type AbilityEntry struct {
	Slot    Slot
	Trigger string
	Ability string
	Params  string
}

// AttributeKey returns the individual tag key for an attribute value.
func AttributeKey(slot Slot, id attribute.ID) string {
	return attributePrefix + "." + string(slot) + "." + string(id)
}

// PassiveKey returns the individual tag key for a passive ability binding.
func PassiveKey(slot Slot, trigger, ability string) string {
	return passivePrefix + "." + string(slot) + "." + trigger + "." + ability
}

// ActiveKey returns the individual tag key for an active ability binding.
func ActiveKey(slot Slot, ability string) string {
	return activePrefix + "." + string(slot) + "." + ability
}

// SetAttribute writes value for id in slot and records the key in AttributeList.
func (d *Descriptor) SetAttribute(slot Slot, id attribute.ID, value float64) {
	d.set(AttributeList, AttributeKey(slot, id), strconv.FormatFloat(value, 'f', -1, 64))
}

// RemoveAttribute deletes the attribute value and its list entry.
func (d *Descriptor) RemoveAttribute(slot Slot, id attribute.ID) {
	d.remove(AttributeList, AttributeKey(slot, id))
}

// SetPassive binds ability to slot under trigger with the raw parameter string.
//
// Precondition: trigger and ability contain neither '.' nor whitespace.
func (d *Descriptor) SetPassive(slot Slot, trigger, ability, params string) {
	d.set(PassiveList, PassiveKey(slot, trigger, ability), params)
}

// RemovePassive unbinds a passive ability.
func (d *Descriptor) RemovePassive(slot Slot, trigger, ability string) {
	d.remove(PassiveList, PassiveKey(slot, trigger, ability))
}

// SetActive binds an active ability to slot.
//
// Precondition: ability contains neither '.' nor whitespace.
func (d *Descriptor) SetActive(slot Slot, ability, params string) {
	d.set(ActiveList, ActiveKey(slot, ability), params)
}

// RemoveActive unbinds an active ability.
func (d *Descriptor) RemoveActive(slot Slot, ability string) {
	d.remove(ActiveList, ActiveKey(slot, ability))
}

func (d *Descriptor) set(listKey, key, value string) {
	if d.Tags == nil {
		d.Tags = make(map[string]string)
	}
	d.Tags[key] = value
	keys := d.listed(listKey)
	for _, k := range keys {
		if k == key {
			return
		}
	}
	d.Tags[listKey] = strings.Join(append(keys, key), " ")
}

func (d *Descriptor) remove(listKey, key string) {
	delete(d.Tags, key)
	keys := d.listed(listKey)
	kept := keys[:0]
	for _, k := range keys {
		if k != key {
			kept = append(kept, k)
		}
	}
	if len(kept) == 0 {
		delete(d.Tags, listKey)
		return
	}
	d.Tags[listKey] = strings.Join(kept, " ")
}

func (d *Descriptor) listed(listKey string) []string {
	return strings.Fields(d.Tags[listKey])
}

// Attributes decodes every attribute value listed for slot. Entries that are
// missing, malformed, non-finite, negative, or name an unknown attribute are skipped and
// reported in the returned errors; the remaining entries are still returned.
func (d *Descriptor) Attributes(slot Slot) ([]AttributeEntry, []error) {
	var out []AttributeEntry
	var errs []error
	for _, key := range d.listed(AttributeList) {
		parts := strings.Split(key, ".")
		if len(parts) != 3 || parts[0] != attributePrefix {
			errs = append(errs, fmt.Errorf("item %q: malformed attribute key %q", d.ID, key))
			continue
		}
		if parts[1] != string(slot) {
			continue
		}
		id, err := attribute.Parse(parts[2])
		if err != nil {
			errs = append(errs, fmt.Errorf("item %q key %q: %w", d.ID, key, err))
			continue
		}
		raw, ok := d.Tags[key]
		if !ok {
			errs = append(errs, fmt.Errorf("item %q: listed key %q has no value", d.ID, key))
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("item %q key %q: parsing %q: %w", d.ID, key, raw, err))
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("item %q key %q: non-finite value %q", d.ID, key, raw))
			continue
		}
		if v < 0 {
			errs = append(errs, fmt.Errorf("item %q key %q: negative value %g", d.ID, key, v))
			continue
		}
		out = append(out, AttributeEntry{Slot: slot, Attribute: id, Value: v})
	}
	return out, errs
}

// Passives decodes every passive ability bound to slot.
func (d *Descriptor) Passives(slot Slot) ([]AbilityEntry, []error) {
	return d.abilities(PassiveList, passivePrefix, 4, slot)
}

// Actives decodes every active ability bound to slot.
func (d *Descriptor) Actives(slot Slot) ([]AbilityEntry, []error) {
	return d.abilities(ActiveList, activePrefix, 3, slot)
}

func (d *Descriptor) abilities(listKey, prefix string, nParts int, slot Slot) ([]AbilityEntry, []error) {
	var out []AbilityEntry
	var errs []error
	for _, key := range d.listed(listKey) {
		parts := strings.Split(key, ".")
		if len(parts) != nParts || parts[0] != prefix {
			errs = append(errs, fmt.Errorf("item %q: malformed %s key %q", d.ID, prefix, key))
			continue
		}
		if parts[1] != string(slot) {
			continue
		}
		raw, ok := d.Tags[key]
		if !ok {
			errs = append(errs, fmt.Errorf("item %q: listed key %q has no value", d.ID, key))
			continue
		}
		e := AbilityEntry{Slot: slot, Ability: parts[nParts-1], Params: raw}
		if nParts == 4 {
			e.Trigger = parts[2]
		}
		out = append(out, e)
	}
	return out, errs
}

// HasCombatData reports whether the item carries anything the engine reads for slot.
// Enchantments only count when the item is worn in an armor slot.
func (d *Descriptor) HasCombatData(slot Slot) bool {
	if d == nil {
		return false
	}
	if slot.IsArmor() && len(d.Enchantments) > 0 {
		return true
	}
	for _, listKey := range []string{AttributeList, PassiveList, ActiveList} {
		for _, key := range d.listed(listKey) {
			parts := strings.Split(key, ".")
			if len(parts) >= 2 && parts[1] == string(slot) {
				return true
			}
		}
	}
	return false
}

// Validate reports drift between list keys and individual keys: listed keys with
// no value, and individual keys missing from their list.
func (d *Descriptor) Validate() []error {
	var errs []error
	lists := map[string]string{
		attributePrefix: AttributeList,
		passivePrefix:   PassiveList,
		activePrefix:    ActiveList,
	}
	listed := make(map[string]struct{})
	for _, listKey := range lists {
		for _, key := range d.listed(listKey) {
			listed[key] = struct{}{}
			if _, ok := d.Tags[key]; !ok {
				errs = append(errs, fmt.Errorf("item %q: %s lists %q but the key is absent", d.ID, listKey, key))
			}
		}
	}
	keys := make([]string, 0, len(d.Tags))
	for k := range d.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		prefix, _, ok := strings.Cut(key, ".")
		listKey, tracked := lists[prefix]
		if !ok || !tracked || key == listKey {
			continue
		}
		if _, ok := listed[key]; !ok {
			errs = append(errs, fmt.Errorf("item %q: key %q missing from %s", d.ID, key, listKey))
		}
	}
	return errs
}
