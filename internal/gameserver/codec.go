package gameserver

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/rpgcombat/internal/game/attribute"
	"github.com/cory-johannsen/rpgcombat/internal/game/combat"
	"github.com/cory-johannsen/rpgcombat/internal/game/engine"
	"github.com/cory-johannsen/rpgcombat/internal/game/equipment"
	"github.com/cory-johannsen/rpgcombat/internal/game/item"
	"github.com/cory-johannsen/rpgcombat/internal/game/profile"
)

// fields reads typed values out of a request Struct, remembering the first
// problem so handlers can check once.
type fields struct {
	s   *structpb.Struct
	err error
}

func readFields(s *structpb.Struct) *fields {
	if s == nil {
		s = &structpb.Struct{}
	}
	return &fields{s: s}
}

func (f *fields) fail(format string, args ...any) {
	if f.err == nil {
		f.err = fmt.Errorf(format, args...)
	}
}

func (f *fields) value(key string) (*structpb.Value, bool) {
	v, ok := f.s.GetFields()[key]
	if !ok {
		return nil, false
	}
	if _, null := v.GetKind().(*structpb.Value_NullValue); null {
		return nil, false
	}
	return v, true
}

func (f *fields) str(key string, required bool) string {
	v, ok := f.value(key)
	if !ok {
		if required {
			f.fail("%s is required", key)
		}
		return ""
	}
	s, isStr := v.GetKind().(*structpb.Value_StringValue)
	if !isStr {
		f.fail("%s must be a string", key)
		return ""
	}
	if required && s.StringValue == "" {
		f.fail("%s must not be empty", key)
	}
	return s.StringValue
}

func (f *fields) num(key string, required bool) float64 {
	v, ok := f.value(key)
	if !ok {
		if required {
			f.fail("%s is required", key)
		}
		return 0
	}
	n, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum || math.IsNaN(n.NumberValue) || math.IsInf(n.NumberValue, 0) {
		f.fail("%s must be a finite number", key)
		return 0
	}
	return n.NumberValue
}

func (f *fields) integer(key string, required bool) int {
	n := f.num(key, required)
	if n != math.Trunc(n) {
		f.fail("%s must be an integer", key)
	}
	return int(n)
}

func (f *fields) object(key string) *structpb.Struct {
	v, ok := f.value(key)
	if !ok {
		return nil
	}
	s, isObj := v.GetKind().(*structpb.Value_StructValue)
	if !isObj {
		f.fail("%s must be an object", key)
		return nil
	}
	return s.StructValue
}

func (f *fields) slot(key string) item.Slot {
	raw := f.str(key, true)
	if raw == "" {
		return ""
	}
	s, err := item.ParseSlot(raw)
	if err != nil {
		f.fail("%s: %v", key, err)
	}
	return s
}

// decodeItem builds a descriptor from {id, name, enchantments, tags}.
func decodeItem(s *structpb.Struct) (*item.Descriptor, error) {
	f := readFields(s)
	d := item.New(f.str("id", true), f.str("name", false))
	if ench := f.object("enchantments"); ench != nil {
		ef := readFields(ench)
		for name := range ench.GetFields() {
			level := ef.integer(name, true)
			if level < 0 {
				ef.fail("enchantment %s must be >= 0", name)
			}
			d.Enchantments[attribute.Enchantment(name)] = level
		}
		if ef.err != nil {
			f.fail("enchantments: %v", ef.err)
		}
	}
	if tags := f.object("tags"); tags != nil {
		tf := readFields(tags)
		for key := range tags.GetFields() {
			d.Tags[key] = tf.str(key, false)
		}
		if tf.err != nil {
			f.fail("tags: %v", tf.err)
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return d, nil
}

func healthValue(h profile.Health) map[string]any {
	return map[string]any{
		"current":  h.Current,
		"max":      h.Max,
		"base_max": h.BaseMax,
	}
}

func snapshotValue(s profile.HealthSnapshot) map[string]any {
	return map[string]any{
		"entity":   s.EntityID,
		"kind":     s.Kind.String(),
		"current":  s.Current,
		"max":      s.Max,
		"base_max": s.BaseMax,
	}
}

func resultValue(res combat.Result) map[string]any {
	out := map[string]any{
		"event_id":        res.EventID,
		"outcome":         res.Outcome.String(),
		"final":           res.Final,
		"critical":        res.Critical,
		"defender_health": res.DefenderHealth,
		"cosmetics":       stringList(res.Cosmetics),
	}
	if res.Counter != nil {
		out["counter"] = map[string]any{
			"damage":          res.Counter.Damage,
			"attacker_health": res.Counter.AttackerHealth,
			"attacker_killed": res.Counter.AttackerKilled,
		}
	}
	durability := make([]any, 0, len(res.Durability))
	for _, d := range res.Durability {
		durability = append(durability, map[string]any{
			"entity": d.Entity,
			"slot":   string(d.Slot),
			"amount": float64(d.Amount),
		})
	}
	out["durability"] = durability
	return out
}

func contributionValue(c *equipment.Contribution) any {
	if c == nil {
		return nil
	}
	attrs := make(map[string]any, len(c.Attributes))
	for id, v := range c.Attributes {
		attrs[string(id)] = v
	}
	ench := make(map[string]any, len(c.Enchantments))
	for e, lvl := range c.Enchantments {
		ench[string(e)] = float64(lvl)
	}
	return map[string]any{
		"slot":         string(c.Slot),
		"item_id":      c.ItemID,
		"attributes":   attrs,
		"enchantments": ench,
		"passives":     float64(len(c.Passives)),
		"actives":      float64(len(c.Actives)),
	}
}

func changeValue(ch equipment.Change) map[string]any {
	return map[string]any{
		"removed":            contributionValue(ch.Removed),
		"added":              contributionValue(ch.Added),
		"max_health_changed": ch.MaxHealthChanged,
	}
}

func viewValue(v engine.View, events []Event) map[string]any {
	attrs := make(map[string]any, len(v.Attributes))
	for id, val := range v.Attributes {
		attrs[string(id)] = val
	}
	ench := make(map[string]any, len(v.Enchantments))
	for e, lvl := range v.Enchantments {
		ench[string(e)] = float64(lvl)
	}
	statuses := make(map[string]any, len(v.Statuses))
	for t, n := range v.Statuses {
		statuses[t.String()] = float64(n)
	}
	cooldowns := make(map[string]any, len(v.Cooldowns))
	for k, n := range v.Cooldowns {
		cooldowns[k] = float64(n)
	}
	items := make(map[string]any, len(v.Items))
	for slot, id := range v.Items {
		items[string(slot)] = id
	}
	feed := make([]any, 0, len(events))
	for _, e := range events {
		feed = append(feed, map[string]any{"kind": e.Kind, "detail": e.Detail})
	}
	return map[string]any{
		"entity":          v.ID,
		"kind":            v.Kind.String(),
		"health":          healthValue(v.Health),
		"attributes":      attrs,
		"enchantments":    ench,
		"statuses":        statuses,
		"cooldowns":       cooldowns,
		"items":           items,
		"fall_protection": v.FallProtection,
		"fire_protection": v.FireProtection,
		"events":          feed,
	}
}

func stringList(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
