package ability

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/rpgcombat/internal/game/dice"
	"github.com/cory-johannsen/rpgcombat/internal/game/item"
	"github.com/cory-johannsen/rpgcombat/internal/game/status"
	"github.com/cory-johannsen/rpgcombat/internal/game/tick"
)

type cooldownKey struct {
	entity  string
	slot    item.Slot
	ability string
}

type cooldown struct {
	until  tick.Tick
	handle tick.Handle
}

type projection struct {
	id     uuid.UUID
	origin Location
	handle tick.Handle
}

// Engine owns ability bindings, cooldown state and pending projections for every
// entity. All timers are registered on the shared Scheduler with the owning
// entity as timer owner. It is not safe for concurrent use.
type Engine struct {
	catalog  *Catalog
	sched    *tick.Scheduler
	roller   *dice.Roller
	world    World
	notifier Notifier
	effects  Effects
	logger   *zap.Logger

	bindings    map[string]map[item.Slot][]*Binding
	cooldowns   map[cooldownKey]cooldown
	projections map[string]*projection
}

// NewEngine creates an Engine.
//
// Precondition: every argument must be non-nil.
func NewEngine(catalog *Catalog, sched *tick.Scheduler, roller *dice.Roller, world World,
	notifier Notifier, effects Effects, logger *zap.Logger) *Engine {
	return &Engine{
		catalog:     catalog,
		sched:       sched,
		roller:      roller,
		world:       world,
		notifier:    notifier,
		effects:     effects,
		logger:      logger,
		bindings:    make(map[string]map[item.Slot][]*Binding),
		cooldowns:   make(map[cooldownKey]cooldown),
		projections: make(map[string]*projection),
	}
}

// Bind replaces the abilities bound to entity's slot with the given entries.
// Entries naming unknown abilities or carrying malformed parameters are kept as
// inert bindings and reported through the Notifier.
func (e *Engine) Bind(entity string, slot item.Slot, passives, actives []item.AbilityEntry) []*Binding {
	e.Unbind(entity, slot)
	var bs []*Binding
	for _, p := range passives {
		bs = append(bs, e.newBinding(entity, slot, Passive, p))
	}
	for _, a := range actives {
		bs = append(bs, e.newBinding(entity, slot, Active, a))
	}
	if len(bs) == 0 {
		return nil
	}
	bySlot, ok := e.bindings[entity]
	if !ok {
		bySlot = make(map[item.Slot][]*Binding)
		e.bindings[entity] = bySlot
	}
	bySlot[slot] = bs
	return bs
}

func (e *Engine) newBinding(entity string, slot item.Slot, kind Kind, entry item.AbilityEntry) *Binding {
	b := &Binding{Entity: entity, Slot: slot, Raw: entry.Params}
	def, ok := e.catalog.Get(entry.Ability)
	switch {
	case !ok:
		b.Def = &Definition{ID: entry.Ability, Kind: kind}
		b.Err = fmt.Errorf("ability %q: %w", entry.Ability, ErrUnknownAbility)
	case def.Kind != kind:
		b.Def = def
		b.Err = fmt.Errorf("ability %q is %s but bound as %s: %w", def.ID, def.Kind, kind, ErrMalformedParameter)
	default:
		b.Def = def
		if kind == Passive {
			tr, err := ParseTrigger(entry.Trigger)
			if err != nil {
				b.Err = fmt.Errorf("ability %q: %v: %w", def.ID, err, ErrMalformedParameter)
			}
			b.Trigger = tr
		}
		if b.Err == nil {
			b.Params, b.Err = ParseParams(def, entry.Params)
		}
	}
	if b.Err != nil {
		e.logger.Warn("inert ability binding",
			zap.String("entity", entity),
			zap.String("slot", string(slot)),
			zap.String("ability", entry.Ability),
			zap.Error(b.Err),
		)
		e.notifier.Notify(entity, fmt.Sprintf("%s ability %s is disabled: %v", slot, entry.Ability, b.Err))
	}
	return b
}

// Unbind removes the abilities bound through entity's slot and returns how many
// were removed. Cooldowns survive so swapping items cannot reset them.
func (e *Engine) Unbind(entity string, slot item.Slot) int {
	bySlot, ok := e.bindings[entity]
	if !ok {
		return 0
	}
	n := len(bySlot[slot])
	delete(bySlot, slot)
	if len(bySlot) == 0 {
		delete(e.bindings, entity)
	}
	return n
}

// UnbindAll removes every binding owned by entity.
func (e *Engine) UnbindAll(entity string) {
	delete(e.bindings, entity)
}

// Bindings returns entity's bindings in slot order.
func (e *Engine) Bindings(entity string) []*Binding {
	bySlot := e.bindings[entity]
	var out []*Binding
	for _, s := range item.Slots() {
		out = append(out, bySlot[s]...)
	}
	return out
}

// Evaluate runs every passive ability that owner has bound on trigger. target is
// the other party of the triggering event and may be empty.
//
// Postcondition: Returns the number of abilities that fired. An ability on
// cooldown, below its threshold, or inert consumes no randomness.
func (e *Engine) Evaluate(trigger Trigger, owner, target string) int {
	fired := 0
	for _, b := range e.Bindings(owner) {
		if b.Def.Kind != Passive || b.Trigger != trigger || b.Inert() {
			continue
		}
		if _, on := e.Cooldown(owner, b.Slot, b.Def.ID); on {
			continue
		}
		if b.Def.Condition == HealthThresholdChanceAndCooldown {
			ratio, ok := e.effects.HealthRatio(owner)
			if !ok || ratio > b.Params.Threshold/100 {
				continue
			}
		}
		if !e.roller.Chance("ability:"+b.Def.ID, b.Params.Chance) {
			continue
		}
		e.fire(b, owner, target)
		fired++
	}
	return fired
}

// Invoke fires the active ability id bound to owner's slot.
//
// Postcondition: Returns an error wrapping ErrUnknownAbility, ErrMalformedParameter
// or ErrOnCooldown when the ability cannot fire; otherwise the effect has run.
func (e *Engine) Invoke(owner string, slot item.Slot, id, target string) error {
	var b *Binding
	for _, c := range e.bindings[owner][slot] {
		if c.Def.ID == id && c.Def.Kind == Active {
			b = c
			break
		}
	}
	if b == nil {
		return fmt.Errorf("invoking %q on %s of %q: %w", id, slot, owner, ErrUnknownAbility)
	}
	if b.Inert() {
		e.notifier.Notify(owner, fmt.Sprintf("%s ability %s is disabled: %v", slot, id, b.Err))
		return fmt.Errorf("invoking %q: %w", id, b.Err)
	}
	if remaining, on := e.Cooldown(owner, slot, id); on {
		return fmt.Errorf("invoking %q: ready in %d ticks: %w", id, remaining, ErrOnCooldown)
	}
	e.fire(b, owner, target)
	return nil
}

// Cooldown reports the ticks remaining before the ability is Ready again.
func (e *Engine) Cooldown(entity string, slot item.Slot, id string) (int, bool) {
	cd, ok := e.cooldowns[cooldownKey{entity, slot, id}]
	if !ok {
		return 0, false
	}
	return int(cd.until - e.sched.Now()), true
}

// Cooldowns returns the remaining ticks of every ability of entity on cooldown,
// keyed "<slot>.<ability>".
func (e *Engine) Cooldowns(entity string) map[string]int {
	out := make(map[string]int)
	for k, cd := range e.cooldowns {
		if k.entity == entity {
			out[string(k.slot)+"."+k.ability] = int(cd.until - e.sched.Now())
		}
	}
	return out
}

// Projecting reports whether entity has a pending projection return.
func (e *Engine) Projecting(entity string) bool {
	_, ok := e.projections[entity]
	return ok
}

// Forget cancels entity's cooldowns and pending projection.
func (e *Engine) Forget(entity string) {
	for k, cd := range e.cooldowns {
		if k.entity == entity {
			e.sched.Cancel(cd.handle)
			delete(e.cooldowns, k)
		}
	}
	if pr, ok := e.projections[entity]; ok {
		e.sched.Cancel(pr.handle)
		delete(e.projections, entity)
	}
}

func (e *Engine) fire(b *Binding, owner, target string) {
	if b.Params.Cooldown > 0 {
		key := cooldownKey{owner, b.Slot, b.Def.ID}
		h := e.sched.After(owner, b.Params.Cooldown, func() { delete(e.cooldowns, key) })
		until, _ := e.sched.Due(h)
		e.cooldowns[key] = cooldown{until: until, handle: h}
	}
	e.logger.Debug("ability fired",
		zap.String("ability", b.Def.ID),
		zap.String("effect", b.Def.Effect.String()),
		zap.String("owner", owner),
		zap.String("target", target),
	)
	e.world.Cosmetic(owner, "ability."+b.Def.ID)
	e.execute(b, owner, target)
}

func subject(p Params, owner, target string) (string, bool) {
	if p.Self {
		return owner, true
	}
	return target, target != ""
}

func (e *Engine) execute(b *Binding, owner, target string) {
	p := b.Params
	switch b.Def.Effect {
	case StackInstance:
		if who, ok := subject(p, owner, target); ok {
			if err := e.effects.AddStatus(who, b.Def.Status, p.Stacks, p.Duration); err != nil {
				e.logger.Warn("stack instance failed", zap.String("ability", b.Def.ID), zap.Error(err))
			}
		}
	case ChainDamage:
		e.chain(owner, target, p)
	case PotionEffect:
		if who, ok := subject(p, owner, target); ok {
			e.world.ApplyPotion(who, b.Def.Potion, p.Amplifier, p.Duration)
		}
	case Movement:
		if who, ok := subject(p, owner, target); ok {
			e.world.Launch(who, p.Velocity)
		}
	case Teleport:
		e.world.Teleport(owner, p.Distance)
	case Projection:
		e.project(owner, p.Duration)
	case DistanceDamage:
		for _, victim := range e.world.Nearby(owner, p.Radius) {
			if victim != owner {
				e.effects.Damage(owner, victim, p.Damage)
			}
		}
	case ClearStatus:
		if who, ok := subject(p, owner, target); ok {
			if b.Def.Status == 0 {
				e.effects.ClearAllStatuses(who)
			} else {
				e.effects.ClearStatus(who, b.Def.Status)
			}
		}
	}
}

// chain damages target then hops to Soaked entities near the previous victim.
// Hop n deals damage × (1 − decay%)^n; no entity is hit twice.
func (e *Engine) chain(owner, target string, p Params) {
	if target == "" {
		return
	}
	hit := map[string]struct{}{owner: {}, target: {}}
	e.effects.Damage(owner, target, p.Damage)
	prev := target
	for hop := 1; hop <= p.Hops; hop++ {
		next := ""
		for _, c := range e.world.Nearby(prev, p.Radius) {
			if _, seen := hit[c]; seen {
				continue
			}
			if e.effects.HasStatus(c, status.Soaked) {
				next = c
				break
			}
		}
		if next == "" {
			return
		}
		hit[next] = struct{}{}
		e.effects.Damage(owner, next, p.Damage*math.Pow(1-p.Decay/100, float64(hop)))
		prev = next
	}
}

// project remembers owner's location and returns it there after duration ticks.
// A second projection while one is pending keeps the first origin.
func (e *Engine) project(owner string, duration int) {
	origin, ok := e.world.Location(owner)
	if !ok {
		return
	}
	if prev, ok := e.projections[owner]; ok {
		e.sched.Cancel(prev.handle)
		origin = prev.origin
	}
	pr := &projection{id: uuid.New(), origin: origin}
	pr.handle = e.sched.After(owner, duration, func() {
		delete(e.projections, owner)
		e.logger.Debug("projection returned", zap.String("owner", owner), zap.Stringer("projection", pr.id))
		e.world.MoveTo(owner, pr.origin)
	})
	e.projections[owner] = pr
}
