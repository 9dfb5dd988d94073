// Package engine composes the combat subsystems into one Context that owns every
// profile, registry and timer, and exposes the host-facing combat operations.
//
// A Context is owned by a single goroutine (the tick loop). None of its methods
// lock; every call must be made from that goroutine.
package engine

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/rpgcombat/internal/game/ability"
	"github.com/cory-johannsen/rpgcombat/internal/game/attribute"
	"github.com/cory-johannsen/rpgcombat/internal/game/buff"
	"github.com/cory-johannsen/rpgcombat/internal/game/combat"
	"github.com/cory-johannsen/rpgcombat/internal/game/dice"
	"github.com/cory-johannsen/rpgcombat/internal/game/equipment"
	"github.com/cory-johannsen/rpgcombat/internal/game/item"
	"github.com/cory-johannsen/rpgcombat/internal/game/profile"
	"github.com/cory-johannsen/rpgcombat/internal/game/status"
	"github.com/cory-johannsen/rpgcombat/internal/game/tick"
)

var (
	// ErrUnmanaged is returned by operations that need a profile the entity lacks.
	ErrUnmanaged = errors.New("entity has no combat profile")
	// ErrNotAlive is returned when a dead entity tries to act.
	ErrNotAlive = errors.New("entity is not alive")
)

// Config carries the tunables a Context is built with.
type Config struct {
	Tuning     combat.Tuning
	Thresholds equipment.Thresholds
	// DefaultMaxHealth is the base max health of profiles created implicitly by
	// a slot change.
	DefaultMaxHealth float64
}

// Hooks receives scripting callbacks. Implementations must not call back into
// the Context synchronously except through its public operations.
type Hooks interface {
	OnHit(ev combat.DamageEvent, res combat.Result)
	OnKill(killed, killer string)
}

// Context owns all combat state for a game world.
type Context struct {
	sched     *tick.Scheduler
	profiles  *profile.Manager
	statuses  *status.Registry
	buffs     *buff.Registry
	abilities *ability.Engine
	equipment *equipment.Tracker
	pipeline  *combat.Pipeline
	health    combat.HealthController
	hooks     Hooks
	cfg       Config
	dirty     map[string]struct{}
	logger    *zap.Logger
}

// New builds a Context and all of its subsystems.
//
// Precondition: cfg.Tuning.Validate() == nil; cfg.DefaultMaxHealth > 0; all other
// arguments non-nil.
func New(cfg Config, catalog *ability.Catalog, roller *dice.Roller, world ability.World,
	notifier ability.Notifier, logger *zap.Logger) *Context {
	c := &Context{
		sched:    tick.New(),
		profiles: profile.NewManager(),
		cfg:      cfg,
		dirty:    make(map[string]struct{}),
		logger:   logger,
	}
	c.statuses = status.NewRegistry(c.sched)
	c.buffs = buff.NewRegistry(c.sched, c.applyBuff)
	c.abilities = ability.NewEngine(catalog, c.sched, roller, world, notifier, abilityEffects{c}, logger.Named("ability"))
	c.equipment = equipment.NewTracker(c.abilities, cfg.Thresholds, logger.Named("equipment"))
	c.pipeline = combat.NewPipeline(c.profiles, c.statuses, c.equipment, roller, c, cfg.Tuning, logger.Named("pipeline"))
	c.health = c.pipeline.Health()
	return c
}

// SetHooks installs the scripting hooks. A nil h disables them.
func (c *Context) SetHooks(h Hooks) { c.hooks = h }

// Now returns the current tick.
func (c *Context) Now() tick.Tick { return c.sched.Now() }

// Tick advances the scheduler one tick, running due expiries, then settles.
func (c *Context) Tick() {
	c.sched.Advance()
	c.SettleAll()
}

// Profile returns the profile for id.
func (c *Context) Profile(id string) (*profile.Profile, bool) {
	return c.profiles.Get(id)
}

// Join creates a profile for id if absent and returns it.
//
// Precondition: baseMax > 0.
func (c *Context) Join(id string, kind profile.Kind, baseMax float64) *profile.Profile {
	p, created := c.profiles.GetOrCreate(id, kind, baseMax)
	if created {
		c.logger.Info("entity joined", zap.String("entity", id), zap.Stringer("kind", kind))
	}
	return p
}

// Restore joins s.EntityID and loads its persisted health.
func (c *Context) Restore(s profile.HealthSnapshot) *profile.Profile {
	p := c.Join(s.EntityID, s.Kind, s.BaseMax)
	p.Restore(s)
	c.markDirty(p.ID)
	return p
}

// Leave tears down id and removes its profile, returning its final health.
func (c *Context) Leave(id string) (profile.HealthSnapshot, bool) {
	p, ok := c.profiles.Get(id)
	if !ok {
		c.logger.Debug("leave for unmanaged entity", zap.String("entity", id))
		return profile.HealthSnapshot{}, false
	}
	snap := p.Snapshot()
	c.remove(id)
	c.logger.Info("entity left", zap.String("entity", id))
	return snap, true
}

// Damage resolves ev through the mitigation pipeline.
func (c *Context) Damage(ev combat.DamageEvent) combat.Result {
	return c.pipeline.Resolve(ev)
}

// Heal adds ev.Amount to the target's health and returns the amount healed.
// Dead entities cannot be healed.
func (c *Context) Heal(ev HealEvent) float64 {
	p, ok := c.profiles.Get(ev.Target)
	if !ok || !p.Alive() {
		return 0
	}
	return c.health.Heal(p, ev.Amount)
}

// SlotChanged applies a slot change, creating a player profile for the entity
// when none exists.
func (c *Context) SlotChanged(ch SlotChange) equipment.Change {
	p := c.Join(ch.Entity, profile.KindPlayer, c.cfg.DefaultMaxHealth)
	out := c.equipment.OnSlotChanged(p, ch.Slot, ch.Item)
	if out.MaxHealthChanged {
		c.markDirty(p.ID)
	}
	return out
}

// Kill processes a death: the killer's kill triggers run first, then every
// status, buff, cooldown, projection and timer of the killed entity is
// cancelled. Mobs are removed; players stay at 0 health until Respawn.
func (c *Context) Kill(ev KillEvent) {
	if ev.Killer != "" && ev.Killer != ev.Killed {
		c.abilities.Evaluate(ability.Kill, ev.Killer, ev.Killed)
	}
	if c.hooks != nil {
		c.hooks.OnKill(ev.Killed, ev.Killer)
	}
	p, ok := c.profiles.Get(ev.Killed)
	if !ok {
		return
	}
	if !p.IsPlayer() {
		c.remove(p.ID)
		return
	}
	c.teardown(p.ID)
	p.Health.Current = 0
}

// Respawn restores a dead player to full health.
func (c *Context) Respawn(id string) error {
	p, ok := c.profiles.Get(id)
	if !ok {
		return fmt.Errorf("respawning %q: %w", id, ErrUnmanaged)
	}
	c.health.Settle(p)
	p.Health.Current = p.Health.Max
	return nil
}

// Invoke fires the active ability bound to entity's slot.
func (c *Context) Invoke(entity string, slot item.Slot, id, target string) error {
	p, ok := c.profiles.Get(entity)
	if !ok {
		return fmt.Errorf("invoking %q: %w", id, ErrUnmanaged)
	}
	if !p.Alive() {
		return fmt.Errorf("invoking %q for %q: %w", id, entity, ErrNotAlive)
	}
	return c.abilities.Invoke(entity, slot, id, target)
}

// Settle recomputes id's max health from its max_health attribute.
func (c *Context) Settle(id string) bool {
	delete(c.dirty, id)
	p, ok := c.profiles.Get(id)
	if !ok {
		return false
	}
	return c.health.Settle(p)
}

// SettleAll settles every profile whose max_health inputs changed since the
// last settle and returns how many changed max.
func (c *Context) SettleAll() int {
	n := 0
	for id := range c.dirty {
		if c.Settle(id) {
			n++
		}
	}
	return n
}

// AddStatus applies stacks of t to entity for duration ticks.
func (c *Context) AddStatus(entity string, t status.Type, stacks, duration int) error {
	if _, ok := c.profiles.Get(entity); !ok {
		c.logger.Debug("status for unmanaged entity", zap.String("entity", entity), zap.Stringer("status", t))
		return nil
	}
	_, err := c.statuses.Add(entity, t, stacks, duration)
	return err
}

// ClearStatus removes every application of t from entity.
func (c *Context) ClearStatus(entity string, t status.Type) bool {
	return c.statuses.Clear(entity, t)
}

// AddBuff applies magnitude to entity's attribute id for duration ticks.
func (c *Context) AddBuff(entity string, id attribute.ID, magnitude float64, duration int) error {
	if _, ok := c.profiles.Get(entity); !ok {
		c.logger.Debug("buff for unmanaged entity", zap.String("entity", entity), zap.String("attribute", string(id)))
		return nil
	}
	_, err := c.buffs.Add(entity, id, magnitude, duration)
	return err
}

// Attribute returns entity's total for id: equipment plus buffs.
func (c *Context) Attribute(entity string, id attribute.ID) float64 {
	if p, ok := c.profiles.Get(entity); ok {
		return p.Attribute(id)
	}
	return 0
}

// Status returns entity's aggregate stacks of t.
func (c *Context) Status(entity string, t status.Type) int {
	return c.statuses.Aggregate(entity, t)
}

// Cooldown returns the ticks before entity's ability in slot is Ready.
func (c *Context) Cooldown(entity string, slot item.Slot, id string) (int, bool) {
	return c.abilities.Cooldown(entity, slot, id)
}

// BuffTotal returns the summed magnitude of entity's live buffs on id.
func (c *Context) BuffTotal(entity string, id attribute.ID) float64 {
	return c.buffs.Total(entity, id)
}

// HasFallProtection reports entity's fall protection membership.
func (c *Context) HasFallProtection(entity string) bool { return c.equipment.HasFallProtection(entity) }

// HasFireProtection reports entity's fire protection membership.
func (c *Context) HasFireProtection(entity string) bool { return c.equipment.HasFireProtection(entity) }

// Projecting reports whether entity has a projection pending.
func (c *Context) Projecting(entity string) bool { return c.abilities.Projecting(entity) }

// PendingTimers returns how many scheduled timers entity owns.
func (c *Context) PendingTimers(entity string) int { return c.sched.Pending(entity) }

// Entities returns every managed entity id.
func (c *Context) Entities() []string { return c.profiles.IDs() }

func (c *Context) applyBuff(entity string, id attribute.ID, delta float64) {
	p, ok := c.profiles.Get(entity)
	if !ok {
		return
	}
	if delta >= 0 {
		p.Attributes().Add(id, delta)
	} else {
		p.Attributes().Remove(id, -delta)
	}
	if id == attribute.MaxHealth {
		c.markDirty(entity)
	}
}

func (c *Context) markDirty(id string) { c.dirty[id] = struct{}{} }

// teardown cancels every timer-driven piece of state owned by id.
func (c *Context) teardown(id string) {
	c.abilities.Forget(id)
	c.statuses.ClearAll(id)
	c.buffs.ClearAll(id)
	if n := c.sched.CancelOwner(id); n > 0 {
		c.logger.Debug("cancelled stray timers", zap.String("entity", id), zap.Int("count", n))
	}
	c.markDirty(id)
}

func (c *Context) remove(id string) {
	c.teardown(id)
	c.abilities.UnbindAll(id)
	c.equipment.Forget(id)
	c.profiles.Remove(id)
	delete(c.dirty, id)
}
