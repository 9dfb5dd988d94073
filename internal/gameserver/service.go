package gameserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/rpgcombat/internal/game/ability"
	"github.com/cory-johannsen/rpgcombat/internal/game/attribute"
	"github.com/cory-johannsen/rpgcombat/internal/game/buff"
	"github.com/cory-johannsen/rpgcombat/internal/game/combat"
	"github.com/cory-johannsen/rpgcombat/internal/game/engine"
	"github.com/cory-johannsen/rpgcombat/internal/game/equipment"
	"github.com/cory-johannsen/rpgcombat/internal/game/item"
	"github.com/cory-johannsen/rpgcombat/internal/game/profile"
	gstatus "github.com/cory-johannsen/rpgcombat/internal/game/status"
	"github.com/cory-johannsen/rpgcombat/internal/storage/postgres"
)

// HealthStore persists health between sessions. Load returns an error
// matching postgres.ErrHealthNotFound for entities never saved.
type HealthStore interface {
	Load(ctx context.Context, id string) (profile.HealthSnapshot, error)
	Save(ctx context.Context, s profile.HealthSnapshot) error
	SaveAll(ctx context.Context, snaps []profile.HealthSnapshot) error
}

// Service implements CombatServiceServer on top of a tick Loop.
type Service struct {
	loop    *Loop
	world   *HostWorld
	items   *item.Catalog
	store   HealthStore
	timeout time.Duration
	logger  *zap.Logger
}

var _ CombatServiceServer = (*Service)(nil)

// NewService creates a Service. store may be nil, which disables persistence.
//
// Precondition: loop, world, items and logger must be non-nil; timeout > 0.
func NewService(loop *Loop, world *HostWorld, items *item.Catalog, store HealthStore,
	timeout time.Duration, logger *zap.Logger) *Service {
	return &Service{
		loop:    loop,
		world:   world,
		items:   items,
		store:   store,
		timeout: timeout,
		logger:  logger,
	}
}

// Register installs s on srv.
func (s *Service) Register(srv grpc.ServiceRegistrar) {
	RegisterCombatServiceServer(srv, s)
}

func (s *Service) do(ctx context.Context, fn func(*engine.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return toStatus(s.loop.Do(ctx, fn))
}

func reply(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return out, nil
}

func invalid(err error) error {
	return status.Error(codes.InvalidArgument, err.Error())
}

// toStatus maps engine errors onto gRPC status codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, ErrLoopStopped):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, engine.ErrUnmanaged), errors.Is(err, ability.ErrUnknownAbility):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, engine.ErrNotAlive), errors.Is(err, ability.ErrOnCooldown):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ability.ErrMalformedParameter), errors.Is(err, gstatus.ErrInvalidApplication),
		errors.Is(err, buff.ErrInvalidBuff):
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// Join registers an entity, restoring persisted health for players.
func (s *Service) Join(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := readFields(in)
	id := f.str("entity", true)
	kindName := f.str("kind", false)
	maxHealth := f.num("max_health", true)
	loc := f.object("location")
	if f.err == nil && maxHealth <= 0 {
		f.fail("max_health must be > 0")
	}
	kind := profile.KindPlayer
	if kindName != "" {
		var err error
		if kind, err = profile.ParseKind(kindName); err != nil {
			f.fail("kind: %v", err)
		}
	}
	var where *ability.Location
	if loc != nil {
		lf := readFields(loc)
		where = &ability.Location{
			World: lf.str("world", false),
			X:     lf.num("x", false),
			Y:     lf.num("y", false),
			Z:     lf.num("z", false),
		}
		if lf.err != nil {
			f.fail("location: %v", lf.err)
		}
	}
	if f.err != nil {
		return nil, invalid(f.err)
	}

	var saved *profile.HealthSnapshot
	if s.store != nil && kind == profile.KindPlayer {
		snap, err := s.store.Load(ctx, id)
		switch {
		case err == nil:
			saved = &snap
		case errors.Is(err, postgres.ErrHealthNotFound):
		default:
			s.logger.Warn("loading saved health", zap.String("entity", id), zap.Error(err))
		}
	}

	var health profile.Health
	err := s.do(ctx, func(c *engine.Context) error {
		var p *profile.Profile
		if _, exists := c.Profile(id); !exists && saved != nil {
			p = c.Restore(*saved)
		} else {
			p = c.Join(id, kind, maxHealth)
		}
		if where != nil {
			s.world.Place(id, *where)
		}
		health = p.Health
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reply(map[string]any{
		"entity":   id,
		"restored": saved != nil,
		"health":   healthValue(health),
	})
}

// Leave removes an entity and persists its final health.
func (s *Service) Leave(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := readFields(in)
	id := f.str("entity", true)
	if f.err != nil {
		return nil, invalid(f.err)
	}
	var (
		snap profile.HealthSnapshot
		left bool
	)
	err := s.do(ctx, func(c *engine.Context) error {
		snap, left = c.Leave(id)
		s.world.Forget(id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if left && s.store != nil && snap.Kind == profile.KindPlayer {
		if err := s.store.Save(ctx, snap); err != nil {
			return nil, status.Errorf(codes.Internal, "saving health: %v", err)
		}
	}
	out := map[string]any{"left": left}
	if left {
		out["health"] = snapshotValue(snap)
	}
	return reply(out)
}

// Damage resolves a damage event.
func (s *Service) Damage(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := readFields(in)
	ev := combat.DamageEvent{
		ID:       f.str("id", false),
		Amount:   f.num("amount", true),
		Attacker: f.str("attacker", false),
		Defender: f.str("defender", true),
	}
	causeName := f.str("cause", true)
	if f.err == nil {
		cause, err := combat.ParseCause(causeName)
		if err != nil {
			f.fail("cause: %v", err)
		}
		ev.Cause = cause
	}
	if f.err != nil {
		return nil, invalid(f.err)
	}
	var res combat.Result
	if err := s.do(ctx, func(c *engine.Context) error {
		res = c.Damage(ev)
		return nil
	}); err != nil {
		return nil, err
	}
	return reply(resultValue(res))
}

// Heal restores health to a target.
func (s *Service) Heal(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := readFields(in)
	ev := engine.HealEvent{Target: f.str("target", true), Amount: f.num("amount", true)}
	if f.err == nil && ev.Amount < 0 {
		f.fail("amount must be >= 0")
	}
	if f.err != nil {
		return nil, invalid(f.err)
	}
	var healed float64
	if err := s.do(ctx, func(c *engine.Context) error {
		healed = c.Heal(ev)
		return nil
	}); err != nil {
		return nil, err
	}
	return reply(map[string]any{"healed": healed})
}

// ChangeSlot equips a catalog item by item_id, an inline item, or clears the
// slot when neither is given.
func (s *Service) ChangeSlot(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := readFields(in)
	ch := engine.SlotChange{Entity: f.str("entity", true), Slot: f.slot("slot")}
	itemID := f.str("item_id", false)
	inline := f.object("item")
	if f.err != nil {
		return nil, invalid(f.err)
	}
	switch {
	case itemID != "" && inline != nil:
		return nil, status.Error(codes.InvalidArgument, "item_id and item are mutually exclusive")
	case itemID != "":
		d, ok := s.items.Get(itemID)
		if !ok {
			return nil, status.Errorf(codes.NotFound, "unknown item %q", itemID)
		}
		ch.Item = d
	case inline != nil:
		d, err := decodeItem(inline)
		if err != nil {
			return nil, invalid(fmt.Errorf("item: %w", err))
		}
		ch.Item = d
	}
	var out equipment.Change
	if err := s.do(ctx, func(c *engine.Context) error {
		out = c.SlotChanged(ch)
		return nil
	}); err != nil {
		return nil, err
	}
	return reply(changeValue(out))
}

// Kill reports a death.
func (s *Service) Kill(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := readFields(in)
	ev := engine.KillEvent{Killed: f.str("killed", true), Killer: f.str("killer", false)}
	if f.err != nil {
		return nil, invalid(f.err)
	}
	removed := false
	if err := s.do(ctx, func(c *engine.Context) error {
		c.Kill(ev)
		if _, ok := c.Profile(ev.Killed); !ok {
			s.world.Forget(ev.Killed)
			removed = true
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return reply(map[string]any{"removed": removed})
}

// Respawn restores a dead player to full health.
func (s *Service) Respawn(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := readFields(in)
	id := f.str("entity", true)
	if f.err != nil {
		return nil, invalid(f.err)
	}
	var health profile.Health
	if err := s.do(ctx, func(c *engine.Context) error {
		if err := c.Respawn(id); err != nil {
			return err
		}
		p, _ := c.Profile(id)
		health = p.Health
		return nil
	}); err != nil {
		return nil, err
	}
	return reply(map[string]any{"health": healthValue(health)})
}

// Invoke fires an active ability.
func (s *Service) Invoke(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := readFields(in)
	entity := f.str("entity", true)
	slot := f.slot("slot")
	id := f.str("ability", true)
	target := f.str("target", false)
	if f.err != nil {
		return nil, invalid(f.err)
	}
	var cooldown int
	if err := s.do(ctx, func(c *engine.Context) error {
		if err := c.Invoke(entity, slot, id, target); err != nil {
			return err
		}
		cooldown, _ = c.Cooldown(entity, slot, id)
		return nil
	}); err != nil {
		return nil, err
	}
	return reply(map[string]any{"cooldown": float64(cooldown)})
}

// AddStatus applies a status effect.
func (s *Service) AddStatus(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := readFields(in)
	entity := f.str("entity", true)
	name := f.str("status", true)
	stacks := f.integer("stacks", true)
	duration := f.integer("duration", true)
	var t gstatus.Type
	if f.err == nil {
		var err error
		if t, err = gstatus.Parse(name); err != nil {
			f.fail("status: %v", err)
		}
	}
	if f.err != nil {
		return nil, invalid(f.err)
	}
	var aggregate int
	if err := s.do(ctx, func(c *engine.Context) error {
		if err := c.AddStatus(entity, t, stacks, duration); err != nil {
			return err
		}
		aggregate = c.Status(entity, t)
		return nil
	}); err != nil {
		return nil, err
	}
	return reply(map[string]any{"aggregate": float64(aggregate)})
}

// AddBuff applies a timed attribute buff.
func (s *Service) AddBuff(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := readFields(in)
	entity := f.str("entity", true)
	name := f.str("attribute", true)
	magnitude := f.num("magnitude", true)
	duration := f.integer("duration", true)
	var id attribute.ID
	if f.err == nil {
		var err error
		if id, err = attribute.Parse(name); err != nil {
			f.fail("attribute: %v", err)
		}
	}
	if f.err != nil {
		return nil, invalid(f.err)
	}
	var total float64
	if err := s.do(ctx, func(c *engine.Context) error {
		if err := c.AddBuff(entity, id, magnitude, duration); err != nil {
			return err
		}
		total = c.Attribute(entity, id)
		return nil
	}); err != nil {
		return nil, err
	}
	return reply(map[string]any{"total": total})
}

// Profile returns an entity's combat state and drains its world events.
func (s *Service) Profile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := readFields(in)
	id := f.str("entity", true)
	if f.err != nil {
		return nil, invalid(f.err)
	}
	var out map[string]any
	if err := s.do(ctx, func(c *engine.Context) error {
		v, ok := c.View(id)
		if !ok {
			return fmt.Errorf("profile %q: %w", id, engine.ErrUnmanaged)
		}
		out = viewValue(v, s.world.Drain(id))
		return nil
	}); err != nil {
		return nil, err
	}
	return reply(out)
}

// Flush persists the health of every player still present in one write.
// It is called on shutdown while the loop is still running.
//
// Postcondition: Returns the number of snapshots saved; zero when persistence
// is disabled or the write fails.
func (s *Service) Flush(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, nil
	}
	var snaps []profile.HealthSnapshot
	err := s.loop.Do(ctx, func(c *engine.Context) error {
		for _, id := range c.Entities() {
			if p, ok := c.Profile(id); ok && p.IsPlayer() {
				snaps = append(snaps, p.Snapshot())
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := s.store.SaveAll(ctx, snaps); err != nil {
		return 0, fmt.Errorf("flushing %d snapshots: %w", len(snaps), err)
	}
	return len(snaps), nil
}
