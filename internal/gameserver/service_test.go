package gameserver_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/rpgcombat/internal/game/ability"
	"github.com/cory-johannsen/rpgcombat/internal/game/item"
	"github.com/cory-johannsen/rpgcombat/internal/game/profile"
	"github.com/cory-johannsen/rpgcombat/internal/gameserver"
	"github.com/cory-johannsen/rpgcombat/internal/storage/postgres"
)

type memStore struct {
	rows    map[string]profile.HealthSnapshot
	batches int
	failAll error
}

func (m *memStore) Load(_ context.Context, id string) (profile.HealthSnapshot, error) {
	s, ok := m.rows[id]
	if !ok {
		return profile.HealthSnapshot{}, postgres.ErrHealthNotFound
	}
	return s, nil
}

func (m *memStore) Save(_ context.Context, s profile.HealthSnapshot) error {
	m.rows[s.EntityID] = s
	return nil
}

func (m *memStore) SaveAll(_ context.Context, snaps []profile.HealthSnapshot) error {
	m.batches++
	if m.failAll != nil {
		return m.failAll
	}
	for _, s := range snaps {
		m.rows[s.EntityID] = s
	}
	return nil
}

type harness struct {
	client *gameserver.Client
	store  *memStore
	loop   *gameserver.Loop
	svc    *gameserver.Service
}

func abilities(t *testing.T) *ability.Catalog {
	cat := ability.NewCatalog()
	require.NoError(t, cat.Register(&ability.Definition{
		ID: "blink", Kind: ability.Active, Condition: ability.Cooldown, Effect: ability.Teleport,
	}))
	return cat
}

func items(t *testing.T) *item.Catalog {
	cat := item.NewCatalog()
	require.NoError(t, cat.Register(&item.Def{
		ID:         "vitality_plate",
		Name:       "Vitality Plate",
		Attributes: map[string]map[string]float64{"chest": {"max_health": 4, "armor": 2}},
	}))
	require.NoError(t, cat.Register(&item.Def{
		ID:      "blink_dagger",
		Name:    "Blink Dagger",
		Actives: []item.AbilityDef{{Slot: "mainhand", Ability: "blink", Params: "20 8"}},
	}))
	return cat
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	world := gameserver.NewHostWorld(zap.NewNop())
	c := newEngine(t, abilities(t), world)
	loop := startLoop(t, c, time.Hour)
	store := &memStore{rows: map[string]profile.HealthSnapshot{}}
	svc := gameserver.NewService(loop, world, items(t), store, 2*time.Second, zap.NewNop())

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(gameserver.LoggingInterceptor(zap.NewNop())))
	svc.Register(srv)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &harness{client: gameserver.NewClient(conn), store: store, loop: loop, svc: svc}
}

func (h *harness) call(t *testing.T, method string, req map[string]any) *structpb.Struct {
	t.Helper()
	out, err := h.client.Call(context.Background(), method, req)
	require.NoError(t, err, "%s(%v)", method, req)
	return out
}

func (h *harness) fail(t *testing.T, method string, req map[string]any) codes.Code {
	t.Helper()
	_, err := h.client.Call(context.Background(), method, req)
	require.Error(t, err, "%s(%v)", method, req)
	return status.Code(err)
}

func num(s *structpb.Struct, path ...string) float64 {
	for _, k := range path[:len(path)-1] {
		s = s.GetFields()[k].GetStructValue()
	}
	return s.GetFields()[path[len(path)-1]].GetNumberValue()
}

func str(s *structpb.Struct, key string) string { return s.GetFields()[key].GetStringValue() }

func TestService_DamageRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.call(t, gameserver.MethodJoin, map[string]any{"entity": "alice", "kind": "player", "max_health": 20})
	h.call(t, gameserver.MethodJoin, map[string]any{"entity": "bob", "kind": "mob", "max_health": 30})

	res := h.call(t, gameserver.MethodDamage, map[string]any{
		"cause": "melee", "amount": 5, "attacker": "alice", "defender": "bob",
	})
	assert.Equal(t, "committed", str(res, "outcome"))
	assert.Equal(t, 5.0, num(res, "final"))
	assert.Equal(t, 25.0, num(res, "defender_health"))
	assert.NotEmpty(t, str(res, "event_id"))

	res = h.call(t, gameserver.MethodDamage, map[string]any{"cause": "generic", "amount": 3, "defender": "zombie"})
	assert.Equal(t, "unmanaged", str(res, "outcome"))
	assert.Equal(t, 3.0, num(res, "final"))

	healed := h.call(t, gameserver.MethodHeal, map[string]any{"target": "bob", "amount": 100})
	assert.Equal(t, 5.0, num(healed, "healed"))
}

func TestService_InvalidArguments(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, codes.InvalidArgument, h.fail(t, gameserver.MethodDamage, map[string]any{"cause": "psychic", "amount": 1, "defender": "bob"}))
	assert.Equal(t, codes.InvalidArgument, h.fail(t, gameserver.MethodDamage, map[string]any{"cause": "melee", "amount": "lots", "defender": "bob"}))
	assert.Equal(t, codes.InvalidArgument, h.fail(t, gameserver.MethodJoin, map[string]any{"entity": "alice"}))
	assert.Equal(t, codes.InvalidArgument, h.fail(t, gameserver.MethodJoin, map[string]any{"entity": "alice", "max_health": 10, "kind": "dragon"}))
	assert.Equal(t, codes.InvalidArgument, h.fail(t, gameserver.MethodChangeSlot, map[string]any{"entity": "alice", "slot": "tail"}))
	assert.Equal(t, codes.InvalidArgument, h.fail(t, gameserver.MethodAddStatus, map[string]any{"entity": "alice", "status": "frozen", "stacks": 1, "duration": 1}))
	assert.Equal(t, codes.InvalidArgument, h.fail(t, gameserver.MethodAddBuff, map[string]any{"entity": "alice", "attribute": "luck", "magnitude": 1, "duration": 1}))
}

func TestService_ChangeSlotAndProfile(t *testing.T) {
	h := newHarness(t)
	h.call(t, gameserver.MethodJoin, map[string]any{"entity": "alice", "max_health": 20})

	ch := h.call(t, gameserver.MethodChangeSlot, map[string]any{"entity": "alice", "slot": "chest", "item_id": "vitality_plate"})
	assert.True(t, ch.GetFields()["max_health_changed"].GetBoolValue())
	assert.Equal(t, "vitality_plate", ch.GetFields()["added"].GetStructValue().GetFields()["item_id"].GetStringValue())

	view := h.call(t, gameserver.MethodProfile, map[string]any{"entity": "alice"})
	assert.Equal(t, 24.0, num(view, "health", "max"))
	assert.Equal(t, 2.0, num(view, "attributes", "armor"))
	assert.Equal(t, "vitality_plate", view.GetFields()["items"].GetStructValue().GetFields()["chest"].GetStringValue())

	assert.Equal(t, codes.NotFound, h.fail(t, gameserver.MethodChangeSlot, map[string]any{"entity": "alice", "slot": "chest", "item_id": "nope"}))

	inline := h.call(t, gameserver.MethodChangeSlot, map[string]any{
		"entity": "alice", "slot": "chest",
		"item": map[string]any{
			"id": "padded", "name": "Padded Vest",
			"enchantments": map[string]any{"protection": 2},
			"tags":         map[string]any{"attribute.chest.toughness": "3", "attribute.list": "attribute.chest.toughness"},
		},
	})
	assert.Equal(t, "vitality_plate", inline.GetFields()["removed"].GetStructValue().GetFields()["item_id"].GetStringValue())
	view = h.call(t, gameserver.MethodProfile, map[string]any{"entity": "alice"})
	assert.Equal(t, 20.0, num(view, "health", "max"))
	assert.Equal(t, 3.0, num(view, "attributes", "toughness"))
	assert.Equal(t, 2.0, num(view, "enchantments", "protection"))

	cleared := h.call(t, gameserver.MethodChangeSlot, map[string]any{"entity": "alice", "slot": "chest"})
	assert.NotNil(t, cleared.GetFields()["removed"].GetStructValue())

	assert.Equal(t, codes.NotFound, h.fail(t, gameserver.MethodProfile, map[string]any{"entity": "ghost"}))
}

func TestService_InvokeCooldownAndEvents(t *testing.T) {
	h := newHarness(t)
	h.call(t, gameserver.MethodJoin, map[string]any{
		"entity": "alice", "max_health": 20,
		"location": map[string]any{"world": "overworld", "x": 0, "y": 64, "z": 0},
	})
	assert.Equal(t, codes.NotFound, h.fail(t, gameserver.MethodInvoke, map[string]any{"entity": "alice", "slot": "mainhand", "ability": "blink"}))

	h.call(t, gameserver.MethodChangeSlot, map[string]any{"entity": "alice", "slot": "mainhand", "item_id": "blink_dagger"})
	res := h.call(t, gameserver.MethodInvoke, map[string]any{"entity": "alice", "slot": "mainhand", "ability": "blink"})
	assert.Equal(t, 20.0, num(res, "cooldown"))
	assert.Equal(t, codes.FailedPrecondition, h.fail(t, gameserver.MethodInvoke, map[string]any{"entity": "alice", "slot": "mainhand", "ability": "blink"}))

	view := h.call(t, gameserver.MethodProfile, map[string]any{"entity": "alice"})
	assert.Equal(t, 20.0, num(view, "cooldowns", "mainhand.blink"))
	var kinds []string
	for _, v := range view.GetFields()["events"].GetListValue().GetValues() {
		kinds = append(kinds, v.GetStructValue().GetFields()["kind"].GetStringValue())
	}
	assert.Equal(t, []string{"cosmetic", "teleport"}, kinds)

	again := h.call(t, gameserver.MethodProfile, map[string]any{"entity": "alice"})
	assert.Empty(t, again.GetFields()["events"].GetListValue().GetValues(), "events are drained")
}

func TestService_KillRespawnAndPersistence(t *testing.T) {
	h := newHarness(t)
	h.call(t, gameserver.MethodJoin, map[string]any{"entity": "alice", "max_health": 20})
	h.call(t, gameserver.MethodJoin, map[string]any{"entity": "bob", "kind": "mob", "max_health": 30})

	killed := h.call(t, gameserver.MethodKill, map[string]any{"killed": "bob", "killer": "alice"})
	assert.True(t, killed.GetFields()["removed"].GetBoolValue())
	assert.Equal(t, codes.NotFound, h.fail(t, gameserver.MethodProfile, map[string]any{"entity": "bob"}))

	h.call(t, gameserver.MethodDamage, map[string]any{"cause": "generic", "amount": 8, "defender": "alice"})
	killed = h.call(t, gameserver.MethodKill, map[string]any{"killed": "alice"})
	assert.False(t, killed.GetFields()["removed"].GetBoolValue())
	view := h.call(t, gameserver.MethodProfile, map[string]any{"entity": "alice"})
	assert.Equal(t, 0.0, num(view, "health", "current"))

	respawned := h.call(t, gameserver.MethodRespawn, map[string]any{"entity": "alice"})
	assert.Equal(t, 20.0, num(respawned, "health", "current"))
	assert.Equal(t, codes.NotFound, h.fail(t, gameserver.MethodRespawn, map[string]any{"entity": "ghost"}))

	h.call(t, gameserver.MethodDamage, map[string]any{"cause": "generic", "amount": 8, "defender": "alice"})
	left := h.call(t, gameserver.MethodLeave, map[string]any{"entity": "alice"})
	assert.True(t, left.GetFields()["left"].GetBoolValue())
	require.Contains(t, h.store.rows, "alice")
	assert.Equal(t, 12.0, h.store.rows["alice"].Current)

	joined := h.call(t, gameserver.MethodJoin, map[string]any{"entity": "alice", "max_health": 20})
	assert.True(t, joined.GetFields()["restored"].GetBoolValue())
	assert.Equal(t, 12.0, num(joined, "health", "current"))

	left = h.call(t, gameserver.MethodLeave, map[string]any{"entity": "nobody"})
	assert.False(t, left.GetFields()["left"].GetBoolValue())
}

func TestService_StatusesAndBuffs(t *testing.T) {
	h := newHarness(t)
	h.call(t, gameserver.MethodJoin, map[string]any{"entity": "bob", "kind": "mob", "max_health": 30})

	res := h.call(t, gameserver.MethodAddStatus, map[string]any{"entity": "bob", "status": "bleed", "stacks": 2, "duration": 10})
	assert.Equal(t, 2.0, num(res, "aggregate"))
	res = h.call(t, gameserver.MethodAddStatus, map[string]any{"entity": "bob", "status": "bleed", "stacks": 3, "duration": 5})
	assert.Equal(t, 5.0, num(res, "aggregate"))
	assert.Equal(t, codes.InvalidArgument, h.fail(t, gameserver.MethodAddStatus, map[string]any{"entity": "bob", "status": "bleed", "stacks": 0, "duration": 5}))

	res = h.call(t, gameserver.MethodAddBuff, map[string]any{"entity": "bob", "attribute": "armor", "magnitude": 1.5, "duration": 10})
	assert.Equal(t, 1.5, num(res, "total"))

	view := h.call(t, gameserver.MethodProfile, map[string]any{"entity": "bob"})
	assert.Equal(t, 5.0, num(view, "statuses", "bleed"))
}

func TestService_LoopStopped(t *testing.T) {
	h := newHarness(t)
	h.loop.Stop()
	<-h.loop.Done()
	assert.Equal(t, codes.Unavailable, h.fail(t, gameserver.MethodJoin, map[string]any{"entity": "alice", "max_health": 20}))
}

func TestService_FlushSavesPlayersOnly(t *testing.T) {
	h := newHarness(t)
	h.call(t, gameserver.MethodJoin, map[string]any{"entity": "alice", "kind": "player", "max_health": 20})
	h.call(t, gameserver.MethodJoin, map[string]any{"entity": "bob", "kind": "mob", "max_health": 30})
	h.call(t, gameserver.MethodDamage, map[string]any{"cause": "generic", "amount": 6, "defender": "alice"})

	saved, err := h.svc.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, saved)
	require.Contains(t, h.store.rows, "alice")
	assert.NotContains(t, h.store.rows, "bob")
	assert.Equal(t, 14.0, h.store.rows["alice"].Current)
	assert.Equal(t, 1, h.store.batches)
}

func TestService_FlushWritesOneBatch(t *testing.T) {
	h := newHarness(t)
	h.call(t, gameserver.MethodJoin, map[string]any{"entity": "alice", "kind": "player", "max_health": 20})
	h.call(t, gameserver.MethodJoin, map[string]any{"entity": "carol", "kind": "player", "max_health": 10})
	h.store.rows = map[string]profile.HealthSnapshot{}

	saved, err := h.svc.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, saved)
	assert.Equal(t, 1, h.store.batches)
	assert.Len(t, h.store.rows, 2)
}

func TestService_FlushFailureSavesNothing(t *testing.T) {
	h := newHarness(t)
	h.call(t, gameserver.MethodJoin, map[string]any{"entity": "alice", "kind": "player", "max_health": 20})
	h.store.rows = map[string]profile.HealthSnapshot{}
	h.store.failAll = errors.New("connection reset")

	saved, err := h.svc.Flush(context.Background())
	require.Error(t, err)
	assert.Zero(t, saved)
	assert.Empty(t, h.store.rows)
}
