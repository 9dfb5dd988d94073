package profile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/rpgcombat/internal/game/profile"
)

func TestParseKind(t *testing.T) {
	for _, k := range []profile.Kind{profile.KindPlayer, profile.KindMob} {
		got, err := profile.ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := profile.ParseKind("villager")
	assert.Error(t, err)
}

func TestNew_FullHealth(t *testing.T) {
	p := profile.New("alice", profile.KindPlayer, 20)
	assert.Equal(t, profile.Health{Current: 20, Max: 20, BaseMax: 20}, p.Health)
	assert.True(t, p.Alive())
	assert.True(t, p.IsPlayer())
	assert.Equal(t, 1.0, p.Health.Ratio())
}

func TestHealth_RatioZeroMax(t *testing.T) {
	assert.Equal(t, 0.0, profile.Health{}.Ratio())
}

func TestRestore_ClampsCurrent(t *testing.T) {
	p := profile.New("alice", profile.KindPlayer, 20)
	p.Restore(profile.HealthSnapshot{EntityID: "alice", Current: 50, Max: 24, BaseMax: 20})
	assert.Equal(t, 24.0, p.Health.Current)
	assert.Equal(t, 24.0, p.Health.Max)

	p.Restore(profile.HealthSnapshot{Current: -3, BaseMax: 18})
	assert.Equal(t, 0.0, p.Health.Current)
	assert.Equal(t, 18.0, p.Health.Max)
	assert.False(t, p.Alive())
}

func TestSnapshot_RoundTrip(t *testing.T) {
	p := profile.New("bob", profile.KindMob, 30)
	p.Health.Current = 12
	q := profile.New("bob", profile.KindMob, 30)
	q.Restore(p.Snapshot())
	assert.Equal(t, p.Health, q.Health)
}

func TestManager_GetOrCreate(t *testing.T) {
	m := profile.NewManager()
	p, created := m.GetOrCreate("alice", profile.KindPlayer, 20)
	require.True(t, created)
	again, created := m.GetOrCreate("alice", profile.KindMob, 99)
	assert.False(t, created)
	assert.Same(t, p, again)
	assert.Equal(t, profile.KindPlayer, again.Kind)

	m.GetOrCreate("bob", profile.KindMob, 10)
	assert.Equal(t, []string{"alice", "bob"}, m.IDs())
	assert.True(t, m.Remove("alice"))
	assert.False(t, m.Remove("alice"))
	_, ok := m.Get("alice")
	assert.False(t, ok)
	assert.Equal(t, 1, m.Len())
}
