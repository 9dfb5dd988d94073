package status_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/rpgcombat/internal/game/status"
	"github.com/cory-johannsen/rpgcombat/internal/game/tick"
)

func TestType_StringAndParse(t *testing.T) {
	for _, st := range status.All() {
		parsed, err := status.Parse(st.String())
		require.NoError(t, err)
		assert.Equal(t, st, parsed)
	}
	_, err := status.Parse("poisoned")
	assert.Error(t, err)
}

func TestType_Category(t *testing.T) {
	assert.Equal(t, status.Cumulative, status.Bleed.Category())
	assert.Equal(t, status.Cumulative, status.Soaked.Category())
	assert.Equal(t, status.HighestInstance, status.Fracture.Category())
	assert.Equal(t, status.HighestInstance, status.Vulnerable.Category())
}

func TestRegistry_Add_RejectsNonPositive(t *testing.T) {
	r := status.NewRegistry(tick.New())
	_, err := r.Add("alice", status.Bleed, 0, 10)
	assert.ErrorIs(t, err, status.ErrInvalidApplication)
	_, err = r.Add("alice", status.Bleed, 3, 0)
	assert.ErrorIs(t, err, status.ErrInvalidApplication)
	assert.False(t, r.Tracked("alice"))
}

func TestRegistry_Aggregate_AbsentIsZero(t *testing.T) {
	r := status.NewRegistry(tick.New())
	assert.Equal(t, 0, r.Aggregate("nobody", status.Fracture))
}

// Applying 5 stacks for 20 ticks then 3 stacks for 10 ticks, ten ticks later,
// yields 5, then 8, then 0 once both applications have expired.
func TestRegistry_IndependentExpiry(t *testing.T) {
	sched := tick.New()
	r := status.NewRegistry(sched)

	_, err := r.Add("alice", status.Bleed, 5, 20)
	require.NoError(t, err)
	sched.AdvanceBy(9)
	assert.Equal(t, 5, r.Aggregate("alice", status.Bleed))
	sched.Advance()

	_, err = r.Add("alice", status.Bleed, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, 8, r.Aggregate("alice", status.Bleed))

	sched.AdvanceBy(9)
	assert.Equal(t, 8, r.Aggregate("alice", status.Bleed))
	sched.Advance()
	assert.Equal(t, 0, r.Aggregate("alice", status.Bleed))
	assert.False(t, r.Tracked("alice"), "entity must be dropped once its last status expires")
}

func TestRegistry_ExpiryRemovesOnlyItsOwnStacks(t *testing.T) {
	sched := tick.New()
	r := status.NewRegistry(sched)
	_, err := r.Add("alice", status.Vulnerable, 4, 5)
	require.NoError(t, err)
	_, err = r.Add("alice", status.Vulnerable, 2, 15)
	require.NoError(t, err)

	sched.AdvanceBy(5)
	assert.Equal(t, 2, r.Aggregate("alice", status.Vulnerable))
	st, ok := r.Stack("alice", status.Vulnerable)
	require.True(t, ok)
	assert.Len(t, st.Applications, 1)
}

func TestRegistry_StatusRemovedButEntityKept(t *testing.T) {
	sched := tick.New()
	r := status.NewRegistry(sched)
	_, _ = r.Add("alice", status.Bleed, 1, 2)
	_, _ = r.Add("alice", status.Soaked, 1, 10)
	sched.AdvanceBy(2)
	assert.False(t, r.Has("alice", status.Bleed))
	assert.True(t, r.Tracked("alice"))
	assert.Equal(t, map[status.Type]int{status.Soaked: 1}, r.Snapshot("alice"))
}

func TestRegistry_Clear_CancelsTimers(t *testing.T) {
	sched := tick.New()
	r := status.NewRegistry(sched)
	_, _ = r.Add("alice", status.Brittle, 2, 10)
	_, _ = r.Add("alice", status.Brittle, 2, 20)
	assert.Equal(t, 2, sched.Pending("alice"))

	assert.True(t, r.Clear("alice", status.Brittle))
	assert.Equal(t, 0, sched.Pending("alice"))
	assert.False(t, r.Tracked("alice"))
	assert.False(t, r.Clear("alice", status.Brittle))
}

func TestRegistry_ClearAll(t *testing.T) {
	sched := tick.New()
	r := status.NewRegistry(sched)
	for _, st := range status.All() {
		_, err := r.Add("alice", st, 1, 10)
		require.NoError(t, err)
	}
	r.ClearAll("alice")
	assert.False(t, r.Tracked("alice"))
	assert.Equal(t, 0, sched.Pending("alice"))
}

func TestPropertyRegistry_AggregateEqualsLiveApplications(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		sched := tick.New()
		r := status.NewRegistry(sched)
		type app struct{ stacks, expires int }
		var apps []app
		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(rt, "add") {
				stacks := rapid.IntRange(1, 10).Draw(rt, "stacks")
				dur := rapid.IntRange(1, 20).Draw(rt, "duration")
				_, err := r.Add("e", status.Fracture, stacks, dur)
				require.NoError(rt, err)
				apps = append(apps, app{stacks, int(sched.Now()) + dur})
			}
			sched.Advance()
			want := 0
			for _, a := range apps {
				if a.expires > int(sched.Now()) {
					want += a.stacks
				}
			}
			assert.Equal(rt, want, r.Aggregate("e", status.Fracture))
			assert.GreaterOrEqual(rt, r.Aggregate("e", status.Fracture), 0)
		}
	})
}
