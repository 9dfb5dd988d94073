package postgres_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/rpgcombat/internal/game/profile"
	"github.com/cory-johannsen/rpgcombat/internal/storage/postgres"
	"github.com/cory-johannsen/rpgcombat/internal/testutil"
)

func TestHealthRepository(t *testing.T) {
	repo := postgres.NewHealthRepository(testutil.NewPool(t))
	ctx := context.Background()

	t.Run("load missing", func(t *testing.T) {
		_, err := repo.Load(ctx, "nobody")
		assert.ErrorIs(t, err, postgres.ErrHealthNotFound)
	})

	t.Run("save then load", func(t *testing.T) {
		want := profile.HealthSnapshot{EntityID: "alice", Kind: profile.KindPlayer, Current: 12.5, Max: 24, BaseMax: 20}
		require.NoError(t, repo.Save(ctx, want))
		got, err := repo.Load(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("save overwrites", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, profile.HealthSnapshot{EntityID: "bob", Kind: profile.KindMob, Current: 30, Max: 30, BaseMax: 30}))
		require.NoError(t, repo.Save(ctx, profile.HealthSnapshot{EntityID: "bob", Kind: profile.KindMob, Current: 4, Max: 30, BaseMax: 30}))
		got, err := repo.Load(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, 4.0, got.Current)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, profile.HealthSnapshot{EntityID: "carol", Kind: profile.KindPlayer, Current: 1, Max: 20, BaseMax: 20}))
		require.NoError(t, repo.Delete(ctx, "carol"))
		assert.ErrorIs(t, repo.Delete(ctx, "carol"), postgres.ErrHealthNotFound)
		_, err := repo.Load(ctx, "carol")
		assert.ErrorIs(t, err, postgres.ErrHealthNotFound)
	})

	t.Run("save all", func(t *testing.T) {
		snaps := []profile.HealthSnapshot{
			{EntityID: "d1", Kind: profile.KindPlayer, Current: 3, Max: 20, BaseMax: 20},
			{EntityID: "d2", Kind: profile.KindMob, Current: 9, Max: 10, BaseMax: 10},
		}
		require.NoError(t, repo.SaveAll(ctx, snaps))
		require.NoError(t, repo.SaveAll(ctx, nil))
		for _, want := range snaps {
			got, err := repo.Load(ctx, want.EntityID)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("round trip property", func(t *testing.T) {
		n := 0
		rapid.Check(t, func(rt *rapid.T) {
			n++
			base := rapid.Float64Range(1, 500).Draw(rt, "base")
			maxHP := base + rapid.Float64Range(0, 100).Draw(rt, "bonus")
			cur := rapid.Float64Range(0, maxHP).Draw(rt, "current")
			kind := rapid.SampledFrom([]profile.Kind{profile.KindPlayer, profile.KindMob}).Draw(rt, "kind")
			want := profile.HealthSnapshot{EntityID: fmt.Sprintf("prop-%d", n), Kind: kind, Current: cur, Max: maxHP, BaseMax: base}
			require.NoError(rt, repo.Save(ctx, want))
			got, err := repo.Load(ctx, want.EntityID)
			require.NoError(rt, err)
			assert.Equal(rt, want, got)
		})
	})
}
