package ability_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/rpgcombat/internal/game/ability"
	"github.com/cory-johannsen/rpgcombat/internal/game/status"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bleed.yaml", `id: bleed_strike
name: Bleed Strike
kind: passive
condition: chance_cooldown
effect: stack_instance
status: bleed
`)
	writeFile(t, dir, "blink.yaml", `id: blink
name: Blink
kind: active
condition: cooldown
effect: teleport
`)
	writeFile(t, dir, "README.md", "ignored")

	cat, err := ability.LoadDirectory(dir)
	require.NoError(t, err)
	all := cat.All()
	require.Len(t, all, 2)
	assert.Equal(t, "bleed_strike", all[0].ID)
	assert.Equal(t, status.Bleed, all[0].Status)
	assert.Equal(t, ability.Passive, all[0].Kind)
	assert.Equal(t, ability.Teleport, all[1].Effect)
}

func TestLoadDirectory_UnknownField(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "x.yaml", "id: x\nkind: active\ncondition: cooldown\neffect: teleport\npower: 9000\n")
	_, err := ability.LoadDirectory(dir)
	assert.Error(t, err)
}

func TestDefinitionFile_Validation(t *testing.T) {
	cases := map[string]ability.DefinitionFile{
		"active with chance":    {ID: "a", Kind: "active", Condition: "chance_cooldown", Effect: "teleport"},
		"passive with cooldown": {ID: "a", Kind: "passive", Condition: "cooldown", Effect: "teleport"},
		"stack without status":  {ID: "a", Kind: "passive", Condition: "chance_cooldown", Effect: "stack_instance"},
		"potion without potion": {ID: "a", Kind: "active", Condition: "cooldown", Effect: "potion_effect"},
		"dotted id":             {ID: "a.b", Kind: "active", Condition: "cooldown", Effect: "teleport"},
		"unknown effect":        {ID: "a", Kind: "active", Condition: "cooldown", Effect: "fireball"},
		"unknown status":        {ID: "a", Kind: "active", Condition: "cooldown", Effect: "clear_status", Status: "poison"},
		"unknown kind":          {ID: "a", Kind: "reactive", Condition: "cooldown", Effect: "teleport"},
	}
	for name, f := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.Definition()
			assert.Error(t, err)
		})
	}
}

func TestCatalog_DuplicateID(t *testing.T) {
	cat := ability.NewCatalog()
	require.NoError(t, cat.Register(&ability.Definition{ID: "x"}))
	assert.Error(t, cat.Register(&ability.Definition{ID: "x"}))
}

func TestLoadDirectory_ShippedContent(t *testing.T) {
	cat, err := ability.LoadDirectory("../../../content/abilities")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(cat.All()), 10)

	for _, def := range cat.All() {
		if def.Kind == ability.Active {
			assert.Equal(t, ability.Cooldown, def.Condition, "active %s", def.ID)
		}
	}
	chain, ok := cat.Get("chain_lightning")
	require.True(t, ok)
	assert.Equal(t, ability.ChainDamage, chain.Effect)
}
