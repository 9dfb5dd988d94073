package item_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/rpgcombat/internal/game/ability"
	"github.com/cory-johannsen/rpgcombat/internal/game/attribute"
	"github.com/cory-johannsen/rpgcombat/internal/game/item"
)

func TestDescriptor_SetAttribute_WritesListAndKey(t *testing.T) {
	d := item.New("sword", "Sword")
	d.SetAttribute(item.Mainhand, attribute.CriticalChance, 15)
	d.SetAttribute(item.Mainhand, attribute.AttackDamage, 7.5)
	d.SetAttribute(item.Mainhand, attribute.CriticalChance, 20)

	assert.Equal(t, "20", d.Tags["attribute.mainhand.critical_chance"])
	assert.Equal(t, "attribute.mainhand.critical_chance attribute.mainhand.attack_damage", d.Tags[item.AttributeList])
	assert.Empty(t, d.Validate())

	entries, errs := d.Attributes(item.Mainhand)
	assert.Empty(t, errs)
	assert.Equal(t, []item.AttributeEntry{
		{Slot: item.Mainhand, Attribute: attribute.CriticalChance, Value: 20},
		{Slot: item.Mainhand, Attribute: attribute.AttackDamage, Value: 7.5},
	}, entries)
}

func TestDescriptor_Remove_KeepsListInSync(t *testing.T) {
	d := item.New("helm", "Helm")
	d.SetAttribute(item.Head, attribute.Armor, 2)
	d.SetActive(item.Head, "blink", "40 8")
	d.RemoveAttribute(item.Head, attribute.Armor)
	d.RemoveActive(item.Head, "blink")
	assert.Empty(t, d.Tags)
}

func TestDescriptor_Attributes_SkipsMalformed(t *testing.T) {
	d := item.New("cursed", "Cursed Ring")
	d.Tags = map[string]string{
		item.AttributeList:            "attribute.offhand.armor attribute.offhand.toughness attribute.offhand.accuracy attribute.offhand.luck",
		"attribute.offhand.armor":     "abc",
		"attribute.offhand.toughness": "-3",
		"attribute.offhand.accuracy":  "12",
		"attribute.offhand.luck":      "5",
	}
	entries, errs := d.Attributes(item.Offhand)
	assert.Len(t, errs, 3)
	require.Len(t, entries, 1)
	assert.Equal(t, attribute.Accuracy, entries[0].Attribute)
	assert.Equal(t, 12.0, entries[0].Value)
}

func TestDescriptor_Attributes_RejectsNonFinite(t *testing.T) {
	d := item.New("void", "Void Plate")
	d.Tags = map[string]string{
		item.AttributeList:          "attribute.chest.armor attribute.chest.toughness attribute.chest.max_health attribute.chest.resistance",
		"attribute.chest.armor":      "NaN",
		"attribute.chest.toughness":  "+Inf",
		"attribute.chest.max_health": "1e400",
		"attribute.chest.resistance": "4",
	}
	entries, errs := d.Attributes(item.Chest)
	assert.Len(t, errs, 3)
	require.Len(t, entries, 1)
	assert.Equal(t, attribute.Resistance, entries[0].Attribute)
}

func TestDescriptor_Attributes_OnlyListedKeysAreRead(t *testing.T) {
	d := item.New("x", "X")
	d.Tags["attribute.mainhand.armor"] = "4"
	entries, _ := d.Attributes(item.Mainhand)
	assert.Empty(t, entries)
	assert.Len(t, d.Validate(), 1, "unlisted individual key is drift")
}

func TestDescriptor_Validate_ListedKeyMissing(t *testing.T) {
	d := item.New("x", "X")
	d.Tags[item.PassiveList] = "passive.chest.damage_taken.thorns"
	errs := d.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "passive.chest.damage_taken.thorns")
}

func TestDescriptor_Passives_FilteredBySlot(t *testing.T) {
	d := item.New("x", "X")
	d.SetPassive(item.Mainhand, "damage_dealt", "bleed_strike", "25 40 3 60 false")
	d.SetPassive(item.Chest, "damage_taken", "thorns", "50 20 2 40 false")
	d.SetActive(item.Mainhand, "blink", "100 8")

	passives, errs := d.Passives(item.Mainhand)
	assert.Empty(t, errs)
	assert.Equal(t, []item.AbilityEntry{{
		Slot: item.Mainhand, Trigger: "damage_dealt", Ability: "bleed_strike", Params: "25 40 3 60 false",
	}}, passives)

	actives, _ := d.Actives(item.Mainhand)
	require.Len(t, actives, 1)
	assert.Equal(t, "blink", actives[0].Ability)
	assert.Empty(t, actives[0].Trigger)

	assert.True(t, d.HasCombatData(item.Chest))
	assert.False(t, d.HasCombatData(item.Feet))
}

func TestSlot_Parse(t *testing.T) {
	for _, s := range item.Slots() {
		got, err := item.ParseSlot(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := item.ParseSlot("ring")
	assert.Error(t, err)
	assert.True(t, item.Feet.IsArmor())
	assert.False(t, item.Offhand.IsArmor())
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	content := `id: bloodletter
name: Bloodletter
enchantments:
  protection: 2
attributes:
  mainhand:
    critical_chance: 15
    attack_damage: 6
passives:
  - slot: mainhand
    trigger: damage_dealt
    ability: bleed_strike
    params: "25 40 3 60 false"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bloodletter.yaml"), []byte(content), 0o644))
	cat, err := item.LoadDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"bloodletter"}, cat.IDs())

	d, ok := cat.Get("bloodletter")
	require.True(t, ok)
	assert.Equal(t, 2, d.Enchantments[attribute.Protection])
	assert.Empty(t, d.Validate())
	entries, errs := d.Attributes(item.Mainhand)
	assert.Empty(t, errs)
	assert.Len(t, entries, 2)
}

func TestLoadDirectory_RejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: x\ncolour: red\n"), 0o644))
	_, err := item.LoadDirectory(dir)
	assert.Error(t, err)
}

func TestLoadDirectory_RejectsInvalidDef(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: x\nattributes:\n  ring:\n    armor: 1\n"), 0o644))
	_, err := item.LoadDirectory(dir)
	assert.ErrorContains(t, err, "unknown slot")
}

func TestLoadDirectory_ShippedContentBindsCleanly(t *testing.T) {
	abilities, err := ability.LoadDirectory("../../../content/abilities")
	require.NoError(t, err)
	items, err := item.LoadDirectory("../../../content/items")
	require.NoError(t, err)
	require.NotEmpty(t, items.IDs())

	for _, id := range items.IDs() {
		d, ok := items.Get(id)
		require.True(t, ok)
		assert.Empty(t, d.Validate(), "item %s", id)
		for _, slot := range item.Slots() {
			passives, errs := d.Passives(slot)
			require.Empty(t, errs, "item %s", id)
			actives, errs := d.Actives(slot)
			require.Empty(t, errs, "item %s", id)
			for _, e := range append(passives, actives...) {
				def, ok := abilities.Get(e.Ability)
				require.True(t, ok, "item %s references unknown ability %s", id, e.Ability)
				if e.Trigger != "" {
					_, err := ability.ParseTrigger(e.Trigger)
					assert.NoError(t, err, "item %s", id)
					assert.Equal(t, ability.Passive, def.Kind, "item %s binds %s as passive", id, def.ID)
				} else {
					assert.Equal(t, ability.Active, def.Kind, "item %s binds %s as active", id, def.ID)
				}
				_, err := ability.ParseParams(def, e.Params)
				assert.NoError(t, err, "item %s ability %s", id, def.ID)
			}
		}
	}
}

func TestPropertyDescriptor_SetRemoveNeverDrifts(t *testing.T) {
	attrs := attribute.All()
	slots := item.Slots()
	rapid.Check(t, func(rt *rapid.T) {
		d := item.New("p", "P")
		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			slot := rapid.SampledFrom(slots).Draw(rt, "slot")
			attr := rapid.SampledFrom(attrs).Draw(rt, "attr")
			if rapid.Bool().Draw(rt, "set") {
				d.SetAttribute(slot, attr, float64(rapid.IntRange(0, 100).Draw(rt, "v")))
			} else {
				d.RemoveAttribute(slot, attr)
			}
			assert.Empty(rt, d.Validate())
		}
	})
}
