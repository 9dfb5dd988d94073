package engine

import "github.com/cory-johannsen/rpgcombat/internal/game/item"

// HealEvent restores health to Target.
type HealEvent struct {
	Target string
	Amount float64
}

// SlotChange reports that Entity's Slot now holds Item, or nothing when Item is nil.
type SlotChange struct {
	Entity string
	Slot   item.Slot
	Item   *item.Descriptor
}

// KillEvent reports that Killed died, optionally at the hands of Killer.
type KillEvent struct {
	Killed string
	Killer string
}
