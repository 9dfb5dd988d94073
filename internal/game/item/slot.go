package item

import "fmt"

// Slot is an equipment position whose occupying item contributes to combat stats.
type Slot string

const (
	Mainhand Slot = "mainhand"
	Offhand  Slot = "offhand"
	Head     Slot = "head"
	Chest    Slot = "chest"
	Legs     Slot = "legs"
	Feet     Slot = "feet"
)

var slotOrder = []Slot{Mainhand, Offhand, Head, Chest, Legs, Feet}

// Slots returns every slot in canonical order.
func Slots() []Slot {
	out := make([]Slot, len(slotOrder))
	copy(out, slotOrder)
	return out
}

// ArmorSlots returns the slots that take durability loss from incoming hits.
func ArmorSlots() []Slot {
	return []Slot{Head, Chest, Legs, Feet}
}

// IsArmor reports whether s is an armor slot.
func (s Slot) IsArmor() bool {
	switch s {
	case Head, Chest, Legs, Feet:
		return true
	}
	return false
}

// ParseSlot returns the Slot named by s.
func ParseSlot(s string) (Slot, error) {
	for _, slot := range slotOrder {
		if string(slot) == s {
			return slot, nil
		}
	}
	return "", fmt.Errorf("unknown slot %q", s)
}
