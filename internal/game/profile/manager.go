package profile

import "sort"

// Manager maps entity ids to profiles. It is owned by the tick loop and
// performs no locking.
type Manager struct {
	profiles map[string]*Profile
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{profiles: make(map[string]*Profile)}
}

// Get returns the profile for id.
func (m *Manager) Get(id string) (*Profile, bool) {
	p, ok := m.profiles[id]
	return p, ok
}

// GetOrCreate returns the profile for id, creating it at full health when absent.
//
// Postcondition: created is true iff a new profile was inserted.
func (m *Manager) GetOrCreate(id string, kind Kind, baseMax float64) (p *Profile, created bool) {
	if p, ok := m.profiles[id]; ok {
		return p, false
	}
	p = New(id, kind, baseMax)
	m.profiles[id] = p
	return p, true
}

// Remove deletes the profile for id and reports whether one existed.
func (m *Manager) Remove(id string) bool {
	_, ok := m.profiles[id]
	delete(m.profiles, id)
	return ok
}

// IDs returns every managed entity id, sorted.
func (m *Manager) IDs() []string {
	out := make([]string, 0, len(m.profiles))
	for id := range m.profiles {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of managed profiles.
func (m *Manager) Len() int { return len(m.profiles) }
