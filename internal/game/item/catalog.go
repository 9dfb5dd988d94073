package item

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/rpgcombat/internal/game/attribute"
)

// Def is the YAML form of a catalog item.
type Def struct {
	ID           string                        `yaml:"id"`
	Name         string                        `yaml:"name"`
	Enchantments map[string]int                `yaml:"enchantments"`
	Attributes   map[string]map[string]float64 `yaml:"attributes"`
	Passives     []AbilityDef                  `yaml:"passives"`
	Actives      []AbilityDef                  `yaml:"actives"`
}

// AbilityDef binds a catalog ability to a slot.
type AbilityDef struct {
	Slot    string `yaml:"slot"`
	Trigger string `yaml:"trigger"`
	Ability string `yaml:"ability"`
	Params  string `yaml:"params"`
}

// Validate checks d for structural errors and returns all violations joined.
func (d *Def) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	for name, lvl := range d.Enchantments {
		if !knownEnchantment(name) {
			errs = append(errs, fmt.Errorf("unknown enchantment %q", name))
		}
		if lvl <= 0 {
			errs = append(errs, fmt.Errorf("enchantment %q level must be positive, got %d", name, lvl))
		}
	}
	for slot, attrs := range d.Attributes {
		if _, err := ParseSlot(slot); err != nil {
			errs = append(errs, err)
		}
		for name, v := range attrs {
			if _, err := attribute.Parse(name); err != nil {
				errs = append(errs, err)
			}
			if v < 0 {
				errs = append(errs, fmt.Errorf("attribute %s.%s must not be negative", slot, name))
			}
		}
	}
	for _, p := range d.Passives {
		if p.Trigger == "" {
			errs = append(errs, fmt.Errorf("passive %q must name a trigger", p.Ability))
		}
		errs = append(errs, p.validate()...)
	}
	for _, a := range d.Actives {
		if a.Trigger != "" {
			errs = append(errs, fmt.Errorf("active %q must not name a trigger", a.Ability))
		}
		errs = append(errs, a.validate()...)
	}
	return errors.Join(errs...)
}

func (a AbilityDef) validate() []error {
	var errs []error
	if _, err := ParseSlot(a.Slot); err != nil {
		errs = append(errs, err)
	}
	if a.Ability == "" || strings.ContainsAny(a.Ability, ". \t") {
		errs = append(errs, fmt.Errorf("invalid ability id %q", a.Ability))
	}
	if strings.ContainsAny(a.Trigger, ". \t") {
		errs = append(errs, fmt.Errorf("invalid trigger %q", a.Trigger))
	}
	return errs
}

func knownEnchantment(name string) bool {
	switch attribute.Enchantment(name) {
	case attribute.Protection, attribute.FireProtection, attribute.BlastProtection,
		attribute.ProjectileProtection, attribute.FeatherFalling:
		return true
	}
	return false
}

// Descriptor encodes d into the tag payload layout.
//
// Precondition: d.Validate() == nil.
func (d *Def) Descriptor() *Descriptor {
	out := New(d.ID, d.Name)
	for name, lvl := range d.Enchantments {
		out.Enchantments[attribute.Enchantment(name)] = lvl
	}
	slots := make([]string, 0, len(d.Attributes))
	for s := range d.Attributes {
		slots = append(slots, s)
	}
	sort.Strings(slots)
	for _, s := range slots {
		names := make([]string, 0, len(d.Attributes[s]))
		for n := range d.Attributes[s] {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			out.SetAttribute(Slot(s), attribute.ID(n), d.Attributes[s][n])
		}
	}
	for _, p := range d.Passives {
		out.SetPassive(Slot(p.Slot), p.Trigger, p.Ability, p.Params)
	}
	for _, a := range d.Actives {
		out.SetActive(Slot(a.Slot), a.Ability, a.Params)
	}
	return out
}

// Catalog holds every loaded item keyed by ID.
type Catalog struct {
	items map[string]*Def
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{items: make(map[string]*Def)}
}

// Register validates and adds d.
//
// Postcondition: Get(d.ID) returns d; returns error if d is invalid or already registered.
func (c *Catalog) Register(d *Def) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("item %q: %w", d.ID, err)
	}
	if _, exists := c.items[d.ID]; exists {
		return fmt.Errorf("item ID %q already registered", d.ID)
	}
	c.items[d.ID] = d
	return nil
}

// Get returns a fresh Descriptor for id.
func (c *Catalog) Get(id string) (*Descriptor, bool) {
	d, ok := c.items[id]
	if !ok {
		return nil, false
	}
	return d.Descriptor(), true
}

// IDs returns all registered item IDs sorted.
func (c *Catalog) IDs() []string {
	out := make([]string, 0, len(c.items))
	for id := range c.items {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// LoadDirectory reads every *.yaml file in dir as an item Def.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a populated Catalog, or an error naming the first bad file.
func LoadDirectory(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading item dir %q: %w", dir, err)
	}
	cat := NewCatalog()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var def Def
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := cat.Register(&def); err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
	}
	return cat, nil
}
