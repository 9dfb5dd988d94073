package ability

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/rpgcombat/internal/game/status"
)

// DefinitionFile is the YAML form of an ability definition.
type DefinitionFile struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Kind        string `yaml:"kind"`      // "passive" | "active"
	Condition   string `yaml:"condition"` // see Condition
	Effect      string `yaml:"effect"`    // see Effect
	Status      string `yaml:"status"`
	Potion      string `yaml:"potion"`
}

// Definition converts f into a validated Definition, reporting every violation.
func (f *DefinitionFile) Definition() (*Definition, error) {
	var errs []error
	def := &Definition{ID: f.ID, Name: f.Name, Potion: f.Potion}
	if f.ID == "" || strings.ContainsAny(f.ID, ". \t") {
		errs = append(errs, fmt.Errorf("invalid id %q", f.ID))
	}
	switch f.Kind {
	case "passive":
		def.Kind = Passive
	case "active":
		def.Kind = Active
	default:
		errs = append(errs, fmt.Errorf("kind must be passive or active, got %q", f.Kind))
	}
	c, err := ParseCondition(f.Condition)
	if err != nil {
		errs = append(errs, err)
	}
	def.Condition = c
	e, err := ParseEffect(f.Effect)
	if err != nil {
		errs = append(errs, err)
	}
	def.Effect = e
	if f.Status != "" {
		st, err := status.Parse(f.Status)
		if err != nil {
			errs = append(errs, err)
		}
		def.Status = st
	}
	if def.Kind == Active && c != 0 && c != Cooldown {
		errs = append(errs, fmt.Errorf("active abilities use the cooldown condition, got %s", c))
	}
	if def.Kind == Passive && c == Cooldown {
		errs = append(errs, errors.New("passive abilities require a chance condition"))
	}
	if e == StackInstance && f.Status == "" {
		errs = append(errs, errors.New("stack_instance requires a status"))
	}
	if e == PotionEffect && f.Potion == "" {
		errs = append(errs, errors.New("potion_effect requires a potion"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("ability %q: %w", f.ID, err)
	}
	return def, nil
}

// Catalog holds every known ability Definition keyed by ID.
type Catalog struct {
	defs map[string]*Definition
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{defs: make(map[string]*Definition)}
}

// Register adds def to the catalog.
//
// Precondition: def must not be nil.
// Postcondition: Get(def.ID) returns def; returns error if def.ID is already registered.
func (c *Catalog) Register(def *Definition) error {
	if _, exists := c.defs[def.ID]; exists {
		return fmt.Errorf("ability ID %q already registered", def.ID)
	}
	c.defs[def.ID] = def
	return nil
}

// Get returns the Definition for id, or (nil, false) if not found.
func (c *Catalog) Get(id string) (*Definition, bool) {
	d, ok := c.defs[id]
	return d, ok
}

// All returns every Definition sorted by ID.
func (c *Catalog) All() []*Definition {
	out := make([]*Definition, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadDirectory reads every *.yaml file in dir as a DefinitionFile.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Catalog, or an error if any file fails to parse or validate.
func LoadDirectory(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading ability dir %q: %w", dir, err)
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
		var f DefinitionFile
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		def, err := f.Definition()
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		if err := cat.Register(def); err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
	}
	return cat, nil
}
