package ability

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Params is the parsed form of a binding's raw parameter string. Only the fields
// relevant to the definition's condition and effect are populated.
type Params struct {
	Threshold float64
	Chance    float64
	Cooldown  int

	Stacks    int
	Duration  int
	Self      bool
	Damage    float64
	Radius    float64
	Hops      int
	Decay     float64
	Amplifier int
	Velocity  float64
	Distance  float64
}

type fieldReader struct {
	fields []string
	pos    int
	err    error
}

func (r *fieldReader) next(name string) (string, bool) {
	if r.err != nil {
		return "", false
	}
	if r.pos >= len(r.fields) {
		r.err = fmt.Errorf("missing %s: %w", name, ErrMalformedParameter)
		return "", false
	}
	f := r.fields[r.pos]
	r.pos++
	return f, true
}

func (r *fieldReader) readFloat(name string, lo, hi float64) float64 {
	s, ok := r.next(name)
	if !ok {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		r.err = fmt.Errorf("%s %q is not a number: %w", name, s, ErrMalformedParameter)
		return 0
	}
	if math.IsNaN(v) || v < lo || v > hi {
		r.err = fmt.Errorf("%s %g outside [%g, %g]: %w", name, v, lo, hi, ErrMalformedParameter)
		return 0
	}
	return v
}

func (r *fieldReader) readInt(name string, lo, hi int) int {
	s, ok := r.next(name)
	if !ok {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		r.err = fmt.Errorf("%s %q is not an integer: %w", name, s, ErrMalformedParameter)
		return 0
	}
	if v < lo || v > hi {
		r.err = fmt.Errorf("%s %d outside [%d, %d]: %w", name, v, lo, hi, ErrMalformedParameter)
		return 0
	}
	return v
}

func (r *fieldReader) readBool(name string) bool {
	s, ok := r.next(name)
	if !ok {
		return false
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		r.err = fmt.Errorf("%s %q is not a boolean: %w", name, s, ErrMalformedParameter)
		return false
	}
	return v
}

const unbounded = 1e12

// Integer parameter ceilings. maxTicks is about 58 days at a 50ms tick.
const (
	maxTicks     = 100_000_000
	maxStacks    = 10_000
	maxHops      = 256
	maxAmplifier = 255
)

// ParseParams decodes raw according to def's condition and effect.
//
// Layout: passive header `[threshold] chance cooldown`, active header `cooldown`,
// followed by the effect's own fields.
//
// Postcondition: on failure the returned error wraps ErrMalformedParameter.
func ParseParams(def *Definition, raw string) (Params, error) {
	r := &fieldReader{fields: strings.Fields(raw)}
	var p Params
	switch def.Condition {
	case HealthThresholdChanceAndCooldown:
		p.Threshold = r.readFloat("threshold", 0, 100)
		fallthrough
	case ChanceAndCooldown:
		p.Chance = r.readFloat("chance", 0, 100)
		p.Cooldown = r.readInt("cooldown", 0, maxTicks)
	case Cooldown:
		p.Cooldown = r.readInt("cooldown", 0, maxTicks)
	default:
		return Params{}, fmt.Errorf("ability %q: condition %s: %w", def.ID, def.Condition, ErrMalformedParameter)
	}
	switch def.Effect {
	case StackInstance:
		p.Stacks = r.readInt("stacks", 1, maxStacks)
		p.Duration = r.readInt("duration", 1, maxTicks)
		p.Self = r.readBool("self")
	case ChainDamage:
		p.Damage = r.readFloat("damage", 0, unbounded)
		p.Radius = r.readFloat("radius", 0, unbounded)
		p.Hops = r.readInt("hops", 0, maxHops)
		p.Decay = r.readFloat("decay", 0, 100)
	case PotionEffect:
		p.Amplifier = r.readInt("amplifier", 0, maxAmplifier)
		p.Duration = r.readInt("duration", 1, maxTicks)
		p.Self = r.readBool("self")
	case Movement:
		p.Velocity = r.readFloat("velocity", -unbounded, unbounded)
		p.Self = r.readBool("self")
	case Teleport:
		p.Distance = r.readFloat("distance", 0, unbounded)
	case Projection:
		p.Duration = r.readInt("duration", 1, maxTicks)
	case DistanceDamage:
		p.Damage = r.readFloat("damage", 0, unbounded)
		p.Radius = r.readFloat("radius", 0, unbounded)
	case ClearStatus:
		p.Self = r.readBool("self")
	default:
		return Params{}, fmt.Errorf("ability %q: effect %s: %w", def.ID, def.Effect, ErrMalformedParameter)
	}
	if r.err != nil {
		return Params{}, fmt.Errorf("ability %q params %q: %w", def.ID, raw, r.err)
	}
	if r.pos != len(r.fields) {
		return Params{}, fmt.Errorf("ability %q params %q: %d trailing fields: %w",
			def.ID, raw, len(r.fields)-r.pos, ErrMalformedParameter)
	}
	return p, nil
}
