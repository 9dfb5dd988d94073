package combat

import (
	"errors"
	"fmt"
)

// Tuning holds the numeric constants of the mitigation pipeline.
type Tuning struct {
	// FallReduction is subtracted flat from fall damage.
	FallReduction float64 `mapstructure:"fall_reduction"`
	// FirePercent, ExplosionPercent, ProjectilePercent and MagicPercent are
	// percentage reductions applied by cause before any other step.
	FirePercent       float64 `mapstructure:"fire_percent"`
	ExplosionPercent  float64 `mapstructure:"explosion_percent"`
	ProjectilePercent float64 `mapstructure:"projectile_percent"`
	MagicPercent      float64 `mapstructure:"magic_percent"`

	CriticalBase       float64 `mapstructure:"critical_base"`
	ArmorFactor        float64 `mapstructure:"armor_factor"`
	ArmorCap           float64 `mapstructure:"armor_cap"`
	VulnerablePerStack float64 `mapstructure:"vulnerable_per_stack"`
	ProtectionEPFCap   float64 `mapstructure:"protection_epf_cap"`
	ProtectionPerEPF   float64 `mapstructure:"protection_per_epf"`
	ProtectionCap      float64 `mapstructure:"protection_cap"`
	DurabilityDivisor  float64 `mapstructure:"durability_divisor"`
}

// DefaultTuning returns the stock pipeline constants.
func DefaultTuning() Tuning {
	return Tuning{
		FallReduction:      3,
		FirePercent:        25,
		ExplosionPercent:   20,
		ProjectilePercent:  10,
		MagicPercent:       15,
		CriticalBase:       1.25,
		ArmorFactor:        0.2,
		ArmorCap:           0.4,
		VulnerablePerStack: 0.025,
		ProtectionEPFCap:   20,
		ProtectionPerEPF:   0.04,
		ProtectionCap:      0.8,
		DurabilityDivisor:  4,
	}
}

// Validate reports every out-of-range constant.
func (t Tuning) Validate() error {
	var errs []error
	nonNeg := map[string]float64{
		"fall_reduction":       t.FallReduction,
		"vulnerable_per_stack": t.VulnerablePerStack,
		"armor_factor":         t.ArmorFactor,
		"protection_per_epf":   t.ProtectionPerEPF,
		"protection_epf_cap":   t.ProtectionEPFCap,
	}
	for name, v := range nonNeg {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must be >= 0, got %g", name, v))
		}
	}
	percents := map[string]float64{
		"fire_percent":       t.FirePercent,
		"explosion_percent":  t.ExplosionPercent,
		"projectile_percent": t.ProjectilePercent,
		"magic_percent":      t.MagicPercent,
	}
	for name, v := range percents {
		if v < 0 || v > 100 {
			errs = append(errs, fmt.Errorf("%s must be in [0, 100], got %g", name, v))
		}
	}
	if t.ArmorCap < 0 || t.ArmorCap > 1 {
		errs = append(errs, fmt.Errorf("armor_cap must be in [0, 1], got %g", t.ArmorCap))
	}
	if t.ProtectionCap < 0 || t.ProtectionCap > 1 {
		errs = append(errs, fmt.Errorf("protection_cap must be in [0, 1], got %g", t.ProtectionCap))
	}
	if t.CriticalBase < 1 {
		errs = append(errs, fmt.Errorf("critical_base must be >= 1, got %g", t.CriticalBase))
	}
	if t.DurabilityDivisor <= 0 {
		errs = append(errs, fmt.Errorf("durability_divisor must be > 0, got %g", t.DurabilityDivisor))
	}
	return errors.Join(errs...)
}
