package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger to provide logged percentage rolls.
// Every draw is logged at debug level with its purpose and result.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that draws from src and logs each draw to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Percent draws one uniform value in [0, 100) and logs it under purpose.
//
// Postcondition: 0 <= result < 100.
func (r *Roller) Percent(purpose string) float64 {
	v := Percent(r.src)
	r.logger.Debug("percent roll",
		zap.String("purpose", purpose),
		zap.Float64("roll", v),
	)
	return v
}

// Chance reports whether a draw lands below chance. A chance of zero or less
// succeeds never and consumes no randomness.
//
// Postcondition: chance >= 100 always succeeds when a draw is made.
func (r *Roller) Chance(purpose string, chance float64) bool {
	if chance <= 0 {
		return false
	}
	roll := r.Percent(purpose)
	ok := roll < chance
	r.logger.Debug("chance check",
		zap.String("purpose", purpose),
		zap.Float64("chance", chance),
		zap.Float64("roll", roll),
		zap.Bool("success", ok),
	)
	return ok
}
