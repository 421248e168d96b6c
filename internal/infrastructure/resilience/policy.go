package resilience

import "time"

// Config tunes retries and the per-operation circuit breakers.
type Config struct {
	Attempts   int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64

	Breaker BreakerConfig
}

// BreakerConfig trips a breaker once FailureRatio of at least MinRequests
// calls failed. After Cooldown, Probes calls are let through half-open.
type BreakerConfig struct {
	Disabled     bool
	MinRequests  uint32
	FailureRatio float64
	Cooldown     time.Duration
	Probes       uint32
}

func DefaultConfig() Config {
	return Config{
		Attempts:   3,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   400 * time.Millisecond,
		Multiplier: 2,
		Breaker: BreakerConfig{
			MinRequests:  10,
			FailureRatio: 0.5,
			Cooldown:     30 * time.Second,
			Probes:       2,
		},
	}
}

// withDefaults fills every unset or out-of-range field from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Attempts <= 0 {
		c.Attempts = def.Attempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = def.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	c.MaxDelay = max(c.MaxDelay, c.BaseDelay)
	if c.Multiplier < 1 {
		c.Multiplier = def.Multiplier
	}

	b := &c.Breaker
	if b.MinRequests == 0 {
		b.MinRequests = def.Breaker.MinRequests
	}
	if b.FailureRatio <= 0 || b.FailureRatio > 1 {
		b.FailureRatio = def.Breaker.FailureRatio
	}
	if b.Cooldown <= 0 {
		b.Cooldown = def.Breaker.Cooldown
	}
	if b.Probes == 0 {
		b.Probes = def.Breaker.Probes
	}
	return c
}

// delay is the pause after the given failed attempt, starting at 1.
func (c Config) delay(attempt int) time.Duration {
	d := float64(c.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= c.Multiplier
		if d >= float64(c.MaxDelay) {
			return c.MaxDelay
		}
	}
	return min(time.Duration(d), c.MaxDelay)
}
