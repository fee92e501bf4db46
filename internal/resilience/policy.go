package resilience

import "time"

// Config controls retries and the per-operation circuit breaker.
type Config struct {
	RetryMaxAttempts    int           `yaml:"retry_max_attempts" json:"retry_max_attempts" mapstructure:"retry_max_attempts"`
	RetryInitialBackoff time.Duration `yaml:"retry_initial_backoff" json:"retry_initial_backoff" mapstructure:"retry_initial_backoff"`
	RetryMaxBackoff     time.Duration `yaml:"retry_max_backoff" json:"retry_max_backoff" mapstructure:"retry_max_backoff"`
	RetryMultiplier     float64       `yaml:"retry_multiplier" json:"retry_multiplier" mapstructure:"retry_multiplier"`
	// AttemptTimeout bounds every single attempt; zero disables it.
	AttemptTimeout time.Duration `yaml:"attempt_timeout" json:"attempt_timeout" mapstructure:"attempt_timeout"`

	BreakerEnabled          bool          `yaml:"breaker_enabled" json:"breaker_enabled" mapstructure:"breaker_enabled"`
	BreakerMinRequests      uint32        `yaml:"breaker_min_requests" json:"breaker_min_requests" mapstructure:"breaker_min_requests"`
	BreakerFailureRatio     float64       `yaml:"breaker_failure_ratio" json:"breaker_failure_ratio" mapstructure:"breaker_failure_ratio"`
	BreakerOpenTimeout      time.Duration `yaml:"breaker_open_timeout" json:"breaker_open_timeout" mapstructure:"breaker_open_timeout"`
	BreakerHalfOpenMaxCalls uint32        `yaml:"breaker_half_open_max_calls" json:"breaker_half_open_max_calls" mapstructure:"breaker_half_open_max_calls"`
}

// DefaultConfig returns three attempts with exponential backoff from one
// second, a 60 second attempt timeout and an enabled breaker.
func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Second,
		RetryMaxBackoff:     8 * time.Second,
		RetryMultiplier:     2.0,
		AttemptTimeout:      60 * time.Second,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if out.RetryInitialBackoff <= 0 {
		out.RetryInitialBackoff = def.RetryInitialBackoff
	}
	if out.RetryMaxBackoff <= 0 {
		out.RetryMaxBackoff = def.RetryMaxBackoff
	}
	if out.RetryMaxBackoff < out.RetryInitialBackoff {
		out.RetryMaxBackoff = out.RetryInitialBackoff
	}
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}
	if out.AttemptTimeout < 0 {
		out.AttemptTimeout = 0
	}

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}

	return out
}
