package swap

import (
	"time"

	"jupiter-mcp/config"
)

// Policy bounds every stage of a swap
type Policy struct {
	// QuoteRetries is how many fresh quotes are requested after the first transient failure
	QuoteRetries int
	QuoteBackoff time.Duration
	QuoteTimeout time.Duration

	// SubmitRetries only applies to submissions that provably never reached the node
	SubmitRetries int
	SubmitBackoff time.Duration
	SubmitTimeout time.Duration

	ConfirmInterval time.Duration
	ConfirmTimeout  time.Duration

	MaxBackoff time.Duration
}

// DefaultPolicy mirrors the configuration defaults
func DefaultPolicy() Policy {
	return Policy{
		QuoteRetries:    3,
		QuoteBackoff:    500 * time.Millisecond,
		QuoteTimeout:    10 * time.Second,
		SubmitRetries:   2,
		SubmitBackoff:   250 * time.Millisecond,
		SubmitTimeout:   15 * time.Second,
		ConfirmInterval: 2 * time.Second,
		ConfirmTimeout:  90 * time.Second,
		MaxBackoff:      8 * time.Second,
	}
}

// PolicyFromConfig builds the policy from the swap section of the configuration
func PolicyFromConfig(cfg config.SwapConfig) Policy {
	p := DefaultPolicy()
	p.QuoteRetries = cfg.QuoteRetries
	p.SubmitRetries = cfg.SubmitRetries
	if cfg.QuoteBackoff > 0 {
		p.QuoteBackoff = cfg.QuoteBackoff
	}
	if cfg.QuoteTimeout > 0 {
		p.QuoteTimeout = cfg.QuoteTimeout
	}
	if cfg.SubmitBackoff > 0 {
		p.SubmitBackoff = cfg.SubmitBackoff
	}
	if cfg.SubmitTimeout > 0 {
		p.SubmitTimeout = cfg.SubmitTimeout
	}
	if cfg.ConfirmInterval > 0 {
		p.ConfirmInterval = cfg.ConfirmInterval
	}
	if cfg.ConfirmTimeout > 0 {
		p.ConfirmTimeout = cfg.ConfirmTimeout
	}
	return p
}

// backoff returns the delay before retry number attempt (0-based), doubling each time
func backoff(base, max time.Duration, attempt int) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if max > 0 && d >= max {
			return max
		}
	}
	if max > 0 && d > max {
		return max
	}
	return d
}
