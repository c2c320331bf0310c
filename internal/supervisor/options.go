package supervisor

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
)

const (
	// ConfigTimeout is how long the portal stays open before the saved networks are retried
	ConfigTimeout = 120 * time.Second

	// ReconnectAttempts is the number of failed reconnect cycles that forces the portal
	ReconnectAttempts = 10

	// DefaultAttemptTimeout bounds one association attempt
	DefaultAttemptTimeout = 10 * time.Second

	// DefaultStatusInterval is how often a connected link is checked
	DefaultStatusInterval = time.Second

	// DefaultTickInterval is the host loop period used by Run
	DefaultTickInterval = 100 * time.Millisecond
)

// Option configures a Supervisor
type Option func(*Supervisor)

// WithClock sets the time source. Tests pass clock.NewMock().
func WithClock(c clock.Clock) Option {
	return func(s *Supervisor) {
		s.clock = c
	}
}

// WithNotifier sets the state change observer
func WithNotifier(n Notifier) Option {
	return func(s *Supervisor) {
		s.notifier = n
	}
}

// WithAttemptTimeout sets the per-attempt association window
func WithAttemptTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.attemptTimeout = d
		}
	}
}

// WithConfigTimeout sets how long a portal session lasts without a submission
func WithConfigTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.configTimeout = d
		}
	}
}

// WithReconnectAttempts sets the failed reconnect cycles tolerated before the portal opens
func WithReconnectAttempts(n int) Option {
	return func(s *Supervisor) {
		if n > 0 {
			s.reconnectAttempts = n
		}
	}
}

// WithStatusInterval sets how often a connected link is checked
func WithStatusInterval(d time.Duration) Option {
	return func(s *Supervisor) {
		if d >= 0 {
			s.statusInterval = d
		}
	}
}

// WithBackoff replaces the pacing between reconnect cycles.
// The supervisor's clock is installed on b.
func WithBackoff(b *backoff.ExponentialBackOff) Option {
	return func(s *Supervisor) {
		s.backoff = b
	}
}

func defaultBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 1.5
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}
