package holders

import (
	"log/slog"
	"time"

	"github.com/bewie03/bubblemap/pkg/clock"
	"github.com/bewie03/bubblemap/pkg/ratelimit"
)

// Option configures a Service or a Resolver
// ------------------------------------------------
type Option func(*settings)

type settings struct {
	clock             Clock
	logger            *slog.Logger
	events            chan<- Event
	pageSize          int
	maxHolders        int
	maxAssets         int
	rps               float64
	burst             int
	batchSize         int
	batchDelay        time.Duration
	cacheSize         int
	maxStakeAddresses int
	relations         bool
	observeBatch      func(BatchStats)
	observeWait       func(time.Duration)
}

func newSettings(opts []Option) settings {
	s := settings{
		clock:             clock.SystemClock{},
		logger:            slog.Default(),
		pageSize:          DefaultPageSize,
		maxHolders:        DefaultMaxHolders,
		maxAssets:         DefaultMaxAssets,
		rps:               ratelimit.DefaultRequestsPerSecond,
		burst:             ratelimit.DefaultBurst,
		batchSize:         DefaultBatchSize,
		batchDelay:        DefaultBatchDelay,
		cacheSize:         DefaultCacheSize,
		maxStakeAddresses: DefaultMaxStakeAddresses,
		relations:         true,
		observeBatch:      func(BatchStats) {},
		observeWait:       func(time.Duration) {},
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithClock injects a custom Clock (e.g., for testing)
func WithClock(c Clock) Option {
	return func(s *settings) { s.clock = c }
}

// WithLogger sets the logger used for swallowed failures
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEvents sets the channel lifecycle events are delivered to.
// The channel is owned by the caller and is never closed by the Service.
func WithEvents(events chan<- Event) Option {
	return func(s *settings) { s.events = events }
}

// WithPageSize sets the number of records requested per page
func WithPageSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithMaxHolders caps the distribution at the top n holders
func WithMaxHolders(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxHolders = n
		}
	}
}

// WithMaxAssets caps how many assets of a policy are inspected for metadata
func WithMaxAssets(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxAssets = n
		}
	}
}

// WithRateLimit sets the per-session request rate and burst
func WithRateLimit(rps float64, burst int) Option {
	return func(s *settings) {
		s.rps = rps
		s.burst = burst
	}
}

// WithWaitObserver registers a callback receiving each rate limiter queue wait
func WithWaitObserver(fn func(time.Duration)) Option {
	return func(s *settings) {
		if fn != nil {
			s.observeWait = fn
		}
	}
}

// WithBatchSize sets how many holders are resolved concurrently
func WithBatchSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithBatchDelay sets the pause between relation batches
func WithBatchDelay(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.batchDelay = d
		}
	}
}

// WithCacheSize bounds the number of addresses kept in the relation cache
func WithCacheSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.cacheSize = n
		}
	}
}

// WithMaxStakeAddresses caps how many addresses are listed per staking key
func WithMaxStakeAddresses(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxStakeAddresses = n
		}
	}
}

// WithRelations turns related-wallet resolution on or off
func WithRelations(enabled bool) Option {
	return func(s *settings) { s.relations = enabled }
}

// WithBatchObserver registers a callback invoked after each relation batch
func WithBatchObserver(fn func(BatchStats)) Option {
	return func(s *settings) {
		if fn != nil {
			s.observeBatch = fn
		}
	}
}
