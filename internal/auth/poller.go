package auth

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/edjs/internal/shared"
)

// DefaultRecheckInterval is used by long-running sessions when none is configured.
const DefaultRecheckInterval = 30 * time.Second

// Poller re-runs reconciliation on a fixed interval and on demand.
//
// Manual triggers are throttled; ticks are not. An interval of zero disables the ticker.
type Poller struct {
	reconciler *Reconciler
	interval   time.Duration
	limiter    *rate.Limiter
	trigger    chan struct{}
	logger     *log.Logger
}

// PollerOpts configures a [Poller].
type PollerOpts struct {
	Interval time.Duration
	// MinTriggerGap is the minimum spacing between manual rechecks. Defaults to one second.
	MinTriggerGap time.Duration
	Logger        *log.Logger
}

func NewPoller(r *Reconciler, opts PollerOpts) *Poller {
	if opts.MinTriggerGap <= 0 {
		opts.MinTriggerGap = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	return &Poller{
		reconciler: r,
		interval:   opts.Interval,
		limiter:    rate.NewLimiter(rate.Every(opts.MinTriggerGap), 1),
		trigger:    make(chan struct{}, 1),
		logger:     opts.Logger,
	}
}

// Trigger requests a recheck. It reports false when throttled or when one is already queued.
func (p *Poller) Trigger() bool {
	if !p.limiter.Allow() {
		p.logger.Debug("recheck throttled")
		return false
	}
	select {
	case p.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run blocks until ctx is done. Each pass runs in its own goroutine so a slow remote check
// never delays the next tick.
func (p *Poller) Run(ctx context.Context) {
	var tick <-chan time.Time
	if p.interval > 0 {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	p.logger.Info("poller started", "interval", p.interval)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return
		case <-tick:
			go p.reconciler.Recheck(ctx)
		case <-p.trigger:
			go p.reconciler.Recheck(ctx)
		}
	}
}
