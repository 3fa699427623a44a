package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"allsky.watch/lib/skypos"
)

const (
	DefaultInterval     = 15 * time.Second
	DefaultKickInterval = 5 * time.Second
)

type (
	// Poller starts a fresh Worker every interval, and whenever it is kicked
	Poller struct {
		fetcher Fetcher
		calc    *skypos.Calculator
		out     chan []skypos.SkyPosition

		interval time.Duration
		limiter  *rate.Limiter
		kick     chan struct{}

		nextIdx  int
		inFlight sync.WaitGroup

		lastCycle atomic.Int64

		metrics *Metrics
		log     zerolog.Logger
	}

	PollerOption func(*Poller)
)

func NewPoller(fetcher Fetcher, calc *skypos.Calculator, opts ...PollerOption) *Poller {
	p := &Poller{
		fetcher:  fetcher,
		calc:     calc,
		out:      NewResultChannel(),
		interval: DefaultInterval,
		limiter:  rate.NewLimiter(rate.Every(DefaultKickInterval), 1),
		kick:     make(chan struct{}, 1),
		log:      log.With().Str("section", "poller").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func WithInterval(interval time.Duration) PollerOption {
	return func(p *Poller) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithKickInterval is the shortest gap allowed between kicked cycles
func WithKickInterval(every time.Duration) PollerOption {
	return func(p *Poller) {
		p.limiter = rate.NewLimiter(rate.Every(every), 1)
	}
}

func WithPollerMetrics(m *Metrics) PollerOption {
	return func(p *Poller) {
		p.metrics = m
	}
}

// WithResultChannel shares an existing single slot channel instead of making our own
func WithResultChannel(out chan []skypos.SkyPosition) PollerOption {
	return func(p *Poller) {
		p.out = out
	}
}

// Results is where every cycle's aircraft list ends up
func (p *Poller) Results() <-chan []skypos.SkyPosition {
	return p.out
}

// Kick asks for a cycle now. Returns false if we have done one too recently.
func (p *Poller) Kick() bool {
	if !p.limiter.Allow() {
		p.metrics.throttled()
		p.log.Debug().Msg("Kick throttled")
		return false
	}
	select {
	case p.kick <- struct{}{}:
	default:
		// one is already pending
	}
	return true
}

// Run polls until ctx is done, then waits for any running workers to deliver
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Info().Dur("interval", p.interval).Msg("Polling for aircraft")
	p.startWorker(ctx)
	for {
		select {
		case <-ctx.Done():
			p.log.Debug().Msg("Waiting for workers to finish")
			p.inFlight.Wait()
			return
		case <-ticker.C:
			p.startWorker(ctx)
		case <-p.kick:
			p.startWorker(ctx)
		}
	}
}

func (p *Poller) startWorker(ctx context.Context) {
	w := NewWorker(p.nextIdx, p.fetcher, p.calc, p.out, WithMetrics(p.metrics))
	p.nextIdx++
	p.lastCycle.Store(time.Now().UnixNano())

	p.inFlight.Add(1)
	go func() {
		defer p.inFlight.Done()
		w.Run(ctx)
	}()
}

func (p *Poller) HealthCheckName() string {
	return "ADSB Poller"
}

// HealthCheck is true while cycles are still being started on schedule
func (p *Poller) HealthCheck() bool {
	last := p.lastCycle.Load()
	if 0 == last {
		return false
	}
	return time.Since(time.Unix(0, last)) < 2*p.interval
}
