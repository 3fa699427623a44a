package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"allsky.watch/lib/feed"
	"allsky.watch/lib/skypos"
)

const (
	Idle int32 = iota
	Running
)

type (
	// Fetcher is what a worker pulls aircraft from
	Fetcher interface {
		Fetch(ctx context.Context) (*feed.Payload, *feed.FetchError)
	}

	// Worker runs one fetch -> transform -> filter -> deliver cycle
	Worker struct {
		name    string
		fetcher Fetcher
		calc    *skypos.Calculator
		out     chan []skypos.SkyPosition

		state atomic.Int32

		metrics *Metrics
		log     zerolog.Logger
	}

	Option func(*Worker)
)

// NewWorker sets up worker number idx. out should be the single slot channel shared with the
// consumer, see NewResultChannel.
func NewWorker(idx int, fetcher Fetcher, calc *skypos.Calculator, out chan []skypos.SkyPosition, opts ...Option) *Worker {
	w := &Worker{
		name:    fmt.Sprintf("AdsbHttp-%d", idx),
		fetcher: fetcher,
		calc:    calc,
		out:     out,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = log.With().Str("section", w.name).Logger()
	return w
}

// NewResultChannel makes the single slot channel workers deliver to
func NewResultChannel() chan []skypos.SkyPosition {
	return make(chan []skypos.SkyPosition, 1)
}

func WithMetrics(m *Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

func (w *Worker) String() string {
	return w.name
}

func (w *Worker) State() int32 {
	return w.state.Load()
}

// Start runs the cycle on its own goroutine
func (w *Worker) Start(ctx context.Context) {
	go w.Run(ctx)
}

// Run performs the cycle. It always delivers exactly one list, empty if anything went wrong,
// including being called while the worker is already running.
func (w *Worker) Run(ctx context.Context) {
	if !w.state.CompareAndSwap(Idle, Running) {
		w.log.Warn().Msg("Worker is already running")
		Deliver(w.out, []skypos.SkyPosition{})
		return
	}
	defer w.state.Store(Idle)

	aircraft := w.cycle(ctx)
	Deliver(w.out, aircraft)
}

func (w *Worker) cycle(ctx context.Context) []skypos.SkyPosition {
	w.metrics.cycle()

	start := time.Now()
	payload, fErr := w.fetcher.Fetch(ctx)
	w.metrics.fetched(time.Since(start))
	if nil != fErr {
		w.metrics.fetchError(fErr.Kind)
		evt := w.log.Error()
		if feed.Cancelled == fErr.Kind {
			evt = w.log.Debug()
		}
		evt.Str("kind", fErr.Kind.String()).Err(fErr.Err).Msg("Failed to fetch aircraft")
		return []skypos.SkyPosition{}
	}
	if payload.Skipped > 0 {
		w.log.Debug().Int("skipped", payload.Skipped).Msg("Skipped undecodable aircraft entries")
	}

	aircraft, stats := w.calc.Calculate(payload.Aircraft)
	w.metrics.calculated(stats)
	w.log.Debug().
		Int("decoded", stats.Decoded).
		Int("no position", stats.NoPosition).
		Int("below minimum", stats.BelowMinimum).
		Int("visible", stats.Visible).
		Msg("Aircraft calculated")
	return aircraft
}

// Deliver puts aircraft into the single slot channel without ever blocking. An older list still
// waiting in the slot is thrown away, the newest list wins.
func Deliver(out chan []skypos.SkyPosition, aircraft []skypos.SkyPosition) {
	for {
		select {
		case out <- aircraft:
			return
		default:
		}
		select {
		case <-out:
		default:
		}
	}
}
