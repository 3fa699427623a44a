package overlay

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"allsky.watch/lib/skypos"
)

type (
	// Latest is the camera side view of the aircraft. It only ever holds the most recent list.
	Latest struct {
		mu       sync.RWMutex
		aircraft []skypos.SkyPosition
		updated  time.Time

		maxAge time.Duration

		subMu       sync.Mutex
		subscribers map[chan []skypos.SkyPosition]struct{}

		now func() time.Time
		log zerolog.Logger
	}
)

// NewLatest makes an empty view. A list older than maxAge is treated as no aircraft at all,
// zero means lists never go stale.
func NewLatest(maxAge time.Duration) *Latest {
	return &Latest{
		maxAge:      maxAge,
		subscribers: make(map[chan []skypos.SkyPosition]struct{}),
		now:         time.Now,
		log:         log.With().Str("section", "overlay").Logger(),
	}
}

// Consume takes lists from in until ctx is done or in is closed
func (l *Latest) Consume(ctx context.Context, in <-chan []skypos.SkyPosition) {
	for {
		select {
		case <-ctx.Done():
			return
		case aircraft, ok := <-in:
			if !ok {
				return
			}
			l.Update(aircraft)
		}
	}
}

// Update replaces the current list and tells subscribers
func (l *Latest) Update(aircraft []skypos.SkyPosition) {
	if nil == aircraft {
		aircraft = []skypos.SkyPosition{}
	}
	l.mu.Lock()
	l.aircraft = aircraft
	l.updated = l.now()
	l.mu.Unlock()

	l.log.Debug().Int("aircraft", len(aircraft)).Msg("Updated aircraft list")

	l.subMu.Lock()
	defer l.subMu.Unlock()
	for ch := range l.subscribers {
		replace(ch, aircraft)
	}
}

// Aircraft returns a copy of the current list, empty when stale
func (l *Latest) Aircraft() []skypos.SkyPosition {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.stale() {
		return []skypos.SkyPosition{}
	}
	out := make([]skypos.SkyPosition, len(l.aircraft))
	copy(out, l.aircraft)
	return out
}

// Updated is when we last got a list
func (l *Latest) Updated() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.updated
}

// Stale is true when we have not had a list within maxAge
func (l *Latest) Stale() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stale()
}

func (l *Latest) stale() bool {
	if l.updated.IsZero() {
		return true
	}
	if 0 == l.maxAge {
		return false
	}
	return l.now().Sub(l.updated) > l.maxAge
}

// Subscribe gets every new list. Slow subscribers only ever see the newest one.
// Call the returned func to stop.
func (l *Latest) Subscribe() (<-chan []skypos.SkyPosition, func()) {
	ch := make(chan []skypos.SkyPosition, 1)
	l.subMu.Lock()
	l.subscribers[ch] = struct{}{}
	l.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.subMu.Lock()
			defer l.subMu.Unlock()
			delete(l.subscribers, ch)
			close(ch)
		})
	}
}

func (l *Latest) HealthCheckName() string {
	return "Aircraft Overlay"
}

func (l *Latest) HealthCheck() bool {
	return !l.Stale()
}

func replace(ch chan []skypos.SkyPosition, aircraft []skypos.SkyPosition) {
	for {
		select {
		case ch <- aircraft:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
