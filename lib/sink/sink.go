package sink

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"allsky.watch/lib/monitoring"
	"allsky.watch/lib/skypos"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type (
	Destination interface {
		PublishJson(subject string, msg []byte) error
		Stop()
		monitoring.HealthCheck
	}

	// AircraftMessage is what goes on the wire for each delivered list
	AircraftMessage struct {
		Source   string               `json:"source,omitempty"`
		Time     time.Time            `json:"time"`
		Count    int                  `json:"count"`
		Aircraft []skypos.SkyPosition `json:"aircraft"`
	}

	// Sink sends every list it is given to a Destination
	Sink struct {
		config *Config
		dest   Destination
		now    func() time.Time
		log    zerolog.Logger
	}
)

func NewSink(conf *Config, dest Destination) *Sink {
	return &Sink{
		config: conf,
		dest:   dest,
		now:    time.Now,
		log:    log.With().Str("section", "sink").Str("subject", conf.subject).Logger(),
	}
}

// Go runs Listen on its own goroutine. Stop waits for it to finish before closing the destination.
func (s *Sink) Go(ctx context.Context, updates <-chan []skypos.SkyPosition) {
	s.config.waiter.Add(1)
	go func() {
		defer s.config.waiter.Done()
		s.Listen(ctx, updates)
	}()
}

// Listen publishes each list from updates until ctx is done or updates is closed
func (s *Sink) Listen(ctx context.Context, updates <-chan []skypos.SkyPosition) {
	for {
		select {
		case <-ctx.Done():
			return
		case aircraft, ok := <-updates:
			if !ok {
				return
			}
			if err := s.OnAircraft(aircraft); nil != err {
				s.log.Error().Err(err).Msg("Failed to publish aircraft")
			}
		}
	}
}

func (s *Sink) aircraftMsgJson(aircraft []skypos.SkyPosition) ([]byte, error) {
	if nil == aircraft {
		aircraft = []skypos.SkyPosition{}
	}
	return json.Marshal(AircraftMessage{
		Source:   s.config.sourceTag,
		Time:     s.now().UTC(),
		Count:    len(aircraft),
		Aircraft: aircraft,
	})
}

// OnAircraft gets called once for each list we want to send on
func (s *Sink) OnAircraft(aircraft []skypos.SkyPosition) error {
	jsonBuf, err := s.aircraftMsgJson(aircraft)
	if nil != err {
		return err
	}
	if err = s.dest.PublishJson(s.config.subject, jsonBuf); nil != err {
		if nil != s.config.stats.failed {
			s.config.stats.failed.Inc()
		}
		return err
	}
	if nil != s.config.stats.published {
		s.config.stats.published.Inc()
	}
	return nil
}

func (s *Sink) Stop() {
	s.config.Finish()
	s.dest.Stop()
}

func (s *Sink) HealthCheckName() string {
	return s.dest.HealthCheckName()
}

func (s *Sink) HealthCheck() bool {
	return s.dest.HealthCheck()
}
