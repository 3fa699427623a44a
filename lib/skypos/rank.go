package skypos

import (
	"sort"

	"github.com/rs/zerolog"

	"allsky.watch/lib/feed"
)

// DefaultMinElevation is the lowest an aircraft can be (degrees) and still make it onto an image
const DefaultMinElevation = 20.0

type (
	// Calculator turns a feed payload into the list of aircraft worth showing
	Calculator struct {
		Observer     Observer
		MinElevation float64

		log zerolog.Logger
	}

	// Stats describes what happened to the aircraft in one payload
	Stats struct {
		Decoded, NoPosition, BelowMinimum, Distant, Visible int
	}
)

func NewCalculator(o Observer, minElevation float64, logger zerolog.Logger) *Calculator {
	return &Calculator{
		Observer:     o,
		MinElevation: minElevation,
		log:          logger,
	}
}

// Rank returns the positions at or above minElevation, most overhead first
func Rank(positions []SkyPosition, minElevation float64) []SkyPosition {
	visible := make([]SkyPosition, 0, len(positions))
	for _, p := range positions {
		if p.ElevationDeg >= minElevation {
			visible = append(visible, p)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].ElevationDeg > visible[j].ElevationDeg
	})
	return visible
}

// Calculate transforms, filters and ranks everything in the payload
func (c *Calculator) Calculate(records []feed.Record) ([]SkyPosition, Stats) {
	stats := Stats{Decoded: len(records)}
	positions := make([]SkyPosition, 0, len(records))

	for _, r := range records {
		pos, ok := Transform(c.Observer, r)
		if !ok {
			stats.NoPosition++
			continue
		}
		if pos.Distant {
			stats.Distant++
			c.log.Warn().EmbedObject(pos).Msg("Aircraft more than 75km away, geographic lat/long may be wrong")
		}
		if pos.ElevationDeg < c.MinElevation {
			stats.BelowMinimum++
			c.log.Info().EmbedObject(pos).Msg("Aircraft below minimum visual altitude")
			continue
		}
		c.log.Info().EmbedObject(pos).Msg("Aircraft")
		positions = append(positions, pos)
	}

	visible := Rank(positions, c.MinElevation)
	stats.Visible = len(visible)
	return visible, stats
}
