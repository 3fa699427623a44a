package feed

import (
	"bytes"
	"errors"
	"math"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

const (
	groundMarker = "ground"

	// anything past this is a broken transponder, not an aircraft
	maxAltitudeFeet = 1e6
)

type (
	// AltitudeKind says what the feed told us about an aircraft's altitude
	AltitudeKind int

	// Altitude is the feed's altitude field. dump1090 sends a number (feet), the string "ground"
	// for landed aircraft, or nothing at all.
	Altitude struct {
		Kind AltitudeKind
		Feet float64
	}

	// Coordinate is a lat or lon from the feed. Valid is false when it was missing or not a number.
	Coordinate struct {
		Value float64
		Valid bool
	}

	// Ident is a flight, squawk or hex from the feed. Numbers keep their literal text, anything
	// else that is not a string is empty.
	Ident string

	// Record is one aircraft as decoded from the feed
	Record struct {
		Flight   Ident      `json:"flight"`
		Squawk   Ident      `json:"squawk"`
		Hex      Ident      `json:"hex"`
		Lat      Coordinate `json:"lat"`
		Lon      Coordinate `json:"lon"`
		Altitude Altitude   `json:"altitude"`
	}

	// Payload is a decoded aircraft feed
	Payload struct {
		Now      float64
		Messages int64
		Aircraft []Record

		// Skipped is the number of aircraft entries that were not objects we could decode
		Skipped int
	}

	rawPayload struct {
		Now      float64               `json:"now"`
		Messages int64                 `json:"messages"`
		Aircraft []jsoniter.RawMessage `json:"aircraft"`
	}
)

const (
	AltitudeAbsent AltitudeKind = iota
	AltitudeNumeric
	AltitudeGround
	AltitudeInvalid
)

var (
	json = jsoniter.ConfigCompatibleWithStandardLibrary

	ErrEmptyPayload = errors.New("empty payload")
)

func (k AltitudeKind) String() string {
	switch k {
	case AltitudeAbsent:
		return "absent"
	case AltitudeNumeric:
		return "numeric"
	case AltitudeGround:
		return "ground"
	default:
		return "invalid"
	}
}

// UnmarshalJSON never fails, anything we do not understand is AltitudeInvalid
func (a *Altitude) UnmarshalJSON(b []byte) error {
	*a = parseAltitude(strings.TrimSpace(string(b)))
	return nil
}

func parseAltitude(raw string) Altitude {
	switch {
	case "" == raw || "null" == raw:
		return Altitude{Kind: AltitudeAbsent}
	case '"' == raw[0]:
		var s string
		if err := json.UnmarshalFromString(raw, &s); nil == err && groundMarker == s {
			return Altitude{Kind: AltitudeGround}
		}
		// any other string is just as useless
		return Altitude{Kind: AltitudeInvalid}
	}
	feet, err := strconv.ParseFloat(raw, 64)
	if nil != err || math.IsNaN(feet) || math.Abs(feet) > maxAltitudeFeet {
		return Altitude{Kind: AltitudeInvalid}
	}
	return Altitude{Kind: AltitudeNumeric, Feet: feet}
}

// Usable is true when we have a number to work with
func (a Altitude) Usable() bool {
	return AltitudeNumeric == a.Kind
}

// UnmarshalJSON accepts numbers and numeric strings. It never fails.
func (c *Coordinate) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	*c = Coordinate{}
	if "" == raw || "null" == raw {
		return nil
	}
	if '"' == raw[0] {
		var s string
		if err := json.UnmarshalFromString(raw, &s); nil != err {
			return nil
		}
		raw = strings.TrimSpace(s)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if nil != err || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	c.Value = v
	c.Valid = true
	return nil
}

// UnmarshalJSON never fails
func (i *Ident) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	*i = ""
	if "" == raw {
		return nil
	}
	switch c := raw[0]; {
	case '"' == c:
		var s string
		if err := json.UnmarshalFromString(raw, &s); nil == err {
			*i = Ident(s)
		}
	case '-' == c || (c >= '0' && c <= '9'):
		*i = Ident(raw)
	}
	return nil
}

func (i Ident) String() string {
	return string(i)
}

// HasPosition tells us if the record carries enough to place it in the sky
func (r *Record) HasPosition() bool {
	return r.Lat.Valid && r.Lon.Valid && r.Altitude.Usable()
}

// Decode parses a feed body. Only a body that is not a JSON object (or has a broken aircraft list)
// is an error. Individual aircraft entries that fail to decode are skipped and counted.
func Decode(body []byte) (*Payload, error) {
	if 0 == len(bytes.TrimSpace(body)) {
		return nil, ErrEmptyPayload
	}
	var raw rawPayload
	if err := json.Unmarshal(body, &raw); nil != err {
		return nil, err
	}

	p := &Payload{
		Now:      raw.Now,
		Messages: raw.Messages,
		Aircraft: make([]Record, 0, len(raw.Aircraft)),
	}
	for _, entry := range raw.Aircraft {
		if "null" == string(bytes.TrimSpace(entry)) {
			p.Skipped++
			continue
		}
		var r Record
		if err := json.Unmarshal(entry, &r); nil != err {
			log.Debug().Err(err).Str("section", "feed").Msg("Skipping aircraft entry we cannot decode")
			p.Skipped++
			continue
		}
		p.Aircraft = append(p.Aircraft, r)
	}
	return p, nil
}
