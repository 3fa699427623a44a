package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"allsky.watch/lib/skypos"
)

const (
	KeyFeedUrl        = "adsb.dump1090_url"
	KeyUsername       = "adsb.username"
	KeyPassword       = "adsb.password"
	KeyCertBypass     = "adsb.cert_bypass"
	KeyMinElevation   = "adsb.alt_deg_min"
	KeyConnectTimeout = "adsb.connect_timeout"
	KeyReadTimeout    = "adsb.read_timeout"
	KeyPollInterval   = "adsb.poll_interval"
	KeyLatitude       = "location.latitude"
	KeyLongitude      = "location.longitude"
	KeyElevation      = "location.elevation"
)

var (
	ErrNoFeedUrl      = errors.New("no feed url configured")
	ErrBadLatitude    = errors.New("latitude must be between -90 and 90")
	ErrBadLongitude   = errors.New("longitude must be between -180 and 180")
	ErrBadTimeout     = errors.New("timeouts must be positive")
	ErrBadPollPeriod  = errors.New("poll interval must be positive")
	ErrBadFeedUrlKind = errors.New("feed url must be http or https")
)

// Settings is everything needed to run the aircraft pipeline
type Settings struct {
	FeedUrl        string
	Username       string
	Password       string
	CertBypass     bool
	MinElevation   float64
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	PollInterval   time.Duration
	Observer       skypos.Observer
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyCertBypass, true)
	v.SetDefault(KeyMinElevation, skypos.DefaultMinElevation)
	v.SetDefault(KeyConnectTimeout, 4*time.Second)
	v.SetDefault(KeyReadTimeout, 2*time.Second)
	v.SetDefault(KeyPollInterval, 15*time.Second)
}

// Load reads the optional config file. An empty file name gives the defaults.
func Load(file string) (Settings, error) {
	v := viper.New()
	setDefaults(v)
	if "" != file {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); nil != err {
			return Settings{}, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}
	return fromViper(v), nil
}

// Defaults are the settings with no config file at all
func Defaults() Settings {
	v := viper.New()
	setDefaults(v)
	return fromViper(v)
}

func fromViper(v *viper.Viper) Settings {
	return Settings{
		FeedUrl:        strings.TrimSpace(v.GetString(KeyFeedUrl)),
		Username:       v.GetString(KeyUsername),
		Password:       v.GetString(KeyPassword),
		CertBypass:     v.GetBool(KeyCertBypass),
		MinElevation:   v.GetFloat64(KeyMinElevation),
		ConnectTimeout: v.GetDuration(KeyConnectTimeout),
		ReadTimeout:    v.GetDuration(KeyReadTimeout),
		PollInterval:   v.GetDuration(KeyPollInterval),
		Observer: skypos.Observer{
			Latitude:  v.GetFloat64(KeyLatitude),
			Longitude: v.GetFloat64(KeyLongitude),
			Elevation: v.GetFloat64(KeyElevation),
		},
	}
}

// Validate checks the settings can be used to start a worker
func (s Settings) Validate() error {
	if "" == s.FeedUrl {
		return ErrNoFeedUrl
	}
	u, err := url.Parse(s.FeedUrl)
	if nil != err {
		return fmt.Errorf("invalid feed url %q: %w", s.FeedUrl, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w, got %q", ErrBadFeedUrlKind, u.Scheme)
	}
	if s.Observer.Latitude < -90 || s.Observer.Latitude > 90 {
		return ErrBadLatitude
	}
	if s.Observer.Longitude < -180 || s.Observer.Longitude > 180 {
		return ErrBadLongitude
	}
	if s.ConnectTimeout <= 0 || s.ReadTimeout <= 0 {
		return ErrBadTimeout
	}
	if s.PollInterval <= 0 {
		return ErrBadPollPeriod
	}
	return nil
}
