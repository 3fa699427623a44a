package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"allsky.watch/lib/config"
	"allsky.watch/lib/feed"
	"allsky.watch/lib/logging"
	"allsky.watch/lib/monitoring"
	"allsky.watch/lib/overlay"
	"allsky.watch/lib/setup"
	"allsky.watch/lib/skypos"
	"allsky.watch/lib/worker"
)

var (
	version = "dev"

	prometheusCycles = promauto.NewCounter(prometheus.CounterOpts{
		Subsystem: "allsky_adsb",
		Name:      "cycles_total",
		Help:      "The number of fetch, transform and filter cycles run",
	})
	prometheusFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: "allsky_adsb",
			Name:      "fetch_errors_total",
			Help:      "The number of failed feed fetches, by kind of failure",
		},
		[]string{"kind"},
	)
	prometheusFetchDuration = promauto.NewSummary(prometheus.SummaryOpts{
		Subsystem:  "allsky_adsb",
		Name:       "fetch_duration_seconds",
		Help:       "How long fetching the feed takes",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	})
	prometheusDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Subsystem: "allsky_adsb",
		Name:      "aircraft_decoded_total",
		Help:      "The number of aircraft records read from the feed",
	})
	prometheusDistant = promauto.NewCounter(prometheus.CounterOpts{
		Subsystem: "allsky_adsb",
		Name:      "aircraft_distant_total",
		Help:      "The number of aircraft seen further away than we expect to see anything",
	})
	prometheusVisible = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "allsky_adsb",
		Name:      "aircraft_visible",
		Help:      "The number of aircraft above the minimum elevation in the last cycle",
	})
	prometheusKicksThrottled = promauto.NewCounter(prometheus.CounterOpts{
		Subsystem: "allsky_adsb",
		Name:      "kicks_throttled_total",
		Help:      "The number of requests for an immediate cycle that were refused",
	})
)

func init() {
	for _, kind := range feed.AllErrorKinds {
		prometheusFetchErrors.WithLabelValues(kind.String())
	}
}

func main() {
	app := cli.NewApp()
	app.Version = version
	app.Name = "AllSky ADS-B Overlay (allsky_adsb)"
	app.Usage = "Aircraft positions for sky camera overlays"
	app.Description = "Polls an ADS-B receiver feed and works out where each aircraft is in the sky above the camera"

	app.Commands = cli.Commands{
		{
			Name:        "daemon",
			Description: "For prod, Logging is JSON formatted",
			Action:      runDaemon,
		},
		{
			Name:        "cli",
			Description: "Runs in your terminal with human readable output",
			Action:      runCli,
		},
		{
			Name:        "once",
			Description: "Runs a single cycle and prints the visible aircraft",
			Action:      runOnce,
		},
	}
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Config file with adsb.* and location.* settings (yaml, toml, json...)",
			EnvVars: []string{"CONFIG"},
		},
		&cli.StringFlag{
			Name:    "feed-url",
			Usage:   "The dump1090 style aircraft.json url. http://host:8080/data/aircraft.json",
			EnvVars: []string{"FEED_URL"},
		},
		&cli.StringFlag{
			Name:    "username",
			Usage:   "Basic auth username for the feed",
			EnvVars: []string{"FEED_USERNAME"},
		},
		&cli.StringFlag{
			Name:    "password",
			Usage:   "Basic auth password for the feed",
			EnvVars: []string{"FEED_PASSWORD"},
		},
		&cli.BoolFlag{
			Name:    "cert-bypass",
			Usage:   "Do not verify the feed's TLS certificate",
			Value:   true,
			EnvVars: []string{"CERT_BYPASS"},
		},
		&cli.Float64Flag{
			Name:    "min-elevation",
			Usage:   "Aircraft lower than this many degrees above the horizon are ignored",
			Value:   skypos.DefaultMinElevation,
			EnvVars: []string{"MIN_ELEVATION"},
		},
		&cli.Float64Flag{
			Name:    "lat",
			Usage:   "The camera's latitude",
			EnvVars: []string{"LATITUDE"},
		},
		&cli.Float64Flag{
			Name:    "lon",
			Usage:   "The camera's longitude",
			EnvVars: []string{"LONGITUDE"},
		},
		&cli.Float64Flag{
			Name:    "elevation",
			Usage:   "The camera's elevation in metres",
			EnvVars: []string{"ELEVATION"},
		},
		&cli.DurationFlag{
			Name:    "connect-timeout",
			Usage:   "How long to wait to connect to the feed",
			Value:   4 * time.Second,
			EnvVars: []string{"CONNECT_TIMEOUT"},
		},
		&cli.DurationFlag{
			Name:    "read-timeout",
			Usage:   "How long to wait for the feed to send us anything",
			Value:   2 * time.Second,
			EnvVars: []string{"READ_TIMEOUT"},
		},
		&cli.DurationFlag{
			Name:    "poll-interval",
			Usage:   "How often to fetch the feed",
			Value:   worker.DefaultInterval,
			EnvVars: []string{"POLL_INTERVAL"},
		},
		&cli.DurationFlag{
			Name:    "kick-interval",
			Usage:   "The minimum time between requested immediate fetches",
			Value:   worker.DefaultKickInterval,
			EnvVars: []string{"KICK_INTERVAL"},
		},
		&cli.DurationFlag{
			Name:    "max-age",
			Usage:   "An aircraft list older than this is treated as no aircraft. 0 to keep lists forever",
			Value:   time.Minute,
			EnvVars: []string{"MAX_AGE"},
		},
		&cli.StringFlag{
			Name:    "http-addr",
			Usage:   "Serve /aircraft and /ws on this address. Empty to disable",
			EnvVars: []string{"HTTP_ADDR"},
		},
		&cli.StringSliceFlag{
			Name:    "ws-origin",
			Usage:   "Extra origins allowed to open /ws. example.com, *.example.com",
			EnvVars: []string{"WS_ORIGIN"},
		},
	}

	logging.IncludeVerbosityFlags(app)
	monitoring.IncludeMonitoringFlags(app, 9610)
	setup.IncludeSinkFlags(app)

	app.Before = func(c *cli.Context) error {
		logging.SetLoggingLevel(c)

		return nil
	}

	if err := app.Run(os.Args); nil != err {
		log.Error().Err(err).Send()
	}
}

func runDaemon(c *cli.Context) error {
	return run(c)
}

func runCli(c *cli.Context) error {
	logging.ConfigureForCli()
	return run(c)
}

func runOnce(c *cli.Context) error {
	logging.ConfigureForCli()
	settings, err := loadSettings(c)
	if nil != err {
		return err
	}

	out := worker.NewResultChannel()
	w := worker.NewWorker(0, newFetcher(settings), newCalculator(settings), out)
	w.Run(c.Context)

	printTable(os.Stdout, <-out)
	return nil
}

// loadSettings reads the config file, then lets any flag that was actually given win
func loadSettings(c *cli.Context) (config.Settings, error) {
	settings, err := config.Load(c.String("config"))
	if nil != err {
		return settings, err
	}
	if c.IsSet("feed-url") {
		settings.FeedUrl = c.String("feed-url")
	}
	if c.IsSet("username") {
		settings.Username = c.String("username")
	}
	if c.IsSet("password") {
		settings.Password = c.String("password")
	}
	if c.IsSet("cert-bypass") {
		settings.CertBypass = c.Bool("cert-bypass")
	}
	if c.IsSet("min-elevation") {
		settings.MinElevation = c.Float64("min-elevation")
	}
	if c.IsSet("lat") {
		settings.Observer.Latitude = c.Float64("lat")
	}
	if c.IsSet("lon") {
		settings.Observer.Longitude = c.Float64("lon")
	}
	if c.IsSet("elevation") {
		settings.Observer.Elevation = c.Float64("elevation")
	}
	if c.IsSet("connect-timeout") {
		settings.ConnectTimeout = c.Duration("connect-timeout")
	}
	if c.IsSet("read-timeout") {
		settings.ReadTimeout = c.Duration("read-timeout")
	}
	if c.IsSet("poll-interval") {
		settings.PollInterval = c.Duration("poll-interval")
	}

	if err = settings.Validate(); nil != err {
		log.Info().Msg("Please provide the feed url (--feed-url) and the camera location (--lat, --lon)")
		return settings, err
	}
	return settings, nil
}

func newFetcher(settings config.Settings) *feed.Fetcher {
	opts := []feed.Option{
		feed.WithCertBypass(settings.CertBypass),
		feed.WithTimeouts(settings.ConnectTimeout, settings.ReadTimeout),
	}
	if "" != settings.Username {
		opts = append(opts, feed.WithBasicAuth(settings.Username, settings.Password))
	}
	return feed.NewFetcher(settings.FeedUrl, opts...)
}

func newCalculator(settings config.Settings) *skypos.Calculator {
	return skypos.NewCalculator(settings.Observer, settings.MinElevation, log.With().Str("section", "skypos").Logger())
}

func run(c *cli.Context) error {
	settings, err := loadSettings(c)
	if nil != err {
		return err
	}

	monitoring.RunWebServer(c)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := &worker.Metrics{
		Cycles:        prometheusCycles,
		FetchErrors:   prometheusFetchErrors,
		FetchDuration: prometheusFetchDuration,
		Decoded:       prometheusDecoded,
		Distant:       prometheusDistant,
		Visible:       prometheusVisible,
		Throttled:     prometheusKicksThrottled,
	}
	poller := worker.NewPoller(
		newFetcher(settings),
		newCalculator(settings),
		worker.WithInterval(settings.PollInterval),
		worker.WithKickInterval(c.Duration("kick-interval")),
		worker.WithPollerMetrics(metrics),
	)
	monitoring.AddHealthCheck(poller)

	latest := overlay.NewLatest(c.Duration("max-age"))
	monitoring.AddHealthCheck(latest)

	sinks, err := setup.HandleSinkFlags(c, "allsky_adsb")
	if nil != err {
		return err
	}
	for _, s := range sinks {
		monitoring.AddHealthCheck(s)
		updates, unsubscribe := latest.Subscribe()
		defer unsubscribe()
		s.Go(ctx, updates)
	}
	defer func() {
		for _, s := range sinks {
			s.Stop()
		}
	}()

	if addr := c.String("http-addr"); "" != addr {
		web := NewAllSkyWeb(addr, latest, poller, c.StringSlice("ws-origin"))
		monitoring.AddHealthCheck(web)
		exitChan := make(chan bool, 1)
		go web.listenAndServe(exitChan)
		defer web.Close()
		go func() {
			<-exitChan
			if nil == ctx.Err() {
				log.Error().Msg("Web server exited, shutting down")
				stop()
			}
		}()
	}

	log.Info().
		Str("feed", settings.FeedUrl).
		Float64("lat", settings.Observer.Latitude).
		Float64("lon", settings.Observer.Longitude).
		Float64("min-elevation", settings.MinElevation).
		Int("sinks", len(sinks)).
		Msg("Starting")

	go latest.Consume(ctx, poller.Results())
	poller.Run(ctx)

	log.Info().Msg("Shutting down")
	return nil
}
