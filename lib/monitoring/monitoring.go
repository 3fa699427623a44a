package monitoring

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

type (
	// HealthCheck is implemented by anything that can tell us if it is working
	HealthCheck interface {
		HealthCheckName() string
		HealthCheck() bool
	}

	healthChecks struct {
		mu     sync.Mutex
		checks []HealthCheck
	}
)

const (
	MetricsHost = "metrics-host"
	MetricsPort = "metrics-port"
)

var checks healthChecks

func IncludeMonitoringFlags(app *cli.App, defaultPort int) {
	app.Flags = append(app.Flags, []cli.Flag{
		&cli.StringFlag{
			Name:    MetricsHost,
			Usage:   "The host to serve /metrics and /status on. Leave empty for all interfaces",
			EnvVars: []string{"METRICS_HOST"},
		},
		&cli.IntFlag{
			Name:    MetricsPort,
			Usage:   "The port to serve /metrics and /status on. 0 to disable",
			Value:   defaultPort,
			EnvVars: []string{"METRICS_PORT"},
		},
	}...)
}

// AddHealthCheck registers something for /status to report on
func AddHealthCheck(hc HealthCheck) {
	checks.mu.Lock()
	defer checks.mu.Unlock()
	checks.checks = append(checks.checks, hc)
}

// RunWebServer serves prometheus metrics and our health checks in the background
func RunWebServer(c *cli.Context) {
	port := c.Int(MetricsPort)
	if 0 == port {
		return
	}
	addr := net.JoinHostPort(c.String(MetricsHost), strconv.Itoa(port))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/status", StatusHandler)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", addr).Msg("Serving metrics and status")
		if err := server.ListenAndServe(); nil != err && http.ErrServerClosed != err {
			log.Error().Err(err).Str("addr", addr).Msg("Metrics server stopped")
		}
	}()
}

// StatusHandler reports each health check, 500 if any of them are failing
func StatusHandler(w http.ResponseWriter, r *http.Request) {
	checks.mu.Lock()
	list := make([]HealthCheck, len(checks.checks))
	copy(list, checks.checks)
	checks.mu.Unlock()

	healthy := true
	status := make(map[string]bool, len(list))
	for _, hc := range list {
		ok := hc.HealthCheck()
		status[hc.HealthCheckName()] = ok
		healthy = healthy && ok
	}

	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		w.WriteHeader(http.StatusInternalServerError)
	}
	json := jsoniter.ConfigFastest
	if err := json.NewEncoder(w).Encode(status); nil != err {
		log.Error().Err(err).Msg("Failed to write status")
	}
}

func reset() {
	checks.mu.Lock()
	defer checks.mu.Unlock()
	checks.checks = nil
}
