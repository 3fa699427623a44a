package sink

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultSubject = "allsky-aircraft"
	DefaultTTL     = 60 * time.Second
)

type (
	Config struct {
		host, port string
		user, pass string
		database   int

		subject string
		ttl     time.Duration

		waiter sync.WaitGroup

		sourceTag      string
		connectionName string

		stats struct {
			published, failed prometheus.Counter
		}
	}

	Option func(*Config)
)

func (c *Config) setupConfig(opts []Option) {
	c.subject = DefaultSubject
	c.ttl = DefaultTTL
	for _, opt := range opts {
		opt(c)
	}
}

func WithConnectionName(name string) Option {
	return func(conf *Config) {
		conf.connectionName = name
	}
}

func WithHost(host, port string) Option {
	return func(conf *Config) {
		conf.host = host
		conf.port = port
	}
}

func WithUserPass(user, pass string) Option {
	return func(conf *Config) {
		conf.user = user
		conf.pass = pass
	}
}

func WithDatabase(db int) Option {
	return func(conf *Config) {
		conf.database = db
	}
}

// WithSubject is the NATS subject, or the redis key, the list is written to
func WithSubject(subject string) Option {
	return func(conf *Config) {
		if "" != subject {
			conf.subject = subject
		}
	}
}

// WithTTL is how long redis keeps a list we have not replaced
func WithTTL(ttl time.Duration) Option {
	return func(conf *Config) {
		conf.ttl = ttl
	}
}

func WithSourceTag(tag string) Option {
	return func(config *Config) {
		config.sourceTag = tag
	}
}

func WithPrometheusCounters(published, failed prometheus.Counter) Option {
	return func(conf *Config) {
		conf.stats.published = published
		conf.stats.failed = failed
	}
}

func (c *Config) Subject() string {
	return c.subject
}

func (c *Config) Finish() {
	c.waiter.Wait()
}
