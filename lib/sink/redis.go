package sink

import (
	"context"
	"net"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const redisTimeout = 2 * time.Second

type (
	// RedisSink keeps the most recent list under a key so other processes can read it
	RedisSink struct {
		Config
		client *redis.Client
		log    zerolog.Logger
	}
)

func NewRedisSink(opts ...Option) (*Sink, error) {
	r := newRedisSink(opts...)
	return NewSink(&r.Config, r), nil
}

func newRedisSink(opts ...Option) *RedisSink {
	r := &RedisSink{}
	r.setupConfig(opts)
	port := r.port
	if "" == port {
		port = "6379"
	}
	r.client = redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(r.host, port),
		Username:     r.user,
		Password:     r.pass,
		DB:           r.database,
		DialTimeout:  redisTimeout,
		ReadTimeout:  redisTimeout,
		WriteTimeout: redisTimeout,
	})
	r.log = log.With().Str("section", "redis").Str("addr", r.client.Options().Addr).Logger()
	return r
}

// PublishJson replaces the list at key subject, it expires after the configured ttl
func (r *RedisSink) PublishJson(subject string, msg []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	return r.client.Set(ctx, subject, msg, r.ttl).Err()
}

func (r *RedisSink) Stop() {
	if err := r.client.Close(); nil != err {
		r.log.Error().Err(err).Msg("Failed to close redis connection")
	}
}

func (r *RedisSink) HealthCheckName() string {
	return "Redis"
}

func (r *RedisSink) HealthCheck() bool {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); nil != err {
		r.log.Warn().Err(err).Msg("Redis ping failed")
		return false
	}
	return true
}
