package sink

import (
	"net"
	"net/url"
	"regexp"

	"github.com/rs/zerolog/log"

	"allsky.watch/lib/nats_io"
)

type (
	NatsSink struct {
		Config
		server *nats_io.Server
	}
)

var whitespace = regexp.MustCompile(`\s`)

func NewNatsSink(opts ...Option) (*Sink, error) {
	n := &NatsSink{}
	n.setupConfig(opts)
	if err := n.connect(); nil != err {
		log.Error().Err(err).Msg("Unable to setup nats sink")
		return nil, err
	}
	return NewSink(&n.Config, n), nil
}

func (n *NatsSink) serverUrl() string {
	port := n.port
	if "" == port {
		port = nats_io.DefaultPort
	}
	serverUrl := url.URL{
		Scheme: "nats",
		Host:   net.JoinHostPort(n.host, port),
	}
	if "" != n.user {
		serverUrl.User = url.UserPassword(n.user, n.pass)
	}
	return serverUrl.String()
}

func (n *NatsSink) connect() error {
	var err error
	st := whitespace.ReplaceAllString(n.sourceTag, "_")
	n.server, err = nats_io.NewServer(n.serverUrl(), n.connectionName+"+source="+st)
	return err
}

func (n *NatsSink) PublishJson(subject string, msg []byte) error {
	return n.server.Publish(subject, msg)
}

func (n *NatsSink) Stop() {
	n.server.Close()
}

func (n *NatsSink) HealthCheck() bool {
	return n.server.HealthCheck()
}

func (n *NatsSink) HealthCheckName() string {
	return n.server.HealthCheckName()
}
