package nats_io

import (
	"net"
	"net/url"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultPort = "4222"

type (
	// Server is a publish only connection to a NATS server
	Server struct {
		url  string
		name string
		conn *nats.Conn

		log zerolog.Logger
	}
)

func NewServer(serverUrl, connectionName string) (*Server, error) {
	n := &Server{
		name: connectionName,
		log:  log.With().Str("section", "nats.io").Logger(),
	}
	n.SetUrl(serverUrl)
	if err := n.Connect(); nil != err {
		return nil, err
	}
	return n, nil
}

// SetUrl fills in the default port when none is given
func (n *Server) SetUrl(serverUrl string) {
	serverUrlParts, err := url.Parse(serverUrl)
	if nil != err {
		n.log.Error().Err(err).Msg("invalid url")
		n.url = serverUrl
		return
	}
	if "" == serverUrlParts.Port() {
		serverUrlParts.Host = net.JoinHostPort(serverUrlParts.Hostname(), DefaultPort)
	}
	n.url = serverUrlParts.String()
}

func (n *Server) Url() string {
	return n.url
}

func (n *Server) Connect() error {
	var err error
	n.log.Debug().Str("url", n.url).Str("name", n.name).Msg("connecting to server...")
	n.conn, err = nats.Connect(n.url,
		nats.Name(n.name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			n.log.Warn().Err(err).Msg("Disconnected from NATS server")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			n.log.Info().Str("server", c.ConnectedUrl()).Msg("Reconnected to NATS server")
		}),
	)
	if nil != err {
		n.log.Error().Err(err).Msg("Unable to connect to NATS server")
		return err
	}
	return nil
}

// Publish drops the message when we are not connected, the next cycle will have a fresh list
func (n *Server) Publish(subject string, msg []byte) error {
	if n.conn.IsConnected() {
		return n.conn.Publish(subject, msg)
	}
	return nil
}

func (n *Server) Close() {
	if n.conn.IsConnected() {
		if err := n.conn.Flush(); nil != err {
			n.log.Error().Err(err).Msg("failed to flush connection")
		}
	}
	n.conn.Close()
}

func (n *Server) HealthCheckName() string {
	return "Nats"
}

func (n *Server) HealthCheck() bool {
	return n.conn.IsConnected()
}
