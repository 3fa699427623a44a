package feed

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultConnectTimeout = 4 * time.Second
	DefaultReadTimeout    = 2 * time.Second

	// maxBodySize stops a misbehaving feed from eating all our memory
	maxBodySize = 32 << 20
)

type (
	// Fetcher performs a single GET against an aircraft feed
	Fetcher struct {
		url                string
		username, password string
		hasAuth            bool
		certBypass         bool

		connectTimeout, readTimeout time.Duration

		client *http.Client
		log    zerolog.Logger
	}

	Option func(*Fetcher)
)

// NewFetcher makes a Fetcher for the given feed URL. TLS certificate checks are bypassed unless
// told otherwise, feeds are usually self-hosted receivers on a trusted network.
func NewFetcher(feedUrl string, opts ...Option) *Fetcher {
	f := &Fetcher{
		url:            feedUrl,
		certBypass:     true,
		connectTimeout: DefaultConnectTimeout,
		readTimeout:    DefaultReadTimeout,
		log:            log.With().Str("section", "feed").Logger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.client = f.newClient()
	return f
}

func WithBasicAuth(username, password string) Option {
	return func(f *Fetcher) {
		if "" == username {
			return
		}
		f.username = username
		f.password = password
		f.hasAuth = true
	}
}

func WithCertBypass(bypass bool) Option {
	return func(f *Fetcher) {
		f.certBypass = bypass
	}
}

func WithTimeouts(connect, read time.Duration) Option {
	return func(f *Fetcher) {
		if connect > 0 {
			f.connectTimeout = connect
		}
		if read > 0 {
			f.readTimeout = read
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(f *Fetcher) {
		f.log = logger
	}
}

func (f *Fetcher) String() string {
	return f.url
}

func (f *Fetcher) newClient() *http.Client {
	dialer := &net.Dialer{
		Timeout: f.connectTimeout,
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if nil != err {
				return nil, err
			}
			return &readTimeoutConn{Conn: conn, timeout: f.readTimeout}, nil
		},
		TLSHandshakeTimeout:   f.connectTimeout,
		ResponseHeaderTimeout: f.readTimeout,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: f.certBypass, //nolint:gosec // self-hosted feeds
		},
		// one request per cycle, nothing to gain by keeping connections around
		DisableKeepAlives: true,
	}
	return &http.Client{Transport: transport}
}

// Fetch grabs and decodes the feed. Every failure comes back classified.
func (f *Fetcher) Fetch(ctx context.Context) (*Payload, *FetchError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if nil != err {
		return nil, newFetchError(Request, err)
	}
	if f.hasAuth {
		req.SetBasicAuth(f.username, f.password)
	}
	req.Header.Set("Accept", "application/json")

	f.log.Debug().Str("url", f.url).Msg("Fetching aircraft")
	resp, err := f.client.Do(req)
	if nil != err {
		return nil, classify(ctx, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{
			Kind:       HTTPStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %d %s", ErrHTTPStatus, resp.StatusCode, http.StatusText(resp.StatusCode)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if nil != err {
		return nil, classify(ctx, err)
	}

	payload, err := Decode(body)
	if nil != err {
		return nil, newFetchError(PayloadDecode, err)
	}
	return payload, nil
}

// readTimeoutConn gives every read its own deadline, so the read timeout is the longest we will
// sit waiting for the feed to send us anything rather than a budget for the whole body.
type readTimeoutConn struct {
	net.Conn
	timeout time.Duration
}

func (c *readTimeoutConn) Read(b []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); nil != err && !errors.Is(err, net.ErrClosed) {
			return 0, err
		}
	}
	return c.Conn.Read(b)
}
