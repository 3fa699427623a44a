package feed

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const sampleFeed = `{"now":1700000000,"messages":10,"aircraft":[
	{"hex":"a1b2c3","flight":"UAL123  ","squawk":"1200","lat":40.1,"lon":-75.0,"altitude":30000}
]}`

func init() {
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

func feedHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(feedHandler(sampleFeed))
	defer srv.Close()

	p, fErr := NewFetcher(srv.URL).Fetch(context.Background())
	if nil != fErr {
		t.Fatalf("Unexpected error: %s", fErr)
	}
	if 1 != len(p.Aircraft) {
		t.Fatalf("Expected 1 aircraft, got %d", len(p.Aircraft))
	}
	if "a1b2c3" != p.Aircraft[0].Hex {
		t.Errorf("Incorrect hex: %s", p.Aircraft[0].Hex)
	}
}

func TestFetcher_BasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || "skywatch" != user || "hunter2" != pass {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		feedHandler(sampleFeed)(w, r)
	}))
	defer srv.Close()

	if _, fErr := NewFetcher(srv.URL, WithBasicAuth("skywatch", "hunter2")).Fetch(context.Background()); nil != fErr {
		t.Errorf("Expected auth to work, got %s", fErr)
	}

	_, fErr := NewFetcher(srv.URL).Fetch(context.Background())
	if nil == fErr {
		t.Fatalf("Expected a failure without credentials")
	}
	if HTTPStatus != fErr.Kind || http.StatusUnauthorized != fErr.StatusCode {
		t.Errorf("Expected a 401 HTTPStatus error, got %s (%d)", fErr.Kind, fErr.StatusCode)
	}
}

func TestFetcher_Failures(t *testing.T) {
	slowHeaders := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	slowBody := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"aircraft":[`))
		w.(http.Flusher).Flush()
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	unavailable := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "try again later", http.StatusServiceUnavailable)
	})

	tests := []struct {
		name    string
		handler http.Handler
		want    ErrorKind
	}{
		{name: "Service Unavailable", handler: unavailable, want: HTTPStatus},
		{name: "Malformed JSON", handler: feedHandler(`{"aircraft": [{"hex": "abc"`), want: PayloadDecode},
		{name: "HTML", handler: feedHandler(`<html><body>It works!</body></html>`), want: PayloadDecode},
		{name: "Empty", handler: feedHandler(""), want: PayloadDecode},
		{name: "Slow Headers", handler: slowHeaders, want: ReadTimeout},
		{name: "Slow Body", handler: slowBody, want: ReadTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			f := NewFetcher(srv.URL, WithTimeouts(time.Second, 100*time.Millisecond))
			p, fErr := f.Fetch(context.Background())
			if nil == fErr {
				t.Fatalf("Expected an error, got payload %+v", p)
			}
			if tt.want != fErr.Kind {
				t.Errorf("Expected %s, got %s (%s)", tt.want, fErr.Kind, fErr)
			}
		})
	}
}

func TestFetcher_TLS(t *testing.T) {
	srv := httptest.NewTLSServer(feedHandler(sampleFeed))
	defer srv.Close()

	if _, fErr := NewFetcher(srv.URL).Fetch(context.Background()); nil != fErr {
		t.Errorf("Cert bypass is the default, expected success, got %s", fErr)
	}

	_, fErr := NewFetcher(srv.URL, WithCertBypass(false)).Fetch(context.Background())
	if nil == fErr {
		t.Fatalf("Expected certificate verification to fail")
	}
	if TLSVerification != fErr.Kind {
		t.Errorf("Expected %s, got %s (%s)", TLSVerification, fErr.Kind, fErr)
	}
}

func TestFetcher_HTTPSAgainstPlainServer(t *testing.T) {
	srv := httptest.NewServer(feedHandler(sampleFeed))
	defer srv.Close()

	_, fErr := NewFetcher(strings.Replace(srv.URL, "http://", "https://", 1)).Fetch(context.Background())
	if nil == fErr {
		t.Fatalf("Expected a TLS failure")
	}
	if TLSOther != fErr.Kind {
		t.Errorf("Expected %s, got %s (%s)", TLSOther, fErr.Kind, fErr)
	}
}

func TestFetcher_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if nil != err {
		t.Fatalf("Failed to listen: %s", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	_, fErr := NewFetcher("http://" + addr + "/data/aircraft.json").Fetch(context.Background())
	if nil == fErr {
		t.Fatalf("Expected a connection failure")
	}
	if ConnectionRefused != fErr.Kind {
		t.Errorf("Expected %s, got %s (%s)", ConnectionRefused, fErr.Kind, fErr)
	}
}

func TestFetcher_Cancelled(t *testing.T) {
	srv := httptest.NewServer(feedHandler(sampleFeed))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, fErr := NewFetcher(srv.URL).Fetch(ctx)
	if nil == fErr {
		t.Fatalf("Expected the fetch to be cancelled")
	}
	if Cancelled != fErr.Kind {
		t.Errorf("Expected %s, got %s (%s)", Cancelled, fErr.Kind, fErr)
	}
}

func TestFetcher_BadUrl(t *testing.T) {
	_, fErr := NewFetcher("://nope").Fetch(context.Background())
	if nil == fErr || Request != fErr.Kind {
		t.Errorf("Expected a request error, got %v", fErr)
	}
}

func TestClassify(t *testing.T) {
	wrap := func(err error) error {
		return &url.Error{Op: "Get", URL: "http://feed.local/data/aircraft.json", Err: err}
	}
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{
			name: "DNS",
			err:  wrap(&net.OpError{Op: "dial", Net: "tcp", Err: &net.DNSError{Err: "no such host", Name: "feed.local", IsNotFound: true}}),
			want: DNSResolution,
		},
		{
			name: "Dial Timeout",
			err:  wrap(&net.OpError{Op: "dial", Net: "tcp", Err: os.ErrDeadlineExceeded}),
			want: ConnectTimeout,
		},
		{
			name: "Read Timeout",
			err:  wrap(&net.OpError{Op: "read", Net: "tcp", Err: os.ErrDeadlineExceeded}),
			want: ReadTimeout,
		},
		{
			name: "Refused",
			err:  wrap(&net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}),
			want: ConnectionRefused,
		},
		{
			name: "Certificate",
			err:  wrap(&tls.CertificateVerificationError{Err: errors.New("x509: certificate signed by unknown authority")}),
			want: TLSVerification,
		},
		{
			name: "Record Header",
			err:  wrap(tls.RecordHeaderError{Msg: "first record does not look like a TLS handshake"}),
			want: TLSOther,
		},
		{
			name: "Reset",
			err:  wrap(&net.OpError{Op: "read", Net: "tcp", Err: os.NewSyscallError("read", syscall.ECONNRESET)}),
			want: Request,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(context.Background(), tt.err)
			if tt.want != got.Kind {
				t.Errorf("classify() = %s, want %s", got.Kind, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("classified error should wrap the original")
			}
		})
	}

	if nil != classify(context.Background(), nil) {
		t.Errorf("nil error should not be classified")
	}
}
