package feed

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ErrorKind is the class of a failed fetch
type ErrorKind int

const (
	DNSResolution ErrorKind = iota + 1
	ConnectTimeout
	ReadTimeout
	ConnectionRefused
	TLSVerification
	TLSOther
	HTTPStatus
	PayloadDecode
	// Cancelled is the caller giving up, usually on shutdown
	Cancelled
	// Request is every other transport failure
	Request
)

var ErrHTTPStatus = errors.New("feed returned an error status")

// AllErrorKinds is used to pre-populate metrics
var AllErrorKinds = []ErrorKind{
	DNSResolution, ConnectTimeout, ReadTimeout, ConnectionRefused, TLSVerification, TLSOther, HTTPStatus,
	PayloadDecode, Cancelled, Request,
}

func (k ErrorKind) String() string {
	switch k {
	case DNSResolution:
		return "dns_resolution"
	case ConnectTimeout:
		return "connect_timeout"
	case ReadTimeout:
		return "read_timeout"
	case ConnectionRefused:
		return "connection_refused"
	case TLSVerification:
		return "tls_verification"
	case TLSOther:
		return "tls_other"
	case HTTPStatus:
		return "http_status"
	case PayloadDecode:
		return "payload_decode"
	case Cancelled:
		return "cancelled"
	case Request:
		return "request"
	default:
		return "unknown"
	}
}

// FetchError is a classified fetch failure
type FetchError struct {
	Kind ErrorKind
	// StatusCode is set for HTTPStatus errors
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if nil == e.Err {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func newFetchError(kind ErrorKind, err error) *FetchError {
	return &FetchError{Kind: kind, Err: err}
}

// classify works out what went wrong with a request. ctx is the request context so we can
// tell our own cancellation apart from a timeout on the wire.
func classify(ctx context.Context, err error) *FetchError {
	if nil == err {
		return nil
	}

	if nil != ctx && errors.Is(ctx.Err(), context.Canceled) {
		return newFetchError(Cancelled, err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return newFetchError(DNSResolution, err)
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return newFetchError(ConnectionRefused, err)
	}

	if isCertificateError(err) {
		return newFetchError(TLSVerification, err)
	}

	var opErr *net.OpError
	isDial := errors.As(err, &opErr) && "dial" == opErr.Op

	if isTimeout(err) {
		if isDial || strings.Contains(err.Error(), "TLS handshake timeout") {
			return newFetchError(ConnectTimeout, err)
		}
		return newFetchError(ReadTimeout, err)
	}

	if isTLSError(err) {
		return newFetchError(TLSOther, err)
	}

	return newFetchError(Request, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isCertificateError(err error) bool {
	var verifyErr *tls.CertificateVerificationError
	var unknownAuthority x509.UnknownAuthorityError
	var invalid x509.CertificateInvalidError
	var hostname x509.HostnameError
	var systemRoots x509.SystemRootsError
	return errors.As(err, &verifyErr) ||
		errors.As(err, &unknownAuthority) ||
		errors.As(err, &invalid) ||
		errors.As(err, &hostname) ||
		errors.As(err, &systemRoots)
}

func isTLSError(err error) bool {
	var headerErr tls.RecordHeaderError
	if errors.As(err, &headerErr) {
		return true
	}
	// alerts and handshake failures are not exported types
	msg := err.Error()
	return strings.Contains(msg, "tls: ") || strings.Contains(msg, "HTTP response to HTTPS client")
}
