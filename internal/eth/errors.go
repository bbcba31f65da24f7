package eth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrUnsupported = errors.New("method not supported by provider")

// ErrorKind is the closed set of failure classes callers dispatch on.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	// KindTransient covers every failure without a more specific class.
	KindTransient
	// KindRangeTooLarge means the queried block range (or its result set)
	// exceeds a provider capacity limit. Retrying a narrower range may work.
	KindRangeTooLarge
	// KindUnsupported means the endpoint does not implement the method.
	KindUnsupported
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindRangeTooLarge:
		return "range_too_large"
	case KindUnsupported:
		return "unsupported"
	default:
		return "transient"
	}
}

// RPCError is a JSON-RPC error object surfaced by the endpoint.
type RPCError struct {
	Method  string
	Code    int
	Message string
	Kind    ErrorKind
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc %s %d: %s", e.Method, e.Code, e.Message)
}

func (e *RPCError) Is(target error) bool {
	return target == ErrUnsupported && e.Kind == KindUnsupported
}

type httpStatusError struct {
	code int
	body string
}

func (e *httpStatusError) Error() string { return fmt.Sprintf("http %d: %s", e.code, e.body) }

type transportError struct{ err error }

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// Provider-specific wordings for "range too large". Each major provider
// phrases it differently; all of them collapse to KindRangeTooLarge here so
// nothing downstream matches on text.
var rangeTooLargeMarkers = []string{
	"block range too large",
	"range too large",
	"block range is too wide",
	"exceed maximum block range",
	"exceeds max block range",
	"query returned more than",
	"too many blocks",
	"log response size exceeded",
	"response size exceeded",
	"query timeout exceeded",
}

// -32005 is shared between capacity limits and request throttling; throttles
// must not shrink the range.
var rateLimitMarkers = []string{
	"rate limit",
	"request rate exceeded",
	"too many requests",
	"throttl",
	"exceeded its compute units",
}

func classifyRPCError(code int, msg string) ErrorKind {
	m := strings.ToLower(msg)
	if code == -32601 || strings.Contains(m, "method not found") {
		return KindUnsupported
	}
	for _, marker := range rateLimitMarkers {
		if strings.Contains(m, marker) {
			return KindTransient
		}
	}
	if code == -32005 {
		return KindRangeTooLarge
	}
	for _, marker := range rangeTooLargeMarkers {
		if strings.Contains(m, marker) {
			return KindRangeTooLarge
		}
	}
	return KindTransient
}

// KindOf reports the ErrorKind of err. Errors that did not originate from a
// Provider are KindTransient; nil is KindNone.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var re *RPCError
	if errors.As(err, &re) {
		return re.Kind
	}
	var se *httpStatusError
	if errors.As(err, &se) && se.code == http.StatusRequestEntityTooLarge {
		return KindRangeTooLarge
	}
	if errors.Is(err, ErrUnsupported) {
		return KindUnsupported
	}
	return KindTransient
}
