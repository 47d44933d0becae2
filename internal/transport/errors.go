package transport

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a request failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindInvalidURL means the request URL could not be parsed.
	KindInvalidURL
	// KindRequestPreparation means the request body or envelope could not be built.
	KindRequestPreparation
	// KindNetwork means a transport-level failure (DNS, timeout, connection reset).
	KindNetwork
	// KindServer means the server answered with a non-success HTTP status.
	KindServer
	// KindInvalidResponse means the response envelope could not be read.
	KindInvalidResponse
	// KindDecoding means the response body did not match the expected shape.
	KindDecoding
)

func (k Kind) String() string {
	switch k {
	case KindInvalidURL:
		return "invalid_url"
	case KindRequestPreparation:
		return "request_preparation_failed"
	case KindNetwork:
		return "network_error"
	case KindServer:
		return "server_error"
	case KindInvalidResponse:
		return "invalid_response"
	case KindDecoding:
		return "decoding_error"
	default:
		return "unknown"
	}
}

// Error is a classified request failure. Status is set for KindServer only.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Kind == KindServer && e.Status > 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from err, or KindUnknown when err is not
// a transport error.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUnknown
}

// StatusOf extracts the HTTP status from a server-kind error, or 0.
func StatusOf(err error) int {
	var te *Error
	if errors.As(err, &te) && te.Kind == KindServer {
		return te.Status
	}
	return 0
}
