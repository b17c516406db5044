package api

import (
	"errors"
	"fmt"
)

// Kind classifies REST client failures.
type Kind string

const (
	KindInvalidEndpoint Kind = "invalid_endpoint"
	KindInvalidResponse Kind = "invalid_response"
	KindUnauthorized    Kind = "unauthorized"
	KindHTTP            Kind = "http"
	KindTransport       Kind = "transport"
	KindDecoding        Kind = "decoding"
)

// Error is the typed failure surface of the REST client. Status and Body are
// populated for KindHTTP only.
type Error struct {
	Kind   Kind
	Status int
	Body   string
	cause  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidEndpoint:
		return "invalid endpoint URL"
	case KindInvalidResponse:
		return "unexpected server response"
	case KindUnauthorized:
		return "unauthorized API request"
	case KindHTTP:
		return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Body)
	case KindTransport:
		return fmt.Sprintf("network error: %v", e.cause)
	case KindDecoding:
		return fmt.Sprintf("decode response: %v", e.cause)
	default:
		return fmt.Sprintf("api error: %v", e.cause)
	}
}

func (e *Error) Unwrap() error {
	return e.cause
}

// ErrorKind extracts the taxonomy kind from err, or "" when err is not an
// api.Error.
func ErrorKind(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsUnauthorized reports whether err is a 401 classification.
func IsUnauthorized(err error) bool {
	return ErrorKind(err) == KindUnauthorized
}

func invalidEndpointError(cause error) *Error {
	return &Error{Kind: KindInvalidEndpoint, cause: cause}
}

func transportError(cause error) *Error {
	return &Error{Kind: KindTransport, cause: cause}
}

func decodingError(cause error) *Error {
	return &Error{Kind: KindDecoding, cause: cause}
}

func httpError(status int, body string) *Error {
	return &Error{Kind: KindHTTP, Status: status, Body: body}
}
