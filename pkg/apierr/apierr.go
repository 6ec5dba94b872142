// Package apierr defines the error taxonomy shared by the campus gateway and
// its clients. Each Kind maps to an HTTP status and a stable wire code so the
// gateway can translate upstream failures and clients can recover the kind
// from a response body.
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// Kind is a stable, machine-readable error code.
type Kind string

const (
	KindAuthenticationRequired Kind = "authentication_required"
	KindRateLimited            Kind = "rate_limited"
	KindCreditsExhausted       Kind = "credits_exhausted"
	KindUpstreamFailure        Kind = "upstream_failure"
	KindConfigurationError     Kind = "configuration_error"
	KindMalformedStreamFrame   Kind = "malformed_stream_frame"
	KindPayloadTooLarge        Kind = "payload_too_large"
	KindInvalidRequest         Kind = "invalid_request"
)

type kindInfo struct {
	status  int
	message string
}

var kinds = map[Kind]kindInfo{
	KindAuthenticationRequired: {http.StatusUnauthorized, "Authentication required. Please sign in."},
	KindRateLimited:            {http.StatusTooManyRequests, "Rate limit exceeded. Please try again later."},
	KindCreditsExhausted:       {http.StatusPaymentRequired, "AI credits exhausted. Please contact admin."},
	KindUpstreamFailure:        {http.StatusBadGateway, "AI gateway error"},
	KindConfigurationError:     {http.StatusInternalServerError, "AI gateway is not configured"},
	KindMalformedStreamFrame:   {http.StatusInternalServerError, "malformed stream frame"},
	KindPayloadTooLarge:        {http.StatusRequestEntityTooLarge, "Content is too large"},
	KindInvalidRequest:         {http.StatusBadRequest, "Invalid request"},
}

// Sentinels for errors.Is. Any *Error of the same Kind matches.
var (
	ErrAuthenticationRequired = &Error{Kind: KindAuthenticationRequired}
	ErrRateLimited            = &Error{Kind: KindRateLimited}
	ErrCreditsExhausted       = &Error{Kind: KindCreditsExhausted}
	ErrUpstreamFailure        = &Error{Kind: KindUpstreamFailure}
	ErrConfigurationError     = &Error{Kind: KindConfigurationError}
	ErrMalformedStreamFrame   = &Error{Kind: KindMalformedStreamFrame}
	ErrPayloadTooLarge        = &Error{Kind: KindPayloadTooLarge}
	ErrInvalidRequest         = &Error{Kind: KindInvalidRequest}
)

// Error is a classified gateway error.
type Error struct {
	Kind Kind

	// Message overrides the default copy for the Kind when set.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// New creates an Error of the given kind with an optional message override.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err as kind. The default copy for kind is used as message.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	msg := e.UserMessage()
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Status returns the HTTP status for the error's kind.
func (e *Error) Status() int {
	return Status(e.Kind)
}

// UserMessage returns the copy shown to callers: the override if set,
// otherwise the kind's default.
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if info, ok := kinds[e.Kind]; ok {
		return info.message
	}
	return string(e.Kind)
}

// Retryable reports whether retrying the same request may succeed.
// Rate limit, credit, configuration, auth and validation failures never are.
func (e *Error) Retryable() bool {
	return e.Kind == KindUpstreamFailure
}

// Status returns the HTTP status for kind, or 500 for an unknown kind.
func Status(kind Kind) int {
	if info, ok := kinds[kind]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// As returns the first *Error in err's chain. Errors that are not classified
// are reported as upstream failures wrapping err.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(KindUpstreamFailure, err)
}

// FromUpstreamStatus translates the status of an upstream completion
// response. It returns nil for 2xx statuses.
func FromUpstreamStatus(code int) *Error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		return New(KindRateLimited, "")
	case code == http.StatusPaymentRequired:
		return New(KindCreditsExhausted, "")
	default:
		return Wrap(KindUpstreamFailure, fmt.Errorf("upstream returned status %d", code))
	}
}

// FromResponse recovers an Error from a gateway response. The "code" field of
// the JSON body wins; otherwise the kind is inferred from the status.
// It returns nil for 2xx statuses.
func FromResponse(status int, body []byte) *Error {
	if status >= 200 && status < 300 {
		return nil
	}

	var message string
	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		message = parsed.Get("error").String()
		code := Kind(parsed.Get("code").String())
		if _, ok := kinds[code]; ok {
			return New(code, message)
		}
	}

	var kind Kind
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = KindAuthenticationRequired
	case http.StatusTooManyRequests:
		kind = KindRateLimited
	case http.StatusPaymentRequired:
		kind = KindCreditsExhausted
	case http.StatusRequestEntityTooLarge:
		kind = KindPayloadTooLarge
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		kind = KindInvalidRequest
	default:
		kind = KindUpstreamFailure
	}
	return New(kind, message)
}
