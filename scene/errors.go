package scene

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"google.golang.org/genai"
)

// Kind classifies a pipeline failure. Every user-visible error in the bot
// maps to exactly one kind, so the handlers can pick the right message and
// decide whether to point the user at the API key flow.
type Kind int

const (
	KindUnknown Kind = iota
	KindMissingCredential
	KindMissingInput
	KindResponseFormat
	KindResponseSchema
	KindEmptyGeneration
	KindPolling
	KindDownload
	KindTimeout
	KindTransport
	KindAuthorization
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindMissingCredential:
		return "missing_credential"
	case KindMissingInput:
		return "missing_input"
	case KindResponseFormat:
		return "response_format"
	case KindResponseSchema:
		return "response_schema"
	case KindEmptyGeneration:
		return "empty_generation"
	case KindPolling:
		return "polling"
	case KindDownload:
		return "download"
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	case KindAuthorization:
		return "authorization"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error is a kinded pipeline error.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.err
}

func newError(kind Kind, format string, a ...any) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, a...)}
}

func wrapError(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, msg: msg, err: err}
}

// KindOf extracts the Kind from an error chain, KindUnknown if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// SuggestsKeyProblem reports whether the error kind is one of the two
// dominant real-world causes of failed model calls, in which case the bot
// offers the API key selection flow.
func SuggestsKeyProblem(err error) bool {
	k := KindOf(err)
	return k == KindTransport || k == KindAuthorization
}

// ClassifyAPIError converts a model call failure into a kinded error at the
// adapter boundary. Classification is by the API's structured status code;
// message substrings are used only for transport-level failures that carry
// no code at all.
func ClassifyAPIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401, 403:
			return wrapError(KindAuthorization, err, "api key rejected")
		case 404:
			// Requested entity not found: in practice an invalid key or a
			// model the key has no access to.
			return wrapError(KindAuthorization, err, "model or resource not found")
		default:
			if apiErr.Code >= 500 {
				return wrapError(KindTransport, err, "upstream service error")
			}
			return wrapError(KindUnknown, err, "model call failed")
		}
	}

	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return wrapError(KindTransport, err, "network failure")
	}

	// Fallback for errors that reach us as bare strings.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api_key_invalid"),
		strings.Contains(msg, "api key not valid"),
		strings.Contains(msg, "permission denied"):
		return wrapError(KindAuthorization, err, "api key rejected")
	case strings.Contains(msg, "connection"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "rpc failed"):
		return wrapError(KindTransport, err, "network failure")
	}

	return wrapError(KindUnknown, err, "model call failed")
}
