// Package errs provides the structured error envelope returned by the Tradernet client.
package errs

import (
	"errors"
	"strconv"
	"strings"
)

// Code identifies a client error category.
type Code string

const (
	// CodeMissingKeypair indicates a signed call without both credentials.
	CodeMissingKeypair Code = "missing_keypair"
	// CodeUnsupportedVersion indicates an API version other than 2 or 3.
	CodeUnsupportedVersion Code = "unsupported_api_version"
	// CodeInvalid indicates invalid input provided by the caller.
	CodeInvalid Code = "invalid_request"
	// CodeTransport indicates a non-2xx HTTP status or a connection failure.
	CodeTransport Code = "transport"
	// CodeSerialization indicates malformed JSON in either direction.
	CodeSerialization Code = "serialization"
	// CodeDecode indicates a tolerant decoder failure at a known field path.
	CodeDecode Code = "decode"
	// CodeStreaming indicates a streaming connection failure.
	CodeStreaming Code = "streaming"
	// CodeUnavailable indicates a local resource (worker pool) cannot accept work.
	CodeUnavailable Code = "unavailable"
)

// E captures structured error information produced across the client.
type E struct {
	Op      string
	Code    Code
	HTTP    int
	Version int
	Path    string
	Message string
	RawMsg  string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the operation and error code.
func New(op string, code Code, opts ...Option) *E {
	e := &E{
		Op:      strings.TrimSpace(op),
		Code:    code,
		HTTP:    0,
		Version: 0,
		Path:    "",
		Message: "",
		RawMsg:  "",
		cause:   nil,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithHTTP records the associated HTTP status code.
func WithHTTP(status int) Option {
	return func(e *E) {
		e.HTTP = status
	}
}

// WithVersion records the requested API version.
func WithVersion(version int) Option {
	return func(e *E) {
		e.Version = version
	}
}

// WithPath records the structural location of a decode failure.
func WithPath(path string) Option {
	trimmed := strings.TrimSpace(path)
	return func(e *E) {
		e.Path = trimmed
	}
}

// WithRawMessage captures a raw upstream body excerpt.
func WithRawMessage(msg string) Option {
	return func(e *E) {
		e.RawMsg = msg
	}
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	var parts []string

	code := strings.TrimSpace(string(e.Code))
	if code == "" {
		code = "unknown"
	}
	parts = append(parts, "code="+code)

	if e.Op != "" {
		parts = append(parts, "op="+e.Op)
	}
	if e.HTTP > 0 {
		parts = append(parts, "http="+strconv.Itoa(e.HTTP))
	}
	if e.Version != 0 {
		parts = append(parts, "version="+strconv.Itoa(e.Version))
	}
	if e.Path != "" {
		parts = append(parts, "path="+strconv.Quote(e.Path))
	}
	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if e.RawMsg != "" {
		parts = append(parts, "raw_msg="+strconv.Quote(e.RawMsg))
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}

	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// Is reports whether err carries an envelope with the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var e *E
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// MissingKeypair returns the error raised when a signed call lacks credentials.
func MissingKeypair(op string) *E {
	return New(op, CodeMissingKeypair, WithMessage("missing API keypair"))
}

// UnsupportedVersion returns the error raised for API versions other than 2 and 3.
func UnsupportedVersion(op string, version int) *E {
	return New(op, CodeUnsupportedVersion, WithVersion(version),
		WithMessage("unsupported API version: "+strconv.Itoa(version)))
}

// Invalid returns an invalid input error with the given message.
func Invalid(op, message string) *E {
	return New(op, CodeInvalid, WithMessage(message))
}
