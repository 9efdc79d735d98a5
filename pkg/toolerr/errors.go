package toolerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies every failure a tool call can surface to its caller
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNoRoute       Kind = "no_route"
	KindTransient     Kind = "transient_network"
	KindBuild         Kind = "build_failure"
	KindRejected      Kind = "rejected"
	KindOnChain       Kind = "on_chain_failure"
	KindIndeterminate Kind = "indeterminate"
	KindConfiguration Kind = "configuration"
	KindCancelled     Kind = "cancelled"
	KindInternal      Kind = "internal"
)

// Attributes holds the default behaviour of a kind.
// Retryable means the caller may safely issue the same call again.
type Attributes struct {
	Message   string
	Retryable bool
}

var registry = map[Kind]Attributes{
	KindValidation:    {Message: "invalid arguments", Retryable: false},
	KindNoRoute:       {Message: "no swap route found", Retryable: false},
	KindTransient:     {Message: "network unavailable", Retryable: true},
	KindBuild:         {Message: "aggregator returned an unusable transaction", Retryable: true},
	KindRejected:      {Message: "transaction rejected by the network", Retryable: false},
	KindOnChain:       {Message: "transaction failed on chain", Retryable: false},
	KindIndeterminate: {Message: "transaction outcome unknown", Retryable: false},
	KindConfiguration: {Message: "invalid configuration", Retryable: false},
	KindCancelled:     {Message: "call cancelled", Retryable: true},
	KindInternal:      {Message: "internal error", Retryable: false},
}

// AttributesOf returns the registered attributes, falling back to KindInternal
func AttributesOf(kind Kind) Attributes {
	if attr, ok := registry[kind]; ok {
		return attr
	}
	return registry[KindInternal]
}

// Error is the single error type that crosses layer boundaries
type Error struct {
	kind         Kind
	message      string
	cause        error
	signature    string
	exhausted    bool
	notDelivered bool
	feesConsumed bool
}

// Option customises an Error
type Option func(*Error)

// WithSignature attaches the transaction signature the error refers to
func WithSignature(signature string) Option {
	return func(e *Error) {
		e.signature = signature
	}
}

// WithExhausted marks a transient error whose retries ran out
func WithExhausted() Option {
	return func(e *Error) {
		e.exhausted = true
	}
}

// WithNotDelivered marks a transient error where the request never reached the remote side
func WithNotDelivered() Option {
	return func(e *Error) {
		e.notDelivered = true
	}
}

// WithFeesConsumed marks an error after which network fees may have been charged
func WithFeesConsumed() Option {
	return func(e *Error) {
		e.feesConsumed = true
	}
}

// New creates an error of the given kind
func New(kind Kind, message string, opts ...Option) *Error {
	if message == "" {
		message = AttributesOf(kind).Message
	}
	e := &Error{kind: kind, message: message}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Newf creates an error with a formatted message
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap classifies cause under kind
func Wrap(kind Kind, cause error, message string, opts ...Option) *Error {
	e := New(kind, message, opts...)
	if cause != nil {
		e.cause = errors.WithStack(cause)
	}
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.kind, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.kind, e.message)
}

// Detail renders the classified message chain for callers. Unclassified
// causes stay out of it; Error() keeps them for logs.
func (e *Error) Detail() string {
	if e == nil {
		return ""
	}
	if e.cause == nil {
		return e.message
	}
	if inner, ok := From(e.cause); ok {
		if inner.message == e.message {
			return inner.Detail()
		}
		return e.message + ": " + inner.Detail()
	}
	return e.message
}

// Unwrap exposes the cause to errors.Is / errors.As
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is reports whether target is an *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.kind == t.kind
}

func (e *Error) Kind() Kind {
	if e == nil {
		return KindInternal
	}
	return e.kind
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Signature() string {
	if e == nil {
		return ""
	}
	return e.signature
}

func (e *Error) Exhausted() bool    { return e != nil && e.exhausted }
func (e *Error) NotDelivered() bool { return e != nil && e.notDelivered }
func (e *Error) FeesConsumed() bool { return e != nil && e.feesConsumed }

// Retryable reports whether the caller may issue the same call again
func (e *Error) Retryable() bool {
	if e == nil {
		return false
	}
	return AttributesOf(e.kind).Retryable
}

// From extracts an *Error from err's chain
func From(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindInternal for unclassified errors
func KindOf(err error) Kind {
	if e, ok := From(err); ok {
		return e.Kind()
	}
	return KindInternal
}

// IsKind reports whether err is classified as kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// NotDelivered reports whether err is a transient failure that never left the process
func NotDelivered(err error) bool {
	e, ok := From(err)
	return ok && e.kind == KindTransient && e.notDelivered
}

// Ensure classifies an arbitrary error, keeping existing classifications
func Ensure(err error, fallback Kind, message string) *Error {
	if err == nil {
		return nil
	}
	if e, ok := From(err); ok {
		return e
	}
	return Wrap(fallback, err, message)
}
