package relay

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrOffline is returned by a Prober when the relay host cannot be reached.
	ErrOffline = errors.New("no network connectivity")
	// ErrTimeout is returned when the relay does not answer before the deadline.
	ErrTimeout = errors.New("relay request timed out")
)

// StatusError is a non-2xx relay response.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error: %d %s", e.Code, e.Status)
}

// MalformedError is a 2xx response whose body could not be understood.
type MalformedError struct {
	Err error
}

func (e *MalformedError) Error() string {
	return "malformed relay response: " + e.Err.Error()
}

func (e *MalformedError) Unwrap() error { return e.Err }

// RejectedError is a well-formed response with success=false.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "Unknown error"
	}
	return "submission failed: " + msg
}

// UnreachableError is a transport failure before any response arrived.
type UnreachableError struct {
	Err error
}

func (e *UnreachableError) Error() string {
	return "relay unreachable: " + e.Err.Error()
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// Kind names a failure class.
type Kind string

const (
	KindOffline     Kind = "offline"
	KindUnreachable Kind = "unreachable"
	KindTimeout     Kind = "timeout"
	KindStatus      Kind = "status"
	KindMalformed   Kind = "malformed"
	KindRejected    Kind = "rejected"
)

// Failure is a classified submission error with a message fit for shoppers.
// Every kind may be retried.
type Failure struct {
	Kind   Kind
	Reason string
}

func (f *Failure) Error() string {
	return string(f.Kind) + ": " + f.Reason
}

// Classify maps a submission error to a Failure. It returns nil for nil.
func Classify(err error) *Failure {
	if err == nil {
		return nil
	}

	var (
		failure     *Failure
		statusErr   *StatusError
		malformed   *MalformedError
		rejected    *RejectedError
		unreachable *UnreachableError
	)
	switch {
	case errors.As(err, &failure):
		return failure
	case errors.Is(err, ErrOffline):
		return &Failure{
			Kind:   KindOffline,
			Reason: "No internet connection. Please check your network and try again.",
		}
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return &Failure{
			Kind:   KindTimeout,
			Reason: "Request timed out. Please check your internet connection and try again.",
		}
	case errors.As(err, &statusErr):
		return &Failure{
			Kind:   KindStatus,
			Reason: "Server is temporarily unavailable. Please try again in a few minutes.",
		}
	case errors.As(err, &malformed):
		return &Failure{
			Kind:   KindMalformed,
			Reason: "Received an unexpected response. Please try again or contact support.",
		}
	case errors.As(err, &rejected):
		msg := rejected.Message
		if msg == "" {
			msg = "Unknown error"
		}
		return &Failure{
			Kind:   KindRejected,
			Reason: "Submission failed: " + msg,
		}
	case errors.As(err, &unreachable):
		return &Failure{
			Kind:   KindUnreachable,
			Reason: "Network error. Please check your internet connection and try again.",
		}
	default:
		return &Failure{
			Kind:   KindUnreachable,
			Reason: "There was an error submitting your message. Please try again or contact support.",
		}
	}
}
