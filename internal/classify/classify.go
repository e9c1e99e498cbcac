// Package classify turns HTTP responses into load-test outcomes.
//
// Every request is classified as one of:
//   - [Success]: the status is in the request's accepted set
//   - [SoftFailure]: HTTP 429, always accepted regardless of the request
//   - [HardFailure]: anything else, including transport errors
//
// A fourth value, [Skipped], marks a task that issued no request because its
// preconditions were not met.
package classify

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// StatusRateLimited is the universal soft-failure status.
const StatusRateLimited = http.StatusTooManyRequests

const maxBodyBytes = 1024

// Classification is the coarse result of a request or task.
type Classification int

const (
	Skipped Classification = iota
	Success
	SoftFailure
	HardFailure
)

func (c Classification) String() string {
	switch c {
	case Skipped:
		return "skipped"
	case Success:
		return "success"
	case SoftFailure:
		return "soft_failure"
	case HardFailure:
		return "hard_failure"
	default:
		return fmt.Sprintf("classification(%d)", int(c))
	}
}

// Kind refines a HardFailure.
type Kind string

const (
	KindNone       Kind = ""
	KindClient     Kind = "client"
	KindServer     Kind = "server"
	KindTransport  Kind = "transport"
	KindUnexpected Kind = "unexpected"
)

// HTTPError represents a rejected HTTP response with status details.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Outcome is the classified result of a request.
type Outcome struct {
	Class  Classification
	Kind   Kind
	Status int
	Err    error
}

// Applies reports whether the request's local state mutation should be
// applied. Rate-limited requests are treated as accepted.
func (o Outcome) Applies() bool {
	return o.Class == Success || o.Class == SoftFailure
}

// Failed reports whether the outcome is a HardFailure.
func (o Outcome) Failed() bool {
	return o.Class == HardFailure
}

// RateLimited reports whether the outcome is a SoftFailure.
func (o Outcome) RateLimited() bool {
	return o.Class == SoftFailure
}

// Skip is the outcome of a task whose preconditions were unmet.
func Skip() Outcome {
	return Outcome{Class: Skipped}
}

// Transport builds a HardFailure for a request that produced no usable
// response: connection errors, timeouts and malformed bodies.
func Transport(status int, err error) Outcome {
	return Outcome{Class: HardFailure, Kind: KindTransport, Status: status, Err: err}
}

// Decoder inspects the body of an accepted response. A non-nil error
// downgrades the outcome to a transport HardFailure.
type Decoder func(body []byte) error

// Rule declares which statuses a request accepts.
type Rule struct {
	accept []int
	decode Decoder
}

// Accept builds a Rule accepting the given status codes.
func Accept(codes ...int) Rule {
	return Rule{accept: append([]int(nil), codes...)}
}

// Expect returns a copy of r that runs decode against accepted bodies.
func (r Rule) Expect(decode Decoder) Rule {
	r.decode = decode
	return r
}

// Accepts reports whether status is in the rule's accepted set.
func (r Rule) Accepts(status int) bool {
	for _, code := range r.accept {
		if code == status {
			return true
		}
	}
	return false
}

// Classify maps a response (or transport error) to an Outcome.
func (r Rule) Classify(status int, body []byte, err error) Outcome {
	if err != nil {
		return Transport(status, err)
	}
	if status == StatusRateLimited {
		return Outcome{Class: SoftFailure, Status: status}
	}
	if r.Accepts(status) {
		if r.decode != nil {
			if decodeErr := r.decode(body); decodeErr != nil {
				return Transport(status, fmt.Errorf("decode response: %w", decodeErr))
			}
		}
		return Outcome{Class: Success, Status: status}
	}

	kind := KindUnexpected
	switch {
	case status >= 500:
		kind = KindServer
	case status >= 400:
		kind = KindClient
	}
	return Outcome{
		Class:  HardFailure,
		Kind:   kind,
		Status: status,
		Err:    &HTTPError{StatusCode: status, Body: snippet(body)},
	}
}

func snippet(body []byte) string {
	if len(body) > maxBodyBytes {
		n := maxBodyBytes
		for n > 0 && !utf8.RuneStart(body[n]) {
			n--
		}
		body = body[:n]
	}
	return strings.TrimSpace(string(body))
}
