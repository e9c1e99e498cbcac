package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/memora/memora-load/internal/classify"
)

const maxCauseLen = 60

// FailureLabel names a hard failure by its kind and cause: "server 503",
// "client 404", "transport: context deadline exceeded".
func FailureLabel(outcome classify.Outcome) string {
	kind := string(outcome.Kind)
	if kind == "" {
		kind = string(classify.KindUnexpected)
	}

	var httpErr *classify.HTTPError
	switch {
	case errors.As(outcome.Err, &httpErr):
		return kind + " " + strconv.Itoa(httpErr.StatusCode)
	case outcome.Err == nil && outcome.Status > 0:
		return kind + " " + strconv.Itoa(outcome.Status)
	case outcome.Err == nil:
		return kind
	}
	return kind + ": " + failureCause(outcome.Err)
}

// failureCause reduces a transport error to a short, address-free phrase.
func failureCause(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "context deadline exceeded"
	case errors.Is(err, context.Canceled):
		return "context canceled"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "connection refused"
	case errors.Is(err, syscall.ECONNRESET):
		return "connection reset"
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return "unexpected EOF"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	}

	cause := err
	for {
		inner := errors.Unwrap(cause)
		if inner == nil {
			break
		}
		cause = inner
	}
	msg := strings.TrimSpace(cause.Error())
	if msg == "" {
		return "unknown error"
	}
	if len(msg) > maxCauseLen {
		n := maxCauseLen
		for n > 0 && !utf8.RuneStart(msg[n]) {
			n--
		}
		msg = msg[:n]
	}
	return msg
}
