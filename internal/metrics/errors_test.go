package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"syscall"
	"testing"
	"unicode/utf8"

	"github.com/memora/memora-load/internal/classify"
)

func TestFailureLabel(t *testing.T) {
	tests := []struct {
		name    string
		outcome classify.Outcome
		want    string
	}{
		{"server status", classify.Accept(200).Classify(503, []byte("busy"), nil), "server 503"},
		{"client status", classify.Accept(200).Classify(404, nil, nil), "client 404"},
		{"unexpected status", classify.Accept(201).Classify(200, nil, nil), "unexpected 200"},
		{"deadline", classify.Transport(0, &url.Error{Op: "Get", URL: "http://x", Err: context.DeadlineExceeded}), "transport: context deadline exceeded"},
		{"refused", classify.Transport(0, fmt.Errorf("dial: %w", syscall.ECONNREFUSED)), "transport: connection refused"},
		{"decode", classify.Transport(201, fmt.Errorf("decode response: %w", errors.New("response has no id"))), "transport: response has no id"},
		{"no error", classify.Outcome{Class: classify.HardFailure, Kind: classify.KindTransport}, "transport"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FailureLabel(tt.outcome); got != tt.want {
				t.Errorf("FailureLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFailureLabelTruncatesOnRuneBoundary(t *testing.T) {
	msg := strings.Repeat("a", maxCauseLen-1) + "é tail"
	got := FailureLabel(classify.Transport(0, errors.New(msg)))
	if !utf8.ValidString(got) {
		t.Fatalf("label is not valid UTF-8: %q", got)
	}
	if !strings.HasPrefix(got, "transport: ") || len(got) > len("transport: ")+maxCauseLen {
		t.Errorf("unexpected label %q", got)
	}
}
