package metrics

import (
	"time"

	"github.com/memora/memora-load/internal/classify"
)

// Sink receives classified requests.
type Sink interface {
	RecordRequest(latency time.Duration, outcome classify.Outcome, meta *RequestMetadata)
}

type tee []Sink

// Tee fans every record out to each non-nil sink in order.
func Tee(sinks ...Sink) Sink {
	out := make(tee, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (t tee) RecordRequest(latency time.Duration, outcome classify.Outcome, meta *RequestMetadata) {
	for _, s := range t {
		s.RecordRequest(latency, outcome, meta)
	}
}
