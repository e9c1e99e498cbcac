package runner

import (
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/memora/memora-load/internal/flashcards"
	"github.com/memora/memora-load/internal/identity"
	"github.com/memora/memora-load/internal/scenario"
	"github.com/memora/memora-load/internal/vuser"
)

// UserObserver is notified when a virtual user starts and stops.
type UserObserver interface {
	UserStarted()
	UserStopped()
}

// Options configure the Runner.
type Options struct {
	Users          int                 // number of virtual users
	SpawnRate      float64             // users started per second (0 starts all at once)
	Duration       time.Duration       // overall time limit (0 runs until ctx is cancelled)
	Classes        []*scenario.Class   // class mixture, drawn by spawn weight
	Pool           identity.Pool       // identities for authenticated classes
	Seed           int64               // base seed (0 derives one from the clock)
	Client         *flashcards.Client  // shared API client (required)
	Recorder       vuser.Recorder      // optional request sink
	Failures       vuser.FailureLogger // optional failure sink
	Observer       UserObserver        // optional active-user tracking
	Tracer         trace.Tracer        // optional request tracer
	Logger         *zap.Logger         // optional lifecycle logger
	LimiterFactory func(rps float64) *rate.Limiter // optional injection for tests
}

func (o *Options) normalize() {
	if o.Users <= 0 {
		o.Users = 1
	}
	if o.SpawnRate < 0 {
		o.SpawnRate = 0
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps float64) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}
