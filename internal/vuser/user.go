// Package vuser runs a single virtual user: an optional setup, then a loop
// of think time followed by one weighted task, until the context is done.
package vuser

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/memora/memora-load/internal/auth"
	"github.com/memora/memora-load/internal/classify"
	"github.com/memora/memora-load/internal/flashcards"
	"github.com/memora/memora-load/internal/identity"
	"github.com/memora/memora-load/internal/inventory"
	"github.com/memora/memora-load/internal/logging"
	"github.com/memora/memora-load/internal/metrics"
	"github.com/memora/memora-load/internal/scenario"
	"github.com/memora/memora-load/internal/tracing"
)

// Recorder receives every request a user issues.
type Recorder interface {
	RecordRequest(latency time.Duration, outcome classify.Outcome, meta *metrics.RequestMetadata)
}

// FailureLogger receives soft and hard failures.
type FailureLogger interface {
	LogFailure(f logging.Failure)
}

// Options configures a User.
type Options struct {
	ID       ulid.ULID
	Class    *scenario.Class
	Identity *identity.Identity
	// Client is the shared API client; the user binds its identity to a copy.
	Client   *flashcards.Client
	Rand     *rand.Rand
	Recorder Recorder
	Failures FailureLogger
	Tracer   trace.Tracer
}

// Counts summarises what a user did. It is safe to read once Run returned.
type Counts struct {
	Tasks        int64
	Skipped      int64
	Requests     int64
	Successes    int64
	SoftFailures int64
	Failures     int64
}

// User is one simulated client. It is driven by a single goroutine.
type User struct {
	ID        ulid.ULID
	Identity  *identity.Identity
	Class     *scenario.Class
	Inventory *inventory.Inventory

	rng       *rand.Rand
	client    *flashcards.Client
	tasks     *Picker[scenario.Task]
	recorder  Recorder
	failures  FailureLogger
	tracer    trace.Tracer
	stop      context.Context
	accountID string
	task      string
	counts    Counts
}

// New validates opts and returns a ready User.
func New(opts Options) (*User, error) {
	if opts.Class == nil {
		return nil, errors.New("class is required")
	}
	if opts.Client == nil {
		return nil, errors.New("client is required")
	}
	if opts.Class.Authenticated && opts.Identity == nil {
		return nil, identity.ErrEmptyPool
	}
	tasks, err := NewPicker(opts.Class.Tasks, func(t scenario.Task) int { return t.Weight })
	if err != nil {
		return nil, err
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}

	return &User{
		ID:        opts.ID,
		Identity:  opts.Identity,
		Class:     opts.Class,
		Inventory: inventory.New(),
		rng:       rng,
		client:    opts.Client.WithAuth(auth.ForIdentity(opts.Identity)),
		tasks:     tasks,
		recorder:  opts.Recorder,
		failures:  opts.Failures,
		tracer:    tracer,
	}, nil
}

// Run executes setup and then the task loop until ctx is done. A request in
// flight always completes; cancellation is observed while thinking and by
// tasks between their requests.
func (u *User) Run(ctx context.Context) {
	u.stop = ctx
	if u.Class.Setup != nil && ctx.Err() == nil {
		u.Class.Setup(context.WithoutCancel(ctx), u)
	}
	for u.think(ctx) {
		u.Step(context.WithoutCancel(ctx))
	}
}

// Step picks one task and runs it.
func (u *User) Step(ctx context.Context) classify.Outcome {
	task, ok := u.tasks.Pick(u.rng)
	if !ok {
		return classify.Skip()
	}
	u.task = task.Name
	defer func() { u.task = "" }()

	out := task.Run(ctx, u)
	u.counts.Tasks++
	if out.Class == classify.Skipped {
		u.counts.Skipped++
	}
	return out
}

// think sleeps for a uniformly drawn time in the class's range. It reports
// false when ctx ended first.
func (u *User) think(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	d := u.thinkTime()
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (u *User) thinkTime() time.Duration {
	lo, hi := u.Class.ThinkMin, u.Class.ThinkMax
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(u.rng.Int63n(int64(hi-lo)+1))
}

// Counts returns the user's counters.
func (u *User) Counts() Counts {
	return u.counts
}

// Owned returns the decks and cards this user created.
func (u *User) Owned() *inventory.Inventory { return u.Inventory }

// Rand returns the user's seeded random source.
func (u *User) Rand() *rand.Rand { return u.rng }

// Authenticated reports whether requests carry the user's bearer token.
func (u *User) Authenticated() bool { return u.client.Authenticated() }

// AccountID returns the id assigned by the setup create-user call, if any.
func (u *User) AccountID() string { return u.accountID }

// SetAccountID stores the id returned by the create-user call.
func (u *User) SetAccountID(id string) { u.accountID = id }

// Stopped reports whether the context passed to Run is done. It is false
// when the user is driven through Step directly.
func (u *User) Stopped() bool { return u.stop != nil && u.stop.Err() != nil }

// Call issues send, classifies the response with rule, and records it.
func (u *User) Call(ctx context.Context, name string, rule classify.Rule, send scenario.Request) (flashcards.Response, classify.Outcome) {
	ctx, span := tracing.StartRequestSpan(ctx, u.tracer, name, u.task, u.Class.Name)
	resp := send(ctx, u.client)
	out := rule.Classify(resp.Status, resp.Body, resp.Err)
	tracing.EndRequestSpan(span, out, tracing.HTTPAttributes(resp.Method, resp.Route)...)

	u.counts.Requests++
	switch out.Class {
	case classify.Success:
		u.counts.Successes++
	case classify.SoftFailure:
		u.counts.SoftFailures++
	case classify.HardFailure:
		u.counts.Failures++
	}

	if u.recorder != nil {
		u.recorder.RecordRequest(resp.Latency, out, &metrics.RequestMetadata{
			Request: name,
			Task:    u.task,
			Class:   u.Class.Name,
			Method:  resp.Method,
			Route:   resp.Route,
		})
	}
	if u.failures != nil && out.Class != classify.Success {
		u.failures.LogFailure(logging.Failure{
			User:    u.ID.String(),
			Class:   u.Class.Name,
			Task:    u.task,
			Request: name,
			Outcome: out,
		})
	}
	return resp, out
}
