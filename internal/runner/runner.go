package runner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/memora/memora-load/internal/identity"
	"github.com/memora/memora-load/internal/scenario"
	"github.com/memora/memora-load/internal/vuser"
)

// Result captures execution summary.
type Result struct {
	Users        int
	Classes      map[string]int
	Tasks        int64
	Skipped      int64
	Requests     int64
	Successes    int64
	SoftFailures int64
	Failures     int64
	Duration     time.Duration
}

// Runner spawns virtual users and waits for them to finish.
type Runner struct {
	opt   Options
	pacer *spawnPacer
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt, pacer: newSpawnPacer(opt)}
}

// Spawn builds every virtual user without starting it. Class and identity
// draws come from the base seed; user i is seeded with seed+i+1.
func (r *Runner) Spawn() ([]*vuser.User, error) {
	if r.opt.Client == nil {
		return nil, &ConfigError{Reason: "api client is required"}
	}
	for _, class := range r.opt.Classes {
		if class.RequiresIdentity() && r.opt.Pool.Empty() {
			return nil, &ConfigError{
				Reason: fmt.Sprintf("class %s requires identities", class.Name),
				Err:    identity.ErrEmptyPool,
			}
		}
	}
	classes, err := vuser.NewPicker(r.opt.Classes, func(c *scenario.Class) int { return c.SpawnWeight })
	if err != nil {
		if errors.Is(err, vuser.ErrNoWeight) {
			return nil, &ConfigError{Reason: "no user class has a positive spawn weight", Err: err}
		}
		return nil, err
	}

	rng := rand.New(rand.NewSource(r.opt.Seed))
	entropy := ulid.Monotonic(rand.New(rand.NewSource(r.opt.Seed)), 0)

	users := make([]*vuser.User, 0, r.opt.Users)
	for i := 0; i < r.opt.Users; i++ {
		class, _ := classes.Pick(rng)
		var id *identity.Identity
		if class.Authenticated {
			picked, ok := r.opt.Pool.Pick(rng)
			if !ok {
				return nil, &ConfigError{Reason: fmt.Sprintf("class %s requires identities", class.Name), Err: identity.ErrEmptyPool}
			}
			id = &picked
		}
		u, err := vuser.New(vuser.Options{
			ID:       ulid.MustNew(ulid.Now(), entropy),
			Class:    class,
			Identity: id,
			Client:   r.opt.Client,
			Rand:     rand.New(rand.NewSource(r.opt.Seed + int64(i) + 1)),
			Recorder: r.opt.Recorder,
			Failures: r.opt.Failures,
			Tracer:   r.opt.Tracer,
		})
		if err != nil {
			return nil, fmt.Errorf("user %d: %w", i, err)
		}
		users = append(users, u)
	}
	return users, nil
}

// Run spawns the users, paced by the spawn rate, and blocks until ctx is
// cancelled or the duration elapses and every user has returned.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	users, err := r.Spawn()
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	if r.opt.Duration > 0 {
		deadlineCtx, cancel := context.WithTimeout(ctx, r.opt.Duration)
		ctx = deadlineCtx
		defer cancel()
	}

	log := r.opt.Logger
	log.Info("spawning users",
		zap.Int("users", len(users)),
		zap.Float64("spawn_rate", r.opt.SpawnRate),
		zap.Duration("duration", r.opt.Duration),
	)

	var wg sync.WaitGroup
	started := make([]*vuser.User, 0, len(users))
	for _, u := range users {
		if err := r.pacer.Wait(ctx); err != nil {
			break
		}
		started = append(started, u)
		wg.Add(1)
		go func(u *vuser.User) {
			defer wg.Done()
			if r.opt.Observer != nil {
				r.opt.Observer.UserStarted()
				defer r.opt.Observer.UserStopped()
			}
			log.Debug("user started", zap.Stringer("user", u.ID), zap.String("class", u.Class.Name))
			u.Run(ctx)
			log.Debug("user stopped", zap.Stringer("user", u.ID))
		}(u)
	}
	wg.Wait()

	res := Result{
		Users:    len(started),
		Classes:  make(map[string]int),
		Duration: time.Since(start),
	}
	for _, u := range started {
		c := u.Counts()
		res.Classes[u.Class.Name]++
		res.Tasks += c.Tasks
		res.Skipped += c.Skipped
		res.Requests += c.Requests
		res.Successes += c.Successes
		res.SoftFailures += c.SoftFailures
		res.Failures += c.Failures
	}
	log.Info("all users stopped",
		zap.Int("users", res.Users),
		zap.Int64("requests", res.Requests),
		zap.Duration("elapsed", res.Duration),
	)
	return res, nil
}
