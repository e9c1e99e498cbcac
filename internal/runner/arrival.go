package runner

import (
	"context"

	"golang.org/x/time/rate"
)

// spawnPacer spaces user starts with a rate.Limiter.
type spawnPacer struct {
	limiter *rate.Limiter
}

func newSpawnPacer(opt Options) *spawnPacer {
	return &spawnPacer{limiter: opt.LimiterFactory(opt.SpawnRate)}
}

func (p *spawnPacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return ctx.Err()
	}
	if p.limiter.Limit() == rate.Inf {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}
