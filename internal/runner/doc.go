// Package runner spawns the virtual-user population and drives it to
// completion.
//
// Spawning happens up front: every user gets a class drawn by spawn weight,
// an identity drawn with replacement from the pool when its class is
// authenticated, a ULID and its own seeded random source. A run whose
// authenticated classes cannot be served by the pool fails with a
// [ConfigError] before any request is sent.
//
// # Basic Usage
//
//	r := runner.New(runner.Options{
//		Users:     50,
//		SpawnRate: 5,
//		Duration:  10 * time.Minute,
//		Classes:   classes,
//		Pool:      pool,
//		Client:    client,
//		Recorder:  collector,
//	})
//	res, err := r.Run(ctx)
//
// Users are started at most SpawnRate per second. Run returns once ctx is
// cancelled or Duration has elapsed and every user goroutine has exited.
package runner
