package workspace

import "context"

// ProduceFunc is the client's production action. It must write only inside
// dir and return an error to abandon the attempt.
type ProduceFunc func(ctx context.Context, dir string) error

// Stage wraps a production action with cross-cutting behavior, such as
// timing, bookkeeping, or validation around the client's work.
//
// Stages compose in declaration order: the first stage passed to
// WithStages is the outermost wrapper and observes the full attempt.
type Stage func(next ProduceFunc) ProduceFunc

// chain composes stages around fn, first stage outermost.
func chain(stages []Stage, fn ProduceFunc) ProduceFunc {
	for i := len(stages) - 1; i >= 0; i-- {
		fn = stages[i](fn)
	}
	return fn
}
