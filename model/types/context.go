package types

import "context"

type jobContextKey string

// JobContextKey job context key
var JobContextKey = jobContextKey("job-context")

// JobContext describes the job a function is currently executing for.
type JobContext struct {
	BatchID string
	Index   int
	Worker  int
}

// WithJobContext returns a context carrying the job context.
func WithJobContext(ctx context.Context, jobContext *JobContext) context.Context {
	return context.WithValue(ctx, JobContextKey, jobContext)
}

// JobContextFrom returns job context or nil.
func JobContextFrom(ctx context.Context) *JobContext {
	value, _ := ctx.Value(JobContextKey).(*JobContext)
	return value
}
