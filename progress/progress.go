package progress

import (
	"context"
	"sync"
	"time"

	"github.com/viant/batcher/internal/clock"
)

// Delta represents an incremental counter change emitted by the batcher or a
// worker. The fields are signed and can be either positive or negative.
type Delta struct {
	Batches   int
	Total     int
	Completed int
	Failed    int
	Running   int
	Pending   int
}

// Progress keeps aggregated job counters. It is safe for concurrent use.
type Progress struct {
	Name      string
	StartedAt time.Time

	Batches       int
	TotalJobs     int
	CompletedJobs int
	FailedJobs    int
	RunningJobs   int
	PendingJobs   int

	sync.Mutex
	onChange func(Progress)
}

// New creates a tracker
func New(name string, onChange func(Progress)) *Progress {
	return &Progress{Name: name, StartedAt: clock.Now(), onChange: onChange}
}

// Update applies the supplied delta to the tracker. If an onChange callback
// has been registered it is invoked with a copy of the updated tracker
// outside the critical section.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}

	p.Lock()
	p.Batches += d.Batches
	p.TotalJobs += d.Total
	p.CompletedJobs += d.Completed
	p.FailedJobs += d.Failed
	p.RunningJobs += d.Running
	p.PendingJobs += d.Pending
	snapshot := p.copy()
	cb := p.onChange
	p.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the tracker suitable for read-only inspection.
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.Lock()
	defer p.Unlock()
	return p.copy()
}

func (p *Progress) copy() Progress {
	return Progress{
		Name:          p.Name,
		StartedAt:     p.StartedAt,
		Batches:       p.Batches,
		TotalJobs:     p.TotalJobs,
		CompletedJobs: p.CompletedJobs,
		FailedJobs:    p.FailedJobs,
		RunningJobs:   p.RunningJobs,
		PendingJobs:   p.PendingJobs,
	}
}

// OnChange registers a callback that is invoked after every Update. Passing
// nil disables the callback.
func (p *Progress) OnChange(cb func(Progress)) {
	if p == nil {
		return
	}
	p.Lock()
	p.onChange = cb
	p.Unlock()
}

// ----------------------------------------------------------------------------
// Context helpers
// ----------------------------------------------------------------------------

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithTracker embeds the tracker in a derived context.
func WithTracker(ctx context.Context, tracker *Progress) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, trackerKey, tracker)
}

// FromContext extracts the Progress tracker from ctx.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// UpdateCtx looks up the tracker in ctx (if any) and applies the supplied delta.
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
