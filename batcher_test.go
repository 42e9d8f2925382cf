package batcher_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/batcher"
	"github.com/viant/batcher/model/command"
	"github.com/viant/batcher/model/job"
	"github.com/viant/batcher/model/types"
	"github.com/viant/batcher/progress"
	"github.com/viant/batcher/service/executor"
	"github.com/viant/batcher/service/messaging"
	"github.com/viant/batcher/service/messaging/memory"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"
)

func newBatcher(t *testing.T, workers int, options ...batcher.Option) *batcher.Batcher {
	options = append([]batcher.Option{batcher.WithLogger(zaptest.NewLogger(t))}, options...)
	b, err := batcher.New(workers, options...)
	require.NoError(t, err)
	return b
}

func constant(value interface{}) types.Func {
	return func(ctx context.Context, args *types.Args) (interface{}, error) {
		return value, nil
	}
}

func TestBatcher_Sum(t *testing.T) {
	expected := make([]interface{}, 16)
	for i := range expected {
		expected[i] = 15 + i
	}

	testCases := []struct {
		name    string
		enqueue func(b *batcher.Batcher, i int)
	}{
		{
			name: "named function",
			enqueue: func(b *batcher.Batcher, i int) {
				b.EnqueueJob(job.Named("math/sum", []int{1, 2, 3, 4, 5, i}))
			},
		},
		{
			name: "inline function",
			enqueue: func(b *batcher.Batcher, i int) {
				b.Enqueue(func(ctx context.Context, args *types.Args) (interface{}, error) {
					total := 0
					for _, v := range args.Positional {
						total += v.(int)
					}
					return total, nil
				}, 1, 2, 3, 4, 5, i)
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			b := newBatcher(t, 4)
			defer b.Close(ctx)
			for i := 0; i < 16; i++ {
				tc.enqueue(b, i)
			}
			assert.Equal(t, 16, b.Pending())

			results, err := b.Process(ctx)
			require.NoError(t, err)
			require.NoError(t, results.Err())
			assert.Equal(t, expected, results.Values())
			assert.Equal(t, 0, b.Pending())
		})
	}
}

func TestBatcher_OrderProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		workers := rapid.IntRange(1, 8).Draw(rt, "workers")
		inputs := rapid.SliceOfN(rapid.IntRange(-1000, 1000), 0, 64).Draw(rt, "inputs")

		ctx := context.Background()
		b, err := batcher.New(workers)
		require.NoError(rt, err)
		defer b.Close(ctx)

		for _, input := range inputs {
			b.Enqueue(func(ctx context.Context, args *types.Args) (interface{}, error) {
				v, err := args.Int(0)
				return v*v - v, err
			}, input)
		}
		results, err := b.Process(ctx)
		require.NoError(rt, err)
		values, err := batcher.ValuesOf[int](results)
		require.NoError(rt, err)
		require.Len(rt, values, len(inputs))
		for i, input := range inputs {
			assert.Equal(rt, input*input-input, values[i])
			assert.Equal(rt, i, results[i].Index)
		}
	})
}

func TestBatcher_Reuse(t *testing.T) {
	ctx := context.Background()
	b := newBatcher(t, 3)
	defer b.Close(ctx)

	for cycle := 0; cycle < 5; cycle++ {
		size := 7 + cycle*3
		for i := 0; i < size; i++ {
			b.EnqueueJob(job.Named("system/echo", cycle*1000+i))
		}
		results, err := b.Process(ctx)
		require.NoError(t, err)
		require.Len(t, results, size)
		for i, result := range results {
			assert.NoError(t, result.Err)
			assert.Equal(t, cycle*1000+i, result.Value)
		}
		assert.Equal(t, 0, b.Pending())
	}
	snapshot := b.Progress()
	assert.Equal(t, 5, snapshot.Batches)
	assert.Equal(t, 0, snapshot.PendingJobs)
	assert.Equal(t, 0, snapshot.RunningJobs)
}

func TestBatcher_ProcessEmpty(t *testing.T) {
	inbox := &countingQueue[command.Command]{Queue: memory.NewQueue[command.Command]()}
	outbox := &countingQueue[command.Result]{Queue: memory.NewQueue[command.Result]()}
	ctx := context.Background()
	b := newBatcher(t, 2, batcher.WithQueues(inbox, outbox))
	defer b.Close(ctx)

	done := make(chan struct{})
	var results batcher.Results
	var err error
	go func() {
		defer close(done)
		results, err = b.Process(ctx)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Process with no pending jobs should return immediately")
	}
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.EqualValues(t, 0, inbox.published.Load())
	assert.EqualValues(t, 0, outbox.consumed.Load())
}

func TestBatcher_CompletionOrderIndependence(t *testing.T) {
	ctx := context.Background()
	b := newBatcher(t, 4)
	defer b.Close(ctx)

	const jobs = 24
	for i := 0; i < jobs; i++ {
		b.EnqueueJob(job.Named("system/sleep", (jobs-i)*3, i))
	}
	b.Enqueue(constant("last"))

	results, err := b.Process(ctx)
	require.NoError(t, err)
	require.Len(t, results, jobs+1)
	for i := 0; i < jobs; i++ {
		assert.Equal(t, i, results[i].Value)
	}
	assert.Equal(t, "last", results[jobs].Value)
}

func TestBatcher_CompletionOrderIsNotSubmissionOrder(t *testing.T) {
	ctx := context.Background()
	completed := make(chan int, 8)
	b := newBatcher(t, 8, batcher.WithExecutorOptions(executor.WithListener(func(aJob *job.Job, output interface{}, err error) {
		if index, ok := output.(int); ok {
			completed <- index
		}
	})))
	defer b.Close(ctx)

	for i := 0; i < 8; i++ {
		b.EnqueueJob(job.Named("system/sleep", (8-i)*20, i))
	}
	results, err := b.Process(ctx)
	require.NoError(t, err)
	close(completed)

	var order []int
	for index := range completed {
		order = append(order, index)
	}
	require.Len(t, order, 8)
	assert.Equal(t, 7, order[0], "the shortest job should complete first")
	for i, result := range results {
		assert.Equal(t, i, result.Value)
	}
}

func TestBatcher_DuplicateResultPanics(t *testing.T) {
	ctx := context.Background()
	outbox := &duplicatingQueue{Queue: memory.NewQueue[command.Result]()}
	b := newBatcher(t, 1, batcher.WithQueues(memory.NewQueue[command.Command](), outbox))
	defer b.Close(ctx)

	b.Enqueue(constant("a"))
	b.Enqueue(constant("b"))
	invariant := recoverInvariant(func() { _, _ = b.Process(ctx) })
	require.NotNil(t, invariant, "duplicate result should abort Process")
	assert.Equal(t, 0, invariant.Index)
	assert.Equal(t, 2, invariant.Size)
	assert.Contains(t, invariant.Error(), "duplicate result")
}

func TestBatcher_OutOfRangeResultPanics(t *testing.T) {
	ctx := context.Background()
	outbox := &shiftingQueue{Queue: memory.NewQueue[command.Result](), offset: 10}
	b := newBatcher(t, 1, batcher.WithQueues(memory.NewQueue[command.Command](), outbox))
	defer b.Close(ctx)

	b.Enqueue(constant("a"))
	invariant := recoverInvariant(func() { _, _ = b.Process(ctx) })
	require.NotNil(t, invariant, "out of range result should abort Process")
	assert.Equal(t, 10, invariant.Index)
	assert.Contains(t, invariant.Error(), "out of range")
}

func TestBatcher_Close(t *testing.T) {
	inbox := &countingQueue[command.Command]{Queue: memory.NewQueue[command.Command]()}
	ctx := context.Background()
	b := newBatcher(t, 6, batcher.WithQueues(inbox, memory.NewQueue[command.Result]()))

	b.Enqueue(constant(1))
	_, err := b.Process(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Stopped())

	b.Enqueue(constant(2))
	require.NoError(t, b.Close(ctx))
	assert.Equal(t, 6, b.Stopped())
	assert.Equal(t, 6, b.Workers())
	assert.Equal(t, 0, b.Pending(), "pending jobs are discarded on close")
	assert.EqualValues(t, 1+6, inbox.published.Load(), "one job plus exactly one kill per worker")

	assert.ErrorIs(t, b.Close(ctx), batcher.ErrClosed)
	assert.EqualValues(t, 1+6, inbox.published.Load())

	b.Enqueue(constant(3))
	_, err = b.Process(ctx)
	assert.ErrorIs(t, err, batcher.ErrClosed)
}

func TestBatcher_CloseCancelledContext(t *testing.T) {
	inbox := &countingQueue[command.Command]{Queue: memory.NewQueue[command.Command]()}
	b := newBatcher(t, 3, batcher.WithQueues(inbox, memory.NewQueue[command.Result]()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, b.Close(ctx))
	assert.Equal(t, b.Workers(), b.Stopped())
	assert.EqualValues(t, 3, inbox.published.Load())
	assert.ErrorIs(t, b.Close(context.Background()), batcher.ErrClosed)
}

func TestBatcher_ResultPublishFailure(t *testing.T) {
	outbox := &failingOutbox{Queue: memory.NewQueue[command.Result](), failures: 1}
	ctx := context.Background()
	b := newBatcher(t, 2, batcher.WithQueues(memory.NewQueue[command.Command](), outbox), batcher.WithConsumeBackoff(time.Millisecond))
	defer b.Close(ctx)

	b.Enqueue(constant("a"))
	b.Enqueue(constant("b"))
	done := make(chan batcher.Results, 1)
	go func() {
		results, err := b.Process(ctx)
		assert.NoError(t, err)
		done <- results
	}()
	select {
	case results := <-done:
		assert.Equal(t, []interface{}{"a", "b"}, results.Values())
	case <-time.After(5 * time.Second):
		t.Fatal("results were lost after a failed publish")
	}
}

func TestBatcher_JobFailures(t *testing.T) {
	ctx := context.Background()
	b := newBatcher(t, 2)
	defer b.Close(ctx)

	for cycle := 0; cycle < 3; cycle++ {
		for i := 0; i < 6; i++ {
			switch i % 3 {
			case 0:
				b.Enqueue(func(ctx context.Context, args *types.Args) (interface{}, error) {
					panic("boom")
				})
			case 1:
				b.Enqueue(func(ctx context.Context, args *types.Args) (interface{}, error) {
					return nil, errors.New("failed")
				})
			default:
				b.EnqueueJob(job.Named("math/product", 2, i))
			}
		}
		b.EnqueueJob(job.Named("unknown/method"))

		results, err := b.Process(ctx)
		require.NoError(t, err, "job failures are reported per result")
		require.Len(t, results, 7)
		assert.Equal(t, 5, results.Failed())
		assert.Error(t, results.Err())

		var panicErr *executor.PanicError
		assert.ErrorAs(t, results[0].Err, &panicErr)
		assert.EqualError(t, results[1].Err, "failed")
		assert.Equal(t, 4, results[2].Value)
		assert.Equal(t, 10, results[5].Value)
		assert.ErrorIs(t, results[6].Err, executor.ErrFunctionNotFound)

		_, err = batcher.ValuesOf[int](results)
		assert.Error(t, err)
	}
	snapshot := b.Progress()
	assert.Equal(t, 15, snapshot.FailedJobs)
	assert.Equal(t, 6, snapshot.CompletedJobs)
}

func TestBatcher_Metrics(t *testing.T) {
	ctx := context.Background()
	registry := prometheus.NewRegistry()
	b := newBatcher(t, 2, batcher.WithMetrics(registry), batcher.WithMetricsNamespace("test"))

	for i := 0; i < 5; i++ {
		b.EnqueueJob(job.Named("math/sum", i, i))
	}
	b.Enqueue(func(ctx context.Context, args *types.Args) (interface{}, error) {
		return nil, errors.New("failed")
	})
	_, err := b.Process(ctx)
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(registry, "test_jobs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "math/sum completed and inline failed series")
	count, err = testutil.GatherAndCount(registry, "test_batches_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, b.Close(ctx))
	count, err = testutil.GatherAndCount(registry, "test_workers_active")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBatcher_ProgressListener(t *testing.T) {
	ctx := context.Background()
	var updates atomic.Int32
	var mux sync.Mutex
	maxCompleted := 0
	b := newBatcher(t, 3, batcher.WithProgressListener(func(p progress.Progress) {
		updates.Add(1)
		mux.Lock()
		if p.CompletedJobs > maxCompleted {
			maxCompleted = p.CompletedJobs
		}
		mux.Unlock()
	}))
	defer b.Close(ctx)

	for i := 0; i < 9; i++ {
		b.EnqueueJob(job.Named("system/echo", i))
	}
	_, err := b.Process(ctx)
	require.NoError(t, err)

	snapshot := b.Progress()
	assert.Equal(t, 9, snapshot.TotalJobs)
	assert.Equal(t, 9, snapshot.CompletedJobs)
	assert.Equal(t, 0, snapshot.RunningJobs)
	assert.Equal(t, 9+1+9, int(updates.Load()), "enqueue, dispatch and completion updates")
	mux.Lock()
	assert.Equal(t, 9, maxCompleted)
	mux.Unlock()
}

func TestNew_InvalidWorkers(t *testing.T) {
	for _, workers := range []int{0, -1} {
		_, err := batcher.New(workers)
		assert.ErrorIs(t, err, batcher.ErrInvalidWorkers)
	}
}

func recoverInvariant(fn func()) (invariant *batcher.InvariantError) {
	defer func() {
		if r := recover(); r != nil {
			invariant, _ = r.(*batcher.InvariantError)
		}
	}()
	fn()
	return nil
}

type countingQueue[T any] struct {
	messaging.Queue[T]
	published atomic.Int32
	consumed  atomic.Int32
}

func (q *countingQueue[T]) Publish(ctx context.Context, t *T) error {
	q.published.Add(1)
	return q.Queue.Publish(ctx, t)
}

func (q *countingQueue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	q.consumed.Add(1)
	return q.Queue.Consume(ctx)
}

// failingOutbox rejects the first failures publish calls
type failingOutbox struct {
	messaging.Queue[command.Result]
	mu       sync.Mutex
	failures int
}

func (q *failingOutbox) Publish(ctx context.Context, result *command.Result) error {
	q.mu.Lock()
	if q.failures > 0 {
		q.failures--
		q.mu.Unlock()
		return errors.New("outbox unavailable")
	}
	q.mu.Unlock()
	return q.Queue.Publish(ctx, result)
}

// duplicatingQueue delivers every published result twice
type duplicatingQueue struct {
	messaging.Queue[command.Result]
}

func (q *duplicatingQueue) Publish(ctx context.Context, result *command.Result) error {
	if err := q.Queue.Publish(ctx, result); err != nil {
		return err
	}
	duplicate := *result
	return q.Queue.Publish(ctx, &duplicate)
}

// shiftingQueue corrupts result indices
type shiftingQueue struct {
	messaging.Queue[command.Result]
	offset int
}

func (q *shiftingQueue) Publish(ctx context.Context, result *command.Result) error {
	shifted := *result
	shifted.Index += q.offset
	return q.Queue.Publish(ctx, &shifted)
}
