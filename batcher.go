package batcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/afs"
	"github.com/viant/afs/url"
	"github.com/viant/batcher/extension"
	"github.com/viant/batcher/internal/clock"
	"github.com/viant/batcher/internal/idgen"
	"github.com/viant/batcher/internal/metrics"
	"github.com/viant/batcher/model/command"
	"github.com/viant/batcher/model/job"
	"github.com/viant/batcher/model/types"
	"github.com/viant/batcher/progress"
	"github.com/viant/batcher/service/action/math"
	"github.com/viant/batcher/service/action/storage"
	"github.com/viant/batcher/service/action/system"
	"github.com/viant/batcher/service/action/web"
	"github.com/viant/batcher/service/executor"
	"github.com/viant/batcher/service/messaging"
	fsqueue "github.com/viant/batcher/service/messaging/fs"
	"github.com/viant/batcher/service/messaging/memory"
	"github.com/viant/batcher/service/processor"
	"github.com/viant/batcher/tracing"
	"go.uber.org/zap"
)

// Batcher dispatches enqueued jobs to a fixed set of workers and collects
// their results in submission order. A Batcher is driven by a single
// orchestrating goroutine; the pending buffer is guarded so that misuse is
// serialised.
type Batcher struct {
	workers   int
	inbox     messaging.Queue[command.Command]
	outbox    messaging.Queue[command.Result]
	functions *extension.Functions
	processor *processor.Service
	logger    *zap.Logger
	metrics   *metrics.Collector
	progress  *progress.Progress

	extensionServices []types.Service
	executorOptions   []executor.Option
	webOptions        []web.Option
	metricsEnabled    bool
	metricsNamespace  string
	registerer        prometheus.Registerer
	progressListener  func(progress.Progress)
	consumeBackoff    time.Duration

	pending []*job.Job
	closed  bool
	mu      sync.Mutex
}

// New creates a batcher and eagerly starts workers; they block on the empty
// inbox until the first Process call.
func New(workers int, options ...Option) (*Batcher, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidWorkers, workers)
	}
	b := &Batcher{workers: workers, logger: zap.NewNop()}
	for _, option := range options {
		option(b)
	}
	if err := b.init(); err != nil {
		return nil, err
	}
	return b, nil
}

// NewFromConfig creates a batcher from configuration, options are applied after the configuration
func NewFromConfig(ctx context.Context, config *Config, options ...Option) (*Batcher, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	var configured []Option
	if config.Queue.Type == messaging.VendorFS {
		fs := afs.New()
		queueConfig := fsqueue.QueueConfig{BasePath: url.Join(config.Queue.BasePath, "inbox"), PollInterval: config.Queue.PollInterval}
		inbox, err := fsqueue.NewQueue[command.Command](ctx, fs, queueConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create inbox: %w", err)
		}
		queueConfig.BasePath = url.Join(config.Queue.BasePath, "outbox")
		outbox, err := fsqueue.NewQueue[command.Result](ctx, fs, queueConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create outbox: %w", err)
		}
		configured = append(configured, WithQueues(inbox, outbox))
	}
	if config.Tracing.Enabled {
		configured = append(configured, WithTracing(config.Tracing.ServiceName, config.Tracing.ServiceVersion, config.Tracing.OutputFile))
	}
	if config.Metrics.Enabled {
		configured = append(configured, WithMetrics(nil), WithMetricsNamespace(config.Metrics.Namespace))
	}
	return New(config.Workers, append(configured, options...)...)
}

func (b *Batcher) init() error {
	b.logger = b.logger.With(zap.String("component", "batcher"))
	if b.inbox == nil {
		b.inbox = memory.NewQueue[command.Command]()
	}
	if b.outbox == nil {
		b.outbox = memory.NewQueue[command.Result]()
	}
	if b.metricsEnabled {
		namespace := b.metricsNamespace
		if namespace == "" {
			namespace = "batcher"
		}
		b.metrics = metrics.NewCollector(namespace, b.registerer, b.logger)
	}
	b.progress = progress.New("batcher", b.progressListener)

	webOptions := append([]web.Option{web.WithLogger(b.logger)}, b.webOptions...)
	b.functions = extension.NewFunctions(math.New(), system.New(), web.New(webOptions...), storage.New())
	b.functions.Register(b.extensionServices...)

	config := processor.DefaultConfig()
	config.WorkerCount = b.workers
	if b.consumeBackoff > 0 {
		config.ConsumeBackoff = b.consumeBackoff
	}
	var err error
	b.processor, err = processor.New(
		processor.WithInbox(b.inbox),
		processor.WithOutbox(b.outbox),
		processor.WithExecutor(executor.NewService(b.functions, b.executorOptions...)),
		processor.WithConfig(config),
		processor.WithLogger(b.logger),
		processor.WithMetrics(b.metrics),
	)
	if err != nil {
		return fmt.Errorf("failed to create processor: %w", err)
	}
	workerCtx := progress.WithTracker(context.Background(), b.progress)
	if err = b.processor.Start(workerCtx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	b.logger.Info("batcher started", zap.Int("workers", b.workers))
	return nil
}

// Enqueue appends an inline job to the pending buffer; nothing is dispatched until Process
func (b *Batcher) Enqueue(fn types.Func, args ...interface{}) {
	b.EnqueueJob(job.New(fn, args...))
}

// EnqueueJob appends a prepared job to the pending buffer
func (b *Batcher) EnqueueJob(aJob *job.Job) {
	b.mu.Lock()
	b.pending = append(b.pending, aJob)
	b.mu.Unlock()
	b.metrics.AddPending(1)
	b.progress.Update(progress.Delta{Pending: 1})
}

// Process dispatches every pending job and blocks until all results are
// collected. Results are ordered by submission, not by completion. Once
// dispatched, jobs run to completion: ctx cancellation is not honoured.
// The pending buffer is cleared on success.
func (b *Batcher) Process(ctx context.Context) (Results, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	size := len(b.pending)
	if size == 0 {
		return Results{}, nil
	}

	ctx = context.WithoutCancel(ctx)
	batchID := idgen.NewBatchID()
	ctx, span := tracing.StartSpan(ctx, "batcher.Process", tracing.KindProducer)
	span.WithAttributes(map[string]string{"batch.id": batchID}).WithInt("batch.size", size)
	started := clock.Now()

	results, err := b.process(ctx, batchID)
	tracing.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	b.pending = nil
	b.metrics.AddPending(-size)
	b.metrics.RecordBatch(size, clock.Since(started))
	b.logger.Debug("batch processed",
		zap.String("batch", batchID),
		zap.Int("jobs", size),
		zap.Int("failed", results.Failed()),
		zap.Duration("elapsed", clock.Since(started)))
	return results, nil
}

func (b *Batcher) process(ctx context.Context, batchID string) (Results, error) {
	size := len(b.pending)
	b.progress.Update(progress.Delta{Batches: 1, Total: size, Pending: -size, Running: size})
	for i, aJob := range b.pending {
		if err := b.inbox.Publish(ctx, command.NewJob(batchID, i, aJob)); err != nil {
			b.progress.Update(progress.Delta{Pending: size - i, Running: i - size})
			return nil, fmt.Errorf("failed to dispatch job %d: %w", i, err)
		}
	}

	results := make(Results, size)
	filled := make([]bool, size)
	for received := 0; received < size; {
		msg, err := b.outbox.Consume(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to collect results (%d of %d): %w", received, size, err)
		}
		result := msg.T()
		if result.BatchID != batchID {
			b.logger.Warn("dropping result of another batch", zap.String("batch", result.BatchID), zap.Int("index", result.Index))
			_ = msg.Ack()
			continue
		}
		b.fill(results, filled, batchID, result)
		if err := msg.Ack(); err != nil {
			b.logger.Warn("failed to ack result", zap.Int("index", result.Index), zap.Error(err))
		}
		received++
	}
	return results, nil
}

// fill stores result in its slot; a slot outside the batch or a slot written
// twice means the orchestration is corrupted and cannot continue.
func (b *Batcher) fill(results Results, filled []bool, batchID string, result *command.Result) {
	index := result.Index
	if index < 0 || index >= len(results) {
		panic(&InvariantError{BatchID: batchID, Index: index, Size: len(results), Reason: "result index out of range"})
	}
	if filled[index] {
		panic(&InvariantError{BatchID: batchID, Index: index, Size: len(results), Reason: "duplicate result"})
	}
	filled[index] = true
	results[index] = Result{Index: index, Value: result.Value, Err: result.Failure()}
}

// Close sends exactly one kill command per worker and waits for all workers
// to terminate, ctx cancellation does not interrupt it. Jobs still pending are
// discarded. A failed Close can be retried; after a successful one Close and
// Process return ErrClosed.
func (b *Batcher) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if discarded := len(b.pending); discarded > 0 {
		b.logger.Warn("discarding pending jobs", zap.Int("jobs", discarded))
		b.progress.Update(progress.Delta{Pending: -discarded})
		b.pending = nil
		b.metrics.AddPending(-discarded)
	}
	if err := b.processor.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop workers: %w", err)
	}
	b.closed = true
	b.logger.Info("batcher closed", zap.Int("workers", b.processor.Stopped()))
	return nil
}

// Pending returns the number of jobs awaiting dispatch
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Workers returns the worker count fixed at construction
func (b *Batcher) Workers() int {
	return b.workers
}

// Stopped returns the number of terminated workers
func (b *Batcher) Stopped() int {
	return b.processor.Stopped()
}

// Progress returns a snapshot of job counters
func (b *Batcher) Progress() progress.Progress {
	return b.progress.Snapshot()
}

// Functions returns the function registry used to resolve named jobs
func (b *Batcher) Functions() *extension.Functions {
	return b.functions
}
