package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/batcher/internal/clock"
	"github.com/viant/batcher/internal/metrics"
	"github.com/viant/batcher/model/command"
	"github.com/viant/batcher/model/types"
	"github.com/viant/batcher/progress"
	"github.com/viant/batcher/service/executor"
	"github.com/viant/batcher/service/messaging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config represents processor configuration
type Config struct {
	// WorkerCount is the number of workers processing jobs
	WorkerCount int

	// ConsumeBackoff is the delay after a transient inbox or outbox error
	ConsumeBackoff time.Duration
}

// DefaultConfig returns the default processor configuration
func DefaultConfig() Config {
	return Config{
		WorkerCount:    5,
		ConsumeBackoff: 100 * time.Millisecond,
	}
}

// Service runs a fixed set of workers
type Service struct {
	config   Config
	inbox    messaging.Queue[command.Command]
	outbox   messaging.Queue[command.Result]
	executor executor.Service
	logger   *zap.Logger
	metrics  *metrics.Collector

	workers  []*worker
	group    *errgroup.Group
	started  bool
	shutdown bool
	killed   int
	stopped  atomic.Int32
	mu       sync.Mutex
}

type worker struct {
	id      int
	service *Service
	ctx     context.Context
	logger  *zap.Logger
}

// New creates a new processor service
func New(options ...Option) (*Service, error) {
	s := &Service{
		config: DefaultConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if s.inbox == nil {
		return nil, fmt.Errorf("inbox queue is required")
	}
	if s.outbox == nil {
		return nil, fmt.Errorf("outbox queue is required")
	}
	if s.config.WorkerCount <= 0 {
		return nil, fmt.Errorf("worker count must be > 0, got %d", s.config.WorkerCount)
	}
	if s.config.ConsumeBackoff <= 0 {
		s.config.ConsumeBackoff = DefaultConfig().ConsumeBackoff
	}
	s.logger = s.logger.With(zap.String("component", "processor"))
	return s, nil
}

// Start spawns the workers; they block on the inbox until the first command arrives.
// Cancelling ctx aborts the workers without the kill protocol.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return ErrShutdown
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true
	s.group = &errgroup.Group{}
	for i := 0; i < s.config.WorkerCount; i++ {
		w := &worker{
			id:      i,
			service: s,
			ctx:     ctx,
			logger:  s.logger.With(zap.Int("worker", i)),
		}
		s.workers = append(s.workers, w)
		s.metrics.WorkerStarted()
		s.group.Go(w.run)
	}
	s.logger.Debug("workers started", zap.Int("workers", s.config.WorkerCount))
	return nil
}

// Shutdown publishes exactly one kill command per worker and waits until every
// worker terminated. Kills are published regardless of ctx cancellation; when
// publishing fails Shutdown can be called again and only the missing kills are sent.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return ErrShutdown
	}
	if !s.started {
		return ErrNotStarted
	}
	ctx = context.WithoutCancel(ctx)
	for s.killed < len(s.workers) {
		if err := s.inbox.Publish(ctx, command.NewKill()); err != nil {
			return fmt.Errorf("failed to publish kill command %d of %d: %w", s.killed+1, len(s.workers), err)
		}
		s.killed++
	}
	s.shutdown = true
	err := s.group.Wait()
	s.logger.Debug("workers stopped", zap.Int("workers", int(s.stopped.Load())))
	return err
}

// WorkerCount returns the number of workers
func (s *Service) WorkerCount() int {
	return s.config.WorkerCount
}

// Stopped returns the number of terminated workers
func (s *Service) Stopped() int {
	return int(s.stopped.Load())
}

// run consumes commands until a kill command arrives
func (w *worker) run() error {
	defer func() {
		w.service.stopped.Add(1)
		w.service.metrics.WorkerStopped()
	}()

	for {
		msg, err := w.service.inbox.Consume(w.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			w.logger.Warn("failed to consume command", zap.Error(err))
			time.Sleep(w.service.config.ConsumeBackoff)
			continue
		}
		if msg == nil {
			continue
		}
		if stop := w.handle(msg); stop {
			return nil
		}
	}
}

// handle processes one command, it returns true when the worker has to stop
func (w *worker) handle(msg messaging.Message[command.Command]) bool {
	cmd := msg.T()
	switch cmd.Kind {
	case command.KindJob:
		result := w.execute(cmd)
		if err := w.publish(result); err != nil {
			w.logger.Error("failed to publish result", zap.Int("index", cmd.Index), zap.Error(err))
			_ = msg.Nack(err)
			return false
		}
		if err := msg.Ack(); err != nil {
			w.logger.Warn("failed to ack command", zap.Int("index", cmd.Index), zap.Error(err))
		}
		return false
	case command.KindKill:
		_ = msg.Ack()
		w.logger.Debug("worker received kill")
		return true
	default:
		panic(&UnknownCommandError{Kind: cmd.Kind, Worker: w.id})
	}
}

// publish delivers result to the outbox, a failed publish is retried after
// ConsumeBackoff until it succeeds or the worker context is done
func (w *worker) publish(result *command.Result) error {
	for attempt := 1; ; attempt++ {
		err := w.service.outbox.Publish(w.ctx, result)
		if err == nil {
			return nil
		}
		if w.ctx.Err() != nil {
			return err
		}
		w.logger.Warn("failed to publish result, retrying",
			zap.String("batch", result.BatchID),
			zap.Int("index", result.Index),
			zap.Int("attempt", attempt),
			zap.Error(err))
		select {
		case <-time.After(w.service.config.ConsumeBackoff):
		case <-w.ctx.Done():
			return w.ctx.Err()
		}
	}
}

func (w *worker) execute(cmd *command.Command) *command.Result {
	ctx := types.WithJobContext(w.ctx, &types.JobContext{BatchID: cmd.BatchID, Index: cmd.Index, Worker: w.id})
	started := clock.Now()
	value, err := w.service.executor.Execute(ctx, cmd.Job)
	ref := "<nil>"
	if cmd.Job != nil {
		ref = cmd.Job.Ref()
	}
	w.service.metrics.RecordJob(ref, err, clock.Since(started))
	delta := progress.Delta{Running: -1, Completed: 1}
	if err != nil {
		delta = progress.Delta{Running: -1, Failed: 1}
		w.logger.Warn("job failed", zap.String("batch", cmd.BatchID), zap.Int("index", cmd.Index), zap.String("function", ref), zap.Error(err))
	}
	progress.UpdateCtx(w.ctx, delta)
	return command.NewResult(cmd.BatchID, cmd.Index, value, err)
}
