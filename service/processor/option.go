package processor

import (
	"github.com/viant/batcher/internal/metrics"
	"github.com/viant/batcher/model/command"
	"github.com/viant/batcher/service/executor"
	"github.com/viant/batcher/service/messaging"
	"go.uber.org/zap"
)

// Option customises the processor
type Option func(*Service)

// WithInbox sets the queue workers consume commands from
func WithInbox(queue messaging.Queue[command.Command]) Option {
	return func(s *Service) {
		s.inbox = queue
	}
}

// WithOutbox sets the queue workers publish results to
func WithOutbox(queue messaging.Queue[command.Result]) Option {
	return func(s *Service) {
		s.outbox = queue
	}
}

// WithExecutor sets the job executor
func WithExecutor(executor executor.Service) Option {
	return func(s *Service) {
		s.executor = executor
	}
}

// WithWorkers sets the number of worker goroutines
func WithWorkers(count int) Option {
	return func(s *Service) {
		s.config.WorkerCount = count
	}
}

// WithConfig sets the configuration for the service
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector
func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Service) {
		s.metrics = collector
	}
}
