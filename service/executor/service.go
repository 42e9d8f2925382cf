package executor

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/viant/batcher/extension"
	"github.com/viant/batcher/model/job"
	"github.com/viant/batcher/model/types"
	"github.com/viant/batcher/tracing"
	"github.com/viant/structology/conv"
)

// Listener is invoked once a job completes, regardless of whether it returned an error or not.
type Listener func(aJob *job.Job, output interface{}, err error)

// Option is used to customise the executor instance.
type Option func(*service)

// WithListener sets the listener invoked after every executed job.
func WithListener(l Listener) Option {
	return func(s *service) {
		s.listener = l
	}
}

// WithConverter sets the converter used by functions for typed argument access.
func WithConverter(converter *conv.Converter) Option {
	return func(s *service) {
		s.converter = converter
	}
}

// Service represents a job executor.
type Service interface {
	// Execute runs the job; a job failure, including a panic, is returned as error
	Execute(ctx context.Context, aJob *job.Job) (interface{}, error)
}

// service is the concrete implementation of Service.
type service struct {
	functions *extension.Functions
	converter *conv.Converter
	listener  Listener
}

// Execute executes a job.
func (s *service) Execute(ctx context.Context, aJob *job.Job) (output interface{}, err error) {
	if aJob == nil {
		return nil, ErrJobRequired
	}
	ctx, span := tracing.StartSpan(ctx, "job.execute "+aJob.Ref(), tracing.KindInternal)
	if jobContext := types.JobContextFrom(ctx); jobContext != nil {
		span.WithAttributes(map[string]string{"batch.id": jobContext.BatchID}).
			WithInt("job.index", jobContext.Index).
			WithInt("worker.id", jobContext.Worker)
	}
	defer func() {
		tracing.EndSpan(span, err)
		if s.listener != nil {
			s.listener(aJob, output, err)
		}
	}()

	fn, err := s.resolve(aJob)
	if err != nil {
		return nil, err
	}
	return s.call(ctx, aJob, fn)
}

func (s *service) resolve(aJob *job.Job) (types.Func, error) {
	if fn := aJob.Func(); fn != nil {
		return fn, nil
	}
	if aJob.Service == "" {
		return nil, fmt.Errorf("%w: job has neither inline function nor reference", ErrFunctionNotFound)
	}
	if s.functions == nil {
		return nil, fmt.Errorf("%w: %v", ErrFunctionNotFound, aJob.Ref())
	}
	fn, err := s.functions.Resolve(aJob.Service, aJob.Method)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFunctionNotFound, err)
	}
	return fn, nil
}

func (s *service) call(ctx context.Context, aJob *job.Job, fn types.Func) (output interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			output = nil
			err = &PanicError{Ref: aJob.Ref(), Value: r, Stack: string(debug.Stack())}
		}
	}()
	return fn(ctx, aJob.Args.WithConverter(s.converter))
}

// NewService creates a new executor service
func NewService(functions *extension.Functions, opts ...Option) Service {
	ret := &service{functions: functions, converter: types.NewConverter()}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}
