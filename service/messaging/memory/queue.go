package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/viant/batcher/internal/clock"
	"github.com/viant/batcher/internal/idgen"
	"github.com/viant/batcher/service/messaging"
)

// Message implements messaging.Message interface for in-memory queue
type Message[T any] struct {
	id        string
	payload   T
	mu        sync.Mutex
	processed bool
	err       error
	createdAt time.Time
}

// ID returns message identifier
func (m *Message[T]) ID() string {
	return m.id
}

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.payload
}

// Ack acknowledges the message as processed successfully
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.processed {
		return fmt.Errorf("message already processed")
	}

	m.processed = true
	return nil
}

// Nack records a failure in processing the message. Messages are never
// redelivered: a second delivery of a job would produce a second result for
// the same slot.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.processed {
		return fmt.Errorf("message already processed")
	}

	m.processed = true
	m.err = err
	return nil
}

// Queue implements an unbounded in-memory messaging.Queue
type Queue[T any] struct {
	messages []*Message[T]
	ready    chan struct{}
	mu       sync.Mutex
}

// NewQueue creates a new in-memory queue
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{
		messages: make([]*Message[T], 0),
		ready:    make(chan struct{}, 1),
	}
}

// Publish appends a new item to the queue, it never blocks
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &Message[T]{
		id:        idgen.New(),
		payload:   *t,
		createdAt: clock.Now(),
	}
	q.mu.Lock()
	q.messages = append(q.messages, msg)
	q.mu.Unlock()
	q.notify()
	return nil
}

// Consume retrieves the oldest item from the queue, blocking until one is
// available or ctx is done
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	for {
		if msg := q.pop(); msg != nil {
			return msg, nil
		}
		select {
		case <-q.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (q *Queue[T]) pop() *Message[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.messages) == 0 {
		return nil
	}
	msg := q.messages[0]
	q.messages[0] = nil
	q.messages = q.messages[1:]
	if len(q.messages) > 0 {
		// hand the wake-up over to the next waiting consumer
		q.notify()
	}
	return msg
}

func (q *Queue[T]) notify() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Size returns the current number of messages in the queue
func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

// ensure Queue implements messaging.Queue interface
var _ messaging.Queue[any] = (*Queue[any])(nil)
