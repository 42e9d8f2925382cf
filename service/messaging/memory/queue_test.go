package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type TestPayload struct {
	ID      string
	Message string
	Count   int
}

func TestQueue(t *testing.T) {
	queue := NewQueue[TestPayload]()

	ctx := context.Background()
	payload := TestPayload{
		ID:      "test-1",
		Message: "Hello, world!",
		Count:   1,
	}

	err := queue.Publish(ctx, &payload)
	assert.NoError(t, err)
	assert.Equal(t, 1, queue.Size())

	message, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.NotNil(t, message)
	assert.Equal(t, 0, queue.Size())

	msgData := message.T()
	assert.Equal(t, payload.ID, msgData.ID)
	assert.Equal(t, payload.Message, msgData.Message)
	assert.Equal(t, payload.Count, msgData.Count)

	assert.NoError(t, message.Ack())
	// double ack
	assert.Error(t, message.Ack())
	assert.Error(t, message.Nack(errors.New("late")))
}

func TestQueue_FIFO(t *testing.T) {
	queue := NewQueue[TestPayload]()
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		require.NoError(t, queue.Publish(ctx, &TestPayload{Count: i}))
	}
	for i := 0; i < 100; i++ {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, message.T().Count)
	}
}

func TestQueue_ConsumeBlocks(t *testing.T) {
	queue := NewQueue[TestPayload]()
	received := make(chan int, 1)
	go func() {
		message, err := queue.Consume(context.Background())
		if err == nil {
			received <- message.T().Count
		}
	}()

	select {
	case <-received:
		t.Fatal("consume returned before publish")
	case <-time.After(20 * time.Millisecond):
	}

	assert.NoError(t, queue.Publish(context.Background(), &TestPayload{Count: 42}))
	select {
	case value := <-received:
		assert.Equal(t, 42, value)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for consume")
	}
}

func TestQueue_ContextDone(t *testing.T) {
	queue := NewQueue[TestPayload]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	message, err := queue.Consume(ctx)
	assert.Nil(t, message)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	canceled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	assert.ErrorIs(t, queue.Publish(canceled, &TestPayload{}), context.Canceled)
}

func TestQueue_ConcurrentConsumers(t *testing.T) {
	queue := NewQueue[TestPayload]()
	ctx := context.Background()
	const consumers = 8
	const messages = 1000

	var mu sync.Mutex
	seen := make(map[int]bool)
	wg := sync.WaitGroup{}
	for i := 0; i < consumers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				message, err := queue.Consume(ctx)
				if err != nil {
					return
				}
				payload := message.T()
				_ = message.Ack()
				if payload.Count < 0 {
					return
				}
				mu.Lock()
				seen[payload.Count] = true
				mu.Unlock()
			}
		}()
	}

	for i := 0; i < messages; i++ {
		require.NoError(t, queue.Publish(ctx, &TestPayload{Count: i}))
	}
	for i := 0; i < consumers; i++ {
		require.NoError(t, queue.Publish(ctx, &TestPayload{Count: -1}))
	}
	wg.Wait()
	assert.Len(t, seen, messages)
	assert.Equal(t, 0, queue.Size())
}
