package mq

import (
	"context"
	"sync"
)

type memoryMessage []byte

func (m memoryMessage) Data() []byte {
	return m
}

// InMemoryMQ keeps one buffered channel per topic. Publishing to a full
// topic fails fast with ErrQueueFull instead of blocking the caller.
type InMemoryMQ struct {
	maxSize   int
	topics    sync.Map
	closeCh   chan struct{}
	closeOnce sync.Once
}

func NewInMemoryMQ(maxSize int) *InMemoryMQ {
	if maxSize <= 0 {
		maxSize = defaultQueueSize
	}
	return &InMemoryMQ{
		maxSize: maxSize,
		closeCh: make(chan struct{}),
	}
}

func (q *InMemoryMQ) Type() string {
	return MQTypeInMemory
}

func (q *InMemoryMQ) topic(name string) chan []byte {
	value, _ := q.topics.LoadOrStore(name, make(chan []byte, q.maxSize))
	return value.(chan []byte)
}

func (q *InMemoryMQ) Publish(ctx context.Context, topic string, payload []byte) error {
	select {
	case <-q.closeCh:
		return ErrQueueClosed
	default:
	}

	ch := q.topic(topic)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case ch <- payload:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *InMemoryMQ) Receive(ctx context.Context, topic string) (Message, error) {
	ch := q.topic(topic)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.closeCh:
		return nil, ErrQueueClosed
	case data, ok := <-ch:
		if !ok {
			q.topics.Delete(topic)
			return nil, ErrTopicClosed
		}
		return memoryMessage(data), nil
	}
}

// Ack is a no-op; a received message is already gone from the channel.
func (q *InMemoryMQ) Ack(topic string, message Message) error {
	return nil
}

// Len reports the number of undelivered messages on topic.
func (q *InMemoryMQ) Len(topic string) int {
	value, ok := q.topics.Load(topic)
	if !ok {
		return 0
	}
	return len(value.(chan []byte))
}

func (q *InMemoryMQ) CloseTopic(topic string) error {
	value, ok := q.topics.Load(topic)
	if !ok {
		return ErrTopicNotExists
	}

	close(value.(chan []byte))
	return nil
}

func (q *InMemoryMQ) Close() error {
	q.closeOnce.Do(func() { close(q.closeCh) })
	return nil
}
