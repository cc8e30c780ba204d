package mq

import (
	"context"
	"errors"

	"github.com/cozy-creator/brandgen/internal/config"

	"go.uber.org/zap"
)

var (
	ErrTopicNotExists = errors.New("topic does not exist")
	ErrQueueFull      = errors.New("queue is full")
	ErrQueueClosed    = errors.New("queue closed")
	ErrTopicClosed    = errors.New("topic closed")
)

const (
	MQTypeInMemory = "inmemory"
	MQTypePulsar   = "pulsar"
)

const defaultQueueSize = 64

// Message is one delivery taken from a topic. It must be acknowledged
// with the MQ it came from.
type Message interface {
	Data() []byte
}

type MQ interface {
	Type() string
	Publish(ctx context.Context, topic string, payload []byte) error
	Receive(ctx context.Context, topic string) (Message, error)
	Ack(topic string, message Message) error
	CloseTopic(topic string) error
	Close() error
}

// NewMQ returns a Pulsar-backed queue when a Pulsar URL is configured and a
// process-local queue otherwise.
func NewMQ(cfg *config.Config, logger *zap.Logger) (MQ, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg != nil && cfg.Pulsar != nil {
		return NewPulsarMQ(cfg.Pulsar, logger)
	}

	size := defaultQueueSize
	if cfg != nil && cfg.Generator.QueueSize > 0 {
		size = cfg.Generator.QueueSize
	}
	return NewInMemoryMQ(size), nil
}
