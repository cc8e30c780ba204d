package generation

import (
	"context"
	"fmt"

	"github.com/cozy-creator/brandgen/internal/mq"
	"github.com/cozy-creator/brandgen/internal/types"

	"github.com/vmihailenco/msgpack/v5"
)

// Publisher enqueues generation requests for the processor.
type Publisher struct {
	queue mq.MQ
	topic string
}

func NewPublisher(queue mq.MQ, topic string) *Publisher {
	return &Publisher{queue: queue, topic: topic}
}

func (p *Publisher) Enqueue(ctx context.Context, req types.GenerationRequest) error {
	data, err := EncodeRequest(req)
	if err != nil {
		return err
	}
	if err := p.queue.Publish(ctx, p.topic, data); err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", req.JobID, err)
	}
	return nil
}

func EncodeRequest(req types.GenerationRequest) ([]byte, error) {
	data, err := msgpack.Marshal(&req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode generation request: %w", err)
	}
	return data, nil
}

func DecodeRequest(data []byte) (types.GenerationRequest, error) {
	var req types.GenerationRequest
	if err := msgpack.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("failed to decode generation request: %w", err)
	}
	return req, nil
}
