package attendance

import (
	"context"
	"encoding/json"
	"go-presence/internal/events"

	"github.com/segmentio/kafka-go"
)

// StatusPublisher fans a committed status transition out to live
// subscribers. Delivery is best effort: failures are logged by the
// caller and never retried inline, never rolled back into the
// transition.
type StatusPublisher interface {
	PublishStatusChanged(ctx context.Context, event events.StatusChangedEvent) error
}

type noopStatusPublisher struct{}

func NewNoopStatusPublisher() StatusPublisher {
	return noopStatusPublisher{}
}

func (noopStatusPublisher) PublishStatusChanged(context.Context, events.StatusChangedEvent) error {
	return nil
}

type kafkaStatusPublisher struct {
	writer *kafka.Writer
}

func NewKafkaStatusPublisher(writer *kafka.Writer) StatusPublisher {
	return &kafkaStatusPublisher{writer: writer}
}

func (p *kafkaStatusPublisher) PublishStatusChanged(
	ctx context.Context,
	event events.StatusChangedEvent,
) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: events.StatusChangedTopic,
		Key:   []byte(event.TenantID + ":" + event.UserID),
		Value: payload,
	})
}
