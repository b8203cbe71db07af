package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// TaskEnqueuer is the asynq client surface TaskNotifier uses.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskNotifier queues every event for the background worker.
type TaskNotifier struct {
	Client   TaskEnqueuer
	Queue    string
	MaxRetry int
}

func (n TaskNotifier) Notify(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	opts := []asynq.Option{asynq.TaskID(ev.ID)}
	if n.Queue != "" {
		opts = append(opts, asynq.Queue(n.Queue))
	}
	if n.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(n.MaxRetry))
	}
	if _, err := n.Client.EnqueueContext(ctx, asynq.NewTask(TaskTypeFor(ev.Topic), data), opts...); err != nil {
		return fmt.Errorf("enqueue %s: %w", ev.Topic, err)
	}
	return nil
}

// DecodeTask reads the event carried by a queued task.
func DecodeTask(t *asynq.Task) (Event, error) {
	var ev Event
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		return Event{}, fmt.Errorf("decode %s task: %w", t.Type(), err)
	}
	return ev, nil
}

// MessageWriter is the kafka-go writer surface KafkaNotifier uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaNotifier streams events to a Kafka topic keyed by aggregate id so
// events of one invoice stay ordered.
type KafkaNotifier struct {
	Writer MessageWriter
}

// NewKafkaWriter builds the producer for brokers and topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

func (n KafkaNotifier) Notify(ctx context.Context, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.AggregateID),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "topic", Value: []byte(ev.Topic)},
			{Key: "event_id", Value: []byte(ev.ID)},
		},
	})
}

// LogNotifier writes each event to the request logger.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, ev Event) error {
	zerolog.Ctx(ctx).Info().
		Str("event_id", ev.ID).
		Str("topic", ev.Topic).
		Str("aggregate_id", ev.AggregateID).
		Msg("domain_event")
	return nil
}
