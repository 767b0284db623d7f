package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

const DefaultTopic = "leave.notifications"

// NotificationEvent is the payload published for each recipient.
type NotificationEvent struct {
	EmployeeID generic.EmployeeID `json:"employeeId"`
	Message    string             `json:"message"`
	SentAt     time.Time          `json:"sentAt"`
}

// messageWriter is the part of *kafka.Writer the sink needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaSink publishes one event per recipient, keyed by employee id so a
// recipient's notifications stay ordered within a partition.
type KafkaSink struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

var _ leave.NotificationSink = (*KafkaSink)(nil)

func NewKafkaSink(writer messageWriter, topic string) *KafkaSink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaSink{writer: writer, topic: topic, now: time.Now}
}

// DefaultBatchTimeout bounds how long a partial batch waits before it is
// flushed. One application sends a handful of messages, so batches are
// almost always partial.
const DefaultBatchTimeout = 10 * time.Millisecond

// NewKafkaWriter builds the writer used in production. The topic is set per
// message, so the writer itself carries none. Writes are asynchronous:
// WriteMessages returns once the messages are queued and delivery failures
// are logged by the completion callback.
func NewKafkaWriter(brokers []string, logger *zap.Logger) *kafka.Writer {
	if logger == nil {
		logger = zap.L()
	}
	log := logger.Named("notify.kafka")
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           DefaultBatchTimeout,
		Async:                  true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				log.Warn("failed to publish notifications", zap.Int("messages", len(msgs)), zap.Error(err))
			}
		},
	}
}

func (k *KafkaSink) Notify(ctx context.Context, employeeIDs []generic.EmployeeID, message string) error {
	if len(employeeIDs) == 0 {
		return nil
	}
	now := k.now().UTC()
	msgs := make([]kafka.Message, 0, len(employeeIDs))
	for _, id := range employeeIDs {
		payload, err := json.Marshal(NotificationEvent{EmployeeID: id, Message: message, SentAt: now})
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Topic: k.topic,
			Key:   []byte(id),
			Value: payload,
			Headers: []kafka.Header{
				{Key: "event", Value: []byte("leave.notification")},
			},
		})
	}
	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish notifications: %w", err)
	}
	return nil
}
