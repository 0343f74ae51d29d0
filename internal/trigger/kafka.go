package trigger

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

const DefaultKafkaTopic = "iffy.stylize"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes one message per record, keyed by id so retries of the same
// record land on the same partition.
type Kafka struct {
	writer messageWriter
}

func NewKafka(brokers []string, topic string) *Kafka {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	return &Kafka{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchSize:              1,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}
}

func (k *Kafka) Fire(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	msg := kafka.Message{
		Key:     []byte(id),
		Value:   []byte(id),
		Headers: []kafka.Header{{Key: "source", Value: []byte("iffy-api")}},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return wrap("kafka", err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaQueue consumes the topic Kafka writes to as part of a consumer group.
type KafkaQueue struct {
	reader messageReader
}

func NewKafkaQueue(brokers []string, topic, group string) *KafkaQueue {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	return &KafkaQueue{reader: kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  group,
		MinBytes: 1,
		MaxBytes: 1 << 20,
		MaxWait:  time.Second,
	})}
}

func (q *KafkaQueue) Next(ctx context.Context) (string, error) {
	msg, err := q.reader.ReadMessage(ctx)
	if err != nil {
		return "", wrap("kafka", err)
	}
	return string(msg.Value), nil
}

func (q *KafkaQueue) Close() error {
	return q.reader.Close()
}
