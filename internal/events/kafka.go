package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/twmb/franz-go/pkg/kgo"
)

// DefaultTopic is the Kafka topic events are produced to.
const DefaultTopic = "riskpool.events"

// Producer is the part of kgo.Client the sink needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaSink produces events keyed by event type.
type KafkaSink struct {
	producer Producer
	topic    string
	closer   func()
}

// NewKafkaSink dials the brokers and returns a sink owning the client.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, errors.New("events: kafka brokers required")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, err
	}
	return &KafkaSink{producer: client, topic: topic, closer: client.Close}, nil
}

// NewKafkaSinkWithProducer wraps an existing producer.
func NewKafkaSinkWithProducer(producer Producer, topic string) *KafkaSink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(ev.Type),
		Value: payload,
	}
	return s.producer.ProduceSync(ctx, record).FirstErr()
}

// Close flushes and releases the underlying client when the sink owns it.
func (s *KafkaSink) Close() {
	if s != nil && s.closer != nil {
		s.closer()
	}
}
