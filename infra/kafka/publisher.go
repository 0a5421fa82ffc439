// Package kafka publishes outbox payloads to a Kafka topic using either the
// sarama or the kafka-go client.
package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	kafkago "github.com/segmentio/kafka-go"

	"matchbook/infra/config"
)

// Publisher delivers one message and reports whether the broker accepted it.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
	Close() error
}

// New builds the publisher selected by cfg.Client.
func New(cfg config.KafkaConfig) (Publisher, error) {
	switch cfg.Client {
	case config.ClientKafkaGo:
		return NewWriterPublisher(cfg.Brokers, cfg.Topic), nil
	case config.ClientSarama, "":
		return NewSaramaPublisher(cfg.Brokers, cfg.Topic)
	default:
		return nil, fmt.Errorf("kafka: unknown client %q", cfg.Client)
	}
}

type SaramaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewSaramaPublisher(brokers []string, topic string) (*SaramaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return NewSaramaPublisherWith(producer, topic), nil
}

// NewSaramaPublisherWith wraps an existing producer.
func NewSaramaPublisherWith(producer sarama.SyncProducer, topic string) *SaramaPublisher {
	return &SaramaPublisher{producer: producer, topic: topic}
}

// Publish sends synchronously; ctx is not consulted by the sarama client.
func (p *SaramaPublisher) Publish(_ context.Context, key, value []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(value),
	}
	if key != nil {
		msg.Key = sarama.ByteEncoder(key)
	}
	_, _, err := p.producer.SendMessage(msg)
	return err
}

func (p *SaramaPublisher) Close() error {
	return p.producer.Close()
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type WriterPublisher struct {
	w messageWriter
}

func NewWriterPublisher(brokers []string, topic string) *WriterPublisher {
	return &WriterPublisher{w: &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}}
}

func (p *WriterPublisher) Publish(ctx context.Context, key, value []byte) error {
	return p.w.WriteMessages(ctx, kafkago.Message{Key: key, Value: value})
}

func (p *WriterPublisher) Close() error {
	return p.w.Close()
}
