package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"todolist/internal/config"
	"todolist/internal/metrics"
	"todolist/internal/models"
	"todolist/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// TopicCreator is the admin call EnsureTopic needs; *kafka.Client has it.
type TopicCreator interface {
	CreateTopics(ctx context.Context, req *kafka.CreateTopicsRequest) (*kafka.CreateTopicsResponse, error)
}

// NewAdmin returns an admin client for the configured brokers.
func NewAdmin(cfg *config.Config) *kafka.Client {
	return &kafka.Client{
		Addr:    kafka.TCP(cfg.KafkaBrokers...),
		Timeout: 10 * time.Second,
	}
}

// EnsureTopic creates the events topic if it is missing. An existing topic is
// not an error.
func EnsureTopic(ctx context.Context, admin TopicCreator, topic string, partitions int) error {
	if partitions < 1 {
		partitions = 1
	}
	resp, err := admin.CreateTopics(ctx, &kafka.CreateTopicsRequest{
		Topics: []kafka.TopicConfig{{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: 1,
		}},
	})
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if err := resp.Errors[topic]; err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	logger.Info(ctx, "Kafka topic ensured", "topic", topic, "partitions", partitions)
	return nil
}

var (
	writer *kafka.Writer
	wOnce  sync.Once
)

// Producer returns the global Kafka writer for todo events (initialized on
// first use). It is nil when no brokers are configured.
func Producer(ctx context.Context) *kafka.Writer {
	wOnce.Do(func() {
		cfg := config.Get()
		if !cfg.EventsEnabled() {
			logger.Info(ctx, "Kafka events disabled (KAFKA_BROKERS not set)")
			return
		}
		writer = &kafka.Writer{
			Addr:         kafka.TCP(cfg.KafkaBrokers...),
			Topic:        cfg.KafkaTopic,
			Balancer:     &kafka.Hash{},
			BatchSize:    100,
			BatchTimeout: 0,
			Async:        true,
			RequiredAcks: kafka.RequireOne,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					metrics.EventsPublishedTotal.WithLabelValues("async_error").Add(float64(len(messages)))
					logger.Warn(context.Background(), "Kafka async delivery failed", "error", err, "count", len(messages))
				}
			},
		}
		logger.Info(ctx, "Kafka producer initialized", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	})
	return writer
}

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher sends todo change events keyed by owner, so one owner's events
// stay ordered within a partition.
type Publisher struct {
	w MessageWriter
}

func NewPublisher(w MessageWriter) *Publisher {
	return &Publisher{w: w}
}

// Publish encodes and writes one event. Non-blocking when using the Async writer.
func (p *Publisher) Publish(ctx context.Context, ev *models.TodoEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.OwnerID),
		Value: payload,
	})
	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.EventsPublishedTotal.WithLabelValues("ok").Inc()
	return nil
}

// DecodeEvent parses a message value written by Publish.
func DecodeEvent(value []byte) (models.TodoEvent, error) {
	var ev models.TodoEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return models.TodoEvent{}, err
	}
	if ev.OwnerID == "" || ev.TodoID == "" {
		return models.TodoEvent{}, fmt.Errorf("event missing owner or todo id")
	}
	return ev, nil
}

// Topic returns the todo events topic name.
func Topic() string {
	return config.Get().KafkaTopic
}

// Brokers returns Kafka broker addresses.
func Brokers() []string {
	return config.Get().KafkaBrokers
}
