package worker

import (
	"context"
	"sync/atomic"

	"todolist/internal/config"
	"todolist/internal/metrics"
	"todolist/internal/models"
	"todolist/internal/queue"
	"todolist/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// Invalidator drops an owner's cached list.
type Invalidator interface {
	InvalidateOwner(ctx context.Context, ownerID string)
}

// MessageReader is the part of *kafka.Reader the worker needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Worker consumes todo change events and invalidates the owner's cached list,
// so every replica's cache follows writes made through any other replica.
type Worker struct {
	reader    MessageReader
	cache     Invalidator
	processed atomic.Int64
}

func New(reader MessageReader, cache Invalidator) *Worker {
	return &Worker{reader: reader, cache: cache}
}

// NewKafkaReader builds the consumer-group reader for the events topic.
func NewKafkaReader(cfg *config.Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

// Run starts the Kafka consumer: reads events, invalidates cache, commits.
// It returns when ctx is cancelled. One consumer per process; scale by running
// more replicas (the consumer group shares partitions).
func Run(ctx context.Context, cache Invalidator) {
	cfg := config.Get()
	if !cfg.EventsEnabled() || cache == nil {
		logger.Info(ctx, "Worker disabled (no Kafka brokers or cache)")
		return
	}
	w := New(NewKafkaReader(cfg), cache)
	defer w.reader.Close()
	logger.Info(ctx, "Kafka consumer started", "topic", queue.Topic(), "group", cfg.KafkaGroupID)
	w.Loop(ctx)
}

// Loop fetches until ctx is done.
func (w *Worker) Loop(ctx context.Context) {
	for {
		msg, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info(ctx, "Kafka consumer stopped", "processed", w.processed.Load())
				return
			}
			logger.Error(ctx, "Worker fetch failed", "error", err)
			continue
		}
		if err := w.handleMessage(ctx, msg.Value); err != nil {
			metrics.EventsConsumedTotal.WithLabelValues("invalid").Inc()
			logger.Error(ctx, "Worker handle failed", "error", err, "payload", string(msg.Value))
			// Commit anyway to avoid poison pill blocking the partition
			_ = w.reader.CommitMessages(ctx, msg)
			continue
		}
		if err := w.reader.CommitMessages(ctx, msg); err != nil {
			logger.Error(ctx, "Worker commit failed", "error", err)
		}
		metrics.EventsConsumedTotal.WithLabelValues("ok").Inc()
		w.processed.Add(1)
	}
}

// Processed returns the number of events handled successfully.
func (w *Worker) Processed() int64 {
	return w.processed.Load()
}

func (w *Worker) handleMessage(ctx context.Context, payload []byte) error {
	ev, err := queue.DecodeEvent(payload)
	if err != nil {
		return err
	}
	switch ev.Type {
	case models.EventCreated, models.EventRenamed, models.EventStatusChanged, models.EventHardDeleted:
		w.cache.InvalidateOwner(ctx, ev.OwnerID)
		logger.Debug(ctx, "Todo event applied", "type", ev.Type, "todo_id", ev.TodoID, "owner_id", ev.OwnerID)
	default:
		logger.Debug(ctx, "Ignoring unknown todo event", "type", ev.Type)
	}
	return nil
}
