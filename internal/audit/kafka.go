package audit

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/keygate/keygate/internal/obs/retry"
)

// KafkaPublisher writes audit events to a single topic, keyed by user id so
// one user's trail stays ordered within a partition.
type KafkaPublisher struct {
	w      *kafka.Writer
	topic  string
	log    *zap.Logger
	policy retry.Policy
}

func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "audit.kafka"), zap.String("topic", topic))
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		topic:  topic,
		log:    log,
		policy: retry.DefaultKafkaPolicy(log),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		p.log.Error("audit marshal failed", zap.Error(err))
		return err
	}

	tr := otel.Tracer("audit.kafka")
	ctx, span := tr.Start(ctx, "audit.publish "+p.topic, trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingDestinationName(p.topic),
			semconv.MessagingOperationPublish,
		),
	)
	defer span.End()

	key := []byte(strconv.FormatInt(e.UserID, 10))
	err = retry.Do(ctx, func() error {
		return p.w.WriteMessages(ctx, kafka.Message{Key: key, Value: value})
	}, p.policy)
	if err != nil {
		p.log.Error("audit write failed", zap.Error(err))
		return err
	}
	p.log.Debug("audit event published", zap.String("kind", e.Kind), zap.Int64("user_id", e.UserID))
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }
