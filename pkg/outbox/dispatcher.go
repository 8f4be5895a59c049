package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/Pickle-Storefront/pkg/tracing"
)

type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Dispatcher struct {
	log      *slog.Logger
	producer Producer
	topic    string
	tracer   trace.Tracer
}

func NewDispatcher(log *slog.Logger, producer Producer, topic string) *Dispatcher {
	return &Dispatcher{log: log, producer: producer, topic: topic, tracer: otel.Tracer("outbox")}
}

// Dispatch publishes one event keyed by its aggregate id so events for the
// same order stay on one partition.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) error {
	ctx, span := d.tracer.Start(tracing.ContextWithTraceparent(ctx, event.Traceparent), "outbox.Dispatch",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attribute.String("event_type", event.Type), attribute.String("aggregate_id", event.AggregateID)))
	defer span.End()

	headers := make([]kafka.Header, 0, len(event.Headers)+3)
	for k, v := range event.Headers {
		if k == tracing.TraceparentHeader {
			continue
		}
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	headers = append(headers, kafka.Header{Key: "event_type", Value: []byte(event.Type)})
	headers = tracing.InjectKafkaHeaders(ctx, headers)
	if !hasHeader(headers, tracing.TraceparentHeader) && event.Traceparent != "" {
		headers = append(headers, kafka.Header{Key: tracing.TraceparentHeader, Value: []byte(event.Traceparent)})
	}

	msg := kafka.Message{
		Topic:   d.topic,
		Key:     []byte(event.AggregateID),
		Value:   event.Payload,
		Headers: headers,
	}
	if err := d.producer.WriteMessages(ctx, msg); err != nil {
		d.log.Error("outbox dispatch failed", "event_id", event.ID, "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, kafka.MessageSizeTooLarge) {
			return fmt.Errorf("%w: %v", ErrPermanent, err)
		}
		return err
	}
	d.log.Info("outbox dispatched", "event_id", event.ID, "type", event.Type, "aggregate_id", event.AggregateID)
	return nil
}

func hasHeader(headers []kafka.Header, key string) bool {
	for _, h := range headers {
		if h.Key == key {
			return true
		}
	}
	return false
}

// ErrPermanent marks dispatch failures that retrying cannot fix.
var ErrPermanent = errors.New("permanent")
