package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher sends events to RabbitMQ.  Each publish dials its own
// connection; enrollment events are rare enough that a pooled channel is
// not worth the reconnect bookkeeping.
type Publisher struct {
	url string
	log *zap.Logger
}

func NewPublisher(url string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{url: url, log: log}
}

// PublishEnrollmentCreated publishes ev to the enrollment.created queue.
// Errors are logged and returned so the caller can choose to ignore them;
// messages are marked persistent.
func (p *Publisher) PublishEnrollmentCreated(ctx context.Context, ev EnrollmentCreatedEvent) error {
	if ev.MessageID == "" {
		ev.MessageID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	log := p.log.With(zap.String("queue", EnrollmentCreatedQueue), zap.String("message_id", ev.MessageID))

	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Warn("rabbitmq dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn("rabbitmq channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		EnrollmentCreatedQueue, // name
		true,                   // durable
		false,                  // autoDelete
		false,                  // exclusive
		false,                  // noWait
		nil,                    // args
	); err != nil {
		log.Warn("rabbitmq queue declare failed", zap.Error(err))
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.MessageID,
		Timestamp:    ev.CreatedAt,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", EnrollmentCreatedQueue, false, false, pub); err != nil {
		log.Warn("rabbitmq publish failed", zap.Error(err))
		return err
	}
	log.Debug("enrollment event published", zap.String("user_id", ev.UserID))
	return nil
}
