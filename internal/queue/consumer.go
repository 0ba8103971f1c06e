package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/designengineer/course-api/internal/mailer"
)

// WelcomeSender delivers the welcome email for a new enrollment.
type WelcomeSender interface {
	SendWelcome(ctx context.Context, w mailer.Welcome) error
}

// Consumer reads enrollment.created and sends welcome email.
type Consumer struct {
	url    string
	sender WelcomeSender
	log    *zap.Logger
}

func NewConsumer(url string, sender WelcomeSender, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{url: url, sender: sender, log: log.Named("enrollment-consumer")}
}

// Run connects, declares the durable queue and consumes until ctx is
// cancelled.  Broker failures are retried with exponential backoff capped
// at 30s; a message that fails to process is rejected without requeue so
// a bad payload cannot spin the loop.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(20, 0, false); err != nil {
		c.log.Warn("set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(EnrollmentCreatedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(EnrollmentCreatedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(ctx, d.Body); err != nil {
				c.log.Error("handle message failed", zap.String("message_id", d.MessageId), zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle processes one message body.  Events without an email address are
// acknowledged and skipped.
func (c *Consumer) Handle(ctx context.Context, body []byte) error {
	var ev EnrollmentCreatedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.UserEmail == "" {
		c.log.Debug("no email on event, skipping", zap.String("user_id", ev.UserID))
		return nil
	}
	sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	err := c.sender.SendWelcome(sendCtx, mailer.Welcome{
		To:          ev.UserEmail,
		AccessLevel: ev.AccessLevel,
		ExpiresAt:   ev.ExpiresAt,
	})
	if errors.Is(err, mailer.ErrDisabled) {
		c.log.Info("mailer disabled, welcome email not sent", zap.String("user_id", ev.UserID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("send welcome: %w", err)
	}
	c.log.Info("welcome email sent", zap.String("user_id", ev.UserID), zap.String("source", ev.Source))
	return nil
}
