// Package queue defines the enrollment events exchanged over RabbitMQ, the
// publisher used by request paths and the consumer that sends welcome email.
package queue

import (
	"time"

	"github.com/designengineer/course-api/internal/model"
)

// EnrollmentCreatedQueue is the durable queue enrollment events go to.
const EnrollmentCreatedQueue = "enrollment.created"

// Enrollment sources carried on the event.
const (
	SourcePurchase      = "purchase"
	SourceTemporaryCode = "temporary_code"
	SourceTest          = "test"
)

// EnrollmentCreatedEvent is published after an enrollment row is written.
// It carries what the welcome email needs so the consumer never reads the
// primary database.
type EnrollmentCreatedEvent struct {
	MessageID    string            `json:"message_id"`
	EnrollmentID uint64            `json:"enrollment_id"`
	UserID       string            `json:"user_id"`
	UserEmail    string            `json:"user_email,omitempty"`
	AccessLevel  model.AccessLevel `json:"access_level"`
	Source       string            `json:"source"`
	OrderID      string            `json:"order_id,omitempty"`
	ExpiresAt    *time.Time        `json:"expires_at,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}
