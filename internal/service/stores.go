// Package service implements the course entitlement rules on top of the
// repository stores.  Services depend on the interfaces below; the MySQL
// stores and the in-memory stores both satisfy them.
package service

import (
	"context"
	"time"

	"github.com/designengineer/course-api/internal/model"
	"github.com/designengineer/course-api/internal/queue"
)

type EnrollmentStore interface {
	Create(ctx context.Context, e *model.Enrollment) error
	ListByUser(ctx context.Context, userID string) ([]model.Enrollment, error)
	GetByOrderID(ctx context.Context, orderID string) (model.Enrollment, error)
	SetStatusByOrder(ctx context.Context, orderID string, status model.EnrollmentStatus) error
	ExpireTemporary(ctx context.Context, now time.Time) (int64, error)
}

type AccessCodeStore interface {
	Create(ctx context.Context, c *model.TemporaryAccessCode) error
	Get(ctx context.Context, code string) (model.TemporaryAccessCode, error)
	List(ctx context.Context) ([]model.TemporaryAccessCode, error)
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
	Redeem(ctx context.Context, code, userID string, now time.Time,
		grant func(model.TemporaryAccessCode) model.Enrollment) (model.Enrollment, error)
}

type CertificateStore interface {
	Create(ctx context.Context, c *model.Certificate) error
	GetBySlug(ctx context.Context, slug string) (model.Certificate, error)
	Get(ctx context.Context, userID string, platform model.Platform, track model.Track) (model.Certificate, error)
	ListByUser(ctx context.Context, userID string) ([]model.Certificate, error)
}

type ProgressStore interface {
	ListByUser(ctx context.Context, userID string) ([]model.LessonProgress, error)
	// Record applies the beacon d to the stored row atomically and returns
	// the merged row.  d.TimeSpentSeconds is an increment.
	Record(ctx context.Context, d model.LessonProgress) (model.LessonProgress, error)
}

type LessonStore interface {
	ListTrack(ctx context.Context, track model.Track, platform model.Platform) ([]model.Lesson, error)
	ListAll(ctx context.Context) ([]model.Lesson, error)
}

// EnrollmentCache is the short-lived lookup cache.  Implementations must
// treat every failure as a miss.
type EnrollmentCache interface {
	Get(ctx context.Context, userID string) ([]model.Enrollment, bool)
	Set(ctx context.Context, userID string, list []model.Enrollment)
	Invalidate(ctx context.Context, userID string)
}

// EventPublisher announces new enrollments.
type EventPublisher interface {
	PublishEnrollmentCreated(ctx context.Context, ev queue.EnrollmentCreatedEvent) error
}
