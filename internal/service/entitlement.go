package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/designengineer/course-api/internal/access"
	"github.com/designengineer/course-api/internal/config"
	"github.com/designengineer/course-api/internal/model"
	"github.com/designengineer/course-api/internal/queue"
	"github.com/designengineer/course-api/internal/repository"
	"github.com/designengineer/course-api/internal/utils"
)

// Entitlements resolves a user's effective access level.
type Entitlements struct {
	store    EnrollmentStore
	cache    EnrollmentCache
	events   EventPublisher
	override *config.TestAccess
	log      *zap.Logger

	// PreviewToken opens every lesson for callers that present it.  Empty
	// disables preview access.
	PreviewToken string

	// Now defaults to time.Now.
	Now func() time.Time
}

// NewEntitlements wires the resolver.  cache, events and override may be nil.
func NewEntitlements(store EnrollmentStore, cache EnrollmentCache, events EventPublisher,
	override *config.TestAccess, log *zap.Logger) *Entitlements {
	if log == nil {
		log = zap.NewNop()
	}
	return &Entitlements{store: store, cache: cache, events: events, override: override, log: log, Now: time.Now}
}

// Access is the resolved entitlement of one user.
type Access struct {
	Level      model.AccessLevel
	Enrollment *model.Enrollment
	// Override is set when the development override replaced Level.
	Override bool
}

func (s *Entitlements) now() time.Time { return s.Now().UTC() }

// enrollments lists userID's enrollments.  fresh skips the cache; writes
// and redemption checks always read fresh.
func (s *Entitlements) enrollments(ctx context.Context, userID string, fresh bool) ([]model.Enrollment, error) {
	if !fresh && s.cache != nil {
		if list, ok := s.cache.Get(ctx, userID); ok {
			return list, nil
		}
	}
	list, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	if s.cache != nil {
		s.cache.Set(ctx, userID, list)
	}
	return list, nil
}

// Invalidate drops any cached lookup for userID.
func (s *Entitlements) Invalidate(ctx context.Context, userID string) {
	if s.cache != nil && userID != "" {
		s.cache.Invalidate(ctx, userID)
	}
}

// SelectEnrollment picks the enrollment that governs access at now.  An
// active temporary enrollment wins; otherwise the broadest grant wins and
// ties go to the most recent purchase.  Expired, refunded and unknown-level
// records are ignored.  It returns nil when nothing is active.
func SelectEnrollment(list []model.Enrollment, now time.Time) *model.Enrollment {
	var best *model.Enrollment
	for i := range list {
		e := &list[i]
		if !e.ActiveAt(now) || !e.AccessLevel.Valid() {
			continue
		}
		if best == nil || preferred(*e, *best) {
			best = e
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

func preferred(a, b model.Enrollment) bool {
	if a.IsTemporary != b.IsTemporary {
		return a.IsTemporary
	}
	if a.AccessLevel.Breadth() != b.AccessLevel.Breadth() {
		return a.AccessLevel.Breadth() > b.AccessLevel.Breadth()
	}
	if !a.PurchasedAt.Equal(b.PurchasedAt) {
		return a.PurchasedAt.After(b.PurchasedAt)
	}
	return a.ID > b.ID
}

// Resolve returns the effective access of userID.  Anonymous callers get
// free.  The development override, when configured, replaces the level for
// every user not on its bypass list.
func (s *Entitlements) Resolve(ctx context.Context, userID string) (Access, error) {
	if userID == "" {
		return Access{Level: model.AccessFree}, nil
	}
	out := Access{Level: model.AccessFree}
	list, err := s.enrollments(ctx, userID, false)
	if err != nil {
		return out, err
	}
	if e := SelectEnrollment(list, s.now()); e != nil {
		out.Level = e.AccessLevel
		out.Enrollment = e
	}
	if s.override != nil && !s.override.Bypassed(userID) {
		out.Level = s.override.Level
		out.Override = true
	}
	return out, nil
}

// ValidPreview reports whether token matches the configured preview token.
func (s *Entitlements) ValidPreview(token string) bool {
	if s.PreviewToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.PreviewToken)) == 1
}

// CheckLesson answers the lesson gate for userID.  A valid preview token
// is honoured before any enrollment lookup and opens lessons as full.
func (s *Entitlements) CheckLesson(ctx context.Context, userID, lessonPath, previewToken string) (access.Decision, error) {
	if access.NormalizePath(lessonPath) == "" {
		return access.Decision{}, fail(ErrInvalidInput, "lessonPath is required")
	}
	if s.ValidPreview(previewToken) {
		d := access.Decide(model.AccessFull, lessonPath)
		d.Preview = d.HasAccess
		return d, nil
	}
	acc, err := s.Resolve(ctx, userID)
	if err != nil {
		return access.Decision{}, err
	}
	return access.Decide(acc.Level, lessonPath), nil
}

// CreateTestEnrollment writes a real enrollment for development.  An
// existing active enrollment is returned unchanged with created=false.
func (s *Entitlements) CreateTestEnrollment(ctx context.Context, userID, email string, level model.AccessLevel) (e model.Enrollment, created bool, err error) {
	if userID == "" {
		return e, false, ErrUnauthorized
	}
	if level == "" {
		level = model.AccessFull
	}
	if !level.Valid() {
		return e, false, fail(ErrInvalidInput, "Invalid access level")
	}
	list, err := s.enrollments(ctx, userID, true)
	if err != nil {
		return e, false, err
	}
	if cur := SelectEnrollment(list, s.now()); cur != nil {
		return *cur, false, nil
	}
	suffix, err := utils.RandomID(8)
	if err != nil {
		return e, false, err
	}
	now := s.now()
	e = model.Enrollment{
		Slug:        "test-enrollment-" + userID + "-" + suffix,
		UserID:      userID,
		ProductID:   string(level),
		AccessLevel: level,
		PurchasedAt: now,
		EmailDomain: utils.EmailDomain(email),
		Status:      model.EnrollmentActive,
		CreatedAt:   now,
	}
	if err := s.store.Create(ctx, &e); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return e, false, fail(ErrConflict, "Enrollment already exists")
		}
		return e, false, fmt.Errorf("create test enrollment: %w", err)
	}
	s.Invalidate(ctx, userID)
	s.publish(ctx, e, email, queue.SourceTest)
	return e, true, nil
}

// publish announces e.  Broker failures are logged only; the enrollment is
// already committed.
func (s *Entitlements) publish(ctx context.Context, e model.Enrollment, email, source string) {
	if s.events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := s.events.PublishEnrollmentCreated(pctx, queue.EnrollmentCreatedEvent{
		EnrollmentID: e.ID,
		UserID:       e.UserID,
		UserEmail:    email,
		AccessLevel:  e.AccessLevel,
		Source:       source,
		OrderID:      e.OrderID,
		ExpiresAt:    e.ExpiresAt,
		CreatedAt:    e.CreatedAt,
	})
	if err != nil {
		s.log.Warn("publish enrollment event failed", zap.String("user_id", e.UserID), zap.Error(err))
	}
}
