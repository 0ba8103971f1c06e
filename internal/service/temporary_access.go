package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/designengineer/course-api/internal/model"
	"github.com/designengineer/course-api/internal/queue"
	"github.com/designengineer/course-api/internal/repository"
	"github.com/designengineer/course-api/internal/utils"
)

// Reasons a code fails validation.
const (
	ReasonNotFound  = "not_found"
	ReasonExpired   = "expired"
	ReasonExhausted = "exhausted"
)

const (
	codeLength         = 8
	maxCodesPerRequest = 50
	maxCodeLifetime    = 365
)

// CanonicalCode trims and upper-cases a code as typed by a user.
func CanonicalCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// TemporaryAccess validates, redeems and administers temporary codes.
type TemporaryAccess struct {
	codes AccessCodeStore
	ents  *Entitlements
	days  int
	log   *zap.Logger

	Now func() time.Time
}

// NewTemporaryAccess returns the service.  days is the length of the
// enrollment created by a redemption.
func NewTemporaryAccess(codes AccessCodeStore, ents *Entitlements, days int, log *zap.Logger) *TemporaryAccess {
	if log == nil {
		log = zap.NewNop()
	}
	if days < 1 {
		days = 7
	}
	return &TemporaryAccess{codes: codes, ents: ents, days: days, log: log, Now: time.Now}
}

func (s *TemporaryAccess) now() time.Time { return s.Now().UTC() }

// Validation is the outcome of checking a code.
type Validation struct {
	IsValid     bool                       `json:"isValid"`
	Reason      string                     `json:"reason,omitempty"`
	AccessLevel model.AccessLevel          `json:"accessLevel,omitempty"`
	ExpiresAt   *time.Time                 `json:"expiresAt,omitempty"`
	Code        *model.TemporaryAccessCode `json:"-"`
}

func invalid(reason string) Validation { return Validation{Reason: reason} }

// Validate looks up a code and reports whether it can still be redeemed.
func (s *TemporaryAccess) Validate(ctx context.Context, raw string) (Validation, error) {
	code := CanonicalCode(raw)
	if code == "" {
		return invalid(ReasonNotFound), nil
	}
	c, err := s.codes.Get(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return invalid(ReasonNotFound), nil
	}
	if err != nil {
		return Validation{}, fmt.Errorf("get code: %w", err)
	}
	if c.Status == model.CodeExpired || !s.now().Before(c.ExpiresAt) {
		return invalid(ReasonExpired), nil
	}
	if c.Exhausted() {
		return invalid(ReasonExhausted), nil
	}
	exp := c.ExpiresAt
	return Validation{IsValid: true, AccessLevel: c.AccessLevel, ExpiresAt: &exp, Code: &c}, nil
}

// Redemption is the outcome of redeeming a code.  Created is false when
// the call returned an enrollment made by an earlier redemption.
type Redemption struct {
	Success    bool              `json:"success"`
	Reason     string            `json:"reason,omitempty"`
	Enrollment *model.Enrollment `json:"enrollment,omitempty"`
	Created    bool              `json:"-"`
}

// Redeem grants userID a temporary enrollment from code.
//
// Redeeming the same code again while its enrollment is active returns that
// enrollment.  Holding any other active enrollment is a conflict.  The
// store repeats that check inside its atomic write, so concurrent
// redemptions cannot exceed max_redemptions or give one user two grants.
func (s *TemporaryAccess) Redeem(ctx context.Context, raw, userID, email string) (Redemption, error) {
	if userID == "" {
		return Redemption{}, ErrUnauthorized
	}
	code := CanonicalCode(raw)
	if code == "" {
		return Redemption{}, fail(ErrInvalidInput, "Code is required")
	}
	now := s.now()

	list, err := s.ents.enrollments(ctx, userID, true)
	if err != nil {
		return Redemption{}, err
	}
	if e := existingRedemption(list, code, now); e != nil {
		return Redemption{Success: true, Enrollment: e}, nil
	}

	v, err := s.Validate(ctx, code)
	if err != nil {
		return Redemption{}, err
	}
	if !v.IsValid {
		return Redemption{Reason: v.Reason}, nil
	}
	if other := model.OtherActive(list, code, now); other != nil {
		return Redemption{}, fail(ErrConflict, "You already have active course access")
	}

	suffix, err := utils.RandomID(8)
	if err != nil {
		return Redemption{}, err
	}
	expires := now.AddDate(0, 0, s.days)
	e, err := s.codes.Redeem(ctx, code, userID, now, func(c model.TemporaryAccessCode) model.Enrollment {
		return model.Enrollment{
			Slug:            "temp-enrollment-" + userID + "-" + suffix,
			UserID:          userID,
			ProductID:       "temporary_" + string(c.AccessLevel),
			AccessLevel:     c.AccessLevel,
			PurchasedAt:     now,
			EmailDomain:     utils.EmailDomain(email),
			Status:          model.EnrollmentActive,
			IsTemporary:     true,
			TemporarySource: c.Code,
			ExpiresAt:       &expires,
			CreatedAt:       now,
		}
	})
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return Redemption{Reason: ReasonNotFound}, nil
	case errors.Is(err, repository.ErrExpired):
		return Redemption{Reason: ReasonExpired}, nil
	case errors.Is(err, repository.ErrExhausted):
		return Redemption{Reason: ReasonExhausted}, nil
	case errors.Is(err, repository.ErrActiveEnrollment):
		return Redemption{}, fail(ErrConflict, "You already have active course access")
	case errors.Is(err, repository.ErrConflict):
		// Lost a race against our own earlier request, or the earlier
		// enrollment from this code has lapsed.
		fresh, lerr := s.ents.enrollments(ctx, userID, true)
		if lerr == nil {
			if e := existingRedemption(fresh, code, now); e != nil {
				return Redemption{Success: true, Enrollment: e}, nil
			}
		}
		return Redemption{}, fail(ErrConflict, "Code already redeemed")
	case err != nil:
		return Redemption{}, fmt.Errorf("redeem code: %w", err)
	}

	s.ents.Invalidate(ctx, userID)
	s.ents.publish(ctx, e, email, queue.SourceTemporaryCode)
	s.log.Info("temporary access redeemed", zap.String("user_id", userID), zap.String("code", code),
		zap.String("access_level", string(e.AccessLevel)))
	return Redemption{Success: true, Enrollment: &e, Created: true}, nil
}

func existingRedemption(list []model.Enrollment, code string, now time.Time) *model.Enrollment {
	for i := range list {
		e := list[i]
		if e.IsTemporary && e.TemporarySource == code && e.ActiveAt(now) {
			return &e
		}
	}
	return nil
}

// CreateCodesInput is the admin request for new codes.
type CreateCodesInput struct {
	Count          int
	ExpiresInDays  int
	AccessLevel    model.AccessLevel
	MaxRedemptions *int
}

// CreateCodes generates Count random codes.  Level defaults to full.
func (s *TemporaryAccess) CreateCodes(ctx context.Context, in CreateCodesInput) ([]model.TemporaryAccessCode, error) {
	if in.Count < 1 || in.Count > maxCodesPerRequest {
		return nil, fail(ErrInvalidInput, "Count must be between 1 and %d", maxCodesPerRequest)
	}
	if in.ExpiresInDays < 1 || in.ExpiresInDays > maxCodeLifetime {
		return nil, fail(ErrInvalidInput, "Expiration days must be between 1 and %d", maxCodeLifetime)
	}
	if in.AccessLevel == "" {
		in.AccessLevel = model.AccessFull
	}
	if !in.AccessLevel.Valid() || in.AccessLevel == model.AccessFree {
		return nil, fail(ErrInvalidInput, "Invalid access level")
	}
	if in.MaxRedemptions != nil && *in.MaxRedemptions < 1 {
		return nil, fail(ErrInvalidInput, "maxRedemptions must be at least 1")
	}

	now := s.now()
	out := make([]model.TemporaryAccessCode, 0, in.Count)
	for len(out) < in.Count {
		c, err := s.createOne(ctx, in, now)
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
	s.log.Info("temporary access codes created", zap.Int("count", len(out)),
		zap.String("access_level", string(in.AccessLevel)))
	return out, nil
}

func (s *TemporaryAccess) createOne(ctx context.Context, in CreateCodesInput, now time.Time) (model.TemporaryAccessCode, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := utils.RandomCode(codeLength)
		if err != nil {
			return model.TemporaryAccessCode{}, err
		}
		c := model.TemporaryAccessCode{
			Code:           code,
			AccessLevel:    in.AccessLevel,
			ExpiresAt:      now.AddDate(0, 0, in.ExpiresInDays),
			MaxRedemptions: in.MaxRedemptions,
			RedeemedBy:     []string{},
			Status:         model.CodeActive,
			CreatedAt:      now,
		}
		err = s.codes.Create(ctx, &c)
		if errors.Is(err, repository.ErrConflict) {
			continue
		}
		if err != nil {
			return c, fmt.Errorf("create code: %w", err)
		}
		return c, nil
	}
	return model.TemporaryAccessCode{}, errors.New("could not generate a unique code")
}

// List returns every code for the admin view.
func (s *TemporaryAccess) List(ctx context.Context) ([]model.TemporaryAccessCode, error) {
	list, err := s.codes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list codes: %w", err)
	}
	if list == nil {
		list = []model.TemporaryAccessCode{}
	}
	return list, nil
}

// CleanupResult counts rows moved to expired.
type CleanupResult struct {
	CodesCleaned       int64 `json:"codesCleaned"`
	EnrollmentsCleaned int64 `json:"enrollmentsCleaned"`
}

// Cleanup expires stale codes and lapsed temporary enrollments.
func (s *TemporaryAccess) Cleanup(ctx context.Context) (CleanupResult, error) {
	now := s.now()
	var res CleanupResult
	n, err := s.codes.ExpireStale(ctx, now)
	if err != nil {
		return res, fmt.Errorf("expire codes: %w", err)
	}
	res.CodesCleaned = n
	n, err = s.ents.store.ExpireTemporary(ctx, now)
	if err != nil {
		return res, fmt.Errorf("expire enrollments: %w", err)
	}
	res.EnrollmentsCleaned = n
	return res, nil
}
