package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/designengineer/course-api/internal/model"
	"github.com/designengineer/course-api/internal/repository"
	"github.com/designengineer/course-api/internal/utils"
)

// Certificates checks completion and issues certificate records.
type Certificates struct {
	certs    CertificateStore
	progress ProgressStore
	lessons  LessonStore
	log      *zap.Logger

	Now func() time.Time
}

func NewCertificates(certs CertificateStore, progress ProgressStore, lessons LessonStore, log *zap.Logger) *Certificates {
	if log == nil {
		log = zap.NewNop()
	}
	return &Certificates{certs: certs, progress: progress, lessons: lessons, log: log, Now: time.Now}
}

// IssueInput identifies the recipient.  Name and email come from the
// session, never from the request body.
type IssueInput struct {
	UserID   string
	Name     string
	Email    string
	Platform model.Platform
}

type progressIndex struct {
	byPath    map[string]model.LessonProgress
	totalTime int64
}

func (s *Certificates) loadProgress(ctx context.Context, userID string) (progressIndex, error) {
	rows, err := s.progress.ListByUser(ctx, userID)
	if err != nil {
		return progressIndex{}, fmt.Errorf("list progress: %w", err)
	}
	idx := progressIndex{byPath: make(map[string]model.LessonProgress, len(rows))}
	for _, p := range rows {
		idx.byPath[p.LessonPath] = p
		idx.totalTime += p.TimeSpentSeconds
	}
	return idx, nil
}

// trackStatus counts completed catalog lessons of one track×platform and
// the latest completion date among them.
func (s *Certificates) trackStatus(ctx context.Context, idx progressIndex, track model.Track, platform model.Platform) (model.TrackProgress, error) {
	lessons, err := s.lessons.ListTrack(ctx, track, platform)
	if err != nil {
		return model.TrackProgress{}, fmt.Errorf("list lessons: %w", err)
	}
	tp := model.TrackProgress{Total: len(lessons)}
	for _, l := range lessons {
		p, ok := idx.byPath[l.Path]
		if !ok || p.Status != model.LessonCompleted {
			continue
		}
		tp.Completed++
		if p.CompletedAt != nil && (tp.CompletedAt == nil || p.CompletedAt.After(*tp.CompletedAt)) {
			at := *p.CompletedAt
			tp.CompletedAt = &at
		}
	}
	return tp, nil
}

func (s *Certificates) find(ctx context.Context, userID string, platform model.Platform, track model.Track) (*model.Certificate, error) {
	c, err := s.certs.Get(ctx, userID, platform, track)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get certificate: %w", err)
	}
	return &c, nil
}

// Eligibility reports whether userID may receive the platform certificate:
// the design, engineering and convergence tracks of that platform must all
// be complete.
func (s *Certificates) Eligibility(ctx context.Context, userID string, platform model.Platform) (model.CertificateEligibility, error) {
	el, _, err := s.eligibility(ctx, userID, platform)
	return el, err
}

func (s *Certificates) eligibility(ctx context.Context, userID string, platform model.Platform) (model.CertificateEligibility, progressIndex, error) {
	if !platform.Valid() {
		return model.CertificateEligibility{}, progressIndex{}, fail(ErrInvalidInput, "Invalid platform")
	}
	idx, err := s.loadProgress(ctx, userID)
	if err != nil {
		return model.CertificateEligibility{}, idx, err
	}
	el := model.CertificateEligibility{Platform: platform}
	progress := map[model.Track]*model.TrackProgress{
		model.TrackDesign:      &el.DesignProgress,
		model.TrackEngineering: &el.EngineeringProgress,
		model.TrackConvergence: &el.ConvergenceProgress,
	}
	certs := map[model.Track]**model.Certificate{
		model.TrackDesign:      &el.DesignCertificate,
		model.TrackEngineering: &el.EngineeringCertificate,
		model.TrackConvergence: &el.ConvergenceCertificate,
	}
	for _, t := range model.CertificateTracks {
		tp, err := s.trackStatus(ctx, idx, t, platform)
		if err != nil {
			return el, idx, err
		}
		*progress[t] = tp
		if *certs[t], err = s.find(ctx, userID, platform, t); err != nil {
			return el, idx, err
		}
	}
	if el.Certificate, err = s.find(ctx, userID, platform, ""); err != nil {
		return el, idx, err
	}
	el.DesignComplete = el.DesignProgress.Complete()
	el.EngineeringComplete = el.EngineeringProgress.Complete()
	el.ConvergenceComplete = el.ConvergenceProgress.Complete()
	el.Eligible = el.DesignComplete && el.EngineeringComplete && el.ConvergenceComplete
	if !el.Eligible {
		el.Reason = fmt.Sprintf("Complete all three tracks (Design, Engineering, and Convergence) to earn your %s Design Engineer certificate.", platform.Title())
	}
	return el, idx, nil
}

// TrackEligibility is Eligibility for a single track certificate.
func (s *Certificates) TrackEligibility(ctx context.Context, userID string, platform model.Platform, track model.Track) (model.TrackCertificateEligibility, error) {
	el, _, err := s.trackEligibility(ctx, userID, platform, track)
	return el, err
}

func (s *Certificates) trackEligibility(ctx context.Context, userID string, platform model.Platform, track model.Track) (model.TrackCertificateEligibility, progressIndex, error) {
	if !platform.Valid() {
		return model.TrackCertificateEligibility{}, progressIndex{}, fail(ErrInvalidInput, "Invalid platform")
	}
	if !track.Valid() {
		return model.TrackCertificateEligibility{}, progressIndex{}, fail(ErrInvalidInput, "Invalid track")
	}
	idx, err := s.loadProgress(ctx, userID)
	if err != nil {
		return model.TrackCertificateEligibility{}, idx, err
	}
	tp, err := s.trackStatus(ctx, idx, track, platform)
	if err != nil {
		return model.TrackCertificateEligibility{}, idx, err
	}
	el := model.TrackCertificateEligibility{Platform: platform, Track: track, Progress: tp, Eligible: tp.Complete()}
	if el.Certificate, err = s.find(ctx, userID, platform, track); err != nil {
		return el, idx, err
	}
	if !el.Eligible {
		el.Reason = fmt.Sprintf("Complete all lessons in the %s track to earn your certificate. Progress: %d/%d lessons.",
			track.Title(), tp.Completed, tp.Total)
	}
	return el, idx, nil
}

func displayName(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return "Student"
}

func orToday(t *time.Time, today time.Time) *time.Time {
	if t != nil {
		return t
	}
	return &today
}

func (s *Certificates) newCertificate(in IssueInput, track model.Track, totalTime int64) (model.Certificate, error) {
	if in.UserID == "" {
		return model.Certificate{}, ErrUnauthorized
	}
	now := s.Now().UTC()
	number, err := utils.CertificateNumber(now)
	if err != nil {
		return model.Certificate{}, err
	}
	suffix, err := utils.RandomID(8)
	if err != nil {
		return model.Certificate{}, err
	}
	name := displayName(in.Name)
	slug := "cert-" + string(in.Platform) + "-"
	title := in.Platform.Title() + " Design Engineer Certificate - " + name
	if track != "" {
		slug += string(track) + "-"
		title = in.Platform.Title() + " " + track.Title() + " Track Certificate - " + name
	}
	return model.Certificate{
		Slug:                  strings.ToLower(slug + in.UserID + "-" + suffix),
		Title:                 title,
		UserID:                in.UserID,
		UserName:              name,
		UserEmail:             in.Email,
		Platform:              in.Platform,
		Track:                 track,
		CertificateNumber:     number,
		IssuedAt:              now,
		TotalTimeSpentSeconds: totalTime,
	}, nil
}

func (s *Certificates) store(ctx context.Context, c *model.Certificate) error {
	if err := s.certs.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fail(ErrConflict, "Certificate already issued")
		}
		return fmt.Errorf("create certificate: %w", err)
	}
	s.log.Info("certificate issued", zap.String("user_id", c.UserID), zap.String("platform", string(c.Platform)),
		zap.String("track", string(c.Track)), zap.String("slug", c.Slug))
	return nil
}

// Issue creates the platform certificate.  It fails with ErrNotEligible
// until all three tracks are complete and with ErrConflict once issued.
func (s *Certificates) Issue(ctx context.Context, in IssueInput) (model.Certificate, error) {
	if in.UserID == "" {
		return model.Certificate{}, ErrUnauthorized
	}
	el, idx, err := s.eligibility(ctx, in.UserID, in.Platform)
	if err != nil {
		return model.Certificate{}, err
	}
	if el.Certificate != nil {
		return model.Certificate{}, fail(ErrConflict, "Certificate already issued")
	}
	if !el.Eligible {
		return model.Certificate{}, fail(ErrNotEligible, "%s", el.Reason)
	}
	c, err := s.newCertificate(in, "", idx.totalTime)
	if err != nil {
		return c, err
	}
	today := c.IssuedAt
	c.DesignCompletedAt = orToday(el.DesignProgress.CompletedAt, today)
	c.EngineeringCompletedAt = orToday(el.EngineeringProgress.CompletedAt, today)
	c.ConvergenceCompletedAt = orToday(el.ConvergenceProgress.CompletedAt, today)
	if err := s.store(ctx, &c); err != nil {
		return model.Certificate{}, err
	}
	return c, nil
}

// IssueTrack creates a single-track certificate.
func (s *Certificates) IssueTrack(ctx context.Context, in IssueInput, track model.Track) (model.Certificate, error) {
	if in.UserID == "" {
		return model.Certificate{}, ErrUnauthorized
	}
	el, idx, err := s.trackEligibility(ctx, in.UserID, in.Platform, track)
	if err != nil {
		return model.Certificate{}, err
	}
	if el.Certificate != nil {
		return model.Certificate{}, fail(ErrConflict, "Certificate already issued")
	}
	if !el.Eligible {
		return model.Certificate{}, fail(ErrNotEligible, "%s", el.Reason)
	}
	c, err := s.newCertificate(in, track, idx.totalTime)
	if err != nil {
		return c, err
	}
	c.CompletedAt = orToday(el.Progress.CompletedAt, c.IssuedAt)
	if err := s.store(ctx, &c); err != nil {
		return model.Certificate{}, err
	}
	return c, nil
}

// GetBySlug is the public verification lookup.
func (s *Certificates) GetBySlug(ctx context.Context, slug string) (model.Certificate, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return model.Certificate{}, fail(ErrNotFound, "Certificate not found")
	}
	c, err := s.certs.GetBySlug(ctx, slug)
	if errors.Is(err, repository.ErrNotFound) {
		return c, fail(ErrNotFound, "Certificate not found")
	}
	if err != nil {
		return c, fmt.Errorf("get certificate: %w", err)
	}
	return c, nil
}

// Overview is a user's certificates split into platform and track
// certificates, plus eligibility for every platform.
type Overview struct {
	Certificates      []model.Certificate                             `json:"certificates"`
	TrackCertificates []model.Certificate                             `json:"trackCertificates"`
	Eligibility       map[model.Platform]model.CertificateEligibility `json:"eligibility"`
}

// Overview assembles the certificate dashboard for userID.
func (s *Certificates) Overview(ctx context.Context, userID string) (Overview, error) {
	if userID == "" {
		return Overview{}, ErrUnauthorized
	}
	all, err := s.certs.ListByUser(ctx, userID)
	if err != nil {
		return Overview{}, fmt.Errorf("list certificates: %w", err)
	}
	out := Overview{
		Certificates:      []model.Certificate{},
		TrackCertificates: []model.Certificate{},
		Eligibility:       make(map[model.Platform]model.CertificateEligibility, len(model.Platforms)),
	}
	for _, c := range all {
		if c.Track == "" {
			out.Certificates = append(out.Certificates, c)
		} else {
			out.TrackCertificates = append(out.TrackCertificates, c)
		}
	}
	for _, p := range model.Platforms {
		el, err := s.Eligibility(ctx, userID, p)
		if err != nil {
			return Overview{}, err
		}
		out.Eligibility[p] = el
	}
	return out, nil
}
