package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/designengineer/course-api/internal/config"
	"github.com/designengineer/course-api/internal/lemonsqueezy"
	"github.com/designengineer/course-api/internal/model"
	"github.com/designengineer/course-api/internal/queue"
	"github.com/designengineer/course-api/internal/repository/memory"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.EnrollmentCreatedEvent
}

func (p *recordingPublisher) PublishEnrollmentCreated(_ context.Context, ev queue.EnrollmentCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Events() []queue.EnrollmentCreatedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.EnrollmentCreatedEvent(nil), p.events...)
}

type fixture struct {
	store  *memory.Store
	events *recordingPublisher
	ents   *Entitlements
	temp   *TemporaryAccess
	certs  *Certificates
	prog   *Progress
	ful    *Fulfillment
}

func newFixture(t *testing.T, override *config.TestAccess) *fixture {
	t.Helper()
	clock := func() time.Time { return testNow }
	f := &fixture{store: memory.New(), events: &recordingPublisher{}}
	f.ents = NewEntitlements(f.store.Enrollments, nil, f.events, override, nil)
	f.ents.Now = clock
	f.temp = NewTemporaryAccess(f.store.Codes, f.ents, 7, nil)
	f.temp.Now = clock
	f.certs = NewCertificates(f.store.Certificates, f.store.Progress, f.store.Lessons, nil)
	f.certs.Now = clock
	f.prog = NewProgress(f.store.Progress, f.store.Lessons, f.ents, nil)
	f.prog.Now = clock
	f.ful = NewFulfillment(f.ents, lemonsqueezy.NewCatalog(map[model.AccessLevel]string{
		model.AccessDesignWeb: "101",
		model.AccessFull:      "109",
	}), nil)
	f.ful.Now = clock
	return f
}

func (f *fixture) enroll(t *testing.T, e model.Enrollment) model.Enrollment {
	t.Helper()
	if e.Slug == "" {
		e.Slug = "enrollment-" + e.UserID + "-" + string(e.AccessLevel) + "-" + e.PurchasedAt.Format("20060102150405")
	}
	if e.Status == "" {
		e.Status = model.EnrollmentActive
	}
	require.NoError(t, f.store.Enrollments.Create(context.Background(), &e))
	return e
}

func (f *fixture) code(t *testing.T, c model.TemporaryAccessCode) {
	t.Helper()
	if c.ExpiresAt.IsZero() {
		c.ExpiresAt = testNow.Add(72 * time.Hour)
	}
	if c.AccessLevel == "" {
		c.AccessLevel = model.AccessFull
	}
	require.NoError(t, f.store.Codes.Create(context.Background(), &c))
}

// seedTrack adds n lessons for track×platform and returns their paths.
func (f *fixture) seedTrack(t *testing.T, track model.Track, platform model.Platform, n int) []string {
	t.Helper()
	paths := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		l := model.Lesson{
			Path:     trackPath(track, platform, i),
			Title:    "Lesson",
			Track:    track,
			Platform: platform,
			Position: i,
		}
		require.NoError(t, f.store.Lessons.Upsert(context.Background(), l))
		paths = append(paths, l.Path)
	}
	return paths
}

func trackPath(track model.Track, platform model.Platform, i int) string {
	dir := map[model.Track]string{
		model.TrackDesign:      "design-track",
		model.TrackEngineering: "engineering-track",
		model.TrackConvergence: "convergence",
	}[track]
	return dir + "/" + string(platform) + "/02-module/" + string(rune('a'+i-1)) + "-lesson"
}

func (f *fixture) complete(t *testing.T, userID string, paths []string, at time.Time) {
	t.Helper()
	for _, p := range paths {
		_, err := f.store.Progress.Record(context.Background(), model.LessonProgress{
			UserID:           userID,
			LessonPath:       p,
			Status:           model.LessonCompleted,
			TimeSpentSeconds: 600,
			StartedAt:        &at,
			CompletedAt:      &at,
			UpdatedAt:        at,
		})
		require.NoError(t, err)
	}
}
