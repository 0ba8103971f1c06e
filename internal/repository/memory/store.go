// Package memory provides in-process implementations of the repository
// stores.  They back the test suites and STORE_DRIVER=memory development
// runs and return the same sentinel errors as the MySQL stores.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/designengineer/course-api/internal/model"
	"github.com/designengineer/course-api/internal/repository"
)

// Store groups the in-memory tables behind one lock so code redemption can
// touch codes and enrollments atomically.
type Store struct {
	mu sync.Mutex

	enrollments  []model.Enrollment
	nextEnrollID uint64
	codes        map[string]*model.TemporaryAccessCode
	certificates []model.Certificate
	nextCertID   uint64
	progress     map[string]map[string]model.LessonProgress
	lessons      map[string]model.Lesson

	Enrollments  *Enrollments
	Codes        *AccessCodes
	Certificates *Certificates
	Progress     *Progress
	Lessons      *Lessons
}

// New returns an empty store.
func New() *Store {
	s := &Store{
		codes:    map[string]*model.TemporaryAccessCode{},
		progress: map[string]map[string]model.LessonProgress{},
		lessons:  map[string]model.Lesson{},
	}
	s.Enrollments = &Enrollments{s: s}
	s.Codes = &AccessCodes{s: s}
	s.Certificates = &Certificates{s: s}
	s.Progress = &Progress{s: s}
	s.Lessons = &Lessons{s: s}
	return s
}

// userEnrollments copies userID's enrollments.  Callers hold mu.
func (s *Store) userEnrollments(userID string) []model.Enrollment {
	var out []model.Enrollment
	for _, e := range s.enrollments {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) insertEnrollment(e *model.Enrollment) error {
	for _, x := range s.enrollments {
		if x.Slug == e.Slug || (e.OrderID != "" && x.OrderID == e.OrderID) {
			return repository.ErrConflict
		}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Status == "" {
		e.Status = model.EnrollmentActive
	}
	s.nextEnrollID++
	e.ID = s.nextEnrollID
	s.enrollments = append(s.enrollments, *e)
	return nil
}

func copyCode(c *model.TemporaryAccessCode) model.TemporaryAccessCode {
	out := *c
	out.RedeemedBy = append([]string{}, c.RedeemedBy...)
	if c.MaxRedemptions != nil {
		n := *c.MaxRedemptions
		out.MaxRedemptions = &n
	}
	return out
}

func sortLessons(ls []model.Lesson) {
	sort.Slice(ls, func(i, j int) bool {
		a, b := ls[i], ls[j]
		if a.Track != b.Track {
			return a.Track < b.Track
		}
		if a.Platform != b.Platform {
			return a.Platform < b.Platform
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.Path < b.Path
	})
}
