package model

import "time"

// LessonStatus is the per-lesson completion state.
type LessonStatus string

const (
	LessonNotStarted LessonStatus = "not_started"
	LessonInProgress LessonStatus = "in_progress"
	LessonCompleted  LessonStatus = "completed"
)

func (s LessonStatus) Valid() bool {
	switch s {
	case LessonNotStarted, LessonInProgress, LessonCompleted:
		return true
	}
	return false
}

// LessonProgress mirrors one row of `lesson_progress`.
type LessonProgress struct {
	UserID           string       `json:"user_id"`
	LessonPath       string       `json:"lesson_path"`
	Status           LessonStatus `json:"status"`
	TimeSpentSeconds int64        `json:"time_spent_seconds"`
	StartedAt        *time.Time   `json:"started_at,omitempty"`
	CompletedAt      *time.Time   `json:"completed_at,omitempty"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Apply folds the beacon d into the stored row p and returns the result.
// Time accumulates and completed is never downgraded.  The first start and
// completion times are kept.
func (p LessonProgress) Apply(d LessonProgress) LessonProgress {
	out := d
	out.TimeSpentSeconds = p.TimeSpentSeconds + d.TimeSpentSeconds
	if p.Status == LessonCompleted {
		out.Status = LessonCompleted
	}
	if p.StartedAt != nil {
		out.StartedAt = p.StartedAt
	}
	if p.CompletedAt != nil {
		out.CompletedAt = p.CompletedAt
	}
	if out.Status != LessonCompleted {
		out.CompletedAt = nil
	}
	return out
}

// Lesson is one entry of the course catalog used for completion totals.
type Lesson struct {
	Path     string   `json:"path"`
	Title    string   `json:"title"`
	Track    Track    `json:"track"`
	Platform Platform `json:"platform"`
	Position int      `json:"position"`
}

// ProgressStats summarizes a user's progress for their access level.
type ProgressStats struct {
	TotalLessons         int         `json:"totalLessons"`
	CompletedCount       int         `json:"completedCount"`
	InProgressCount      int         `json:"inProgressCount"`
	CompletionPercentage int         `json:"completionPercentage"`
	TotalTimeSpent       int64       `json:"totalTimeSpent"`
	TotalTimeFormatted   string      `json:"totalTimeFormatted"`
	AccessLevel          AccessLevel `json:"accessLevel"`
}
