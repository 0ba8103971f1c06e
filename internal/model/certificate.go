package model

import "time"

// Certificate is an issued completion record.  Track is empty for the
// platform certificate (all three tracks) and set for a single-track
// certificate.  Records are immutable once written.
type Certificate struct {
	ID                     uint64     `json:"id"`
	Slug                   string     `json:"slug"`
	Title                  string     `json:"title"`
	UserID                 string     `json:"user_id"`
	UserName               string     `json:"user_name"`
	UserEmail              string     `json:"user_email"`
	Platform               Platform   `json:"platform"`
	Track                  Track      `json:"track,omitempty"`
	CertificateNumber      string     `json:"certificate_number"`
	IssuedAt               time.Time  `json:"issued_at"`
	DesignCompletedAt      *time.Time `json:"design_completed_at,omitempty"`
	EngineeringCompletedAt *time.Time `json:"engineering_completed_at,omitempty"`
	ConvergenceCompletedAt *time.Time `json:"convergence_completed_at,omitempty"`
	CompletedAt            *time.Time `json:"completed_at,omitempty"`
	TotalTimeSpentSeconds  int64      `json:"total_time_spent_seconds"`
}

// TrackProgress is completed/total lesson counts for one track×platform.
type TrackProgress struct {
	Completed   int        `json:"completed"`
	Total       int        `json:"total"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Complete is true when every lesson of a non-empty track is done.
func (p TrackProgress) Complete() bool {
	return p.Total > 0 && p.Completed >= p.Total
}

// CertificateEligibility describes whether a platform certificate can be
// issued and how far along each required track is.
type CertificateEligibility struct {
	Platform               Platform      `json:"platform"`
	Eligible               bool          `json:"eligible"`
	Reason                 string        `json:"reason,omitempty"`
	DesignComplete         bool          `json:"designComplete"`
	EngineeringComplete    bool          `json:"engineeringComplete"`
	ConvergenceComplete    bool          `json:"convergenceComplete"`
	DesignProgress         TrackProgress `json:"designProgress"`
	EngineeringProgress    TrackProgress `json:"engineeringProgress"`
	ConvergenceProgress    TrackProgress `json:"convergenceProgress"`
	Certificate            *Certificate  `json:"certificate,omitempty"`
	DesignCertificate      *Certificate  `json:"designCertificate,omitempty"`
	EngineeringCertificate *Certificate  `json:"engineeringCertificate,omitempty"`
	ConvergenceCertificate *Certificate  `json:"convergenceCertificate,omitempty"`
}

// TrackCertificateEligibility is the single-track variant.
type TrackCertificateEligibility struct {
	Platform    Platform      `json:"platform"`
	Track       Track         `json:"track"`
	Eligible    bool          `json:"eligible"`
	Reason      string        `json:"reason,omitempty"`
	Progress    TrackProgress `json:"progress"`
	Certificate *Certificate  `json:"certificate,omitempty"`
}
