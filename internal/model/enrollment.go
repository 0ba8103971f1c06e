package model

import "time"

// EnrollmentStatus is the lifecycle state of an enrollment row.
type EnrollmentStatus string

const (
	EnrollmentActive   EnrollmentStatus = "active"
	EnrollmentExpired  EnrollmentStatus = "expired"
	EnrollmentRefunded EnrollmentStatus = "refunded"
)

// Enrollment links a user to a purchased or granted access level.  Rows
// mirror the `enrollments` table.  Paid enrollments carry the Lemon Squeezy
// customer and order ids; temporary enrollments carry the redeemed code in
// TemporarySource and always have ExpiresAt set.
type Enrollment struct {
	ID              uint64           `json:"id"`
	Slug            string           `json:"slug"`
	UserID          string           `json:"user_id"`
	ProductID       string           `json:"product_id"`
	AccessLevel     AccessLevel      `json:"access_level"`
	PurchasedAt     time.Time        `json:"purchased_at"`
	CustomerID      string           `json:"lemon_squeezy_customer_id,omitempty"`
	OrderID         string           `json:"lemon_squeezy_order_id,omitempty"`
	EmailDomain     string           `json:"email_domain,omitempty"`
	Status          EnrollmentStatus `json:"status"`
	IsTemporary     bool             `json:"is_temporary"`
	TemporarySource string           `json:"temporary_source,omitempty"`
	ExpiresAt       *time.Time       `json:"expires_at,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// ActiveAt reports whether the enrollment grants access at time now:
// status must be active and any expiry must lie in the future.
func (e Enrollment) ActiveAt(now time.Time) bool {
	if e.Status != EnrollmentActive {
		return false
	}
	if e.ExpiresAt != nil && !now.Before(*e.ExpiresAt) {
		return false
	}
	return true
}

// OtherActive returns an active enrollment in list with a real grant that
// did not come from the temporary code, if any.  Holding one blocks
// redeeming code.
func OtherActive(list []Enrollment, code string, now time.Time) *Enrollment {
	for i := range list {
		e := list[i]
		if !e.ActiveAt(now) || e.AccessLevel == AccessFree || !e.AccessLevel.Valid() {
			continue
		}
		if e.IsTemporary && e.TemporarySource == code {
			continue
		}
		return &e
	}
	return nil
}
