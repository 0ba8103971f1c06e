package model

import "time"

// CodeStatus is the lifecycle state of a temporary access code.
type CodeStatus string

const (
	CodeActive  CodeStatus = "active"
	CodeExpired CodeStatus = "expired"
)

// TemporaryAccessCode grants time-boxed access when redeemed.  Codes are
// stored in canonical form (trimmed, upper case).  MaxRedemptions nil means
// unlimited; RedeemedBy is filled from the redemptions table.
type TemporaryAccessCode struct {
	Code           string      `json:"code"`
	AccessLevel    AccessLevel `json:"access_level"`
	ExpiresAt      time.Time   `json:"expires_at"`
	MaxRedemptions *int        `json:"max_redemptions,omitempty"`
	RedeemedBy     []string    `json:"redeemed_by"`
	Status         CodeStatus  `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Exhausted reports whether every allowed redemption has been used.
func (c TemporaryAccessCode) Exhausted() bool {
	return c.MaxRedemptions != nil && len(c.RedeemedBy) >= *c.MaxRedemptions
}

// RedeemedByUser reports whether userID already redeemed this code.
func (c TemporaryAccessCode) RedeemedByUser(userID string) bool {
	for _, u := range c.RedeemedBy {
		if u == userID {
			return true
		}
	}
	return false
}
