package models

import (
	"time"
)

// ReferralTokenStatus represents the lifecycle state of a referral token
type ReferralTokenStatus string

const (
	ReferralTokenStatusActive   ReferralTokenStatus = "active"
	ReferralTokenStatusRevoked  ReferralTokenStatus = "revoked"
	ReferralTokenStatusConsumed ReferralTokenStatus = "consumed"
)

// ReferralToken is a bearer credential attributing new accounts to a
// referring owner for commission purposes
type ReferralToken struct {
	Token          string              `db:"token"`
	OwnerAccountID int64               `db:"owner_account_id"`
	Status         ReferralTokenStatus `db:"status"`
	ExpiresAt      *time.Time          `db:"expires_at"`
	CreatedAt      time.Time           `db:"created_at"`
}

// Resolvable checks if the token can currently attribute an account
func (t *ReferralToken) Resolvable(now time.Time) bool {
	if t.Status != ReferralTokenStatusActive {
		return false
	}
	return t.ExpiresAt == nil || now.Before(*t.ExpiresAt)
}
