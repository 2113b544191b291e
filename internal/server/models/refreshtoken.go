package models

import "time"

// RefreshToken is one link of a refresh-token chain. TokenHash is a sha256
// digest of the raw token; the raw value is never persisted. FamilyID groups
// every rotation descending from one login or registration. Revoked rows are
// kept as the audit trail.
type RefreshToken struct {
	ID        string
	UserID    string
	TenantID  string
	TokenHash string
	FamilyID  string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Revoked reports whether the record has been revoked.
func (t *RefreshToken) Revoked() bool {
	return t.RevokedAt != nil
}

// Active reports whether the record can still be rotated: not revoked and
// not past its fixed expiry.
func (t *RefreshToken) Active(now time.Time) bool {
	return !t.Revoked() && t.ExpiresAt.After(now)
}
