package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/convodesk/convoauth/internal/common"
)

// RoleOwner is the only role the current design issues: the user who
// registered the tenant administers it.
const RoleOwner = "owner"

// AccessClaims is the payload of the short-lived access token: subject,
// tenant, role and email, verified purely by signature and expiry.
type AccessClaims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// RefreshClaims is the payload of the long-lived refresh token. It carries
// only subject, tenant and family id; role and email are deliberately
// excluded to minimize exposure over its longer lifetime.
type RefreshClaims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id"`
	FamilyID string `json:"family_id"`
}

// Issuer mints and verifies both token classes. The two classes are signed
// with distinct keys so compromise of one key cannot forge the other.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (i *Issuer) AccessTTL() time.Duration  { return i.accessTTL }
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// IssueAccessToken mints a signed access token. It is never stored
// server-side.
func (i *Issuer) IssueAccessToken(userID, tenantID, email, role string) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
		},
		TenantID: tenantID,
		Email:    email,
		Role:     role,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.accessSecret)
}

// IssueRefreshToken mints a signed refresh token for the given family.
func (i *Issuer) IssueRefreshToken(userID, tenantID, familyID string) (string, error) {
	now := time.Now()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.refreshTTL)),
		},
		TenantID: tenantID,
		FamilyID: familyID,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.refreshSecret)
}

// ParseAccessToken verifies signature and standard claims of an access token.
// Any failure collapses into common.ErrInvalidToken.
func (i *Issuer) ParseAccessToken(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := i.parse(raw, claims, i.accessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseRefreshToken verifies signature and standard claims of a refresh
// token. An access token presented here fails: the signing keys differ.
func (i *Issuer) ParseRefreshToken(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := i.parse(raw, claims, i.refreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (i *Issuer) parse(raw string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return common.ErrInvalidToken
	}
	return nil
}

// HashToken returns the hex sha256 digest under which a raw refresh token is
// persisted. A leaked ledger backup cannot be replayed: the digest is one-way.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
