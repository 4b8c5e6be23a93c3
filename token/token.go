package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

// Purpose tags what an issued token may be used for. Validation fails when a
// token is presented for a different purpose than it was issued with.
type Purpose string

const (
	PurposeReauth      Purpose = "reauth"
	PurposeEmailSignIn Purpose = "email_signin"
	PurposePhoneSignIn Purpose = "phone_signin"
	PurposeEmailVerify Purpose = "email_verify"
	PurposePhoneVerify Purpose = "phone_verify"

	PurposePasswordReset Purpose = "password_reset"
)

const opaqueTokenLength = 32 // bytes; 256 bits of entropy

// Binding ties an issued token to an account, app, purpose, and validity
// window.
type Binding struct {
	AccountID string
	AppID     string
	Purpose   Purpose
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// StoredToken is the durable record for an issued token. Used marks
// single-use tokens that have been consumed or rotated; presenting one again
// is a hard rejection.
type StoredToken struct {
	Value string
	Binding
	Used bool
}

// NewOpaque returns a cryptographically random opaque token string. Tokens
// are never derived from account attributes.
func NewOpaque() (string, error) {
	bytes := make([]byte, opaqueTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("token.NewOpaque rand.Read: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// NewNumericCode returns a random numeric code of the given number of digits,
// suitable for SMS delivery.
func NewNumericCode(digits int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("token.NewNumericCode rand.Int: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
