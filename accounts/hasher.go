package accounts

import (
	"golang.org/x/crypto/bcrypt"
)

// CredentialHasher is the capability interface over the password hashing
// primitive. The engine owns only the orchestration around it.
type CredentialHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, hash string) bool
}

// BcryptHasher is the default CredentialHasher. bcrypt comparison is
// constant-time with respect to the secret.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a hasher using the bcrypt default cost.
func NewBcryptHasher() BcryptHasher {
	return BcryptHasher{Cost: bcrypt.DefaultCost}
}

func (h BcryptHasher) Hash(secret string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	return string(bytes), err
}

func (h BcryptHasher) Verify(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
