package auth

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// KeyChecker validates a presented admin key. When Hash is configured the
// deployed key is stored only as a bcrypt hash; otherwise the plaintext Key
// is compared in constant time.
type KeyChecker struct {
	Key  string
	Hash string
}

func (k KeyChecker) Check(candidate string) bool {
	if candidate == "" {
		return false
	}
	if k.Hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(k.Hash), []byte(candidate)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(k.Key), []byte(candidate)) == 1
}
