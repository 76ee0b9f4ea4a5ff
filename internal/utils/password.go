package utils

import "golang.org/x/crypto/bcrypt"

// bcrypt only considers the first 72 bytes of input; longer passwords are
// truncated before hashing and verification so both sides agree.
const maxPasswordBytes = 72

// HashPassword returns a bcrypt digest of plain using the given cost.  A
// fresh random salt is generated per call, so hashing the same password
// twice yields different digests that both verify.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword(truncate(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares a stored bcrypt digest and a candidate
// password.  The comparison is constant time and a malformed digest simply
// yields false, never a panic.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), truncate(plain)) == nil
}

func truncate(plain string) []byte {
	b := []byte(plain)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}
