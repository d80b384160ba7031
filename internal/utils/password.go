package utils

import (
	"crypto/rand"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

const (
	passwordLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	passwordDigits  = "0123456789"
)

// GenerateRandomPassword returns a random alphanumeric password of the given
// length (minimum 8) with at least one letter and one digit, so it always
// satisfies the account password policy. The plaintext is handed to the caller
// exactly once; only its bcrypt hash is ever stored.
func GenerateRandomPassword(length int) (string, error) {
	if length < 8 {
		length = 8
	}
	alphabet := passwordLetters + passwordDigits
	buf := make([]byte, length)
	for i := range buf {
		pool := alphabet
		switch i {
		case 0:
			pool = passwordLetters
		case 1:
			pool = passwordDigits
		}
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(pool))))
		if err != nil {
			return "", err
		}
		buf[i] = pool[n.Int64()]
	}
	return string(buf), nil
}
