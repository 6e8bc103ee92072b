package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// DefaultGeneratedPasswordLength is used when no length is configured.
const DefaultGeneratedPasswordLength = 10

const (
	passwordLetters  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	passwordDigits   = "0123456789"
	passwordSymbols  = "!@#$%^&*()-_=+"
	passwordAlphabet = passwordLetters + passwordDigits + passwordSymbols
)

var (
	ErrInvalidPassword  = errors.New("invalid password")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong  = errors.New("password exceeds maximum length of 72 bytes")
)

// HashPassword creates a bcrypt hash of the password.
func HashPassword(password string, cost int) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	// bcrypt has a 72-byte limit
	if len(password) > 72 {
		return "", ErrPasswordTooLong
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a password with its hash.
func CheckPassword(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return err
	}
	return nil
}

// GeneratePassword returns a random password with at least one digit and one symbol.
// Lengths below MinPasswordLength are raised to it.
func GeneratePassword(length int) (string, error) {
	if length <= 0 {
		length = DefaultGeneratedPasswordLength
	}
	if length < MinPasswordLength {
		length = MinPasswordLength
	}

	out := make([]byte, length)
	for i := range out {
		c, err := randomChar(passwordAlphabet)
		if err != nil {
			return "", err
		}
		out[i] = c
	}

	if !strings.ContainsAny(string(out), passwordDigits) {
		if err := replaceRandom(out, passwordDigits, -1); err != nil {
			return "", err
		}
	}
	if !strings.ContainsAny(string(out), passwordSymbols) {
		// Avoid overwriting the only digit.
		digit := strings.IndexAny(string(out), passwordDigits)
		if err := replaceRandom(out, passwordSymbols, digit); err != nil {
			return "", err
		}
	}
	return string(out), nil
}

func randomChar(alphabet string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, err
	}
	return alphabet[n.Int64()], nil
}

func replaceRandom(buf []byte, alphabet string, keep int) error {
	for {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(buf))))
		if err != nil {
			return err
		}
		pos := int(n.Int64())
		if pos == keep {
			continue
		}
		c, err := randomChar(alphabet)
		if err != nil {
			return err
		}
		buf[pos] = c
		return nil
	}
}

// GenerateSessionSecret creates a random 32-byte secret for session signing.
func GenerateSessionSecret() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
