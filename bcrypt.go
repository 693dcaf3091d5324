package auth

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidPayload).
	WithCode(goerrors.CodeBadRequest)

// MaxPasswordBytes is the longest password bcrypt accepts
const MaxPasswordBytes = 72

// ErrPasswordTooLong is returned when a password exceeds MaxPasswordBytes
var ErrPasswordTooLong = newKind("Password must be at most 72 bytes", goerrors.CategoryValidation,
	TextCodeInvalidPayload, goerrors.CodeBadRequest, ContextUser)

// ErrMismatchedHashAndPassword is returned when a password does not match its hash
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// PasswordHasher hashes and compares passwords
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// BcryptHasher implements PasswordHasher. A zero Cost uses the build default.
type BcryptHasher struct {
	Cost int
}

var _ PasswordHasher = BcryptHasher{}

func (b BcryptHasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	cost := b.Cost
	if cost == 0 {
		cost = passwordHashCost()
	}

	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return "", goerrors.New("invalid bcrypt cost", goerrors.CategoryInternal).
			WithTextCode(TextCodeInvalidConfig).
			WithCode(goerrors.CodeInternal)
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	return string(h), err
}

func (b BcryptHasher) ComparePasswordAndHash(password, hash string) error {
	return ComparePasswordAndHash(password, hash)
}

// HashPassword will generate a password hash with the default cost
func HashPassword(password string) (string, error) {
	return BcryptHasher{}.HashPassword(password)
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}
