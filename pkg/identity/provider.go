// Package identity registers and authenticates user accounts.
//
// The repository core only needs an opaque user ID; a Provider turns an
// email/password pair into one. Backends live in sub-packages.
package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned when the email or password is wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountExists is returned when registering an email twice.
	ErrAccountExists = errors.New("account already exists")

	// ErrInvalidInput is returned when the email or password is malformed.
	ErrInvalidInput = errors.New("invalid email or password")

	// ErrProviderClosed is returned after Close.
	ErrProviderClosed = errors.New("identity provider is closed")
)

// Account is a registered user.
type Account struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Provider creates and authenticates accounts.
type Provider interface {
	// CreateAccount registers a new account and returns it.
	CreateAccount(ctx context.Context, email, password string) (*Account, error)

	// Authenticate checks the password and returns the matching account.
	Authenticate(ctx context.Context, email, password string) (*Account, error)

	// Close releases the backend.
	Close() error
}

// Credentials is the input of both Provider operations.
type Credentials struct {
	Email    string `validate:"required,contains=@"`
	Password string `validate:"required,min=6"`
}

var validate = validator.New()

// ValidateCredentials checks the email and password shape and returns the
// normalized email. Failures wrap ErrInvalidInput.
func ValidateCredentials(email, password string) (string, error) {
	creds := Credentials{Email: NormalizeEmail(email), Password: password}
	if err := validate.Struct(creds); err != nil {
		return "", errors.Join(ErrInvalidInput, err)
	}
	return creds.Email, nil
}

// NormalizeEmail trims and lower-cases an email so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
