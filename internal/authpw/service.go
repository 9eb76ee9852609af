// Package authpw provides email/password authentication for reviewer
// accounts.
package authpw

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"protoreview/internal/gateway/repository/reviewer"
)

// UserStore is the storage the service needs; satisfied by *reviewer.Store.
type UserStore interface {
	Create(r reviewer.Reviewer) error
	GetByEmail(email string) (reviewer.Reviewer, error)
	GetByID(id string) (reviewer.Reviewer, error)
	UpdatePassword(id, passwordHash string) error
}

// Service hashes and verifies reviewer credentials.
type Service struct {
	store UserStore
}

func NewService(store UserStore) *Service {
	return &Service{store: store}
}

// ErrInvalidCredentials covers both unknown email and wrong password, so a
// caller cannot probe which emails exist.
var ErrInvalidCredentials = errors.New("invalid email or password")

// SignUp creates an account with a fresh random ID.
func (s *Service) SignUp(email, password, name string) (reviewer.Reviewer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" || password == "" || name == "" {
		return reviewer.Reviewer{}, errors.New("email, password, and name are required")
	}
	if len(password) < 8 {
		return reviewer.Reviewer{}, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return reviewer.Reviewer{}, fmt.Errorf("hash password: %w", err)
	}

	acct := reviewer.Reviewer{
		ID:           newID(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
	}
	if err := s.store.Create(acct); err != nil {
		return reviewer.Reviewer{}, err
	}
	acct.PasswordHash = ""
	return acct, nil
}

// SignIn verifies credentials and returns the account with the hash cleared.
func (s *Service) SignIn(email, password string) (reviewer.Reviewer, error) {
	acct, err := s.store.GetByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return reviewer.Reviewer{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return reviewer.Reviewer{}, ErrInvalidCredentials
	}
	acct.PasswordHash = ""
	return acct, nil
}

// ChangePassword verifies the current password before storing a new hash.
func (s *Service) ChangePassword(id, current, next string) error {
	acct, err := s.store.GetByID(strings.TrimSpace(id))
	if err != nil {
		return ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	if len(next) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.UpdatePassword(acct.ID, string(hash))
}

// NewToken returns a random 256-bit hex token for sessions.
func NewToken() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func newID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return "rev-" + hex.EncodeToString(buf)
}
