package storage

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"

	"sealchat/go-core/pkg/models"
)

var (
	ErrCredentialExists  = errors.New("credential already registered")
	ErrCredentialInvalid = errors.New("credential rejected")
	ErrTokenInvalid      = errors.New("token is not valid")
)

// CredentialStore is a local stand-in for the external identity provider.
// Passwords are stored salted-and-hashed; tokens are random and revocable.
type CredentialStore struct {
	mu       sync.Mutex
	accounts map[string]credential
	tokens   map[string]string
}

type credential struct {
	salt []byte
	hash []byte
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		accounts: make(map[string]credential),
		tokens:   make(map[string]string),
	}
}

func (s *CredentialStore) SignUp(_ context.Context, email, password string) (string, error) {
	email = models.NormalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[email]; ok {
		return "", ErrCredentialExists
	}
	cred, err := newCredential(password)
	if err != nil {
		return "", err
	}
	s.accounts[email] = cred
	return s.issueTokenLocked(email)
}

func (s *CredentialStore) SignIn(_ context.Context, email, password string) (string, error) {
	email = models.NormalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.accounts[email]
	if !ok || !cred.matches(password) {
		return "", ErrCredentialInvalid
	}
	return s.issueTokenLocked(email)
}

func (s *CredentialStore) Reauthenticate(_ context.Context, token, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.tokens[token]
	if !ok {
		return ErrTokenInvalid
	}
	if cred, ok := s.accounts[email]; !ok || !cred.matches(password) {
		return ErrCredentialInvalid
	}
	return nil
}

func (s *CredentialStore) UpdatePassword(_ context.Context, token, newPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.tokens[token]
	if !ok {
		return ErrTokenInvalid
	}
	cred, err := newCredential(newPassword)
	if err != nil {
		return err
	}
	s.accounts[email] = cred
	return nil
}

func (s *CredentialStore) SignOut(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

func (s *CredentialStore) issueTokenLocked(email string) (string, error) {
	var raw [24]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	token := "tok_" + hex.EncodeToString(raw[:])
	s.tokens[token] = email
	return token, nil
}

func newCredential(password string) (credential, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return credential{}, err
	}
	return credential{salt: salt, hash: hashPassword(salt, password)}, nil
}

func (c credential) matches(password string) bool {
	return hmac.Equal(c.hash, hashPassword(c.salt, password))
}

func hashPassword(salt []byte, password string) []byte {
	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(password))
	return h.Sum(nil)
}
