package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gantry/api/internal/auth"
	"gantry/api/internal/util"
)

// ErrUnknownUser means the asserted username is not in the directory.
var ErrUnknownUser = errors.New("unknown user")

// ErrNoSession means the presented token is invalid, expired or revoked.
var ErrNoSession = errors.New("no active session")

// Service issues and resolves login sessions. Login is a trusted-claim
// lookup: whoever asserts a directory username gets that user's role.
type Service struct {
	store  Store
	secret []byte
	ttl    time.Duration
}

func NewService(store Store, secret []byte, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{store: store, secret: secret, ttl: ttl}
}

// Login resolves the username against the directory and issues a signed
// session token.
func (s *Service) Login(ctx context.Context, username string) (User, string, error) {
	user, ok := Lookup(username)
	if !ok {
		return User{}, "", ErrUnknownUser
	}

	expiresAt := time.Now().Add(s.ttl)
	token, err := auth.IssueToken(s.secret, auth.Claims{
		Sub:        user.Username,
		Name:       user.DisplayName,
		Department: user.Department,
		Role:       string(user.Role),
		JTI:        util.NewID("ses"),
		Exp:        expiresAt.Unix(),
	})
	if err != nil {
		return User{}, "", fmt.Errorf("issue session token: %w", err)
	}

	if err := s.store.Save(ctx, auth.HashToken(token), user, expiresAt); err != nil {
		return User{}, "", fmt.Errorf("save session: %w", err)
	}
	return user, token, nil
}

// Current resolves a presented token to its user. The signature check
// catches tampering before the store is consulted; the store catches
// revocation.
func (s *Service) Current(ctx context.Context, token string) (User, error) {
	if _, err := auth.ParseToken(s.secret, token); err != nil {
		return User{}, ErrNoSession
	}
	user, err := s.store.Lookup(ctx, auth.HashToken(token))
	if err != nil {
		return User{}, ErrNoSession
	}
	return user, nil
}

// Logout revokes the session for a token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.Revoke(ctx, auth.HashToken(token))
}
