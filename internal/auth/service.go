package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Service authenticates users against a UserStore.
type Service struct {
	users  UserStore
	signer *Signer
}

func NewService(users UserStore, signer *Signer) *Service {
	return &Service{users: users, signer: signer}
}

// Signer returns the token signer used by the service.
func (s *Service) Signer() *Signer { return s.signer }

// Login checks credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, username, password string) (User, TokenPair, error) {
	u, err := s.users.UserByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return User{}, TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, TokenPair{}, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return User{}, TokenPair{}, ErrInvalidCredentials
	}
	if !u.Active() {
		return User{}, TokenPair{}, ErrInactive
	}
	pair, err := s.issue(ctx, u)
	if err != nil {
		return User{}, TokenPair{}, err
	}
	now := s.signer.now()
	if err := s.users.TouchLogin(ctx, u.ID, now); err != nil {
		slog.Warn("record last login failed", "user_id", u.ID, "error", err)
	}
	u.LastLogin = &now
	return u, pair, nil
}

// Refresh exchanges a live refresh token for a new pair. The old token is
// revoked so each refresh token works once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.signer.parse(refreshToken, tokenRefresh)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrTokenRevoked, err)
	}
	live, err := s.users.ConsumeRefreshToken(ctx, refreshToken, s.signer.now())
	if err != nil {
		return TokenPair{}, err
	}
	if !live {
		return TokenPair{}, ErrTokenRevoked
	}
	u, err := s.users.UserByID(ctx, claims.Subject)
	if err != nil {
		return TokenPair{}, err
	}
	if !u.Active() {
		return TokenPair{}, ErrInactive
	}
	return s.issue(ctx, u)
}

// Logout revokes every refresh token of the user.
func (s *Service) Logout(ctx context.Context, userID string) error {
	return s.users.RevokeRefreshTokens(ctx, userID)
}

// Me returns the user behind the claims.
func (s *Service) Me(ctx context.Context, claims Claims) (User, error) {
	return s.users.UserByID(ctx, claims.Subject)
}

// ChangePassword replaces the password after checking the current one and
// revokes outstanding refresh tokens.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !CheckPassword(u.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	return s.users.RevokeRefreshTokens(ctx, userID)
}

func (s *Service) issue(ctx context.Context, u User) (TokenPair, error) {
	pair, err := s.signer.Issue(u)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.users.SaveRefreshToken(ctx, pair.RefreshToken, u.ID, pair.RefreshExp); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}
