// Package auth implements signup, login and bearer-token resolution on top of
// the user store, the token issuer and the revocation list.
package auth

import (
	"context"
	"errors"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/docchat/backend/internal/models"
	"github.com/docchat/backend/internal/sessions"
	"github.com/docchat/backend/internal/tokens"
	"github.com/docchat/backend/internal/users"
	"github.com/docchat/backend/pkg/apperr"
	"github.com/docchat/backend/pkg/logger"
)

// CredentialsError is the message returned for every bearer-token failure.
const CredentialsError = apperr.MsgInvalidCredentials

// Service wires password hashing, token issuance and user lookup.
type Service struct {
	users     *users.Service
	hasher    PasswordHasher
	issuer    *tokens.Issuer
	blacklist sessions.Blacklist
	// dummyHash is compared against on unknown email so both failure paths cost a bcrypt run.
	dummyHash string
}

func NewService(u *users.Service, h PasswordHasher, iss *tokens.Issuer, bl sessions.Blacklist) (*Service, error) {
	dummy, err := h.Hash(strconv.FormatInt(time.Now().UnixNano(), 36))
	if err != nil {
		return nil, err
	}
	if bl == nil {
		bl = sessions.NewBlacklist(nil)
	}
	return &Service{users: u, hasher: h, issuer: iss, blacklist: bl, dummyHash: dummy}, nil
}

// Signup validates the credentials, hashes the password and creates the user.
func (s *Service) Signup(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, apperr.New(apperr.CodeValidation, "value is not a valid email address")
	}
	if password == "" {
		return nil, apperr.New(apperr.CodeValidation, "password must not be empty")
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "could not hash password")
	}
	u, err := s.users.Register(ctx, email, hash)
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			return nil, apperr.Wrap(err, apperr.CodeConflict, "Email already registered")
		}
		return nil, apperr.Wrap(err, apperr.CodeInternal, "could not create user")
	}
	logger.Infof("auth: user %d signed up", u.ID)
	return u, nil
}

// Authenticate returns the user for a matching email/password pair, or (nil, nil).
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			s.hasher.Verify(s.dummyHash, password)
			return nil, nil
		}
		return nil, apperr.Wrap(err, apperr.CodeInternal, "could not load user")
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, nil
	}
	return u, nil
}

// IssueToken returns a signed access token whose subject is the user's email.
func (s *Service) IssueToken(u *models.User) (string, error) {
	tok, err := s.issuer.Issue(u.Email)
	if err != nil {
		return "", apperr.Wrap(err, apperr.CodeInternal, "could not issue token")
	}
	return tok, nil
}

// ResolveCurrentUser maps a bearer token to its user. Every failure collapses to
// one unauthorized error.
func (s *Service) ResolveCurrentUser(ctx context.Context, raw string) (*models.User, error) {
	claims, err := s.issuer.Parse(raw)
	if err != nil {
		logger.Debugf("auth: token rejected: %v", err)
		return nil, apperr.Wrap(err, apperr.CodeUnauthorized, CredentialsError)
	}
	revoked, err := s.blacklist.IsRevoked(ctx, raw)
	if err != nil {
		logger.Warnf("auth: blacklist lookup failed: %v", err)
		return nil, apperr.Wrap(err, apperr.CodeUnauthorized, CredentialsError)
	}
	if revoked {
		return nil, apperr.New(apperr.CodeUnauthorized, CredentialsError)
	}
	u, err := s.users.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if !errors.Is(err, users.ErrNotFound) {
			logger.Warnf("auth: user lookup failed: %v", err)
		}
		return nil, apperr.Wrap(err, apperr.CodeUnauthorized, CredentialsError)
	}
	return u, nil
}

// Revoke blacklists a valid token for the rest of its lifetime.
func (s *Service) Revoke(ctx context.Context, raw string) error {
	claims, err := s.issuer.Parse(raw)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeUnauthorized, CredentialsError)
	}
	if err := s.blacklist.Revoke(ctx, raw, time.Until(claims.ExpiresAt)); err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "could not revoke token")
	}
	return nil
}
