package service

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/antonkondratyev/api-universal/internal/model"
	"github.com/antonkondratyev/api-universal/internal/queue"
	"github.com/antonkondratyev/api-universal/internal/repository"
	"github.com/antonkondratyev/api-universal/internal/utils"
)

// SessionService registers users and issues, rotates and revokes their
// tokens. A user has at most one refresh token on record; every issuance
// replaces the previous one.
type SessionService struct {
	base
	users      UserStore
	tokens     TokenStore
	issuer     Issuer
	bcryptCost int
}

func NewSessionService(d Deps) *SessionService {
	return &SessionService{
		base:       newBase(d, "session"),
		users:      d.Users,
		tokens:     d.Tokens,
		issuer:     d.Issuer,
		bcryptCost: d.BcryptCost,
	}
}

// Register creates a user and signs them in. The very first user becomes
// an admin. The count check is not serialized with the insert, so two
// concurrent first registrations may both end up admin.
func (s *SessionService) Register(ctx context.Context, username, password string) (creds model.TokenCredentials, err error) {
	ctx, span := s.start(ctx, "session.Register")
	defer span.End()
	defer func() { s.metrics.AuthOp("register", outcome(err)) }()

	name := normalizeName(username)
	if name == "" || password == "" {
		return creds, ErrCredentialsRequired
	}
	exists, err := s.users.Exists(ctx, repository.ByName(name))
	if err != nil {
		return creds, s.internal(ctx, "register", err)
	}
	if exists {
		return creds, ErrUserExists
	}
	n, err := s.users.Count(ctx)
	if err != nil {
		return creds, s.internal(ctx, "register", err)
	}
	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return creds, s.internal(ctx, "register", err)
	}

	u := &model.User{Name: name, Password: hash, IsAdmin: n == 0}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return creds, ErrUserExists
		}
		return creds, s.internal(ctx, "register", err)
	}
	s.log.Info().Uint("user_id", u.ID).Str("user", u.Name).Bool("admin", u.IsAdmin).Msg("user registered")

	creds, err = s.RefreshCredentials(ctx, u.Summary(), "")
	if err != nil {
		return creds, err
	}
	s.publish(ctx, queue.AuthEvent{Type: queue.EventUserRegistered, UserID: u.ID, UserName: u.Name})
	return creds, nil
}

// Login verifies the password and issues a fresh pair, replacing any
// token the user still had. A wrong password leaves the token row alone.
func (s *SessionService) Login(ctx context.Context, username, password string) (creds model.TokenCredentials, err error) {
	ctx, span := s.start(ctx, "session.Login")
	defer span.End()
	defer func() { s.metrics.AuthOp("login", outcome(err)) }()

	name := normalizeName(username)
	if name == "" || password == "" {
		return creds, ErrCredentialsRequired
	}
	u, err := s.users.FindWithPassword(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return creds, ErrUserNotFound
	}
	if err != nil {
		return creds, s.internal(ctx, "login", err)
	}
	if !utils.VerifyPassword(u.Password, password) {
		s.log.Info().Uint("user_id", u.ID).Msg("login rejected: incorrect password")
		return creds, ErrInvalidCredentials
	}

	creds, err = s.RefreshCredentials(ctx, u.Summary(), "")
	if err != nil {
		return creds, err
	}
	s.publish(ctx, queue.AuthEvent{Type: queue.EventUserLoggedIn, UserID: u.ID, UserName: u.Name})
	return creds, nil
}

// Logout drops the user's refresh token. It succeeds whether or not a
// token was on record.
func (s *SessionService) Logout(ctx context.Context, user model.UserSummary) (err error) {
	ctx, span := s.start(ctx, "session.Logout", attribute.Int64("user.id", int64(user.ID)))
	defer span.End()
	defer func() { s.metrics.AuthOp("logout", outcome(err)) }()

	if _, err := s.tokens.RemoveByUser(ctx, user.ID); err != nil {
		return s.internal(ctx, "logout", err)
	}
	s.publish(ctx, queue.AuthEvent{Type: queue.EventUserLoggedOut, UserID: user.ID, UserName: user.Name})
	return nil
}

// Refresh exchanges a presented refresh token for a new pair. The claim
// comes from the verified token; the user is reloaded so the new tokens
// carry the current name, and a deleted user cannot refresh.
func (s *SessionService) Refresh(ctx context.Context, claim model.UserSummary, presented string) (creds model.TokenCredentials, err error) {
	ctx, span := s.start(ctx, "session.Refresh", attribute.Int64("user.id", int64(claim.ID)))
	defer span.End()
	defer func() { s.metrics.AuthOp("refresh", outcome(err)) }()

	if presented == "" {
		return creds, ErrInvalidToken
	}
	u, err := s.users.Find(ctx, repository.ByID(claim.ID))
	if errors.Is(err, repository.ErrNotFound) {
		return creds, ErrInvalidToken
	}
	if err != nil {
		return creds, s.internal(ctx, "refresh", err)
	}
	creds, err = s.RefreshCredentials(ctx, u.Summary(), presented)
	if err != nil {
		return creds, err
	}
	s.publish(ctx, queue.AuthEvent{Type: queue.EventTokenRefreshed, UserID: u.ID, UserName: u.Name})
	return creds, nil
}

// RefreshCredentials signs a new pair for user and stores its refresh
// digest in place of the old one.
//
// With a presented token, its digest must be on record for this user,
// otherwise ErrInvalidToken is returned and nothing is issued. Without
// one, whatever token the user had is dropped. The delete and insert run
// in one transaction; a presented token that was rotated away in the
// meantime fails with ErrInvalidToken, and a concurrent insert for the same
// user surfaces as ErrInternal.
func (s *SessionService) RefreshCredentials(ctx context.Context, user model.UserSummary, presented string) (model.TokenCredentials, error) {
	var oldHash string
	if presented != "" {
		oldHash = utils.HashRefreshRaw(presented)
		t, err := s.tokens.FindByToken(ctx, oldHash)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && t.UserID != user.ID) {
			return model.TokenCredentials{}, ErrInvalidToken
		}
		if err != nil {
			return model.TokenCredentials{}, s.internal(ctx, "refresh_credentials", err)
		}
	}

	pair, err := s.issuer.Issue(user)
	if err != nil {
		return model.TokenCredentials{}, s.internal(ctx, "refresh_credentials", err)
	}
	err = s.tokens.Rotate(ctx, user.ID, oldHash, utils.HashRefreshRaw(pair.Refresh))
	if errors.Is(err, repository.ErrNotFound) {
		return model.TokenCredentials{}, ErrInvalidToken
	}
	if err != nil {
		return model.TokenCredentials{}, s.internal(ctx, "refresh_credentials", err)
	}
	s.metrics.TokenRotated()
	return model.TokenCredentials{User: user, Token: pair}, nil
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
