package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ceiba/internal/domain"
	"ceiba/internal/infra"
)

// InvalidToken is the reply message for an identity token the provider rejects.
const InvalidToken = "Invalid Token!"

// Sessions exchanges identity tokens for service cookies.
type Sessions struct {
	users    *Users
	store    domain.CollectionStore
	identity domain.IdentityProvider
	now      func() time.Time
	logger   infra.Logger
}

// NewSessions creates a session issuer.
func NewSessions(store domain.CollectionStore, identity domain.IdentityProvider, logger infra.Logger) *Sessions {
	return &Sessions{
		users:    NewUsers(store, logger),
		store:    store,
		identity: identity,
		now:      time.Now,
		logger:   logger,
	}
}

// Authenticate resolves token to a login, checks that the login is registered
// and issues a fresh cookie, invalidating the previous one. Rejections are
// FAILED replies; only store failures are errors.
func (s *Sessions) Authenticate(ctx context.Context, token string) (domain.Reply, error) {
	login, err := s.identity.Username(ctx, token)
	if err != nil {
		s.logger.Info().Err(err).Msg("identity token rejected")
		return domain.Failed(InvalidToken), nil
	}

	user, err := s.users.Find(ctx, login)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Failed(fmt.Sprintf("User `%s` doesn't have permissions to access the service", login)), nil
	}
	if err != nil {
		return domain.Reply{}, fmt.Errorf("lookup user %s: %w", login, err)
	}

	issued := s.now().UTC()
	cookie := Cookie{Username: user.Username, Token: newToken()}
	set, err := domain.ToDocument(domain.User{Username: user.Username, Token: cookie.Token, Time: &issued})
	if err != nil {
		return domain.Reply{}, err
	}
	delete(set, domain.IDField)
	if _, err := s.store.UpdateOne(ctx, domain.UsersCollection, domain.IDFilter(user.ID), set, false); err != nil {
		return domain.Reply{}, fmt.Errorf("store token of %s: %w", login, err)
	}

	s.logger.Info().Str("username", user.Username).Msg("session issued")
	return domain.Done(cookie.Encode()), nil
}

// newToken returns a random token of 32 hex characters.
func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
