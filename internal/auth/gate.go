package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ceiba/internal/domain"
	"ceiba/internal/infra"
)

// Cookie is the credential handed out by Sessions.Authenticate and sent back
// with every mutation.
type Cookie struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// Encode renders the cookie as the JSON string clients store.
func (c Cookie) Encode() string {
	raw, _ := json.Marshal(c)
	return string(raw)
}

// ParseCookie decodes the JSON credential sent by a client.
func ParseCookie(raw string) (Cookie, error) {
	var c Cookie
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &c); err != nil {
		return Cookie{}, fmt.Errorf("parse cookie: %w", domain.ErrUnauthorized)
	}
	if c.Username == "" || c.Token == "" {
		return Cookie{}, fmt.Errorf("incomplete cookie: %w", domain.ErrUnauthorized)
	}
	return c, nil
}

// CookieGate authorizes a cookie when its token is the last one issued to a
// registered user and, with a TTL, is recent enough.
type CookieGate struct {
	users  *Users
	ttl    time.Duration
	now    func() time.Time
	logger infra.Logger
}

// NewCookieGate creates a gate; ttl <= 0 disables expiry.
func NewCookieGate(store domain.CollectionStore, ttl time.Duration, logger infra.Logger) *CookieGate {
	return &CookieGate{
		users:  NewUsers(store, logger),
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

var _ domain.AccessGate = (*CookieGate)(nil)

// Authorize implements domain.AccessGate.
func (g *CookieGate) Authorize(ctx context.Context, credential string) bool {
	if err := g.check(ctx, credential); err != nil {
		g.logger.Debug().Err(err).Msg("credential rejected")
		return false
	}
	return true
}

func (g *CookieGate) check(ctx context.Context, credential string) error {
	cookie, err := ParseCookie(credential)
	if err != nil {
		return err
	}
	user, err := g.users.Find(ctx, cookie.Username)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("unknown user %s: %w", cookie.Username, domain.ErrUnauthorized)
	}
	if err != nil {
		return err
	}
	if !user.HasSession() || subtle.ConstantTimeCompare([]byte(user.Token), []byte(cookie.Token)) != 1 {
		return fmt.Errorf("token mismatch for %s: %w", cookie.Username, domain.ErrUnauthorized)
	}
	if g.ttl > 0 && (user.Time == nil || g.now().Sub(*user.Time) > g.ttl) {
		return fmt.Errorf("token of %s expired: %w", cookie.Username, domain.ErrUnauthorized)
	}
	return nil
}
