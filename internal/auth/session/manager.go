package session

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/smallbiznis/pricesync/internal/clock"
	"github.com/smallbiznis/pricesync/internal/config"
)

const DefaultCookieName = "_sid"

const defaultTTL = 24 * time.Hour

// Manager issues and resolves sessions. Tokens travel in the _sid cookie or
// as a bearer token.
type Manager struct {
	store      Store
	clock      clock.Clock
	cookieName string
	secure     bool
	ttl        time.Duration
}

func NewManager(cfg config.Config, store Store, clk clock.Clock) *Manager {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Manager{
		store:      store,
		clock:      clk,
		cookieName: DefaultCookieName,
		secure:     cfg.AuthCookieSecure,
		ttl:        ttl,
	}
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

func (m *Manager) ReadToken(c *gin.Context) (string, bool) {
	if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok && strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token), true
		}
	}
	token, err := c.Cookie(m.cookieName)
	if err != nil {
		return "", false
	}
	if strings.TrimSpace(token) == "" {
		return "", false
	}
	return token, true
}

// Resolve returns the live session for the request.
func (m *Manager) Resolve(c *gin.Context) (*Session, error) {
	token, ok := m.ReadToken(c)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s, err := m.store.Get(c.Request.Context(), token)
	if err != nil {
		return nil, err
	}
	if s.Expired(m.clock.Now()) {
		_ = m.store.Delete(c.Request.Context(), token)
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Issue stores a new session for userID.
func (m *Manager) Issue(ctx context.Context, userID string) (Session, error) {
	s := Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: m.clock.Now().Add(m.ttl),
	}
	if err := m.store.Put(ctx, s); err != nil {
		return Session{}, err
	}
	return s, nil
}

func (m *Manager) Revoke(ctx context.Context, token string) error {
	return m.store.Delete(ctx, token)
}

func (m *Manager) Set(c *gin.Context, value string, expiresAt time.Time) {
	maxAge := int(expiresAt.Sub(m.clock.Now()).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, value, maxAge, "/", "", m.secure, true)
}

func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, "", -1, "/", "", m.secure, true)
}
