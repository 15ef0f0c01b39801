package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/pricesync/internal/clock"
	"github.com/smallbiznis/pricesync/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreExpiry(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	store := NewMemoryStore(clk.Now)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, Session{Token: "tok", UserID: "usr_1", ExpiresAt: clk.Now().Add(time.Minute)}))

	s, err := store.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "usr_1", s.UserID)

	clk.Advance(2 * time.Minute)
	_, err = store.Get(ctx, "tok")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.Error(t, store.Put(ctx, Session{}))
}

func TestManagerResolvesCookieAndBearer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	clk := clock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	mgr := NewManager(config.Config{SessionTTL: time.Hour}, NewMemoryStore(clk.Now), clk)

	issued, err := mgr.Issue(context.Background(), "usr_1")
	require.NoError(t, err)

	newCtx := func(mut func(r *http.Request)) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		mut(req)
		c.Request = req
		return c
	}

	c := newCtx(func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: issued.Token})
	})
	s, err := mgr.Resolve(c)
	require.NoError(t, err)
	assert.Equal(t, "usr_1", s.UserID)

	c = newCtx(func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+issued.Token) })
	s, err = mgr.Resolve(c)
	require.NoError(t, err)
	assert.Equal(t, "usr_1", s.UserID)

	c = newCtx(func(r *http.Request) {})
	_, err = mgr.Resolve(c)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	clk.Advance(2 * time.Hour)
	c = newCtx(func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+issued.Token) })
	_, err = mgr.Resolve(c)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
