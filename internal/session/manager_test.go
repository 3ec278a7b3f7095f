package session_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikoDola/hendo-backend/internal/identity"
	"github.com/NikoDola/hendo-backend/internal/session"
)

type fakeSessionStore struct {
	mu   sync.Mutex
	recs map[string]session.Record
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{recs: make(map[string]session.Record)}
}

func (f *fakeSessionStore) CreateSession(_ context.Context, rec session.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs[rec.ID] = rec
	return nil
}

func (f *fakeSessionStore) FindSession(_ context.Context, id string) (session.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[id]
	if !ok {
		return session.Record{}, errors.New("session not found")
	}
	return rec, nil
}

func (f *fakeSessionStore) RevokeSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[id]
	if !ok {
		return errors.New("session not found")
	}
	rec.Revoked = true
	f.recs[id] = rec
	return nil
}

type fakeUserLookup struct {
	users map[string]identity.User
}

func (f *fakeUserLookup) LookupByEmail(_ context.Context, email string) (identity.User, error) {
	u, ok := f.users[email]
	if !ok {
		return identity.User{}, errors.New("user not found")
	}
	return u, nil
}

func newTestManager(admins ...string) (*session.Manager, *fakeSessionStore, *fakeUserLookup) {
	store := newFakeSessionStore()
	users := &fakeUserLookup{users: make(map[string]identity.User)}
	mgr := session.NewManager([]byte("test-secret"), store, users, identity.NewResolver(admins), false)
	return mgr, store, users
}

func requestWithCookie(c *http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if c != nil {
		r.AddCookie(c)
	}
	return r
}

func TestEstablishAndVerifyRoundTrip(t *testing.T) {
	mgr, _, _ := newTestManager()

	u := identity.User{ID: "uid-1", Email: "jane@example.com", Name: "Jane", Role: identity.RoleUser}
	cookie, err := mgr.Establish(context.Background(), u)
	require.NoError(t, err)

	assert.Equal(t, session.TokenCookie, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, int(session.Lifetime.Seconds()), cookie.MaxAge)

	got, err := mgr.Verify(requestWithCookie(cookie))
	require.NoError(t, err)
	assert.Equal(t, "uid-1", got.ID)
	assert.Equal(t, "jane@example.com", got.Email)
	assert.Equal(t, "Jane", got.Name)
	assert.Equal(t, identity.RoleUser, got.Role)
}

func TestVerifyNoCookie(t *testing.T) {
	mgr, _, _ := newTestManager()

	_, err := mgr.Verify(requestWithCookie(nil))
	assert.ErrorIs(t, err, session.ErrUnauthenticated)
}

func TestVerifyGarbageToken(t *testing.T) {
	mgr, _, _ := newTestManager()

	_, err := mgr.Verify(requestWithCookie(&http.Cookie{
		Name:  session.TokenCookie,
		Value: "definitely-not-a-jwt",
	}))
	assert.ErrorIs(t, err, session.ErrUnauthenticated)
}

func TestVerifyTokenSignedWithOtherKey(t *testing.T) {
	otherMgr := session.NewManager([]byte("other-secret"), newFakeSessionStore(),
		&fakeUserLookup{users: map[string]identity.User{}}, identity.NewResolver(nil), false)
	cookie, err := otherMgr.Establish(context.Background(), identity.User{ID: "uid-1", Email: "a@b.com"})
	require.NoError(t, err)

	mgr, _, _ := newTestManager()
	_, err = mgr.Verify(requestWithCookie(cookie))
	assert.ErrorIs(t, err, session.ErrUnauthenticated)
}

func TestVerifyRevokedSession(t *testing.T) {
	mgr, store, _ := newTestManager()

	cookie, err := mgr.Establish(context.Background(), identity.User{ID: "uid-1", Email: "a@b.com"})
	require.NoError(t, err)

	// Revoke the only record.
	for id := range store.recs {
		require.NoError(t, store.RevokeSession(context.Background(), id))
	}

	_, err = mgr.Verify(requestWithCookie(cookie))
	assert.ErrorIs(t, err, session.ErrUnauthenticated)
}

func TestVerifyExpiredRecord(t *testing.T) {
	mgr, store, _ := newTestManager()

	cookie, err := mgr.Establish(context.Background(), identity.User{ID: "uid-1", Email: "a@b.com"})
	require.NoError(t, err)

	store.mu.Lock()
	for id, rec := range store.recs {
		rec.ExpiresAt = time.Now().Add(-time.Hour)
		store.recs[id] = rec
	}
	store.mu.Unlock()

	_, err = mgr.Verify(requestWithCookie(cookie))
	assert.ErrorIs(t, err, session.ErrUnauthenticated)
}

func TestVerifyIdentityCookiePath(t *testing.T) {
	mgr, _, users := newTestManager()
	users.users["jane@example.com"] = identity.User{
		ID: "uid-1", Email: "jane@example.com", Name: "Jane", Role: identity.RoleUser,
	}

	got, err := mgr.Verify(requestWithCookie(&http.Cookie{
		Name:  session.IdentityCookie,
		Value: "Jane@Example.com", // normalized before lookup
	}))
	require.NoError(t, err)
	assert.Equal(t, "uid-1", got.ID)
}

func TestVerifyIdentityCookieUnknownUser(t *testing.T) {
	mgr, _, _ := newTestManager()

	_, err := mgr.Verify(requestWithCookie(&http.Cookie{
		Name:  session.IdentityCookie,
		Value: "nobody@example.com",
	}))
	assert.ErrorIs(t, err, session.ErrUnauthenticated)
}

// Role is recomputed from the allow-list at verification time, so a stale
// stored role cannot stick and both session kinds agree with signup.
func TestVerifyRecomputesRole(t *testing.T) {
	mgr, _, users := newTestManager("jane@example.com")
	users.users["jane@example.com"] = identity.User{
		ID: "uid-1", Email: "jane@example.com", Role: identity.RoleUser,
	}

	got, err := mgr.Verify(requestWithCookie(&http.Cookie{
		Name:  session.IdentityCookie,
		Value: "jane@example.com",
	}))
	require.NoError(t, err)
	assert.Equal(t, identity.RoleAdmin, got.Role)

	cookie, err := mgr.Establish(context.Background(),
		identity.User{ID: "uid-1", Email: "jane@example.com", Role: identity.RoleUser})
	require.NoError(t, err)
	got, err = mgr.Verify(requestWithCookie(cookie))
	require.NoError(t, err)
	assert.Equal(t, identity.RoleAdmin, got.Role)
}

func TestRevokeInvalidatesToken(t *testing.T) {
	mgr, _, _ := newTestManager()

	cookie, err := mgr.Establish(context.Background(), identity.User{ID: "uid-1", Email: "a@b.com"})
	require.NoError(t, err)

	req := requestWithCookie(cookie)
	mgr.Revoke(req)

	_, err = mgr.Verify(req)
	assert.ErrorIs(t, err, session.ErrUnauthenticated)
}

func TestClearCookiesExpireBothKinds(t *testing.T) {
	mgr, _, _ := newTestManager()

	cleared := mgr.ClearCookies()
	require.Len(t, cleared, 2)
	names := map[string]bool{}
	for _, c := range cleared {
		names[c.Name] = true
		assert.Equal(t, -1, c.MaxAge)
		assert.Empty(t, c.Value)
	}
	assert.True(t, names[session.IdentityCookie])
	assert.True(t, names[session.TokenCookie])
}

func TestIssueIdentityCookie(t *testing.T) {
	mgr, _, _ := newTestManager()

	c := mgr.IssueIdentityCookie(identity.User{Email: "jane@example.com"})
	assert.Equal(t, session.IdentityCookie, c.Name)
	assert.Equal(t, "jane@example.com", c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
}
