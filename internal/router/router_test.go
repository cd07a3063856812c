package router

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/readtalk/log/internal/issuer"
	"github.com/readtalk/log/internal/profile"
	"github.com/readtalk/log/internal/state"
	"github.com/readtalk/log/internal/token"
	"github.com/readtalk/log/internal/user"
	"github.com/readtalk/log/internal/user/entity"
)

// stub stores; wiring tests never reach them
type memDirectory struct{}

func (memDirectory) FindOrCreate(context.Context, string) (string, error) { return "u-1", nil }
func (memDirectory) GetByEmail(context.Context, string) (*entity.User, error) {
	return nil, sql.ErrNoRows
}
func (memDirectory) UpdateProfile(context.Context, string, string, *string) error {
	return sql.ErrNoRows
}

type memCreds struct{}

func (memCreds) Upsert(context.Context, string, string) error { return nil }
func (memCreds) GetHash(context.Context, string) (string, error) {
	return "", sql.ErrNoRows
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	logger := zap.NewNop().Sugar()
	store := state.NewMemoryStore()
	minter := token.NewMinter([]byte("secret"), "readtalk-log", time.Hour)
	dir := user.NewService(nil, memDirectory{})
	ph := profile.NewHandler(dir, store, minter, "http://chat.example", 600*time.Second, logger)
	isvc := issuer.NewService(nil, memCreds{}, store, 600*time.Second)
	ih := issuer.NewHandler(isvc, ph.CompleteAuthentication, logger)
	return RegisterRoutes(logger, ph, ih)
}

func TestEntryRedirectsToAuthorize(t *testing.T) {
	h := newTestHandler(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusFound, w.Code)

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/authorize", loc.Path)
	require.Equal(t, "readtalk-chat", loc.Query().Get("client_id"))
	require.Equal(t, "/callback", loc.Query().Get("redirect_uri"))
}

func TestCallbackEchoesQueryParams(t *testing.T) {
	h := newTestHandler(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/callback?token=abc&foo=bar", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Equal(t, "abc", out["token"])
	require.Equal(t, "bar", out["foo"])
}

func TestUnknownPathIs404(t *testing.T) {
	h := newTestHandler(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSecurityHeadersPresent(t *testing.T) {
	h := newTestHandler(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestAuthorizeServesLoginPage(t *testing.T) {
	h := newTestHandler(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/authorize?client_id=readtalk-chat", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "/password/login")
}
