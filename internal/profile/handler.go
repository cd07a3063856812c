// Package profile implements the profile-completion handshake: first-time
// users are parked behind a short-lived, single-use continuation token while
// they pick a username, then released to the chat application with a minted
// bearer token.
package profile

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/readtalk/log/internal/state"
	"github.com/readtalk/log/internal/token"
	"github.com/readtalk/log/internal/user"
	"github.com/readtalk/log/internal/user/entity"
)

// Directory is the user-store surface the handshake needs; *user.Service is
// the production implementation.
type Directory interface {
	FindOrCreate(ctx context.Context, email string) (string, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	CompleteProfile(ctx context.Context, email, username, fullName string) error
}

// Handler drives the handshake state machine.
type Handler struct {
	dir        Directory
	store      state.Store
	minter     *token.Minter
	chatAppURL string
	stateTTL   time.Duration
	logger     *zap.SugaredLogger
	form       *template.Template
}

func NewHandler(dir Directory, store state.Store, minter *token.Minter, chatAppURL string, stateTTL time.Duration, logger *zap.SugaredLogger) *Handler {
	if stateTTL == 0 {
		stateTTL = 600 * time.Second
	}
	return &Handler{
		dir:        dir,
		store:      store,
		minter:     minter,
		chatAppURL: chatAppURL,
		stateTTL:   stateTTL,
		logger:     logger,
		form:       template.Must(template.New("form").Parse(formHTML)),
	}
}

// CompleteAuthentication is the issuer's success callback: it receives a
// verified email and decides whether the user still owes a profile. Incomplete
// profiles get parked behind a fresh continuation token; complete ones go
// straight to the chat app.
func (h *Handler) CompleteAuthentication(w http.ResponseWriter, r *http.Request, email string) {
	ctx := r.Context()

	if _, err := h.dir.FindOrCreate(ctx, email); err != nil {
		h.serverError(w, "find or create user", err)
		return
	}
	u, err := h.dir.GetByEmail(ctx, email)
	if err != nil {
		h.serverError(w, "load user", err)
		return
	}

	if !u.ProfileComplete() {
		tok, err := state.NewToken()
		if err != nil {
			h.serverError(w, "generate state token", err)
			return
		}
		if err := h.store.Put(ctx, state.ProfileKeyPrefix+tok, state.Session{Email: email}, h.stateTTL); err != nil {
			h.serverError(w, "store state", err)
			return
		}
		http.Redirect(w, r, "/complete-profile?state="+url.QueryEscape(tok), http.StatusFound)
		return
	}

	h.redirectWithToken(w, r, u)
}

// ShowForm renders the completion form for a live continuation token.
// Idempotent: rendering never consumes the token.
func (h *Handler) ShowForm(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("state")
	if tok == "" {
		clientError(w, "missing state parameter")
		return
	}
	sess, err := h.store.Get(r.Context(), state.ProfileKeyPrefix+tok)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			clientError(w, "session expired, please sign in again")
			return
		}
		h.serverError(w, "load state", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.form.Execute(w, map[string]string{"Email": sess.Email, "State": tok}); err != nil {
		h.logger.Errorw("render profile form", "err", err)
	}
}

// Submit handles the completion POST. The token is consumed only after the
// profile write and the bearer token mint have both succeeded, so a failed
// persistence attempt leaves the session retryable. A concurrent duplicate
// submission loses the atomic take and gets the benign expired-session reply.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		clientError(w, "invalid form submission")
		return
	}
	tok := r.Form.Get("state")
	if tok == "" {
		tok = r.URL.Query().Get("state")
	}
	if tok == "" {
		clientError(w, "missing state parameter")
		return
	}

	key := state.ProfileKeyPrefix + tok
	sess, err := h.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			clientError(w, "session expired, please sign in again")
			return
		}
		h.serverError(w, "load state", err)
		return
	}

	username := r.Form.Get("username")
	fullName := r.Form.Get("fullName")

	if err := h.dir.CompleteProfile(ctx, sess.Email, username, fullName); err != nil {
		if errors.Is(err, user.ErrUsernameMissing) {
			clientError(w, "username is required")
			return
		}
		h.serverError(w, "save profile", err)
		return
	}

	u, err := h.dir.GetByEmail(ctx, sess.Email)
	if err != nil {
		h.serverError(w, "reload user", err)
		return
	}

	if _, err := h.store.Take(ctx, key); err != nil {
		if errors.Is(err, state.ErrNotFound) {
			// another submission won the race; the profile write above is
			// idempotent, so nothing to undo
			clientError(w, "session expired, please sign in again")
			return
		}
		h.serverError(w, "consume state", err)
		return
	}

	h.redirectWithToken(w, r, u)
}

func (h *Handler) redirectWithToken(w http.ResponseWriter, r *http.Request, u *entity.User) {
	username := ""
	if u.Username != nil {
		username = *u.Username
	}
	minted, err := h.minter.Mint(u.Email, u.ID, username)
	if err != nil {
		h.serverError(w, "mint token", err)
		return
	}
	dest := strings.TrimRight(h.chatAppURL, "/") + "?token=" + url.QueryEscape(minted)
	http.Redirect(w, r, dest, http.StatusFound)
}

func clientError(w http.ResponseWriter, msg string) {
	http.Error(w, msg, http.StatusBadRequest)
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Errorw(op, "err", err)
	http.Error(w, "something went wrong, please try again", http.StatusInternalServerError)
}

const formHTML = `<!DOCTYPE html>
<html>
<head><title>Complete your profile</title></head>
<body>
  <h1>Almost there</h1>
  <p>Signed in as <strong>{{.Email}}</strong>. Pick a username to finish setting up your account.</p>
  <form method="POST" action="/complete-profile">
    <input type="hidden" name="state" value="{{.State}}">
    <label>Username <input type="text" name="username" required></label>
    <label>Full name (optional) <input type="text" name="fullName"></label>
    <button type="submit">Continue</button>
  </form>
</body>
</html>
`
