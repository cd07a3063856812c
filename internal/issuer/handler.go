package issuer

import (
	"errors"
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

// CompleteFunc is invoked with a verified email once authentication has
// succeeded. The handshake behind it decides where the user goes next.
type CompleteFunc func(w http.ResponseWriter, r *http.Request, email string)

// Handler serves the issuer-owned paths: the authorize page and the
// password provider endpoints.
type Handler struct {
	svc      *Service
	complete CompleteFunc
	logger   *zap.SugaredLogger
	pages    *template.Template
}

func NewHandler(svc *Service, complete CompleteFunc, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		svc:      svc,
		complete: complete,
		logger:   logger,
		pages:    template.Must(template.New("pages").Parse(pagesHTML)),
	}
}

// Authorize renders the sign-in page. The client parameters from the entry
// redirect are accepted but unused; this issuer has a single client.
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	h.render(w, "login", nil)
}

// Login handles POST /password/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}
	email := r.Form.Get("email")
	password := r.Form.Get("password")

	if err := h.svc.Login(r.Context(), email, password); err != nil {
		if errors.Is(err, ErrBadCredentials) {
			http.Error(w, "invalid email or password", http.StatusUnauthorized)
			return
		}
		h.logger.Errorw("login", "err", err)
		http.Error(w, "something went wrong, please try again", http.StatusInternalServerError)
		return
	}
	h.complete(w, r, email)
}

// Register handles POST /password/register. The one-time code is written to
// the log in place of real delivery.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}
	email := r.Form.Get("email")

	code, err := h.svc.StartSignup(r.Context(), email, r.Form.Get("password"))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidEmail):
			http.Error(w, "a valid email address is required", http.StatusBadRequest)
		case errors.Is(err, ErrPasswordTooWeak):
			http.Error(w, "password must be at least 8 characters", http.StatusBadRequest)
		default:
			h.logger.Errorw("register", "err", err)
			http.Error(w, "something went wrong, please try again", http.StatusInternalServerError)
		}
		return
	}
	// demo delivery: surface the code in the service log
	h.logger.Infow("verification code issued", "email", email, "code", code)
	h.render(w, "verify", map[string]string{"Email": email})
}

// Verify handles POST /password/verify.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}
	email := r.Form.Get("email")

	if err := h.svc.VerifySignup(r.Context(), email, r.Form.Get("code")); err != nil {
		switch {
		case errors.Is(err, ErrNoPendingSignup):
			http.Error(w, "code expired, please register again", http.StatusBadRequest)
		case errors.Is(err, ErrCodeMismatch):
			http.Error(w, "wrong code", http.StatusBadRequest)
		default:
			h.logger.Errorw("verify", "err", err)
			http.Error(w, "something went wrong, please try again", http.StatusInternalServerError)
		}
		return
	}
	h.complete(w, r, email)
}

func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.pages.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Errorw("render page", "page", name, "err", err)
	}
}

const pagesHTML = `
{{define "login"}}<!DOCTYPE html>
<html>
<head><title>Sign in to readtalk</title></head>
<body>
  <h1>Sign in</h1>
  <form method="POST" action="/password/login">
    <label>Email <input type="email" name="email" required></label>
    <label>Password <input type="password" name="password" required></label>
    <button type="submit">Sign in</button>
  </form>
  <h2>New here?</h2>
  <form method="POST" action="/password/register">
    <label>Email <input type="email" name="email" required></label>
    <label>Password <input type="password" name="password" required></label>
    <button type="submit">Create account</button>
  </form>
</body>
</html>{{end}}

{{define "verify"}}<!DOCTYPE html>
<html>
<head><title>Check your inbox</title></head>
<body>
  <h1>Enter the code we sent to {{.Email}}</h1>
  <form method="POST" action="/password/verify">
    <input type="hidden" name="email" value="{{.Email}}">
    <label>Code <input type="text" name="code" required></label>
    <button type="submit">Verify</button>
  </form>
</body>
</html>{{end}}
`
