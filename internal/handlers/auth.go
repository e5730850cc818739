package handlers

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"schoolarchives/internal/middleware"
	"schoolarchives/internal/models"
	"schoolarchives/internal/render"
	"schoolarchives/internal/session"
	"schoolarchives/internal/store"
)

// totpIssuer names the account in authenticator apps.
const totpIssuer = "School Archives"

// Auth groups the login and two-factor handlers.
type Auth struct {
	renderer *render.Renderer
	sessions *session.Store
	users    *store.UserStore
	limiter  *middleware.RateLimiter
}

// NewAuth creates the auth handlers. limiter throttles failed attempts
// per account and may be nil.
func NewAuth(renderer *render.Renderer, sessions *session.Store, users *store.UserStore, limiter *middleware.RateLimiter) *Auth {
	return &Auth{renderer: renderer, sessions: sessions, users: users, limiter: limiter}
}

// LoginPage renders the login form.
func (a *Auth) LoginPage(w http.ResponseWriter, r *http.Request) {
	if sess := middleware.SessionFromCtx(r.Context()); sess != nil && sess.TwoFADone {
		http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
		return
	}
	a.renderer.Page(w, r, "login", &render.PageData{Title: "Sign In"})
}

func (a *Auth) loginError(w http.ResponseWriter, r *http.Request, status int, email, msg string) {
	a.renderer.PageStatus(w, r, status, "login", &render.PageData{
		Title: "Sign In",
		Data:  map[string]any{"Error": msg, "Email": email},
	})
}

// LoginSubmit checks the password and starts a session that still needs 2FA.
func (a *Auth) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	password := r.FormValue("password")
	ctx := r.Context()

	if a.limiter != nil {
		ok, err := a.limiter.Allow(ctx, email)
		if err != nil {
			slog.Warn("login limiter unavailable", "error", err)
		}
		if !ok {
			a.loginError(w, r, http.StatusTooManyRequests, email, "Too many attempts. Try again in a few minutes.")
			return
		}
	}

	user, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		slog.Error("login lookup failed", "error", err)
		a.loginError(w, r, http.StatusInternalServerError, email, "An unexpected error occurred.")
		return
	}
	if user == nil || !a.users.CheckPassword(user, password) {
		slog.Info("login rejected", "email", email)
		a.loginError(w, r, http.StatusUnauthorized, email, "Invalid email or password.")
		return
	}
	if !user.CanEdit() {
		a.loginError(w, r, http.StatusForbidden, email, "This account has no role yet. Ask an administrator.")
		return
	}

	roles := make([]models.Role, 0, len(user.Roles))
	for _, ur := range user.Roles {
		roles = append(roles, ur.Role)
	}
	if _, err := a.sessions.Create(ctx, w, &session.Data{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Roles:       roles,
	}); err != nil {
		slog.Error("session create failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if user.Needs2FASetup() {
		http.Redirect(w, r, "/admin/2fa/setup", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/admin/2fa/verify", http.StatusSeeOther)
}

// enrollment builds the QR code and manual secret shown during setup.
func enrollment(key *otp.Key) (map[string]any, error) {
	png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return map[string]any{
		"QRCode": base64.StdEncoding.EncodeToString(png),
		"Secret": key.Secret(),
	}, nil
}

// keyFor rebuilds the otpauth key for an already stored secret.
func keyFor(email, secret string) (*otp.Key, error) {
	q := url.Values{}
	q.Set("secret", secret)
	q.Set("issuer", totpIssuer)
	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + totpIssuer + ":" + email,
		RawQuery: q.Encode(),
	}
	return otp.NewKeyFromURL(u.String())
}

// TwoFA sends a half-signed-in session to setup or verification.
func (a *Auth) TwoFA(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}
	user, err := a.users.FindByID(r.Context(), sess.UserID)
	if err != nil || user == nil {
		slog.Error("user lookup for 2fa failed", "error", err, "user_id", sess.UserID)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if user.Needs2FASetup() {
		http.Redirect(w, r, "/admin/2fa/setup", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/admin/2fa/verify", http.StatusSeeOther)
}

// TwoFASetupPage issues a fresh TOTP secret and shows it as a QR code.
func (a *Auth) TwoFASetupPage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{Issuer: totpIssuer, AccountName: sess.Email})
	if err != nil {
		slog.Error("totp generate failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if err := a.users.SetTOTPSecret(r.Context(), sess.UserID, key.Secret()); err != nil {
		slog.Error("save totp secret failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	data, err := enrollment(key)
	if err != nil {
		slog.Error("2fa enrollment failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	a.renderer.Page(w, r, "2fa_setup", &render.PageData{
		Title: "Set Up Two-Factor Authentication",
		Data:  data,
	})
}

// TwoFAVerifyPage renders the code form for enrolled users.
func (a *Auth) TwoFAVerifyPage(w http.ResponseWriter, r *http.Request) {
	if middleware.SessionFromCtx(r.Context()) == nil {
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}
	a.renderer.Page(w, r, "2fa_verify", &render.PageData{Title: "Two-Factor Authentication"})
}

// TwoFAVerifySubmit checks the TOTP code. The first valid code after
// setup also enables 2FA on the account.
func (a *Auth) TwoFAVerifySubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := middleware.SessionFromCtx(ctx)
	if sess == nil {
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}

	user, err := a.users.FindByID(ctx, sess.UserID)
	if err != nil || user == nil {
		slog.Error("user lookup for 2fa failed", "error", err, "user_id", sess.UserID)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if user.TOTPSecret == nil {
		http.Redirect(w, r, "/admin/2fa/setup", http.StatusSeeOther)
		return
	}

	code := strings.TrimSpace(r.FormValue("code"))
	if !totp.Validate(code, *user.TOTPSecret) {
		a.invalidCode(w, r, user)
		return
	}

	if !user.TOTPEnabled {
		if err := a.users.EnableTOTP(ctx, user.ID); err != nil {
			slog.Error("enable totp failed", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}

	sess.TwoFADone = true
	if err := a.sessions.Update(ctx, r, sess); err != nil {
		slog.Error("session update failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	slog.Info("admin signed in", "user_id", user.ID)
	http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
}

// invalidCode re-renders whichever 2FA page the user came from.
func (a *Auth) invalidCode(w http.ResponseWriter, r *http.Request, user *models.User) {
	const msg = "Invalid code. Please try again."
	if user.TOTPEnabled {
		a.renderer.PageStatus(w, r, http.StatusUnauthorized, "2fa_verify", &render.PageData{
			Title: "Two-Factor Authentication",
			Data:  map[string]any{"Error": msg},
		})
		return
	}

	data := map[string]any{"Error": msg}
	if key, err := keyFor(user.Email, *user.TOTPSecret); err == nil {
		if view, err := enrollment(key); err == nil {
			view["Error"] = msg
			data = view
		}
	}
	a.renderer.PageStatus(w, r, http.StatusUnauthorized, "2fa_setup", &render.PageData{
		Title: "Set Up Two-Factor Authentication",
		Data:  data,
	})
}

// Logout destroys the session.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	a.sessions.Destroy(r.Context(), w, r)
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}
