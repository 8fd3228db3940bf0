package scraper

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/go-kit/log/level"
)

var (
	// ErrInvalidAuth means the router rejected the credentials.
	ErrInvalidAuth = errors.New("cudy: invalid credentials")
	// ErrCannotConnect means the router could not be reached at all.
	ErrCannotConnect = errors.New("cudy: cannot connect")
)

// extractHidden pulls the value of a named hidden input out of a login
// or action page.
func extractHidden(pageHTML, name string) string {
	re := regexp.MustCompile(`name="` + regexp.QuoteMeta(name) + `"[^>]*value="([^"]*)"`)
	if m := re.FindStringSubmatch(pageHTML); m != nil {
		return m[1]
	}
	return ""
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// luciPassword derives the login hash the modern firmware expects:
// sha256(sha256(password+salt) + token).
func luciPassword(password, salt, token string) string {
	h1 := sha256Hex(password + salt)
	if token == "" {
		return h1
	}
	return sha256Hex(h1 + token)
}

// authenticateModern runs the salted-SHA-256 login used by the 5G
// models. reached reports whether any HTTP exchange completed, so the
// caller can tell a bad password from an unreachable host.
func (s *Scraper) authenticateModern(ctx context.Context) (reached, ok bool) {
	loginURL := s.pageURL("")

	status, pageHTML, err := s.fetch(ctx, http.MethodGet, loginURL, nil, s.BaseURL+"/")
	if err != nil {
		level.Debug(s.Logger).Log("msg", "login page fetch failed", "err", err)
		return false, false
	}

	// The login page may answer 403 and still carry the form.
	csrf := extractHidden(pageHTML, "_csrf")
	token := extractHidden(pageHTML, "token")
	salt := extractHidden(pageHTML, "salt")
	level.Debug(s.Logger).Log("msg", "login page", "status", status,
		"csrf", csrf != "", "token", token != "", "salt", salt != "")

	if salt == "" || token == "" {
		return true, false
	}

	form := url.Values{
		"_csrf":         {csrf},
		"token":         {token},
		"salt":          {salt},
		"luci_username": {s.User},
		"luci_password": {luciPassword(s.Pass, salt, token)},
		"zonename":      {"UTC"},
		"timeclock":     {"0"},
	}

	status, _, err = s.fetch(ctx, http.MethodPost, loginURL, form, s.BaseURL+"/")
	if err != nil {
		level.Debug(s.Logger).Log("msg", "login post failed", "err", err)
		return true, false
	}

	// Success is a sysauth cookie, regardless of status code.
	if s.hasSessionCookie() {
		level.Debug(s.Logger).Log("msg", "modern auth succeeded")
		return true, true
	}
	level.Debug(s.Logger).Log("msg", "modern auth: no sysauth cookie", "status", status)
	return true, false
}

// authenticateLegacy runs the plaintext form login of the older
// firmware generation.
func (s *Scraper) authenticateLegacy(ctx context.Context) (reached, ok bool) {
	form := url.Values{
		"luci_username": {s.User},
		"luci_password": {s.Pass},
		"luci_language": {"en"},
	}

	status, _, err := s.fetch(ctx, http.MethodPost, s.BaseURL+"/cgi-bin/luci", form, s.BaseURL+"/")
	if err != nil {
		level.Debug(s.Logger).Log("msg", "legacy auth failed", "err", err)
		return false, false
	}

	if status < 400 && s.hasSessionCookie() {
		level.Debug(s.Logger).Log("msg", "legacy auth succeeded")
		return true, true
	}
	return true, false
}

// Authenticate establishes a fresh session. The modern flow is tried
// first and once more after a short delay (the router rotates tokens
// during boot), then the legacy flow. ErrInvalidAuth means the router
// answered and refused; ErrCannotConnect means it never answered.
func (s *Scraper) Authenticate(ctx context.Context) error {
	s.clearSession()

	anyReached := false

	reached, ok := s.authenticateModern(ctx)
	anyReached = anyReached || reached
	if ok {
		return nil
	}

	select {
	case <-time.After(400 * time.Millisecond):
	case <-ctx.Done():
		return fmt.Errorf("cudy: authenticate: %w", ctx.Err())
	}

	reached, ok = s.authenticateModern(ctx)
	anyReached = anyReached || reached
	if ok {
		return nil
	}

	level.Debug(s.Logger).Log("msg", "modern auth failed, trying legacy")
	reached, ok = s.authenticateLegacy(ctx)
	anyReached = anyReached || reached
	if ok {
		return nil
	}

	if anyReached {
		return ErrInvalidAuth
	}
	return ErrCannotConnect
}
