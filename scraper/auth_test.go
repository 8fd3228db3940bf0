package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modernLoginPage = `<html><form>
	<input type="hidden" name="_csrf" value="csrf123">
	<input type="hidden" name="token" value="tok456">
	<input type="hidden" name="salt" value="salty">
</form></html>`

func newTestScraper(t *testing.T, serverURL string) *Scraper {
	t.Helper()
	s, err := New(serverURL, "admin", "secret", nil)
	require.NoError(t, err)
	return s
}

func TestExtractHidden(t *testing.T) {
	assert.Equal(t, "tok456", extractHidden(modernLoginPage, "token"))
	assert.Equal(t, "salty", extractHidden(modernLoginPage, "salt"))
	assert.Equal(t, "", extractHidden(modernLoginPage, "missing"))
}

func TestLuciPassword(t *testing.T) {
	h1 := sha256Hex("secret" + "salty")
	assert.Equal(t, sha256Hex(h1+"tok456"), luciPassword("secret", "salty", "tok456"))
	// Without a token only the salted pass is hashed.
	assert.Equal(t, h1, luciPassword("secret", "salty", ""))
}

func TestAuthenticateModern(t *testing.T) {
	var postedPassword string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// The login page can ride a 403 and still carry the form.
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(modernLoginPage))
			return
		}
		require.NoError(t, r.ParseForm())
		postedPassword = r.PostFormValue("luci_password")
		assert.Equal(t, "admin", r.PostFormValue("luci_username"))
		assert.Equal(t, "csrf123", r.PostFormValue("_csrf"))

		http.SetCookie(w, &http.Cookie{Name: "sysauth", Value: "session1", Path: "/cgi-bin/luci"})
		w.WriteHeader(http.StatusFound)
	}))
	defer server.Close()

	s := newTestScraper(t, server.URL)
	require.NoError(t, s.Authenticate(context.Background()))
	assert.Equal(t, luciPassword("secret", "salty", "tok456"), postedPassword)
	assert.True(t, s.hasSessionCookie())
}

func TestAuthenticateLegacyFallback(t *testing.T) {
	var legacyPassword string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// No salt or token: the modern flow cannot run.
			w.Write([]byte("<html>old login</html>"))
			return
		}
		require.NoError(t, r.ParseForm())
		legacyPassword = r.PostFormValue("luci_password")

		http.SetCookie(w, &http.Cookie{Name: "sysauth", Value: "session2", Path: "/cgi-bin/luci"})
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := newTestScraper(t, server.URL)
	require.NoError(t, s.Authenticate(context.Background()))
	// The legacy form carries the plaintext password.
	assert.Equal(t, "secret", legacyPassword)
}

func TestAuthenticateInvalidCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(modernLoginPage))
			return
		}
		// The router answers but never grants a session cookie.
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	s := newTestScraper(t, server.URL)
	err := s.Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrInvalidAuth)
}

func TestAuthenticateUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	s := newTestScraper(t, server.URL)
	err := s.Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrCannotConnect)
}

func TestGetReauthenticatesOn403(t *testing.T) {
	authenticated := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/cgi-bin/luci/" && r.Method == http.MethodGet:
			w.Write([]byte(modernLoginPage))
		case r.URL.Path == "/cgi-bin/luci/" && r.Method == http.MethodPost:
			authenticated = true
			http.SetCookie(w, &http.Cookie{Name: "sysauth", Value: "fresh", Path: "/cgi-bin/luci"})
			w.WriteHeader(http.StatusFound)
		case !authenticated:
			w.WriteHeader(http.StatusForbidden)
		default:
			w.Write([]byte("<html>panel</html>"))
		}
	}))
	defer server.Close()

	s := newTestScraper(t, server.URL)
	body := s.Get(context.Background(), "admin/panel", false)
	assert.True(t, authenticated)
	assert.Equal(t, "<html>panel</html>", body)
}

func TestGetReturnsEmptyOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	s := newTestScraper(t, server.URL)
	assert.Equal(t, "", s.Get(context.Background(), "admin/missing", true))
}

func TestNewNormalizesHost(t *testing.T) {
	s, err := New("192.168.10.1/", "admin", "secret", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://192.168.10.1", s.BaseURL)

	s, err = New("http://router.local", "admin", "secret", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://router.local", s.BaseURL)
}
