package scraper

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Scraper talks to one Cudy router's LuCI admin interface over an
// authenticated cookie session. Methods are safe for use from a single
// goroutine; the exporter serializes access with its own mutex.
type Scraper struct {
	BaseURL string

	User string
	Pass string

	Logger log.Logger

	// Features overrides the built-in per-model feature matrix when set.
	Features FeatureMatrix

	client *http.Client
}

// New builds a Scraper for the given host. A bare host defaults to
// https; the routers serve self-signed certificates, so verification
// is disabled.
func New(host, user, pass string, logger log.Logger) (*Scraper, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	host = strings.TrimSpace(host)
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	host = strings.TrimRight(host, "/")

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("scraper: creating cookie jar: %w", err)
	}

	return &Scraper{
		BaseURL: host,
		User:    user,
		Pass:    pass,
		Logger:  logger,
		client: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

func (s *Scraper) pageURL(page string) string {
	return s.BaseURL + "/cgi-bin/luci/" + page
}

// fetch performs one request with a small retry budget for transient
// transport failures. Returns the final status code and the full body.
func (s *Scraper) fetch(ctx context.Context, method, rawURL string, form url.Values, referer string) (int, string, error) {
	var (
		status int
		body   string
	)

	operation := func() error {
		var reqBody io.Reader
		if form != nil {
			reqBody = strings.NewReader(form.Encode())
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", userAgent)
		if referer != "" {
			req.Header.Set("Referer", referer)
		}
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.Header.Set("Origin", s.BaseURL)
		}

		r, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer r.Body.Close()

		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return err
		}

		status = r.StatusCode
		body = string(raw)

		switch {
		case status >= 500,
			status == http.StatusTooManyRequests,
			status == http.StatusRequestTimeout:
			return fmt.Errorf("transient status %d", status)
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		if status != 0 {
			// The last exchange completed; surface what the router said.
			return status, body, nil
		}
		return 0, "", err
	}
	return status, body, nil
}

// Get retrieves an admin page, re-authenticating once on a 403. A page
// that cannot be fetched yields the empty string; per-page failures
// never abort a collection cycle. silent suppresses the error-level
// line for endpoints that are expected to be missing on some models.
func (s *Scraper) Get(ctx context.Context, page string, silent bool) string {
	for attempt := 0; attempt < 2; attempt++ {
		status, body, err := s.fetch(ctx, http.MethodGet, s.pageURL(page), nil, s.pageURL("admin"))
		if err != nil {
			level.Debug(s.Logger).Log("msg", "request failed", "page", page, "err", err)
			break
		}

		if status == http.StatusForbidden {
			if err := s.Authenticate(ctx); err != nil {
				if !silent {
					level.Error(s.Logger).Log("msg", "authentication failed", "page", page, "err", err)
				}
				break
			}
			continue
		}
		if status < 400 {
			return body
		}
		break
	}

	if !silent {
		level.Debug(s.Logger).Log("msg", "failed to retrieve page", "page", page)
	}
	return ""
}

// clearSession drops all cookies ahead of a fresh login.
func (s *Scraper) clearSession() {
	if jar, err := cookiejar.New(nil); err == nil {
		s.client.Jar = jar
	}
}

// hasSessionCookie reports whether the jar holds a sysauth cookie for
// the router.
func (s *Scraper) hasSessionCookie() bool {
	u, err := url.Parse(s.pageURL(""))
	if err != nil {
		return false
	}
	for _, cookie := range s.client.Jar.Cookies(u) {
		if cookie.Name == "sysauth" && cookie.Value != "" {
			return true
		}
	}
	return false
}
