package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-kit/log/level"
)

// Control actions. Every action follows the same shape the LuCI forms
// expect: GET the page, lift the anti-CSRF token out of its hidden
// input, POST the token plus the form's submit fields. Actions return
// the final HTTP status and a short response excerpt for the caller to
// surface; an excerpt, not an error, because a 302 with an opaque body
// is the router's idea of success.

var (
	bandSelectRe = regexp.MustCompile(`(?i)<select[^>]*name="([^"]*band[^"]*)"`)
	atResponseRe = regexp.MustCompile(`<textarea[^>]*id="cbid\.atcmd\.1\._custom"[^>]*>([^<]*)</textarea>`)
	ledInputRe   = regexp.MustCompile(`(?i)<input[^>]*name="[^"]*led[^"]*"[^>]*>`)
	ledOnRe      = regexp.MustCompile(`(?i)led["\s]*[:=]\s*["']?(?:on|1|true|enabled)`)
	ledOffRe     = regexp.MustCompile(`(?i)led["\s]*[:=]\s*["']?(?:off|0|false|disabled)`)
)

func excerpt(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// submitTokenForm runs the GET-token-POST dance against one page.
func (s *Scraper) submitTokenForm(ctx context.Context, page, referer string, fields url.Values) (int, string) {
	pageURL := s.pageURL(page)

	status, pageHTML, err := s.fetch(ctx, http.MethodGet, pageURL, nil, referer)
	if err != nil {
		level.Error(s.Logger).Log("msg", "action page fetch failed", "page", page, "err", err)
		return 0, excerpt(err.Error(), 220)
	}

	token := extractHidden(pageHTML, "token")
	if token == "" {
		return status, fmt.Sprintf("no token on %s", page)
	}

	form := url.Values{
		"token":      {token},
		"timeclock":  {"0"},
		"cbi.submit": {"1"},
	}
	for key, values := range fields {
		form[key] = values
	}

	status, body, err := s.fetch(ctx, http.MethodPost, pageURL, form, referer)
	if err != nil {
		level.Error(s.Logger).Log("msg", "action post failed", "page", page, "err", err)
		return 0, excerpt(err.Error(), 220)
	}
	return status, excerpt(body, 220)
}

// RebootRouter triggers a full router reboot.
func (s *Scraper) RebootRouter(ctx context.Context) (int, string) {
	return s.submitTokenForm(ctx, "admin/system/reboot/reboot", s.pageURL("admin/panel"),
		url.Values{"cbi.apply": {"OK"}})
}

// Restart5GConnection resets the cellular modem, which restarts the
// carrier connection.
func (s *Scraper) Restart5GConnection(ctx context.Context) (int, string) {
	return s.submitTokenForm(ctx, "admin/network/gcom/reset", s.pageURL("admin/network/gcom/status"),
		url.Values{"cbid.reset.1.reset": {"Modem Reset"}})
}

// Switch5GBand locks the modem to the given band by submitting the
// band select on the cellular settings page.
func (s *Scraper) Switch5GBand(ctx context.Context, bandValue string) (int, string) {
	page := "admin/network/gcom/setting"
	pageURL := s.pageURL(page)

	status, pageHTML, err := s.fetch(ctx, http.MethodGet, pageURL, nil, s.pageURL("admin"))
	if err != nil {
		level.Error(s.Logger).Log("msg", "band page fetch failed", "err", err)
		return 0, excerpt(err.Error(), 220)
	}

	token := extractHidden(pageHTML, "token")
	if token == "" {
		return status, "no token on page"
	}
	m := bandSelectRe.FindStringSubmatch(pageHTML)
	if m == nil {
		return status, "no band select found"
	}

	form := url.Values{
		"token":      {token},
		"timeclock":  {"0"},
		"cbi.submit": {"1"},
		m[1]:         {bandValue},
	}
	status, body, err := s.fetch(ctx, http.MethodPost, pageURL, form, s.pageURL("admin"))
	if err != nil {
		level.Error(s.Logger).Log("msg", "band switch failed", "err", err)
		return 0, excerpt(err.Error(), 220)
	}
	return status, excerpt(body, 220)
}

// SendSMS sends a text message through the cellular modem.
func (s *Scraper) SendSMS(ctx context.Context, phoneNumber, message string) (int, string) {
	return s.submitTokenForm(ctx, "admin/network/gcom/sms/smsnew?nomodal=&iface=4g",
		s.pageURL("admin/network/gcom/sms"),
		url.Values{
			"cbid.smsnew.1.phone":   {phoneNumber},
			"cbid.smsnew.1.content": {message},
			"cbid.smsnew.1.send":    {"Send"},
		})
}

// SendATCommand runs an AT command against the modem and returns the
// modem's response when the page echoes it back in its result textarea.
func (s *Scraper) SendATCommand(ctx context.Context, command string) (int, string) {
	page := "admin/network/gcom/atcmd?embedded=&iface=4g"
	pageURL := s.pageURL(page)
	referer := s.pageURL("admin/network/gcom/config")

	status, pageHTML, err := s.fetch(ctx, http.MethodGet, pageURL, nil, referer)
	if err != nil {
		level.Error(s.Logger).Log("msg", "at command page fetch failed", "err", err)
		return 0, excerpt(err.Error(), 220)
	}

	token := extractHidden(pageHTML, "token")
	if token == "" {
		return status, "no token on AT command page"
	}

	form := url.Values{
		"token":                {token},
		"timeclock":            {"0"},
		"cbi.submit":           {"1"},
		"cbid.atcmd.1.command": {command},
		"cbid.atcmd.1.refresh": {"AT Command"},
	}
	status, body, err := s.fetch(ctx, http.MethodPost, pageURL, form, referer)
	if err != nil {
		level.Error(s.Logger).Log("msg", "at command failed", "err", err)
		return 0, excerpt(err.Error(), 220)
	}

	if m := atResponseRe.FindStringSubmatch(body); m != nil {
		return status, strings.TrimSpace(m[1])
	}
	return status, excerpt(body, 500)
}

// RebootMeshDevice reboots one satellite. The management endpoint and
// its form fields vary by firmware, so several combinations are probed
// until one answers 200 or 302.
func (s *Scraper) RebootMeshDevice(ctx context.Context, macAddress string) (int, string) {
	endpoints := []string{
		"admin/network/mesh/node",
		"admin/network/mesh/reboot",
		"admin/network/mesh/manage",
	}
	referer := s.pageURL("admin/network/mesh")

	for _, endpoint := range endpoints {
		pageURL := s.pageURL(endpoint)

		status, pageHTML, err := s.fetch(ctx, http.MethodGet, pageURL, nil, referer)
		if err != nil || status == http.StatusNotFound {
			continue
		}
		token := extractHidden(pageHTML, "token")
		if token == "" {
			continue
		}

		patterns := []url.Values{
			{"mac": {macAddress}, "action": {"reboot"}},
			{"cbid.mesh.1.mac": {macAddress}, "cbid.mesh.1.reboot": {"Reboot"}},
			{"node_mac": {macAddress}, "reboot": {"1"}},
		}
		for _, fields := range patterns {
			form := url.Values{
				"token":      {token},
				"timeclock":  {"0"},
				"cbi.submit": {"1"},
			}
			for key, values := range fields {
				form[key] = values
			}
			status, _, err := s.fetch(ctx, http.MethodPost, pageURL, form, referer)
			if err != nil {
				continue
			}
			if status == http.StatusOK || status == http.StatusFound {
				level.Debug(s.Logger).Log("msg", "mesh reboot succeeded", "mac", macAddress, "endpoint", endpoint)
				return status, fmt.Sprintf("reboot initiated for %s", macAddress)
			}
		}
	}

	level.Error(s.Logger).Log("msg", "mesh reboot failed, no working endpoint", "mac", macAddress)
	return 0, fmt.Sprintf("failed to reboot mesh device %s", macAddress)
}

// SetMeshLED switches a satellite's LEDs on or off, probing the known
// endpoint and field combinations.
func (s *Scraper) SetMeshLED(ctx context.Context, macAddress string, enabled bool) (int, string) {
	endpoints := []string{
		"admin/network/mesh/led",
		"admin/network/mesh/settings",
		"admin/system/led",
	}
	referer := s.pageURL("admin/network/mesh")

	ledValue := "0"
	state := "off"
	if enabled {
		ledValue = "1"
		state = "on"
	}
	trigger := "none"
	if enabled {
		trigger = "default-on"
	}

	for _, endpoint := range endpoints {
		pageURL := s.pageURL(endpoint)

		status, pageHTML, err := s.fetch(ctx, http.MethodGet, pageURL, nil, referer)
		if err != nil || status == http.StatusNotFound {
			continue
		}
		token := extractHidden(pageHTML, "token")
		if token == "" {
			continue
		}

		patterns := []url.Values{
			{"mac": {macAddress}, "led": {ledValue}},
			{"cbid.led.1.enable": {ledValue}, "node_mac": {macAddress}},
			{"led_enable": {ledValue}, "mac_address": {macAddress}},
			// Global LED trigger, no MAC needed.
			{"cbid.system.led.trigger": {trigger}},
		}
		for _, fields := range patterns {
			form := url.Values{
				"token":      {token},
				"timeclock":  {"0"},
				"cbi.submit": {"1"},
			}
			for key, values := range fields {
				form[key] = values
			}
			status, _, err := s.fetch(ctx, http.MethodPost, pageURL, form, referer)
			if err != nil {
				continue
			}
			if status == http.StatusOK || status == http.StatusFound {
				level.Debug(s.Logger).Log("msg", "mesh led set", "state", state, "mac", macAddress, "endpoint", endpoint)
				return status, fmt.Sprintf("LED %s for %s", state, macAddress)
			}
		}
	}

	level.Error(s.Logger).Log("msg", "mesh led control failed, no working endpoint", "mac", macAddress)
	return 0, fmt.Sprintf("failed to set LED for mesh device %s", macAddress)
}

// GetMeshLEDState reads a satellite's current LED state. Defaults to on
// when no endpoint exposes it.
func (s *Scraper) GetMeshLEDState(ctx context.Context, macAddress string) bool {
	endpoints := []string{
		"admin/network/mesh/led",
		"admin/network/mesh/settings",
		"admin/network/mesh/status",
	}
	referer := s.pageURL("admin/network/mesh")

	for _, endpoint := range endpoints {
		status, pageHTML, err := s.fetch(ctx, http.MethodGet, s.pageURL(endpoint), nil, referer)
		if err != nil || status == http.StatusNotFound {
			continue
		}

		lower := strings.ToLower(pageHTML)
		if !strings.Contains(lower, strings.ToLower(macAddress)) && !strings.Contains(lower, "led") {
			continue
		}

		if ledOnRe.MatchString(pageHTML) {
			return true
		}
		if ledOffRe.MatchString(pageHTML) {
			return false
		}
		if tag := ledInputRe.FindString(pageHTML); tag != "" {
			return strings.Contains(strings.ToLower(tag), "checked")
		}
	}

	return true
}

// SetMainRouterLED controls the main router's own LEDs through the mesh
// LED endpoint using the reserved all-zero MAC.
func (s *Scraper) SetMainRouterLED(ctx context.Context, enabled bool) (int, string) {
	return s.SetMeshLED(ctx, "00:00:00:00:00:00", enabled)
}
