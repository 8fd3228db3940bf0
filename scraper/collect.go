package scraper

import (
	"context"
	"net/http"
	"regexp"
	"strings"
)

// Features gates which modules GetData attempts per router model. Nil
// means the built-in defaults.
func (s *Scraper) matrix() FeatureMatrix {
	if s.Features != nil {
		return s.Features
	}
	return DefaultFeatureMatrix()
}

var wanMarkers = []string{"public ip", "ip address", "gateway", "subnet", "protocol"}

// GetData polls every module the feature matrix supports for the given
// model and returns the merged snapshot. Individual page failures
// degrade to empty modules or absent fields; GetData itself never
// fails.
func (s *Scraper) GetData(ctx context.Context, opts Options, model string) Snapshot {
	matrix := s.matrix()
	data := Snapshot{}

	if matrix.Supports(model, ModuleModem) {
		data[ModuleModem] = ParseModemInfo(
			s.Get(ctx, "admin/network/gcom/status", false) +
				s.Get(ctx, "admin/network/gcom/status?detail=1&iface=4g", false))
	}

	if matrix.Supports(model, ModuleDevices) {
		devices := ParseDevices(s.Get(ctx, "admin/network/devices/devlist?detail=1", false), opts.DeviceList)

		// Client counts live on a separate page; the main panel is a
		// fallback source when the status page lacks them.
		statusHTML := s.Get(ctx, "admin/network/devices/status?detail=1", false)
		if statusHTML == "" || !strings.Contains(strings.ToLower(statusHTML), "client") {
			statusHTML += s.Get(ctx, "admin/panel", false)
		}
		for key, field := range ParseDevicesStatus(statusHTML) {
			devices[key] = field
		}
		data[ModuleDevices] = devices
	}

	if matrix.Supports(model, ModuleSystem) {
		// No single endpoint reliably exposes the firmware version, so
		// several pages are concatenated for the parser to hunt through.
		data[ModuleSystem] = ParseSystemStatus(
			s.Get(ctx, "admin/system/status", false) +
				s.Get(ctx, "admin/panel", false) +
				s.Get(ctx, "admin/status/overview", true) +
				s.Get(ctx, "admin/system/system", true))
	}

	if matrix.Supports(model, ModuleDataUsage) {
		data[ModuleDataUsage] = ParseDataUsage(s.Get(ctx, "admin/network/gcom/statistics?iface=4g", false))
	}

	if matrix.Supports(model, ModuleSMS) {
		data[ModuleSMS] = ParseSMSStatus(s.Get(ctx, "admin/network/gcom/sms/status", false))
	}

	if matrix.Supports(model, ModuleWifi2G) {
		data[ModuleWifi2G] = ParseWifiStatus(s.Get(ctx, "admin/network/wireless/status?iface=wlan00", false))
	}

	if matrix.Supports(model, ModuleWifi5G) {
		data[ModuleWifi5G] = ParseWifiStatus(s.Get(ctx, "admin/network/wireless/status?iface=wlan10", false))
	}

	if matrix.Supports(model, ModuleLAN) {
		data[ModuleLAN] = ParseLANStatus(s.Get(ctx, "admin/network/lan/status", false))
	}

	if matrix.Supports(model, ModuleVPN) {
		data[ModuleVPN] = ParseVPNStatus(s.Get(ctx, "admin/network/vpn/openvpns/status?status=", false))
	}

	if matrix.Supports(model, ModuleWAN) {
		// Some models answer with a generic empty page; probe for known
		// markers and admit the module only when it carries a value.
		wanHTML := s.Get(ctx, "admin/network/wan/status?detail=1&iface=wan", true)
		if hasAnyMarker(wanHTML, wanMarkers) {
			wan := ParseWANStatus(wanHTML)
			if moduleHasValue(wan) {
				data[ModuleWAN] = wan
			}
		}
	}

	if matrix.Supports(model, ModuleDHCP) {
		data[ModuleDHCP] = ParseDHCPStatus(s.Get(ctx, "admin/services/dhcp/status?detail=1", false))
	}

	if matrix.Supports(model, ModuleMesh) {
		data[ModuleMesh] = s.collectMesh(ctx)
	}

	return data
}

func hasAnyMarker(pageHTML string, markers []string) bool {
	if pageHTML == "" {
		return false
	}
	lower := strings.ToLower(pageHTML)
	for _, marker := range markers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func moduleHasValue(m Module) bool {
	for _, field := range m {
		if field.Value != nil && field.Value != "" {
			return true
		}
	}
	return false
}

var modelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)class="[^"]*(?:model|banner)[^"]*"[^>]*>\s*([A-Z][A-Za-z0-9 .\-]+?)\s*<`),
	regexp.MustCompile(`\b([A-Z]{1,3}\d{1,4}[A-Z]{0,2}\s+V\d+\.\d+)\b`),
	regexp.MustCompile(`(?i)Cudy\s+([A-Z0-9][A-Z0-9\-]*)`),
	regexp.MustCompile(`(?i)<title>\s*(?:Cudy\s*)?([^<]+?)\s*[-|]`),
}

// GetModel scrapes the hardware model from the login page banner. The
// result keys the feature matrix; "default" when nothing recognizable
// is found.
func (s *Scraper) GetModel(ctx context.Context) string {
	_, pageHTML, err := s.fetch(ctx, http.MethodGet, s.pageURL(""), nil, s.BaseURL+"/")
	if err != nil || pageHTML == "" {
		return "default"
	}

	for _, pattern := range modelPatterns {
		if m := pattern.FindStringSubmatch(pageHTML); m != nil {
			if model := strings.TrimSpace(m[1]); model != "" {
				return model
			}
		}
	}
	return "default"
}
