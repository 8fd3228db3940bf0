package scraper

import (
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Per-page parsers. Each one runs the table extractor, probes an ordered
// list of observed alias labels per logical field and applies the
// relevant normalizer. The alias lists are empirically discovered across
// firmware builds and must be preserved verbatim.

var firmwareAliases = []string{
	"Firmware Version", "Firmware", "Software Version", "Version",
	"FW Version", "Firmware Ver", "Firmware Ver.", "System Version",
	"Router Firmware", "Current Version", "SW Version", "Build Version",
	"Release",
}

// Last-resort firmware hunting: some builds only expose the version in
// inline script variables or data attributes.
var firmwarePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)["']?(?:firmware|fw|version)["']?\s*[=:]\s*["']([\d.]+[^"']*)["'\s,]`),
	regexp.MustCompile(`(?i)data-firmware=["']([^"']*)["'\s]`),
	regexp.MustCompile(`>\s*([vV]?\d+\.\d+\.\d+[^<]*)\s*<`),
	regexp.MustCompile(`(?i)Firmware[:\s]+([vV]?\d+\.\d+\.\d+[^\s<]*)`),
	regexp.MustCompile(`(?i)Firmware Version</th><th[^>]*>([^<]+)<`),
}

// ParseSystemStatus parses the system status page (uptime, firmware,
// local time). The input is usually several pages concatenated, since no
// single endpoint reliably exposes the firmware version.
func ParseSystemStatus(inputHTML string) Module {
	raw := ParseTables(inputHTML)

	uptime := SecondsDuration(pickFirst(raw, "Uptime", "System Uptime"))

	firmware := pickFirst(raw, firmwareAliases...)
	if firmware == "" && inputHTML != "" {
		for _, pattern := range firmwarePatterns {
			if m := pattern.FindStringSubmatch(inputHTML); m != nil {
				firmware = strings.TrimSpace(m[1])
				break
			}
		}
	}

	localTime := pickFirst(raw, "Local Time", "System Time", "Time", "Current Time", "Router Time")

	return Module{
		"uptime":           {Value: numVal(uptime)},
		"local_time":       {Value: strOrNil(localTime)},
		"firmware_version": {Value: strOrNil(firmware)},
	}
}

// ParseDataUsage parses the cellular data statistics page.
func ParseDataUsage(inputHTML string) Module {
	raw := ParseTables(inputHTML)

	return Module{
		"current_traffic": {Value: numVal(ParseDataSize(raw["Current Traffic:"]))},
		"monthly_traffic": {Value: numVal(ParseDataSize(raw["Monthly Traffic:"]))},
		"total_traffic":   {Value: numVal(ParseDataSize(raw["Total Traffic:"]))},
	}
}

var selSMSHeader = cascadia.MustCompile("th.text-primary")

// ParseSMSStatus parses the SMS status page. The unread count lives in a
// header cell pair rather than a labeled row.
func ParseSMSStatus(inputHTML string) Module {
	raw := ParseTables(inputHTML)

	newMessages := 0
	if doc, err := html.Parse(strings.NewReader(inputHTML)); err == nil {
		if header := cascadia.Query(doc, selSMSHeader); header != nil {
			for sib := header.NextSibling; sib != nil; sib = sib.NextSibling {
				if sib.Type == html.ElementNode && sib.DataAtom == atom.Th {
					if n := AsInt(nodeText(sib)); n != nil {
						newMessages = *n
					}
					break
				}
			}
		}
	}

	return Module{
		"inbox_count":  {Value: intVal(AsInt(raw["Inbox"]))},
		"outbox_count": {Value: intVal(AsInt(raw["Outbox"]))},
		"unread_count": {Value: newMessages},
	}
}

// ParseWifiStatus parses one radio's wireless status page.
func ParseWifiStatus(inputHTML string) Module {
	raw := ParseTables(inputHTML)

	return Module{
		"ssid":    {Value: strOrNil(raw["SSID"])},
		"channel": {Value: intVal(AsInt(raw["Channel"]))},
		"enabled": {Value: strings.Contains(inputHTML, "Enabled")},
	}
}

// ParseLANStatus parses the LAN status page.
func ParseLANStatus(inputHTML string) Module {
	raw := ParseTables(inputHTML)

	return Module{
		"ip_address":  {Value: strOrNil(raw["IP Address"])},
		"mac_address": {Value: strOrNil(raw["MAC-Address"])},
	}
}

var wifi2GAliases = []string{
	"2.4G Clients", "2.4G clients", "2.4GHz Clients", "WiFi 2.4G Clients",
	"Wireless 2.4G", "2.4G", "2.4 GHz", "2.4GHz", "WLAN 2.4G",
	"Wi-Fi 2.4G", "2.4G WiFi",
}

var wifi5GAliases = []string{
	"5G Clients", "5G clients", "5GHz Clients", "WiFi 5G Clients",
	"Wireless 5G", "5G", "5 GHz", "5GHz", "WLAN 5G", "Wi-Fi 5G",
	"5G WiFi",
}

var totalClientAliases = []string{
	"Total Clients", "Total clients", "Total", "Connected Clients",
	"Online Clients", "All Clients", "Clients", "Online", "Connected",
}

var (
	clients2GPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)["']?(?:wifi_?2g|wlan_?2g|clients_?2g|2g_?clients)["']?\s*[=:]\s*(\d+)`),
		regexp.MustCompile(`(?i)2\.4[Gg].*?(\d+)\s*(?:client|device)`),
	}
	clients5GPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)["']?(?:wifi_?5g|wlan_?5g|clients_?5g|5g_?clients)["']?\s*[=:]\s*(\d+)`),
		regexp.MustCompile(`(?i)5[Gg].*?(\d+)\s*(?:client|device)`),
	}
	clientsTotalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)["']?(?:total_?clients|clients_?total|online_?clients)["']?\s*[=:]\s*(\d+)`),
		regexp.MustCompile(`(?i)(?:total|all).*?(\d+)\s*(?:client|device)`),
	}
)

// ParseDevicesStatus parses per-category connected-client counts from
// the devices status summary, falling back to JS-embedded variables when
// no table matches. A missing total is computed as the sum of the known
// categories rather than left nil.
func ParseDevicesStatus(inputHTML string) Module {
	raw := ParseTables(inputHTML)

	wifi2G := firstCount(raw, wifi2GAliases...)
	wifi5G := firstCount(raw, wifi5GAliases...)
	wired := AsInt(raw["Wired"])
	total := firstCount(raw, totalClientAliases...)

	if inputHTML != "" && wifi2G == nil && wifi5G == nil && total == nil {
		wifi2G = firstPatternInt(inputHTML, clients2GPatterns)
		wifi5G = firstPatternInt(inputHTML, clients5GPatterns)
		total = firstPatternInt(inputHTML, clientsTotalPatterns)
	}

	if total == nil && (wifi2G != nil || wifi5G != nil) {
		sum := intOr0(wifi2G) + intOr0(wifi5G) + intOr0(wired)
		total = &sum
	}

	return Module{
		"wifi_2g_clients": {Value: intVal(wifi2G)},
		"wifi_5g_clients": {Value: intVal(wifi5G)},
		"wired_clients":   {Value: intVal(wired)},
		"total_clients":   {Value: intVal(total)},
	}
}

// firstCount probes alias labels for a positive count. Zero counts are
// skipped to the next alias: some templates render an unrelated zero
// under a colliding label.
func firstCount(raw map[string]string, keys ...string) *int {
	for _, key := range keys {
		if v := AsInt(raw[key]); v != nil && *v != 0 {
			return v
		}
	}
	return nil
}

func firstPatternInt(text string, patterns []*regexp.Regexp) *int {
	for _, pattern := range patterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return AsInt(m[1])
		}
	}
	return nil
}
