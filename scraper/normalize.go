package scraper

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Every normalizer in this file accepts a possibly-empty or placeholder
// string and returns nil rather than failing on unparseable input.

// ParseSpeed converts a transfer speed string to megabits per second.
// An unrecognized suffix yields 0, not nil; the firmware only ever emits
// the four suffixes below and callers rely on the zero for them.
func ParseSpeed(s string) *float64 {
	if s == "" {
		return nil
	}
	lower := strings.ToLower(s)
	number := func() *float64 {
		f, err := strconv.ParseFloat(strings.Split(s, " ")[0], 64)
		if err != nil {
			return nil
		}
		return &f
	}
	switch {
	case strings.HasSuffix(lower, " kbps"):
		if f := number(); f != nil {
			return f64(round2(*f / 1024))
		}
		return nil
	case strings.HasSuffix(lower, " mbps"):
		return number()
	case strings.HasSuffix(lower, " gbps"):
		if f := number(); f != nil {
			return f64(*f * 1024)
		}
		return nil
	case strings.HasSuffix(lower, " bps"):
		if f := number(); f != nil {
			return f64(round2(*f / 1024 / 1024))
		}
		return nil
	}
	return f64(0)
}

var dataSizeRe = regexp.MustCompile(`(?i)^([\d.]+)\s*(KB|MB|GB|TB|B)`)

// ParseDataSize converts a data size string like "219.49 GB" to
// megabytes.
func ParseDataSize(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	m := dataSizeRe.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	switch strings.ToUpper(m[2]) {
	case "B":
		return f64(value / 1024 / 1024)
	case "KB":
		return f64(value / 1024)
	case "MB":
		return f64(value)
	case "GB":
		return f64(value * 1024)
	case "TB":
		return f64(value * 1024 * 1024)
	}
	return f64(value)
}

// SecondsDuration parses durations like "03:01:16", "1 Day 03:01:16" or
// "2 years 3 months 10:00:00" into seconds. Month and year tokens are
// resolved with calendar arithmetic against the current time, since
// their lengths are not fixed.
func SecondsDuration(raw string) *float64 {
	return secondsDurationFrom(raw, time.Now())
}

func secondsDurationFrom(raw string, now time.Time) *float64 {
	if raw == "" {
		return nil
	}
	parts := strings.Fields(strings.ToLower(raw))

	var years, months, days int
	var clock time.Duration
	for i, part := range parts {
		switch {
		case strings.Count(part, ":") == 2:
			bits := strings.SplitN(part, ":", 3)
			clock += time.Duration(intOr0(AsInt(bits[0])))*time.Hour +
				time.Duration(intOr0(AsInt(bits[1])))*time.Minute +
				time.Duration(intOr0(AsInt(bits[2])))*time.Second
		case i == 0:
			continue
		case strings.HasPrefix(part, "year"):
			years += intOr0(AsInt(parts[i-1]))
		case strings.HasPrefix(part, "month"):
			months += intOr0(AsInt(parts[i-1]))
		case strings.HasPrefix(part, "week"):
			days += 7 * intOr0(AsInt(parts[i-1]))
		case strings.HasPrefix(part, "day"):
			days += intOr0(AsInt(parts[i-1]))
		}
	}

	past := now.AddDate(-years, -months, -days).Add(-clock)
	return f64(now.Sub(past).Seconds())
}

var (
	bandSlashRe = regexp.MustCompile(`(?i)^.*BAND\s*(\d+)\s*/\s*(\d+)\s*MHz.*$`)
	bandShortRe = regexp.MustCompile(`(?i)^[Bn](\d+)$`)
	bandNamedRe = regexp.MustCompile(`(?i)(?:LTE|NR|5G)?\s*Band\s*(\d+)`)
	bandDigitRe = regexp.MustCompile(`^\d+$`)
)

// Band canonicalizes a band descriptor to a "B<n>" token. Four observed
// formats are tried in order; the first match wins.
func Band(raw string) *string {
	if raw == "" {
		return nil
	}
	if m := bandSlashRe.FindStringSubmatch(raw); m != nil {
		return strP("B" + m[1])
	}
	if m := bandShortRe.FindStringSubmatch(strings.TrimSpace(raw)); m != nil {
		return strP("B" + m[1])
	}
	if m := bandNamedRe.FindStringSubmatch(raw); m != nil {
		return strP("B" + m[1])
	}
	if bandDigitRe.MatchString(strings.TrimSpace(raw)) {
		return strP("B" + strings.TrimSpace(raw))
	}
	return nil
}

// AsInt parses a decimal integer, nil on anything else (including the
// "-" placeholder the firmware uses for absent readings).
func AsInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// HexAsInt parses a hexadecimal integer (with or without 0x prefix),
// nil on anything else.
func HexAsInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	n, err := strconv.ParseInt(s, 16, 64)
	if err != nil {
		return nil
	}
	v := int(n)
	return &v
}

// SignalStrength buckets an RSSI reading into 0-4 bars. A missing or
// zero reading maps to the StateUnavailable sentinel, distinguishing
// "no reading" from a known weak signal.
func SignalStrength(rssi *int) any {
	if rssi == nil || *rssi == 0 {
		return StateUnavailable
	}
	switch {
	case *rssi > 20:
		return 4
	case *rssi > 15:
		return 3
	case *rssi > 10:
		return 2
	case *rssi > 5:
		return 1
	}
	return 0
}

// cleanText strips placeholder asterisks and whitespace and drops the
// not-a-value markers some firmware builds render.
func cleanText(value string) *string {
	cleaned := strings.TrimSpace(strings.ReplaceAll(value, "*", ""))
	if cleaned == "" {
		return nil
	}
	switch strings.ToLower(cleaned) {
	case "-", "--", "n/a", "na", "unknown":
		return nil
	}
	return &cleaned
}

// pickFirst returns the first non-empty value among the given alias
// labels.
func pickFirst(raw map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := raw[key]; v != "" {
			return v
		}
	}
	return ""
}

// uploadDownloadValues splits a combined "<upload> / <download>" session
// counter and normalizes both halves to megabytes.
func uploadDownloadValues(s string) (*float64, *float64) {
	if !strings.Contains(s, " / ") {
		return nil, nil
	}
	parts := strings.SplitN(s, " / ", 2)
	return ParseDataSize(strings.TrimSpace(parts[0])), ParseDataSize(strings.TrimSpace(parts[1]))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func f64(v float64) *float64 { return &v }

func strP(s string) *string { return &s }

func intOr0(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// Conversions from pointer results to Field values: a nil pointer maps
// to a nil Value, not a typed nil.

func numVal(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func intVal(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func strVal(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// strOrNil maps the empty string (an absent table label) to nil.
func strOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
