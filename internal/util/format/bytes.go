// Package format renders and parses byte sizes as yt-dlp prints them.
package format

import (
	"strconv"
	"strings"
)

var units = []string{"B", "KB", "MB", "GB", "TB"}

// HumanizeBytes renders b in binary units with one decimal, e.g. "1.5 MB".
func HumanizeBytes(b int64) string {
	if b < 1024 {
		return strconv.FormatInt(b, 10) + " B"
	}
	v := float64(b)
	i := 0
	for v >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}
	return strconv.FormatFloat(v, 'f', 1, 64) + " " + units[i]
}

var multipliers = map[string]float64{
	"B":   1,
	"KIB": 1 << 10, "MIB": 1 << 20, "GIB": 1 << 30, "TIB": 1 << 40,
	"KB": 1e3, "MB": 1e6, "GB": 1e9, "TB": 1e12,
}

// ParseSize reads a size like "10.50MiB" or "~1.2GiB" from a yt-dlp
// progress line. ok is false for "Unknown" and other non-sizes.
func ParseSize(s string) (n int64, ok bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "~")
	i := strings.IndexFunc(s, func(r rune) bool { return (r < '0' || r > '9') && r != '.' })
	if i <= 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return 0, false
	}
	m, found := multipliers[strings.ToUpper(strings.TrimSpace(s[i:]))]
	if !found {
		return 0, false
	}
	return int64(v * m), true
}
