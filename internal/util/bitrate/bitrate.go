package bitrate

import (
	"strconv"
	"strings"
)

// AudioQuality converts a user bitrate like "192k" into the value yt-dlp
// takes for --audio-quality ("192K"). ok is false for "best" or empty,
// meaning the flag should be left out.
func AudioQuality(v string) (q string, ok bool) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "best") {
		return "", false
	}
	return strings.Replace(v, "k", "K", 1), true
}

// Kbps parses "192k", "192K" or "192" into 192. It returns 0 when v is
// not a bitrate.
func Kbps(v string) int {
	v = strings.TrimSuffix(strings.TrimSuffix(strings.TrimSpace(v), "k"), "K")
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
