package util

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var videoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// IsVideoID reports whether s has the shape of a YouTube video ID.
func IsVideoID(s string) bool {
	return videoIDRe.MatchString(s)
}

// ParseTarget accepts either a bare video ID or a URL. For YouTube URLs the
// video ID is extracted when present. Other hosts are passed through as a
// URL for yt-dlp to handle.
func ParseTarget(raw string) (id string, rawURL string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", fmt.Errorf("empty target")
	}
	if IsVideoID(raw) {
		return raw, "", nil
	}

	u, perr := url.Parse(raw)
	if perr == nil && (u.Scheme == "" || u.Host == "") {
		if u2, e2 := url.Parse("https://" + raw); e2 == nil {
			u = u2
		}
	}
	if perr != nil || u == nil || u.Host == "" || !strings.Contains(u.Host, ".") {
		return "", "", fmt.Errorf("invalid video ID or URL %q", raw)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		if v := u.Query().Get("v"); IsVideoID(v) {
			return v, u.String(), nil
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
			if rest, ok := strings.CutPrefix(u.Path, prefix); ok && IsVideoID(strings.Trim(rest, "/")) {
				return strings.Trim(rest, "/"), u.String(), nil
			}
		}
	case "youtu.be":
		if v := strings.Trim(u.Path, "/"); IsVideoID(v) {
			return v, u.String(), nil
		}
	}
	return "", u.String(), nil
}
