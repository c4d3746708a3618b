package youtube

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ronled86/ClipPilot/internal/model"
)

// DetermineLicense is a title/channel heuristic, not a rights check.
// Titles mentioning "creative commons" or "cc" are cc; channels containing
// "Your" or "Tutorial" are the user's own; everything else is standard.
func DetermineLicense(title, channel string) model.License {
	t := strings.ToLower(title)
	if strings.Contains(t, "creative commons") || strings.Contains(t, "cc") {
		return model.LicenseCC
	}
	if strings.Contains(channel, "Your") || strings.Contains(channel, "Tutorial") {
		return model.LicenseMine
	}
	return model.LicenseStandard
}

var durationRe = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// FormatDuration renders an ISO-8601 duration (PT#H#M#S) as H:MM:SS, or
// M:SS when there are no hours. Days, if present, fold into hours.
// Unparsable input yields "0:00".
func FormatDuration(iso string) string {
	m := durationRe.FindStringSubmatch(strings.TrimSpace(iso))
	if m == nil {
		return "0:00"
	}
	n := func(s string) int {
		v, _ := strconv.Atoi(s)
		return v
	}
	hours := n(m[1])*24 + n(m[2])
	minutes := n(m[3])
	seconds := n(m[4])
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// FormatPublishedDate buckets an RFC 3339 timestamp into a relative age
// using whole days rounded up. Unparsable input is returned unchanged.
func FormatPublishedDate(publishedAt string, now time.Time) string {
	t, err := time.Parse(time.RFC3339, publishedAt)
	if err != nil {
		return publishedAt
	}
	diff := now.Sub(t)
	if diff < 0 {
		diff = -diff
	}
	days := int(math.Ceil(diff.Hours() / 24))
	switch {
	case days == 0:
		return "today"
	case days < 7:
		return plural(days, "day")
	case days < 30:
		return plural(days/7, "week")
	case days < 365:
		return plural(days/30, "month")
	default:
		return plural(days/365, "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return strconv.Itoa(n) + " " + unit + "s ago"
}
