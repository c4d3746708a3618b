package youtube

import (
	"testing"
	"time"

	"github.com/ronled86/ClipPilot/internal/model"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PT1H2M3S", "1:02:03"},
		{"PT4M13S", "4:13"},
		{"PT45S", "0:45"},
		{"PT10M", "10:00"},
		{"PT2H", "2:00:00"},
		{"PT1H5S", "1:00:05"},
		{"P1DT2H3M4S", "26:03:04"},
		{"PT", "0:00"},
		{"P0D", "0:00"},
		{"", "0:00"},
		{"garbage", "0:00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := FormatDuration(tt.in); got != tt.want {
				t.Errorf("FormatDuration(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDetermineLicense(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		channel string
		want    model.License
	}{
		{"cc substring any case", "Free Music CC-BY", "Artist", model.LicenseCC},
		{"creative commons", "Creative Commons Beats", "Artist", model.LicenseCC},
		{"cc wins over mine", "Accent training", "Your Channel", model.LicenseCC},
		{"your channel", "My upload", "Your Channel", model.LicenseMine},
		{"tutorial channel", "Go basics", "Go Tutorial Hub", model.LicenseMine},
		{"case sensitive channel", "Go basics", "your channel", model.LicenseStandard},
		{"standard", "Top Hits", "Popular Music", model.LicenseStandard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetermineLicense(tt.title, tt.channel); got != tt.want {
				t.Errorf("DetermineLicense(%q, %q) = %q, want %q", tt.title, tt.channel, got, tt.want)
			}
		})
	}
}

func TestFormatPublishedDate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ago := func(d time.Duration) string { return now.Add(-d).Format(time.RFC3339) }
	day := 24 * time.Hour

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"same instant", ago(0), "today"},
		{"one hour rounds up to a day", ago(time.Hour), "1 day ago"},
		{"exactly one day", ago(day), "1 day ago"},
		{"three days", ago(3 * day), "3 days ago"},
		{"seven days", ago(7 * day), "1 week ago"},
		{"twenty days", ago(20 * day), "2 weeks ago"},
		{"forty days", ago(40 * day), "1 month ago"},
		{"two hundred days", ago(200 * day), "6 months ago"},
		{"two years", ago(800 * day), "2 years ago"},
		{"unparsable", "yesterday-ish", "yesterday-ish"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatPublishedDate(tt.in, now); got != tt.want {
				t.Errorf("FormatPublishedDate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
