package format

import "testing"

func TestHumanizeBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{50 << 20, "50.0 MB"},
		{11010048, "10.5 MB"},
		{1536 << 20, "1.5 GB"},
		{1 << 40, "1.0 TB"},
		{2048 << 40, "2048.0 TB"},
	}
	for _, tt := range tests {
		if got := HumanizeBytes(tt.bytes); got != tt.want {
			t.Errorf("HumanizeBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in     string
		want   int64
		wantOK bool
	}{
		{"10.50MiB", 11010048, true},
		{"~1.00GiB", 1 << 30, true},
		{"512KiB", 512 << 10, true},
		{"3.2MB", 3200000, true},
		{"900B", 900, true},
		{"Unknown", 0, false},
		{"", 0, false},
		{"12parsecs", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseSize(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseSize(%q) = %d, %v, want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
