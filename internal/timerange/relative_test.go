package timerange

import (
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"6h", 6 * time.Hour, false},
		{"90m", 0, true},
		{"2d", 48 * time.Hour, false},
		{"1w", 7 * 24 * time.Hour, false},
		{" 3H ", 3 * time.Hour, false},
		{"120m", 2 * time.Hour, false},
		{"0h", 0, true},
		{"-1h", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDuration(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDuration(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLast(t *testing.T) {
	now := time.Date(2024, 1, 1, 20, 30, 0, 0, time.UTC)

	tests := []struct {
		since, offset string
		start, end    string
	}{
		{"6h", "0", "2024-01-01-15", "2024-01-01-21"},
		{"1d", "8", "2024-01-01-05", "2024-01-02-05"},
		{"2h", "-5", "2024-01-01-14", "2024-01-01-16"},
	}

	for _, tt := range tests {
		t.Run(tt.since+"@"+tt.offset, func(t *testing.T) {
			start, end, err := Last(tt.since, now, tt.offset)
			if err != nil {
				t.Fatalf("Last() error = %v", err)
			}
			if start != tt.start || end != tt.end {
				t.Errorf("Last(%q, %q) = %s, %s, want %s, %s", tt.since, tt.offset, start, end, tt.start, tt.end)
			}
			if res := Validate(start, end); !res.Valid {
				t.Errorf("Validate(%s, %s) = %+v", start, end, res)
			}
		})
	}

	if _, _, err := Last("6h", now, "x"); err == nil {
		t.Error("Last() expected error for a bad offset")
	}
}

func TestLastEncodesToUTCHours(t *testing.T) {
	now := time.Date(2024, 1, 1, 20, 30, 0, 0, time.UTC)
	start, end, err := Last("6h", now, "8")
	if err != nil {
		t.Fatal(err)
	}
	if got := FromClause("creative_event", start, end, "8"); got != "creative_event_2024010115_2024010121" {
		t.Errorf("FromClause() = %q", got)
	}
}

func TestFormatSpan(t *testing.T) {
	tests := []struct {
		start, end, want string
	}{
		{"2024-01-01", "2024-01-02", "1d"},
		{"2024-01-01", "2024-01-15", "2w"},
		{"2024-01-01-05", "2024-01-01-11", "6h"},
		{"bad", "2024-01-01", ""},
	}
	for _, tt := range tests {
		if got := FormatSpan(tt.start, tt.end); got != tt.want {
			t.Errorf("FormatSpan(%q, %q) = %q, want %q", tt.start, tt.end, got, tt.want)
		}
	}
}
