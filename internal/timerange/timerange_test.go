package timerange

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestParseLocal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Local
		wantErr bool
	}{
		{name: "date only", input: "2024-01-02", want: Local{2024, 1, 2, 0}},
		{name: "date with hour", input: "2024-01-02-13", want: Local{2024, 1, 2, 13}},
		{name: "unpadded", input: "2024-1-2-3", want: Local{2024, 1, 2, 3}},

		{name: "empty", input: "", wantErr: true},
		{name: "too few parts", input: "2024-01", wantErr: true},
		{name: "too many parts", input: "2024-01-02-03-04", wantErr: true},
		{name: "non integer", input: "2024-01-xx", wantErr: true},
		{name: "trailing junk", input: "2024-01-02h", wantErr: true},
		{name: "iso format", input: "2024-01-02T10:00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLocal(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseLocal(%q) expected error, got %+v", tt.input, got)
				}
				if !errors.Is(err, ErrInvalidFormat) {
					t.Errorf("ParseLocal(%q) error = %v, want ErrInvalidFormat", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLocal(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseLocal(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestEncodeSuffix(t *testing.T) {
	tests := []struct {
		name   string
		local  string
		offset string
		want   string
	}{
		{name: "utc", local: "2024-01-01", offset: "0", want: "2024010100"},
		{name: "empty offset is utc", local: "2024-01-01-05", offset: "", want: "2024010105"},
		{name: "positive offset crosses day", local: "2024-01-01-03", offset: "8", want: "2023123119"},
		{name: "negative offset", local: "2024-01-01-22", offset: "-5", want: "2024010203"},
		{name: "explicit plus sign", local: "2024-03-10-09", offset: "+9", want: "2024031000"},
		{name: "leap day", local: "2024-03-01", offset: "1", want: "2024022923"},
		{name: "month overflow rolls over", local: "2024-13-01", offset: "0", want: "2025010100"},

		// Unparsable input is returned as-is.
		{name: "bad date falls back", local: "yesterday", offset: "0", want: "yesterday"},
		{name: "bad offset falls back", local: "2024-01-01", offset: "UTC+8", want: "2024-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeSuffix(tt.local, tt.offset)
			if got != tt.want {
				t.Errorf("EncodeSuffix(%q, %q) = %q, want %q", tt.local, tt.offset, got, tt.want)
			}
		})
	}
}

func TestEncodeSuffixRoundTrip(t *testing.T) {
	tenDigits := regexp.MustCompile(`^\d{10}$`)
	locals := []string{"2024-01-01", "2024-02-29-23", "1999-12-31-00", "2030-06-15-12"}

	for _, local := range locals {
		for offset := -12; offset <= 14; offset++ {
			off := time.Duration(offset) * time.Hour
			offStr := strconv.Itoa(offset)

			suffix := EncodeSuffix(local, offStr)
			if !tenDigits.MatchString(suffix) {
				t.Fatalf("EncodeSuffix(%q, %q) = %q, want 10 digits", local, offStr, suffix)
			}

			decoded, err := DecodeSuffix(suffix)
			if err != nil {
				t.Fatalf("DecodeSuffix(%q) unexpected error: %v", suffix, err)
			}

			l, _ := ParseLocal(local)
			want := l.Time().Add(-off)
			if !decoded.Equal(want) {
				t.Errorf("round trip %q offset %d: decoded %v, want %v", local, offset, decoded, want)
			}
		}
	}
}

func TestDecodeSuffixErrors(t *testing.T) {
	for _, s := range []string{"", "20240101", "2024010100x", "2024133100"} {
		if _, err := DecodeSuffix(s); err == nil {
			t.Errorf("DecodeSuffix(%q) expected error", s)
		}
	}
}

func TestFromClause(t *testing.T) {
	tests := []struct {
		name   string
		table  string
		start  string
		end    string
		offset string
		want   string
	}{
		{name: "no bounds", table: "t", start: "", end: "", offset: "0", want: "t"},
		{name: "missing end", table: "t", start: "2024-01-01", end: "", offset: "0", want: "t"},
		{name: "missing start", table: "t", start: "", end: "2024-01-02", offset: "0", want: "t"},
		{name: "daily range", table: "t", start: "2024-01-01", end: "2024-01-02", offset: "0", want: "t_2024010100_2024010200"},
		{name: "with offset", table: "creative_event", start: "2024-01-01-08", end: "2024-01-01-20", offset: "8", want: "creative_event_2024010100_2024010112"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromClause(tt.table, tt.start, tt.end, tt.offset)
			if got != tt.want {
				t.Errorf("FromClause(%q, %q, %q, %q) = %q, want %q", tt.table, tt.start, tt.end, tt.offset, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		start       string
		end         string
		wantValid   bool
		errContains string
	}{
		{name: "valid days", start: "2024-01-01", end: "2024-01-02", wantValid: true},
		{name: "valid hours", start: "2024-01-01-05", end: "2024-01-01-06", wantValid: true},
		{name: "reversed", start: "2024-01-02", end: "2024-01-01", errContains: "end must exceed start"},
		{name: "equal", start: "2024-01-01-05", end: "2024-01-01-05", errContains: "end must exceed start"},
		{name: "both empty", errContains: "missing start/end"},
		{name: "bad start", start: "01/01/2024", end: "2024-01-02", errContains: "start"},
		{name: "bad end", start: "2024-01-01", end: "tomorrow", errContains: "end"},
		{name: "only start", start: "2024-01-01", errContains: "end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.start, tt.end)
			if got.Valid != tt.wantValid {
				t.Fatalf("Validate(%q, %q).Valid = %v, want %v (error %q)", tt.start, tt.end, got.Valid, tt.wantValid, got.Error)
			}
			if tt.wantValid && got.Error != "" {
				t.Errorf("Validate(%q, %q) unexpected error %q", tt.start, tt.end, got.Error)
			}
			if tt.errContains != "" && !strings.Contains(got.Error, tt.errContains) {
				t.Errorf("Validate(%q, %q).Error = %q, should contain %q", tt.start, tt.end, got.Error, tt.errContains)
			}
		})
	}
}
