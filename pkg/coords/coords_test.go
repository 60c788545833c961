package coords

import (
	"math"
	"testing"

	"github.com/NERVsystems/osmterrain/pkg/geo"
)

// about 10 m at the equator
const tolerance = 0.0001

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		format  Format
		lat     float64
		lon     float64
		wantErr bool
	}{
		{name: "decimal comma", input: "41.5, -72.9", format: FormatDecimal, lat: 41.5, lon: -72.9},
		{name: "decimal space", input: "  -33.8688 151.2093 ", format: FormatDecimal, lat: -33.8688, lon: 151.2093},
		{name: "decimal no space", input: "46.2,7.3", format: FormatDecimal, lat: 46.2, lon: 7.3},
		{name: "dms symbols", input: `41°30'00"N 72°54'00"W`, format: FormatDMS, lat: 41.5, lon: -72.9},
		{name: "dms letters", input: "33d52m7.68sS 151d12m33.48sE", format: FormatDMS, lat: -33.8688, lon: 151.2093},
		{name: "utm equator", input: "31N 500000 0", format: FormatUTM, lat: 0, lon: 3},

		{name: "empty", input: "", wantErr: true},
		{name: "latitude out of range", input: "91, 0", wantErr: true},
		{name: "longitude out of range", input: "0, 181", wantErr: true},
		{name: "dms minutes out of range", input: `41°61'00"N 72°54'00"W`, wantErr: true},
		{name: "utm zone out of range", input: "61N 500000 0", wantErr: true},
		{name: "address", input: "276 West Main St", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Parse(%q) expected error, got %+v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if got.Format != tt.format {
				t.Errorf("Parse(%q) format = %v, want %v", tt.input, got.Format, tt.format)
			}
			if !almostEqual(got.Location.Latitude, tt.lat, tolerance) || !almostEqual(got.Location.Longitude, tt.lon, tolerance) {
				t.Errorf("Parse(%q) = %v, want %.6f, %.6f", tt.input, got.Location, tt.lat, tt.lon)
			}
		})
	}
}

func TestMGRSRoundTrip(t *testing.T) {
	locations := []geo.Location{
		{Latitude: 41.5, Longitude: -72.9},
		{Latitude: 46.2, Longitude: 7.3},
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 19.856, Longitude: 99.817},
	}

	for _, loc := range locations {
		t.Run(loc.String(), func(t *testing.T) {
			s, err := ToMGRS(loc, 5)
			if err != nil {
				t.Fatalf("ToMGRS(%v) error: %v", loc, err)
			}
			if DetectFormat(s) != FormatMGRS {
				t.Fatalf("DetectFormat(%q) = %v, want mgrs", s, DetectFormat(s))
			}

			got, err := Parse(s)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", s, err)
			}
			if !almostEqual(got.Location.Latitude, loc.Latitude, tolerance) ||
				!almostEqual(got.Location.Longitude, loc.Longitude, tolerance) {
				t.Errorf("round trip %v -> %s -> %v", loc, s, got.Location)
			}
		})
	}
}

func TestMGRSRejectsOddDigits(t *testing.T) {
	if _, err := Parse("18SUJ123456789"); err == nil {
		t.Error("expected error for odd digit count")
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"18SUJ23370651", FormatMGRS},
		{"18T 234567 4567890", FormatUTM},
		{`19°51'22"N 99°48'59"E`, FormatDMS},
		{"19.856, 99.816", FormatDecimal},
		{"Cheshire, Connecticut", FormatUnknown},
	}

	for _, tt := range tests {
		if got := DetectFormat(tt.input); got != tt.want {
			t.Errorf("DetectFormat(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestToMGRSInvalid(t *testing.T) {
	if _, err := ToMGRS(geo.Location{Latitude: 95}, 5); err == nil {
		t.Error("expected error for latitude out of range")
	}
}
