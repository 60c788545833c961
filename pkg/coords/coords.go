// Package coords parses scene anchors given as coordinate strings.
//
// Accepted notations, tried from most to least specific:
//   - MGRS, e.g. "18TXM9360538125"
//   - UTM, e.g. "18T 693605 4598125"
//   - DMS, e.g. "41°30'00"N 72°54'00"W"
//   - decimal degrees, e.g. "41.5, -72.9"
package coords

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/akhenakh/mgrs"

	"github.com/NERVsystems/osmterrain/pkg/geo"
)

// Format identifies a coordinate notation
type Format int

const (
	FormatUnknown Format = iota
	FormatDecimal
	FormatDMS
	FormatMGRS
	FormatUTM
)

func (f Format) String() string {
	switch f {
	case FormatDecimal:
		return "decimal"
	case FormatDMS:
		return "dms"
	case FormatMGRS:
		return "mgrs"
	case FormatUTM:
		return "utm"
	}
	return "unknown"
}

// Anchor is a parsed anchor coordinate
type Anchor struct {
	Location geo.Location `json:"location"`
	Format   Format       `json:"-"`
	Input    string       `json:"input"`
}

var (
	// zone, band, 100 km square, even count of easting/northing digits
	mgrsRegex = regexp.MustCompile(`(?i)^(\d{1,2})([C-HJ-NP-X])([A-HJ-NP-Z]{2})(\d{2,10})$`)

	utmRegex = regexp.MustCompile(`(?i)^(\d{1,2})([C-HJ-NP-X])\s+(\d+(?:\.\d+)?)\s+(\d+(?:\.\d+)?)$`)

	dmsRegex = regexp.MustCompile(`(?i)^(\d+)[°d\s]+(\d+)[′'m\s]+(\d+(?:\.\d+)?)[″"s]?\s*([NS])[\s,]+(\d+)[°d\s]+(\d+)[′'m\s]+(\d+(?:\.\d+)?)[″"s]?\s*([EW])$`)

	decimalRegex = regexp.MustCompile(`^([-+]?\d+(?:\.\d*)?)\s*[,\s]\s*([-+]?\d+(?:\.\d*)?)$`)
)

type parser struct {
	format Format
	match  *regexp.Regexp
	parse  func(m []string) (geo.Location, error)
}

var parsers = []parser{
	{FormatMGRS, mgrsRegex, parseMGRS},
	{FormatUTM, utmRegex, parseUTM},
	{FormatDMS, dmsRegex, parseDMS},
	{FormatDecimal, decimalRegex, parseDecimal},
}

// Parse detects the notation of input and converts it to WGS84 degrees
func Parse(input string) (Anchor, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return Anchor{}, fmt.Errorf("empty coordinate string")
	}
	for _, p := range parsers {
		m := p.match.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		loc, err := p.parse(m)
		if err != nil {
			return Anchor{}, fmt.Errorf("%s coordinate %q: %w", p.format, s, err)
		}
		if err := loc.Validate(); err != nil {
			return Anchor{}, fmt.Errorf("%s coordinate %q: %w", p.format, s, err)
		}
		return Anchor{Location: loc, Format: p.format, Input: s}, nil
	}
	return Anchor{}, fmt.Errorf("unrecognized coordinate format: %q", s)
}

// DetectFormat reports the notation of input without converting it
func DetectFormat(input string) Format {
	s := strings.TrimSpace(input)
	for _, p := range parsers {
		if p.match.MatchString(s) {
			return p.format
		}
	}
	return FormatUnknown
}

func parseMGRS(m []string) (geo.Location, error) {
	if len(m[4])%2 != 0 {
		return geo.Location{}, fmt.Errorf("odd number of grid digits")
	}
	lat, lon, err := mgrs.MGRSToLatLng(strings.ToUpper(m[0]))
	if err != nil {
		return geo.Location{}, err
	}
	return geo.Location{Latitude: lat, Longitude: lon}, nil
}

func parseUTM(m []string) (geo.Location, error) {
	zone, _ := strconv.Atoi(m[1])
	if zone < 1 || zone > 60 {
		return geo.Location{}, fmt.Errorf("zone %d out of range", zone)
	}
	easting, _ := strconv.ParseFloat(m[3], 64)
	northing, _ := strconv.ParseFloat(m[4], 64)
	north := strings.ToUpper(m[2])[0] >= 'N'

	lat, lon := utmToLatLon(zone, easting, northing, north)
	return geo.Location{Latitude: lat, Longitude: lon}, nil
}

func parseDMS(m []string) (geo.Location, error) {
	lat, err := dms(m[1], m[2], m[3], 90)
	if err != nil {
		return geo.Location{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := dms(m[5], m[6], m[7], 180)
	if err != nil {
		return geo.Location{}, fmt.Errorf("longitude: %w", err)
	}
	if strings.EqualFold(m[4], "S") {
		lat = -lat
	}
	if strings.EqualFold(m[8], "W") {
		lon = -lon
	}
	return geo.Location{Latitude: lat, Longitude: lon}, nil
}

func dms(d, m, s string, limit float64) (float64, error) {
	deg, _ := strconv.ParseFloat(d, 64)
	mins, _ := strconv.ParseFloat(m, 64)
	sec, _ := strconv.ParseFloat(s, 64)
	if deg > limit || mins >= 60 || sec >= 60 {
		return 0, fmt.Errorf("%s° %s' %s\" out of range", d, m, s)
	}
	return deg + mins/60 + sec/3600, nil
}

func parseDecimal(m []string) (geo.Location, error) {
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return geo.Location{}, err
	}
	lon, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return geo.Location{}, err
	}
	return geo.Location{Latitude: lat, Longitude: lon}, nil
}

// ToMGRS formats a location as MGRS. Precision 1-5 selects 10 km down to
// 1 m; anything else means 1 m.
func ToMGRS(loc geo.Location, precision int) (string, error) {
	if precision < 1 || precision > 5 {
		precision = 5
	}
	if err := loc.Validate(); err != nil {
		return "", err
	}
	s, err := mgrs.LatLngToMGRS(loc.Latitude, loc.Longitude, precision)
	if err != nil {
		return "", fmt.Errorf("MGRS conversion failed: %w", err)
	}
	return s, nil
}

// utmToLatLon inverts the WGS84 transverse Mercator projection with the
// usual footpoint-latitude series
func utmToLatLon(zone int, easting, northing float64, north bool) (lat, lon float64) {
	const (
		a  = 6378137.0
		f  = 1 / 298.257223563
		k0 = 0.9996
	)
	b := a * (1 - f)
	e2 := (a*a - b*b) / (a * a)
	ep2 := (a*a - b*b) / (b * b)
	e1 := (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))

	x := easting - 500000.0
	y := northing
	if !north {
		y -= 10000000.0
	}
	lon0 := float64((zone-1)*6-180+3) * math.Pi / 180.0

	mu := y / k0 / (a * (1 - e2/4 - 3*e2*e2/64 - 5*e2*e2*e2/256))
	phi := mu +
		(3*e1/2-27*math.Pow(e1, 3)/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*math.Pow(e1, 4)/32)*math.Sin(4*mu) +
		(151*math.Pow(e1, 3)/96)*math.Sin(6*mu) +
		(1097*math.Pow(e1, 4)/512)*math.Sin(8*mu)

	sin, cos, tan := math.Sin(phi), math.Cos(phi), math.Tan(phi)
	n := a / math.Sqrt(1-e2*sin*sin)
	t := tan * tan
	c := ep2 * cos * cos
	r := a * (1 - e2) / math.Pow(1-e2*sin*sin, 1.5)
	d := x / (n * k0)

	lat = phi - (n*tan/r)*(d*d/2-
		(5+3*t+10*c-4*c*c-9*ep2)*math.Pow(d, 4)/24+
		(61+90*t+298*c+45*t*t-252*ep2-3*c*c)*math.Pow(d, 6)/720)
	lon = lon0 + (d-
		(1+2*t+c)*math.Pow(d, 3)/6+
		(5-2*c+28*t-3*c*c+8*ep2+24*t*t)*math.Pow(d, 5)/120)/cos

	return lat * 180 / math.Pi, lon * 180 / math.Pi
}
