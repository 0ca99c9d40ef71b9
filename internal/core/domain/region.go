package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// QueryYear is the year every month selection is resolved against.
const QueryYear = 2024

// NoAreaSentinel is handed to the statistics view when no polygon was ever closed.
const NoAreaSentinel = "noarea"

// MinPolygonVertices is the smallest vertex count a drawn area may close with.
const MinPolygonVertices = 3

// Month is a "YYYY-MM" string accepted by the crime API's date parameter.
type Month string

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// MonthFromIndex builds the Month for index 1-12 of QueryYear.
func MonthFromIndex(index int) (Month, error) {
	if index < 1 || index > 12 {
		return "", fmt.Errorf("%w: index %d", ErrInvalidMonth, index)
	}
	return Month(fmt.Sprintf("%d-%02d", QueryYear, index)), nil
}

// ParseMonth validates a "YYYY-MM" string.
func ParseMonth(s string) (Month, error) {
	if !monthPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month(s), nil
}

// Index returns the 1-12 month number.
func (m Month) Index() int {
	if len(m) != 7 {
		return 0
	}
	n, _ := strconv.Atoi(string(m[5:]))
	return n
}

func (m Month) String() string { return string(m) }

// Polygon is a closed ring of points: the last point equals the first.
// The zero value is an empty polygon; build real ones with NewPolygon or ParsePolygon.
type Polygon struct {
	ring []GeoPoint
}

// NewPolygon closes vertices into a ring. At least three distinct vertices are required.
func NewPolygon(vertices []GeoPoint) (Polygon, error) {
	if len(vertices) > 1 && vertices[0] == vertices[len(vertices)-1] {
		vertices = vertices[:len(vertices)-1]
	}
	if distinctCount(vertices) < MinPolygonVertices {
		return Polygon{}, fmt.Errorf("%w: got %d distinct vertices", ErrPolygonTooSmall, distinctCount(vertices))
	}
	ring := make([]GeoPoint, 0, len(vertices)+1)
	ring = append(ring, vertices...)
	ring = append(ring, vertices[0])
	return Polygon{ring: ring}, nil
}

func distinctCount(pts []GeoPoint) int {
	seen := make(map[GeoPoint]struct{}, len(pts))
	for _, p := range pts {
		seen[p] = struct{}{}
	}
	return len(seen)
}

// Points returns a copy of the closed ring.
func (p Polygon) Points() []GeoPoint {
	out := make([]GeoPoint, len(p.ring))
	copy(out, p.ring)
	return out
}

// Vertices returns the ring without its closing point.
func (p Polygon) Vertices() []GeoPoint {
	if len(p.ring) == 0 {
		return nil
	}
	return p.Points()[:len(p.ring)-1]
}

// IsEmpty reports whether the polygon is the zero value.
func (p Polygon) IsEmpty() bool { return len(p.ring) == 0 }

// Encode renders the ring as the API's "lat,lng:lat,lng:..." form.
func (p Polygon) Encode() string {
	return EncodePolygon(p)
}

// EncodePolygon renders the ring as "lat,lng:lat,lng:...:lat0,lng0".
func EncodePolygon(p Polygon) string {
	parts := make([]string, len(p.ring))
	for i, pt := range p.ring {
		parts[i] = formatCoord(pt.Lat) + "," + formatCoord(pt.Lon)
	}
	return strings.Join(parts, ":")
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ParsePolygon parses an encoded ring. A missing closing point is added.
func ParsePolygon(s string) (Polygon, error) {
	if s == "" || s == NoAreaSentinel {
		return Polygon{}, ErrNoAreaSelected
	}
	pairs := strings.Split(s, ":")
	pts := make([]GeoPoint, 0, len(pairs))
	for _, pair := range pairs {
		latStr, lonStr, ok := strings.Cut(pair, ",")
		if !ok {
			return Polygon{}, fmt.Errorf("%w: malformed pair %q", ErrInvalidPolygon, pair)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
		if err != nil {
			return Polygon{}, fmt.Errorf("%w: latitude %q: %w", ErrInvalidPolygon, latStr, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
		if err != nil {
			return Polygon{}, fmt.Errorf("%w: longitude %q: %w", ErrInvalidPolygon, lonStr, err)
		}
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return Polygon{}, fmt.Errorf("%w: point %q out of range", ErrInvalidPolygon, pair)
		}
		pts = append(pts, GeoPoint{Lat: lat, Lon: lon})
	}
	return NewPolygon(pts)
}

// RegionQuery is one request for crimes inside a polygon during a month.
// Seq orders queries issued by the same owner; zero means unsequenced.
type RegionQuery struct {
	Polygon Polygon
	Month   Month
	Seq     uint64
}

// NewRegionQuery encodes a closed polygon and a 1-12 month index.
func NewRegionQuery(p Polygon, monthIndex int) (RegionQuery, error) {
	if p.IsEmpty() {
		return RegionQuery{}, ErrNoAreaSelected
	}
	m, err := MonthFromIndex(monthIndex)
	if err != nil {
		return RegionQuery{}, err
	}
	return RegionQuery{Polygon: p, Month: m}, nil
}

// Poly returns the encoded polygon parameter.
func (q RegionQuery) Poly() string { return q.Polygon.Encode() }

// Date returns the encoded date parameter.
func (q RegionQuery) Date() string { return string(q.Month) }

// Key identifies the query independent of its sequence number.
func (q RegionQuery) Key() string { return q.Date() + "|" + q.Poly() }

// MarshalJSON encodes the closed ring as a list of points.
func (p Polygon) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ring)
}
