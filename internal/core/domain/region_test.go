package domain_test

import (
	"errors"
	"testing"

	"github.com/crimestat/crimestat/internal/core/domain"
)

func square() []domain.GeoPoint {
	return []domain.GeoPoint{
		{Lat: 52.6, Lon: -1.2},
		{Lat: 52.61, Lon: -1.2},
		{Lat: 52.61, Lon: -1.19},
		{Lat: 52.6, Lon: -1.19},
	}
}

func TestNewPolygon_ClosesRing(t *testing.T) {
	p, err := domain.NewPolygon(square())
	if err != nil {
		t.Fatalf("NewPolygon: %v", err)
	}
	pts := p.Points()
	if len(pts) != 5 {
		t.Fatalf("expected 5 ring points, got %d", len(pts))
	}
	if pts[0] != pts[4] {
		t.Errorf("ring not closed: first %v last %v", pts[0], pts[4])
	}
	if len(p.Vertices()) != 4 {
		t.Errorf("expected 4 vertices, got %d", len(p.Vertices()))
	}
}

func TestNewPolygon_AlreadyClosed(t *testing.T) {
	closed := append(square(), square()[0])
	p, err := domain.NewPolygon(closed)
	if err != nil {
		t.Fatalf("NewPolygon: %v", err)
	}
	if n := len(p.Points()); n != 5 {
		t.Errorf("closing point duplicated: %d ring points", n)
	}
}

func TestNewPolygon_TooSmall(t *testing.T) {
	cases := map[string][]domain.GeoPoint{
		"empty":      nil,
		"two points": square()[:2],
		"duplicates": {{Lat: 1, Lon: 1}, {Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}, {Lat: 1, Lon: 1}},
	}
	for name, pts := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := domain.NewPolygon(pts)
			if !errors.Is(err, domain.ErrPolygonTooSmall) {
				t.Errorf("expected ErrPolygonTooSmall, got %v", err)
			}
		})
	}
}

func TestEncodePolygon(t *testing.T) {
	p, _ := domain.NewPolygon(square()[:3])
	want := "52.6,-1.2:52.61,-1.2:52.61,-1.19:52.6,-1.2"
	if got := domain.EncodePolygon(p); got != want {
		t.Errorf("EncodePolygon = %q, want %q", got, want)
	}
	if p.Encode() != want {
		t.Errorf("Encode disagrees with EncodePolygon")
	}
}

func TestParsePolygon_RoundTrip(t *testing.T) {
	orig, _ := domain.NewPolygon([]domain.GeoPoint{
		{Lat: 51.50735, Lon: -0.12776},
		{Lat: 51.5, Lon: -0.1},
		{Lat: 51.49999999, Lon: -0.13},
	})
	parsed, err := domain.ParsePolygon(orig.Encode())
	if err != nil {
		t.Fatalf("ParsePolygon: %v", err)
	}
	a, b := orig.Points(), parsed.Points()
	if len(a) != len(b) {
		t.Fatalf("length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("point %d: %v != %v", i, a[i], b[i])
		}
	}
}

func TestParsePolygon_AddsClosingPoint(t *testing.T) {
	p, err := domain.ParsePolygon("52.6,-1.2:52.61,-1.2:52.61,-1.19")
	if err != nil {
		t.Fatalf("ParsePolygon: %v", err)
	}
	if got := p.Encode(); got != "52.6,-1.2:52.61,-1.2:52.61,-1.19:52.6,-1.2" {
		t.Errorf("unexpected encoding %q", got)
	}
}

func TestParsePolygon_Errors(t *testing.T) {
	cases := []struct {
		in   string
		want error
	}{
		{"", domain.ErrNoAreaSelected},
		{"noarea", domain.ErrNoAreaSelected},
		{"52.6;-1.2", domain.ErrInvalidPolygon},
		{"abc,-1.2:1,1:2,2", domain.ErrInvalidPolygon},
		{"1,xyz:1,1:2,2", domain.ErrInvalidPolygon},
		{"91,0:1,1:2,2", domain.ErrInvalidPolygon},
		{"1,1:2,2", domain.ErrPolygonTooSmall},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			_, err := domain.ParsePolygon(tc.in)
			if !errors.Is(err, tc.want) {
				t.Errorf("ParsePolygon(%q) error = %v, want %v", tc.in, err, tc.want)
			}
		})
	}
}

func TestMonthFromIndex(t *testing.T) {
	m, err := domain.MonthFromIndex(1)
	if err != nil || m != "2024-01" {
		t.Errorf("MonthFromIndex(1) = %q, %v", m, err)
	}
	m, _ = domain.MonthFromIndex(12)
	if m != "2024-12" {
		t.Errorf("MonthFromIndex(12) = %q", m)
	}
	if m.Index() != 12 {
		t.Errorf("Index() = %d", m.Index())
	}
	for _, bad := range []int{0, 13, -1} {
		if _, err := domain.MonthFromIndex(bad); !errors.Is(err, domain.ErrInvalidMonth) {
			t.Errorf("MonthFromIndex(%d) error = %v", bad, err)
		}
	}
}

func TestParseMonth(t *testing.T) {
	if _, err := domain.ParseMonth("2024-07"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, bad := range []string{"2024-13", "2024-00", "2024-7", "July", ""} {
		if _, err := domain.ParseMonth(bad); !errors.Is(err, domain.ErrInvalidMonth) {
			t.Errorf("ParseMonth(%q) error = %v", bad, err)
		}
	}
}

func TestNewRegionQuery(t *testing.T) {
	p, _ := domain.NewPolygon(square())
	q, err := domain.NewRegionQuery(p, 3)
	if err != nil {
		t.Fatalf("NewRegionQuery: %v", err)
	}
	if q.Date() != "2024-03" {
		t.Errorf("Date() = %q", q.Date())
	}
	if q.Poly() != p.Encode() {
		t.Errorf("Poly() = %q", q.Poly())
	}
	if q.Key() != "2024-03|"+p.Encode() {
		t.Errorf("Key() = %q", q.Key())
	}

	if _, err := domain.NewRegionQuery(domain.Polygon{}, 3); !errors.Is(err, domain.ErrNoAreaSelected) {
		t.Errorf("empty polygon error = %v", err)
	}
	if _, err := domain.NewRegionQuery(p, 13); !errors.Is(err, domain.ErrInvalidMonth) {
		t.Errorf("bad month error = %v", err)
	}
}
