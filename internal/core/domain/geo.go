package domain

import "math"

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ScreenPoint is a position in map-container pixels, origin top-left.
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the euclidean pixel distance between two screen points.
func (p ScreenPoint) DistanceTo(q ScreenPoint) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Viewport describes what the map widget is showing when it reports an event.
// A zero Viewport means the client did not send one.
type Viewport struct {
	Center GeoPoint `json:"center"`
	Zoom   float64  `json:"zoom"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
}

// IsZero reports whether the viewport carries no usable projection data.
func (v Viewport) IsZero() bool {
	return v.Width <= 0 || v.Height <= 0
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// BoundsOf returns the smallest box holding every point. It is the zero
// Bounds when pts is empty.
func BoundsOf(pts []GeoPoint) Bounds {
	if len(pts) == 0 {
		return Bounds{}
	}
	b := Bounds{MinLat: pts[0].Lat, MaxLat: pts[0].Lat, MinLon: pts[0].Lon, MaxLon: pts[0].Lon}
	for _, p := range pts[1:] {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
	}
	return b
}

// Empty reports whether the box has no area.
func (b Bounds) Empty() bool {
	return b.MaxLat <= b.MinLat || b.MaxLon <= b.MinLon
}
