package geospatial

import (
	"math"

	"github.com/crimestat/crimestat/internal/core/domain"
)

const (
	tileSize = 256.0
	// maxLatitude clamps projection the way spherical web mercator tiles do.
	maxLatitude = 85.0511287798
)

// Project maps a coordinate to absolute web-mercator pixels at zoom.
func Project(p domain.GeoPoint, zoom float64) domain.ScreenPoint {
	scale := tileSize * math.Pow(2, zoom)
	lat := math.Max(math.Min(p.Lat, maxLatitude), -maxLatitude)
	sin := math.Sin(toRad(lat))

	x := (p.Lon + 180) / 360 * scale
	y := (0.5 - math.Log((1+sin)/(1-sin))/(4*math.Pi)) * scale
	return domain.ScreenPoint{X: x, Y: y}
}

// ContainerPoint projects p into the container pixel space of v.
// The viewport center sits at the middle of the container.
func ContainerPoint(v domain.Viewport, p domain.GeoPoint) domain.ScreenPoint {
	pt := Project(p, v.Zoom)
	c := Project(v.Center, v.Zoom)
	return domain.ScreenPoint{
		X: pt.X - c.X + float64(v.Width)/2,
		Y: pt.Y - c.Y + float64(v.Height)/2,
	}
}
