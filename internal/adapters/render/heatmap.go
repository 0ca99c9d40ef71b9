package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/crimestat/crimestat/internal/core/domain"
)

// gridCells is the resolution of the density grid along its longer side.
const gridCells = 128

// HeatmapPNG renders layer over bounds as a transparent density image of
// width x height. Each point spreads over layer.Radius output pixels.
func HeatmapPNG(layer domain.HeatLayer, bounds domain.Bounds, width, height int) ([]byte, error) {
	if len(layer.Points) == 0 {
		return nil, ErrNoData
	}
	width, height = ClampSize(width, height)
	if bounds.Empty() {
		pts := make([]domain.GeoPoint, len(layer.Points))
		for i, p := range layer.Points {
			pts[i] = domain.GeoPoint{Lat: p.Lat, Lon: p.Lon}
		}
		bounds = pad(domain.BoundsOf(pts))
	}

	gw, gh := gridCells, gridCells
	if width > height {
		gh = max(1, gridCells*height/width)
	} else {
		gw = max(1, gridCells*width/height)
	}
	grid := density(layer, bounds, gw, gh, float64(layer.Radius)*float64(gw)/float64(width))

	peak := 0.0
	for _, v := range grid {
		peak = math.Max(peak, v)
	}
	small := image.NewRGBA(image.Rect(0, 0, gw, gh))
	for gy := 0; gy < gh; gy++ {
		for gx := 0; gx < gw; gx++ {
			v := grid[gy*gw+gx]
			if v <= 0 || peak <= 0 {
				continue
			}
			small.SetRGBA(gx, gy, heatColor(v/peak))
		}
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(out, out.Bounds(), small, small.Bounds(), xdraw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode heatmap: %w", err)
	}
	return buf.Bytes(), nil
}

// density accumulates a linear falloff kernel of radius r cells per point.
func density(layer domain.HeatLayer, b domain.Bounds, gw, gh int, r float64) []float64 {
	r = math.Max(r, 1)
	grid := make([]float64, gw*gh)
	spanLon := b.MaxLon - b.MinLon
	spanLat := b.MaxLat - b.MinLat
	reach := int(math.Ceil(r))

	for _, p := range layer.Points {
		cx := (p.Lon - b.MinLon) / spanLon * float64(gw)
		cy := (b.MaxLat - p.Lat) / spanLat * float64(gh)
		for dy := -reach; dy <= reach; dy++ {
			y := int(cy) + dy
			if y < 0 || y >= gh {
				continue
			}
			for dx := -reach; dx <= reach; dx++ {
				x := int(cx) + dx
				if x < 0 || x >= gw {
					continue
				}
				d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy)
				if d >= r {
					continue
				}
				grid[y*gw+x] += p.Intensity * (1 - d/r)
			}
		}
	}
	return grid
}

func pad(b domain.Bounds) domain.Bounds {
	const minSpan = 0.005
	dLat := math.Max((b.MaxLat-b.MinLat)*0.05, minSpan)
	dLon := math.Max((b.MaxLon-b.MinLon)*0.05, minSpan)
	return domain.Bounds{
		MinLat: b.MinLat - dLat, MaxLat: b.MaxLat + dLat,
		MinLon: b.MinLon - dLon, MaxLon: b.MaxLon + dLon,
	}
}

// heatColor maps 0..1 to blue, lime, yellow, red with rising opacity.
func heatColor(t float64) color.RGBA {
	t = math.Max(0, math.Min(1, t))
	a := uint8(80 + 175*t)
	switch {
	case t < 1.0/3:
		u := t * 3
		return premultiply(0, uint8(255*u), uint8(255*(1-u)), a)
	case t < 2.0/3:
		u := (t - 1.0/3) * 3
		return premultiply(uint8(255*u), 255, 0, a)
	default:
		u := (t - 2.0/3) * 3
		return premultiply(255, uint8(255*(1-u)), 0, a)
	}
}

func premultiply(r, g, b, a uint8) color.RGBA {
	f := float64(a) / 255
	return color.RGBA{R: uint8(float64(r) * f), G: uint8(float64(g) * f), B: uint8(float64(b) * f), A: a}
}
