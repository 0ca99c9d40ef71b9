// Package presentation turns a crime record set into what the map and
// statistics views draw: markers, heat layers, chart series and recaps.
package presentation

import (
	"math"
	"regexp"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

var hexColor = regexp.MustCompile(`^#?([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Hue returns the HSL hue of a "#rrggbb" colour in whole degrees.
// Achromatic or unparseable colours have hue 0.
func Hue(hex string) int {
	if !hexColor.MatchString(hex) {
		return 0
	}
	c := drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
	r, g, b := float64(c.R)/255, float64(c.G)/255, float64(c.B)/255

	maxc := math.Max(r, math.Max(g, b))
	minc := math.Min(r, math.Min(g, b))
	delta := maxc - minc
	if delta == 0 {
		return 0
	}

	var h float64
	switch maxc {
	case r:
		h = math.Mod((g-b)/delta, 6)
	case g:
		h = (b-r)/delta + 2
	default:
		h = (r-g)/delta + 4
	}
	h *= 60
	if h < 0 {
		h += 360
	}
	return int(math.Round(h))
}

// TintBucket snaps a hue to the nearest 30 degree step, wrapping 360 to 0.
func TintBucket(hue int) int {
	return int(math.Round(float64(hue)/30)) * 30 % 360
}
