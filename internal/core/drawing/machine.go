// Package drawing implements the click-to-place polygon drawing state machine.
//
// The machine is a pure reducer: Reduce takes a State and an Event and
// returns the next State. Rendering and fetching are the caller's job.
package drawing

import (
	"github.com/crimestat/crimestat/internal/core/domain"
	"github.com/crimestat/crimestat/internal/pkg/geospatial"
)

// Default closure thresholds.
const (
	DefaultCloseMeters = 500.0
	DefaultClosePixels = 10.0
)

// Overlay styling.
const (
	strokeColor      = "#f357a1"
	vertexFill       = "#fff"
	firstVertexSize  = 5
	vertexSize       = 4
	vertexWeight     = 2
	lineWeight       = 4
	tooltipOffsetX   = 20
	tooltipStart     = "Click to start drawing"
	tooltipKeepGoing = "Keep clicking to draw polygon"
	tooltipFinish    = "Click near start point to finish"
)

// Config holds the closure thresholds.
type Config struct {
	CloseMeters float64
	ClosePixels float64
}

// DefaultConfig returns the standard 500 m / 10 px thresholds.
func DefaultConfig() Config {
	return Config{CloseMeters: DefaultCloseMeters, ClosePixels: DefaultClosePixels}
}

// State is the drawing machine's state. Treat it as a value: Reduce never
// mutates its input.
type State struct {
	Phase   domain.DrawingPhase
	Points  []domain.GeoPoint
	Polygon domain.Polygon
	// Session counts drawing sessions; it increments on each start.
	Session int
}

// Event is an input to the machine.
type Event interface{ isEvent() }

// ToggleDraw flips the draw control.
type ToggleDraw struct{}

// Click is a map click with both coordinate systems and the viewport it was taken in.
type Click struct {
	LatLng    domain.GeoPoint
	Container domain.ScreenPoint
	Viewport  domain.Viewport
}

func (ToggleDraw) isEvent() {}
func (Click) isEvent()      {}

// Transition is the result of a reduction. Closed is set only on the
// transition that closes the polygon.
type Transition struct {
	State  State
	Closed *domain.Polygon
}

// New returns the initial Inactive state.
func New() State {
	return State{Phase: domain.PhaseInactive}
}

// Reduce applies ev to s.
func (c Config) Reduce(s State, ev Event) Transition {
	switch e := ev.(type) {
	case ToggleDraw:
		return Transition{State: toggle(s)}
	case Click:
		return c.click(s, e)
	default:
		return Transition{State: s}
	}
}

func toggle(s State) State {
	if s.Phase == domain.PhaseDrawing {
		// Abandon the in-progress chain. A previously closed polygon is kept
		// because the fetched results still refer to it.
		return State{Phase: domain.PhaseInactive, Polygon: s.Polygon, Session: s.Session}
	}
	return State{Phase: domain.PhaseDrawing, Polygon: s.Polygon, Session: s.Session + 1}
}

func (c Config) click(s State, e Click) Transition {
	if s.Phase != domain.PhaseDrawing {
		return Transition{State: s}
	}

	if len(s.Points) >= domain.MinPolygonVertices && c.closes(s.Points[0], e) {
		poly, err := domain.NewPolygon(s.Points)
		if err == nil {
			next := State{Phase: domain.PhaseClosed, Polygon: poly, Session: s.Session}
			return Transition{State: next, Closed: &poly}
		}
		// Fewer than three distinct vertices: keep drawing.
	}

	pts := make([]domain.GeoPoint, len(s.Points), len(s.Points)+1)
	copy(pts, s.Points)
	pts = append(pts, e.LatLng)
	return Transition{State: State{Phase: s.Phase, Points: pts, Polygon: s.Polygon, Session: s.Session}}
}

// closes reports whether a click lands close enough to the first vertex.
func (c Config) closes(first domain.GeoPoint, e Click) bool {
	if !e.Viewport.IsZero() {
		target := geospatial.ContainerPoint(e.Viewport, first)
		if e.Container.DistanceTo(target) < c.ClosePixels {
			return true
		}
	}
	return geospatial.Distance(e.LatLng, first) < c.CloseMeters
}

// TooltipText returns the hint for the current state, or "" when hidden.
func TooltipText(s State) string {
	if s.Phase != domain.PhaseDrawing {
		return ""
	}
	switch n := len(s.Points); {
	case n == 0:
		return tooltipStart
	case n < domain.MinPolygonVertices:
		return tooltipKeepGoing
	default:
		return tooltipFinish
	}
}

// Tooltip places the hint next to the pointer.
func Tooltip(s State, pointer domain.ScreenPoint) domain.Tooltip {
	text := TooltipText(s)
	if text == "" {
		return domain.Tooltip{}
	}
	return domain.Tooltip{
		Visible:  true,
		Text:     text,
		Position: domain.ScreenPoint{X: pointer.X + tooltipOffsetX, Y: pointer.Y},
	}
}

// Overlay describes the shapes the drawing layer shows for s.
func Overlay(s State) domain.Overlay {
	o := domain.Overlay{Color: strokeColor, Weight: lineWeight}
	switch s.Phase {
	case domain.PhaseDrawing:
		o.Vertices = make([]domain.CircleMarker, len(s.Points))
		for i, p := range s.Points {
			m := domain.CircleMarker{Center: p, Radius: vertexSize, Color: strokeColor, FillColor: vertexFill, Weight: vertexWeight}
			if i == 0 {
				m.Radius = firstVertexSize
				m.FillColor = strokeColor
			}
			o.Vertices[i] = m
		}
		if len(s.Points) > 1 {
			o.Polyline = append([]domain.GeoPoint(nil), s.Points...)
		}
	case domain.PhaseClosed:
		o.Polygon = s.Polygon.Points()
	}
	return o
}
