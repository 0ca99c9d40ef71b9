package domain

import "time"

// FetchStatus is the lifecycle position of the latest crime request.
type FetchStatus int

const (
	FetchIdle FetchStatus = iota
	FetchLoading
	FetchSuccess
	FetchTooManyResults
	FetchError
)

var fetchStatusNames = [...]string{"idle", "loading", "success", "too_many_results", "error"}

func (s FetchStatus) String() string {
	if int(s) < len(fetchStatusNames) {
		return fetchStatusNames[s]
	}
	return "unknown"
}

// MarshalText lets the status travel as its name in JSON.
func (s FetchStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// RenderMode selects how results are drawn on the map.
type RenderMode string

const (
	RenderMarkers RenderMode = "markers"
	RenderHeatmap RenderMode = "heatmap"
)

// DrawingPhase is the drawing state machine's position.
type DrawingPhase string

const (
	PhaseInactive DrawingPhase = "inactive"
	PhaseDrawing  DrawingPhase = "drawing"
	PhaseClosed   DrawingPhase = "closed"
)

// CircleMarker is a vertex dot on the drawing overlay.
type CircleMarker struct {
	Center    GeoPoint `json:"center"`
	Radius    int      `json:"radius"`
	Color     string   `json:"color"`
	FillColor string   `json:"fill_color"`
	Weight    int      `json:"weight"`
}

// Overlay is everything the drawing layer shows.
type Overlay struct {
	Vertices []CircleMarker `json:"vertices"`
	Polyline []GeoPoint     `json:"polyline,omitempty"`
	Polygon  []GeoPoint     `json:"polygon,omitempty"`
	Color    string         `json:"color"`
	Weight   int            `json:"weight"`
}

// Tooltip is the pointer-following hint shown while drawing.
type Tooltip struct {
	Visible  bool        `json:"visible"`
	Text     string      `json:"text,omitempty"`
	Position ScreenPoint `json:"position"`
}

// Popup is the detail shown when a marker is clicked.
type Popup struct {
	Category    string `json:"category"`
	Outcome     string `json:"outcome,omitempty"`
	OutcomeDate string `json:"outcome_date,omitempty"`
}

// Marker is one crime drawn in marker mode.
type Marker struct {
	ID       int64    `json:"id"`
	Position GeoPoint `json:"position"`
	Category string   `json:"category"`
	Color    string   `json:"color"`
	Hue      int      `json:"hue"`
	Tint     int      `json:"tint"`
	Popup    Popup    `json:"popup"`
}

// HeatPoint is a weighted sample of the heat layer.
type HeatPoint struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Intensity float64 `json:"intensity"`
}

// HeatLayer is a density layer. Generation changes every time the layer is rebuilt.
type HeatLayer struct {
	Generation uint64      `json:"generation"`
	Radius     int         `json:"radius"`
	Points     []HeatPoint `json:"points"`
}

// Summary is the aggregate of a record set.
type Summary struct {
	Total       int            `json:"total"`
	PerCategory map[string]int `json:"per_category"`
	Order       []string       `json:"order"`
}

// ChartDataset is one bar series.
type ChartDataset struct {
	Label           string   `json:"label"`
	Data            []int    `json:"data"`
	BackgroundColor []string `json:"background_color"`
	BorderColor     []string `json:"border_color"`
	BorderWidth     int      `json:"border_width"`
}

// ChartLegend controls the chart legend.
type ChartLegend struct {
	Display  bool   `json:"display"`
	Position string `json:"position"`
}

// ChartData is everything a bar chart widget needs.
type ChartData struct {
	Labels   []string       `json:"labels"`
	Keys     []string       `json:"keys"`
	Datasets []ChartDataset `json:"datasets"`
	Legend   ChartLegend    `json:"legend"`
}

// Recap is the plain-text statistics summary.
type Recap struct {
	Title string   `json:"title"`
	Total string   `json:"total"`
	Lines []string `json:"lines"`
}

// Banner is a user-facing message. A zero ExpiresAt means it stays until dismissed.
type Banner struct {
	Message   string     `json:"message"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Action    *Action    `json:"action,omitempty"`
}

// Action is a navigation button attached to a banner.
type Action struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// Handoff is the state the map view passes to the statistics view.
type Handoff struct {
	PolylinePoints string `json:"polyline_points"`
	Month          Month  `json:"month"`
}

// MonthOption is an entry of the month dropdown.
type MonthOption struct {
	Index int    `json:"index"`
	Value Month  `json:"value"`
	Label string `json:"label"`
}

// QueryLogEntry records the outcome of one upstream fetch.
type QueryLogEntry struct {
	ID         int64     `json:"id"`
	Month      Month     `json:"month"`
	Poly       string    `json:"poly"`
	Status     string    `json:"status"`
	Records    int       `json:"records"`
	DurationMs int64     `json:"duration_ms"`
	Cached     bool      `json:"cached"`
	CreatedAt  time.Time `json:"created_at"`
}

// MonthTrend is one month of a yearly trend.
type MonthTrend struct {
	Month  Month   `json:"month"`
	Status string  `json:"status"`
	Total  int     `json:"total"`
	Counts Summary `json:"summary"`
}

// TrendResult is the outcome of a yearly trend run.
type TrendResult struct {
	Poly   string       `json:"poly"`
	Year   int          `json:"year"`
	Months []MonthTrend `json:"months"`
}
