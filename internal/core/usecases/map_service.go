package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crimestat/crimestat/internal/core/domain"
	"github.com/crimestat/crimestat/internal/core/drawing"
	"github.com/crimestat/crimestat/internal/core/fetch"
	"github.com/crimestat/crimestat/internal/core/ports"
	"github.com/crimestat/crimestat/internal/core/presentation"
	"github.com/crimestat/crimestat/internal/pkg/metrics"
)

// Draw control labels and the loading overlay text.
const (
	DrawButtonIdle    = "Area of Interest"
	DrawButtonActive  = "Drawing Area..."
	LoadingText       = "Loading crimes data, please wait..."
	DefaultMonthIndex = 1
)

// DefaultIdleTTL is how long a session may go untouched before Sweep drops it.
const DefaultIdleTTL = 30 * time.Minute

// MapConfig tunes map sessions.
type MapConfig struct {
	Drawing      drawing.Config
	DismissAfter time.Duration
	HeatRadius   int
	DefaultMonth int
	IdleTTL      time.Duration
}

// DefaultMapConfig returns the standard thresholds, 7 s banners and radius 25 heat.
func DefaultMapConfig() MapConfig {
	return MapConfig{
		Drawing:      drawing.DefaultConfig(),
		DismissAfter: fetch.DefaultDismissAfter,
		HeatRadius:   presentation.DefaultHeatRadius,
		DefaultMonth: DefaultMonthIndex,
		IdleTTL:      DefaultIdleTTL,
	}
}

// SessionView is the full visible state of a map session.
type SessionView struct {
	ID                string              `json:"id"`
	Phase             domain.DrawingPhase `json:"phase"`
	DrawButton        string              `json:"draw_button"`
	Overlay           domain.Overlay      `json:"overlay"`
	Tooltip           domain.Tooltip      `json:"tooltip"`
	Month             domain.Month        `json:"month"`
	MonthIndex        int                 `json:"month_index"`
	Mode              domain.RenderMode   `json:"mode"`
	Status            domain.FetchStatus  `json:"status"`
	Loading           string              `json:"loading,omitempty"`
	Banner            *domain.Banner      `json:"banner,omitempty"`
	Records           int                 `json:"records"`
	Generation        uint64              `json:"generation"`
	Area              string              `json:"area,omitempty"`
	CanViewStatistics bool                `json:"can_view_statistics"`
}

// ClickInput is a map click as reported by the client.
type ClickInput struct {
	LatLng    domain.GeoPoint    `json:"latlng"`
	Container domain.ScreenPoint `json:"container"`
	Viewport  domain.Viewport    `json:"viewport"`
}

type mapSession struct {
	mu       sync.Mutex
	id       string
	draw     drawing.State
	fetch    fetch.State
	month    int
	mode     domain.RenderMode
	pointer  domain.ScreenPoint
	timer    *time.Timer
	closed   bool
	lastSeen time.Time
}

// MapService owns interactive map sessions. Every session is driven by one
// caller at a time: each operation runs to completion under the session's
// lock, and fetch completions are applied under the same lock.
type MapService struct {
	crimes  ports.CrimeSource
	surface ports.MapSurface
	cfg     MapConfig
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*mapSession
	wg       sync.WaitGroup
}

// NewMapService creates a new MapService. surface may be nil.
func NewMapService(crimes ports.CrimeSource, surface ports.MapSurface, cfg MapConfig) *MapService {
	if cfg.DefaultMonth < 1 || cfg.DefaultMonth > 12 {
		cfg.DefaultMonth = DefaultMonthIndex
	}
	if cfg.HeatRadius <= 0 {
		cfg.HeatRadius = presentation.DefaultHeatRadius
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	return &MapService{
		crimes:   crimes,
		surface:  surface,
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*mapSession),
	}
}

// WithClock replaces the time source used for banner expiry.
func (s *MapService) WithClock(now func() time.Time) *MapService {
	s.now = now
	return s
}

// Create starts a new session in the Inactive phase.
func (s *MapService) Create(ctx context.Context) SessionView {
	sess := &mapSession{
		id:    uuid.NewString(),
		draw:  drawing.New(),
		fetch: fetch.New(s.cfg.DismissAfter),
		month: s.cfg.DefaultMonth,
		mode:  domain.RenderMarkers,
	}
	sess.lastSeen = s.now()
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	metrics.ActiveSessions.Inc()

	slog.InfoContext(ctx, "map session created", "session", sess.id)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.viewLocked(sess)
}

// Delete removes a session. In-flight fetches for it are ignored on completion.
func (s *MapService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	metrics.ActiveSessions.Dec()

	sess.mu.Lock()
	sess.closeLocked()
	sess.mu.Unlock()
	slog.InfoContext(ctx, "map session deleted", "session", id)
	return nil
}

func (sess *mapSession) closeLocked() {
	sess.closed = true
	if sess.timer != nil {
		sess.timer.Stop()
		sess.timer = nil
	}
}

// Sweep drops sessions nobody has touched for longer than the idle TTL and
// returns how many were dropped.
func (s *MapService) Sweep(ctx context.Context) int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		if now.Sub(sess.lastSeen) > s.cfg.IdleTTL {
			sess.closeLocked()
			delete(s.sessions, id)
			n++
		}
		sess.mu.Unlock()
	}
	if n > 0 {
		metrics.ActiveSessions.Sub(float64(n))
		metrics.SessionsExpired.Add(float64(n))
		slog.InfoContext(ctx, "idle map sessions expired", "count", n)
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx ends.
func (s *MapService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Count returns the number of live sessions.
func (s *MapService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Wait blocks until every in-flight fetch has been applied.
func (s *MapService) Wait() {
	s.wg.Wait()
}

func (s *MapService) lookup(id string) (*mapSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return sess, nil
}

// with runs fn under the session's lock.
func (s *MapService) with(id string, fn func(sess *mapSession) error) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	sess.lastSeen = s.now()
	return fn(sess)
}

// Snapshot returns the session's current visible state.
func (s *MapService) Snapshot(_ context.Context, id string) (SessionView, error) {
	var v SessionView
	err := s.with(id, func(sess *mapSession) error {
		v = s.viewLocked(sess)
		return nil
	})
	return v, err
}

// ToggleDraw flips the draw control.
func (s *MapService) ToggleDraw(ctx context.Context, id string) (SessionView, error) {
	var v SessionView
	err := s.with(id, func(sess *mapSession) error {
		t := s.cfg.Drawing.Reduce(sess.draw, drawing.ToggleDraw{})
		sess.draw = t.State
		s.emitDrawingLocked(ctx, sess)
		v = s.viewLocked(sess)
		return nil
	})
	return v, err
}

// PointerClick feeds a map click to the drawing machine. Closing the
// polygon issues exactly one fetch for the selected month.
func (s *MapService) PointerClick(ctx context.Context, id string, in ClickInput) (SessionView, error) {
	var v SessionView
	err := s.with(id, func(sess *mapSession) error {
		sess.pointer = in.Container
		t := s.cfg.Drawing.Reduce(sess.draw, drawing.Click{
			LatLng:    in.LatLng,
			Container: in.Container,
			Viewport:  in.Viewport,
		})
		sess.draw = t.State
		s.emitDrawingLocked(ctx, sess)
		if t.Closed != nil {
			metrics.PolygonsClosed.Inc()
			slog.InfoContext(ctx, "area closed", "session", sess.id, "vertices", len(t.Closed.Vertices()))
			s.submitLocked(ctx, sess)
		}
		v = s.viewLocked(sess)
		return nil
	})
	return v, err
}

// PointerMove updates the tooltip position.
func (s *MapService) PointerMove(ctx context.Context, id string, container domain.ScreenPoint) (domain.Tooltip, error) {
	var tip domain.Tooltip
	err := s.with(id, func(sess *mapSession) error {
		sess.pointer = container
		tip = drawing.Tooltip(sess.draw, sess.pointer)
		s.emitLocked(ctx, sess, ports.RenderTooltip, tip)
		return nil
	})
	return tip, err
}

// SelectMonth changes the month (1-12). When an area exists it is refetched.
func (s *MapService) SelectMonth(ctx context.Context, id string, index int) (SessionView, error) {
	if _, err := domain.MonthFromIndex(index); err != nil {
		return SessionView{}, err
	}
	var v SessionView
	err := s.with(id, func(sess *mapSession) error {
		changed := sess.month != index
		sess.month = index
		if changed && !sess.draw.Polygon.IsEmpty() {
			s.submitLocked(ctx, sess)
		}
		v = s.viewLocked(sess)
		return nil
	})
	return v, err
}

// SetRenderMode switches between marker and heatmap rendering.
func (s *MapService) SetRenderMode(ctx context.Context, id string, mode domain.RenderMode) (SessionView, error) {
	if mode != domain.RenderMarkers && mode != domain.RenderHeatmap {
		return SessionView{}, fmt.Errorf("%w: %q", domain.ErrInvalidMode, mode)
	}
	var v SessionView
	err := s.with(id, func(sess *mapSession) error {
		if sess.mode != mode {
			sess.mode = mode
			s.emitResultsLocked(ctx, sess)
		}
		v = s.viewLocked(sess)
		return nil
	})
	return v, err
}

// Records returns the current record set.
func (s *MapService) Records(_ context.Context, id string) ([]domain.CrimeRecord, error) {
	var out []domain.CrimeRecord
	err := s.with(id, func(sess *mapSession) error {
		out = sess.fetch.Records
		return nil
	})
	return out, err
}

// Markers returns one marker per current record.
func (s *MapService) Markers(_ context.Context, id string) ([]domain.Marker, error) {
	var out []domain.Marker
	err := s.with(id, func(sess *mapSession) error {
		out = presentation.BuildMarkers(sess.fetch.Records)
		return nil
	})
	return out, err
}

// Heat returns the heat layer for the current record set.
func (s *MapService) Heat(_ context.Context, id string) (domain.HeatLayer, error) {
	var layer domain.HeatLayer
	err := s.with(id, func(sess *mapSession) error {
		layer = s.heatLocked(sess)
		return nil
	})
	return layer, err
}

// Area returns the last closed polygon and the selected month.
func (s *MapService) Area(_ context.Context, id string) (domain.Polygon, domain.Month, int, error) {
	var (
		poly  domain.Polygon
		month domain.Month
		n     int
	)
	err := s.with(id, func(sess *mapSession) error {
		if sess.draw.Polygon.IsEmpty() {
			return domain.ErrNoAreaSelected
		}
		poly = sess.draw.Polygon
		month, _ = domain.MonthFromIndex(sess.month)
		n = len(sess.fetch.Records)
		return nil
	})
	return poly, month, n, err
}

// Handoff returns what the statistics view needs. Without an area the
// polygon is the noarea sentinel.
func (s *MapService) Handoff(_ context.Context, id string) (domain.Handoff, error) {
	var h domain.Handoff
	err := s.with(id, func(sess *mapSession) error {
		h.Month, _ = domain.MonthFromIndex(sess.month)
		h.PolylinePoints = domain.NoAreaSentinel
		if !sess.draw.Polygon.IsEmpty() {
			h.PolylinePoints = sess.draw.Polygon.Encode()
		}
		return nil
	})
	return h, err
}

// submitLocked issues a fetch for the session's area and month.
func (s *MapService) submitLocked(ctx context.Context, sess *mapSession) {
	q, err := domain.NewRegionQuery(sess.draw.Polygon, sess.month)
	if err != nil {
		slog.WarnContext(ctx, "region query", "session", sess.id, "error", err)
		return
	}
	q.Seq = sess.fetch.Seq + 1
	sess.fetch = fetch.Reduce(sess.fetch, fetch.Submitted{Seq: q.Seq})
	if sess.timer != nil {
		sess.timer.Stop()
		sess.timer = nil
	}
	s.emitLocked(ctx, sess, ports.RenderStatus, s.viewLocked(sess))

	s.wg.Add(1)
	go s.runFetch(context.WithoutCancel(ctx), sess, q)
}

func (s *MapService) runFetch(ctx context.Context, sess *mapSession, q domain.RegionQuery) {
	defer s.wg.Done()

	records, err := s.crimes.FetchCrimes(ctx, q)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return
	}
	if q.Seq != sess.fetch.Seq {
		metrics.StaleResponsesDropped.Inc()
		slog.DebugContext(ctx, "stale crime response dropped", "session", sess.id, "seq", q.Seq, "latest", sess.fetch.Seq)
		return
	}

	if err != nil {
		slog.WarnContext(ctx, "crime fetch failed", "session", sess.id, "date", q.Date(), "error", err)
		sess.fetch = fetch.Reduce(sess.fetch, fetch.Failed{Seq: q.Seq, Err: err, At: s.now()})
		s.scheduleDismissLocked(sess)
	} else {
		sess.fetch = fetch.Reduce(sess.fetch, fetch.Succeeded{Seq: q.Seq, Records: records})
	}
	s.emitLocked(ctx, sess, ports.RenderStatus, s.viewLocked(sess))
	s.emitResultsLocked(ctx, sess)
}

// scheduleDismissLocked pushes a status update once the banner expires.
func (s *MapService) scheduleDismissLocked(sess *mapSession) {
	until := sess.fetch.BannerUntil
	if until.IsZero() {
		return
	}
	seq := sess.fetch.Seq
	sess.timer = time.AfterFunc(until.Sub(s.now()), func() {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		if sess.closed || sess.fetch.Seq != seq {
			return
		}
		sess.fetch = fetch.Reduce(sess.fetch, fetch.Tick{At: s.now()})
		s.emitLocked(context.Background(), sess, ports.RenderStatus, s.viewLocked(sess))
	})
}

func (s *MapService) heatLocked(sess *mapSession) domain.HeatLayer {
	return presentation.BuildHeat(sess.fetch.Records, sess.fetch.Generation, s.cfg.HeatRadius)
}

func (s *MapService) emitDrawingLocked(ctx context.Context, sess *mapSession) {
	s.emitLocked(ctx, sess, ports.RenderDrawing, drawing.Overlay(sess.draw))
	s.emitLocked(ctx, sess, ports.RenderTooltip, drawing.Tooltip(sess.draw, sess.pointer))
}

// emitResultsLocked renders the active result layer. The two modes are
// exclusive: the inactive layer is sent empty.
func (s *MapService) emitResultsLocked(ctx context.Context, sess *mapSession) {
	if sess.mode == domain.RenderHeatmap {
		s.emitLocked(ctx, sess, ports.RenderMarkers, []domain.Marker{})
		s.emitLocked(ctx, sess, ports.RenderHeat, s.heatLocked(sess))
		return
	}
	s.emitLocked(ctx, sess, ports.RenderHeat, nil)
	s.emitLocked(ctx, sess, ports.RenderMarkers, presentation.BuildMarkers(sess.fetch.Records))
}

func (s *MapService) emitLocked(ctx context.Context, sess *mapSession, kind string, payload any) {
	if s.surface == nil {
		return
	}
	ev := ports.RenderEvent{Kind: kind, Session: sess.id, Payload: payload}
	if err := s.surface.Render(ctx, ev); err != nil {
		slog.WarnContext(ctx, "render", "session", sess.id, "kind", kind, "error", err)
	}
}

func (s *MapService) viewLocked(sess *mapSession) SessionView {
	st := fetch.At(sess.fetch, s.now())
	month, _ := domain.MonthFromIndex(sess.month)
	v := SessionView{
		ID:         sess.id,
		Phase:      sess.draw.Phase,
		DrawButton: DrawButtonIdle,
		Overlay:    drawing.Overlay(sess.draw),
		Tooltip:    drawing.Tooltip(sess.draw, sess.pointer),
		Month:      month,
		MonthIndex: sess.month,
		Mode:       sess.mode,
		Status:     st.Status,
		Banner:     fetch.Banner(st),
		Records:    len(st.Records),
		Generation: st.Generation,
	}
	if sess.draw.Phase == domain.PhaseDrawing {
		v.DrawButton = DrawButtonActive
	}
	if st.Status == domain.FetchLoading {
		v.Loading = LoadingText
	}
	if !sess.draw.Polygon.IsEmpty() {
		v.Area = sess.draw.Polygon.Encode()
		v.CanViewStatistics = st.Succeeded
	}
	return v
}
