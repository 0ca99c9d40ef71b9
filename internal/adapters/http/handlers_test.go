package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/crimestat/crimestat/internal/adapters/http"
	"github.com/crimestat/crimestat/internal/core/domain"
	"github.com/crimestat/crimestat/internal/core/usecases"
)

// ---- Mocks ----

type mockCrimeSource struct {
	mu      sync.Mutex
	fetchFn func(ctx context.Context, q domain.RegionQuery) ([]domain.CrimeRecord, error)
	calls   int
}

func (m *mockCrimeSource) FetchCrimes(ctx context.Context, q domain.RegionQuery) ([]domain.CrimeRecord, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.fetchFn != nil {
		return m.fetchFn(ctx, q)
	}
	return nil, nil
}

type mockQueryLogRepo struct {
	recentFn func(ctx context.Context, limit, offset int) ([]domain.QueryLogEntry, error)
}

func (m *mockQueryLogRepo) Insert(context.Context, *domain.QueryLogEntry) error { return nil }
func (m *mockQueryLogRepo) Recent(ctx context.Context, limit, offset int) ([]domain.QueryLogEntry, error) {
	if m.recentFn != nil {
		return m.recentFn(ctx, limit, offset)
	}
	return nil, nil
}

type mockTrendRunner struct {
	startFn  func(ctx context.Context, poly string) (string, error)
	resultFn func(ctx context.Context, id string) (*domain.TrendResult, bool, error)
}

func (m *mockTrendRunner) Start(ctx context.Context, poly string) (string, error) {
	if m.startFn != nil {
		return m.startFn(ctx, poly)
	}
	return "trend-1", nil
}

func (m *mockTrendRunner) Result(ctx context.Context, id string) (*domain.TrendResult, bool, error) {
	if m.resultFn != nil {
		return m.resultFn(ctx, id)
	}
	return nil, false, nil
}

type mockPinger struct{ err error }

func (m mockPinger) Ping(context.Context) error { return m.err }

// ---- Test helpers ----

const squarePoly = "52.6,-1.2:52.6,-1.1:52.66,-1.1:52.66,-1.2:52.6,-1.2"

func sampleRecords() []domain.CrimeRecord {
	return []domain.CrimeRecord{
		{ID: 1, Category: "burglary", Location: domain.CrimeLocation{Latitude: "52.62", Longitude: "-1.15"}},
		{ID: 2, Category: "drugs", Location: domain.CrimeLocation{Latitude: "52.63", Longitude: "-1.14"}},
		{ID: 3, Category: "burglary", Location: domain.CrimeLocation{Latitude: "52.64", Longitude: "-1.13"}},
	}
}

func okSource() *mockCrimeSource {
	return &mockCrimeSource{fetchFn: func(context.Context, domain.RegionQuery) ([]domain.CrimeRecord, error) {
		return sampleRecords(), nil
	}}
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(src *mockCrimeSource, opts ...func(*handler.Dependencies)) *handler.Dependencies {
	d := &handler.Dependencies{
		Maps:       usecases.NewMapService(src, nil, usecases.DefaultMapConfig()),
		Statistics: usecases.NewStatisticsService(src),
		Trends:     usecases.NewTrendService(src, nil),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, []byte, map[string][]string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, b, resp.Header
}

func decode(t *testing.T, b []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
}

// sessionBody mirrors the session JSON with statuses as strings.
type sessionBody struct {
	ID                string `json:"id"`
	Phase             string `json:"phase"`
	DrawButton        string `json:"draw_button"`
	Month             string `json:"month"`
	Mode              string `json:"mode"`
	Status            string `json:"status"`
	Records           int    `json:"records"`
	CanViewStatistics bool   `json:"can_view_statistics"`
	Banner            *struct {
		Message string `json:"message"`
	} `json:"banner"`
}

func createSession(t *testing.T, app *fiber.App) sessionBody {
	t.Helper()
	code, b, _ := do(t, app, "POST", "/v1/sessions", "")
	if code != 201 {
		t.Fatalf("create session: expected 201, got %d: %s", code, b)
	}
	var s sessionBody
	decode(t, b, &s)
	return s
}

func click(lat, lon float64) string {
	return fmt.Sprintf(`{"latlng":{"lat":%g,"lon":%g}}`, lat, lon)
}

// drawSquare draws and closes a square around Leicester.
func drawSquare(t *testing.T, app *fiber.App, id string) sessionBody {
	t.Helper()
	base := "/v1/sessions/" + id
	if code, b, _ := do(t, app, "POST", base+"/draw/toggle", ""); code != 200 {
		t.Fatalf("toggle: %d %s", code, b)
	}
	var last []byte
	for _, p := range [][2]float64{{52.60, -1.20}, {52.60, -1.10}, {52.66, -1.10}, {52.66, -1.20}, {52.601, -1.2}} {
		code, b, _ := do(t, app, "POST", base+"/pointer/click", click(p[0], p[1]))
		if code != 200 {
			t.Fatalf("click: %d %s", code, b)
		}
		last = b
	}
	var s sessionBody
	decode(t, last, &s)
	return s
}

// ---- System ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps(&mockCrimeSource{}))
	code, b, _ := do(t, app, "GET", "/v1/health", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	var body map[string]any
	decode(t, b, &body)
	if body["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", body["status"])
	}
}

func TestReady_NotConfigured(t *testing.T) {
	app := setupApp(makeDeps(&mockCrimeSource{}))
	code, b, _ := do(t, app, "GET", "/v1/ready", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, b)
	}
}

func TestReady_DatabaseDown(t *testing.T) {
	app := setupApp(makeDeps(&mockCrimeSource{}, func(d *handler.Dependencies) {
		d.DB = mockPinger{err: errors.New("connection refused")}
		d.Cache = mockPinger{}
	}))
	code, b, _ := do(t, app, "GET", "/v1/ready", "")
	if code != 503 {
		t.Fatalf("expected 503, got %d", code)
	}
	var body struct {
		Checks map[string]string `json:"checks"`
	}
	decode(t, b, &body)
	if body.Checks["cache"] != "ok" {
		t.Errorf("expected cache ok, got %q", body.Checks["cache"])
	}
	if !strings.HasPrefix(body.Checks["database"], "error") {
		t.Errorf("expected database error, got %q", body.Checks["database"])
	}
}

// ---- Sessions ----

func TestCreateSession(t *testing.T) {
	app := setupApp(makeDeps(&mockCrimeSource{}))
	s := createSession(t, app)
	if s.ID == "" {
		t.Fatal("expected session id")
	}
	if s.Phase != "inactive" || s.DrawButton != usecases.DrawButtonIdle {
		t.Errorf("unexpected initial state: %+v", s)
	}
	if s.Month != "2024-01" || s.Mode != "markers" || s.Status != "idle" {
		t.Errorf("unexpected defaults: %+v", s)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	app := setupApp(makeDeps(&mockCrimeSource{}))
	code, b, _ := do(t, app, "GET", "/v1/sessions/missing", "")
	if code != 404 {
		t.Fatalf("expected 404, got %d", code)
	}
	var e handler.APIError
	decode(t, b, &e)
	if e.Code != "not_found" {
		t.Errorf("expected not_found, got %q", e.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	deps := makeDeps(&mockCrimeSource{})
	app := setupApp(deps)
	s := createSession(t, app)

	if code, _, _ := do(t, app, "DELETE", "/v1/sessions/"+s.ID, ""); code != 204 {
		t.Fatalf("expected 204, got %d", code)
	}
	if code, _, _ := do(t, app, "GET", "/v1/sessions/"+s.ID, ""); code != 404 {
		t.Errorf("expected 404 after delete, got %d", code)
	}
}

func TestDrawAndFetch(t *testing.T) {
	src := okSource()
	deps := makeDeps(src)
	app := setupApp(deps)
	s := createSession(t, app)

	closed := drawSquare(t, app, s.ID)
	if closed.Phase != "closed" {
		t.Fatalf("expected closed phase, got %q", closed.Phase)
	}
	deps.Maps.Wait()

	code, b, headers := do(t, app, "GET", "/v1/sessions/"+s.ID, "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if cc := strings.Join(headers["Cache-Control"], ","); cc != "no-store" {
		t.Errorf("expected no-store, got %q", cc)
	}
	var got sessionBody
	decode(t, b, &got)
	if got.Status != "success" || got.Records != 3 || !got.CanViewStatistics {
		t.Errorf("unexpected session after fetch: %+v", got)
	}
	if src.calls != 1 {
		t.Errorf("expected exactly one fetch, got %d", src.calls)
	}

	code, b, _ = do(t, app, "GET", "/v1/sessions/"+s.ID+"/markers", "")
	if code != 200 {
		t.Fatalf("markers: expected 200, got %d", code)
	}
	var markers []domain.Marker
	decode(t, b, &markers)
	if len(markers) != 3 {
		t.Errorf("expected 3 markers, got %d", len(markers))
	}

	code, b, _ = do(t, app, "GET", "/v1/sessions/"+s.ID+"/handoff", "")
	if code != 200 {
		t.Fatalf("handoff: expected 200, got %d", code)
	}
	var h domain.Handoff
	decode(t, b, &h)
	if h.PolylinePoints != squarePoly || h.Month != "2024-01" {
		t.Errorf("unexpected handoff: %+v", h)
	}

	code, b, headers = do(t, app, "GET", "/v1/sessions/"+s.ID+"/area.geojson", "")
	if code != 200 {
		t.Fatalf("area: expected 200, got %d: %s", code, b)
	}
	if ct := strings.Join(headers["Content-Type"], ","); ct != "application/geo+json" {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.Contains(string(b), `"Polygon"`) {
		t.Errorf("expected a polygon feature, got %s", b)
	}

	code, _, headers = do(t, app, "GET", "/v1/sessions/"+s.ID+"/heat.png?width=200&height=100", "")
	if code != 200 {
		t.Fatalf("heat.png: expected 200, got %d", code)
	}
	if ct := strings.Join(headers["Content-Type"], ","); ct != "image/png" {
		t.Errorf("unexpected content type %q", ct)
	}
}

func TestSelectMonth_Refetches(t *testing.T) {
	var months []domain.Month
	var mu sync.Mutex
	src := &mockCrimeSource{fetchFn: func(_ context.Context, q domain.RegionQuery) ([]domain.CrimeRecord, error) {
		mu.Lock()
		months = append(months, q.Month)
		mu.Unlock()
		return sampleRecords(), nil
	}}
	deps := makeDeps(src)
	app := setupApp(deps)
	s := createSession(t, app)
	drawSquare(t, app, s.ID)
	deps.Maps.Wait()

	code, b, _ := do(t, app, "POST", "/v1/sessions/"+s.ID+"/month", `{"month":3}`)
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, b)
	}
	deps.Maps.Wait()

	if len(months) != 2 || months[1] != "2024-03" {
		t.Errorf("expected a refetch for 2024-03, got %v", months)
	}
}

func TestSelectMonth_Invalid(t *testing.T) {
	app := setupApp(makeDeps(&mockCrimeSource{}))
	s := createSession(t, app)
	code, _, _ := do(t, app, "POST", "/v1/sessions/"+s.ID+"/month", `{"month":13}`)
	if code != 400 {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestRenderMode(t *testing.T) {
	app := setupApp(makeDeps(&mockCrimeSource{}))
	s := createSession(t, app)

	code, b, _ := do(t, app, "POST", "/v1/sessions/"+s.ID+"/mode", `{"mode":"heatmap"}`)
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	var got sessionBody
	decode(t, b, &got)
	if got.Mode != "heatmap" {
		t.Errorf("expected heatmap, got %q", got.Mode)
	}

	if code, _, _ := do(t, app, "POST", "/v1/sessions/"+s.ID+"/mode", `{"mode":"satellite"}`); code != 400 {
		t.Errorf("expected 400 for unknown mode, got %d", code)
	}
}

func TestPointerMove_Tooltip(t *testing.T) {
	app := setupApp(makeDeps(&mockCrimeSource{}))
	s := createSession(t, app)
	do(t, app, "POST", "/v1/sessions/"+s.ID+"/draw/toggle", "")

	code, b, _ := do(t, app, "POST", "/v1/sessions/"+s.ID+"/pointer/move", `{"x":100,"y":50}`)
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	var tip domain.Tooltip
	decode(t, b, &tip)
	if !tip.Visible || tip.Text != "Click to start drawing" {
		t.Errorf("unexpected tooltip: %+v", tip)
	}
	if tip.Position.X != 120 || tip.Position.Y != 50 {
		t.Errorf("expected tooltip at (120,50), got %+v", tip.Position)
	}
}

func TestHandoff_NoArea(t *testing.T) {
	app := setupApp(makeDeps(&mockCrimeSource{}))
	s := createSession(t, app)

	_, b, _ := do(t, app, "GET", "/v1/sessions/"+s.ID+"/handoff", "")
	var h domain.Handoff
	decode(t, b, &h)
	if h.PolylinePoints != domain.NoAreaSentinel {
		t.Errorf("expected noarea, got %q", h.PolylinePoints)
	}

	code, b, _ := do(t, app, "GET", "/v1/sessions/"+s.ID+"/area.geojson", "")
	if code != 422 {
		t.Fatalf("expected 422, got %d", code)
	}
	var e handler.APIError
	decode(t, b, &e)
	if e.Code != "no_area_selected" {
		t.Errorf("expected no_area_selected, got %q", e.Code)
	}
}

func TestTooManyResults_Banner(t *testing.T) {
	src := &mockCrimeSource{fetchFn: func(context.Context, domain.RegionQuery) ([]domain.CrimeRecord, error) {
		return nil, domain.ErrPayloadTooLarge
	}}
	deps := makeDeps(src)
	app := setupApp(deps)
	s := createSession(t, app)
	drawSquare(t, app, s.ID)
	deps.Maps.Wait()

	_, b, _ := do(t, app, "GET", "/v1/sessions/"+s.ID, "")
	var got sessionBody
	decode(t, b, &got)
	if got.Status != "too_many_results" {
		t.Fatalf("expected too_many_results, got %q", got.Status)
	}
	if got.Banner == nil || got.Banner.Message != domain.MessageTooManyResults {
		t.Errorf("unexpected banner: %+v", got.Banner)
	}
	if got.CanViewStatistics {
		t.Error("statistics should not be offered without a successful fetch")
	}
}

// ---- Statistics ----

func TestStatistics_Success(t *testing.T) {
	app := setupApp(makeDeps(okSource()))
	code, b, _ := do(t, app, "GET", "/v1/statistics?poly="+squarePoly+"&date=2024-02&legend_height=800", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, b)
	}
	var v struct {
		Summary domain.Summary   `json:"summary"`
		Chart   domain.ChartData `json:"chart"`
		Recap   domain.Recap     `json:"recap"`
	}
	decode(t, b, &v)
	if v.Summary.Total != 3 || v.Summary.PerCategory["burglary"] != 2 {
		t.Errorf("unexpected summary: %+v", v.Summary)
	}
	if !v.Chart.Legend.Display {
		t.Error("expected legend to display above 500px")
	}
	if v.Recap.Total != "Total Crimes: 3" {
		t.Errorf("unexpected recap total %q", v.Recap.Total)
	}
}

func TestStatistics_NoArea(t *testing.T) {
	src := okSource()
	app := setupApp(makeDeps(src))
	code, b, _ := do(t, app, "GET", "/v1/statistics?poly=noarea&date=2024-01", "")
	if code != 422 {
		t.Fatalf("expected 422, got %d", code)
	}
	var e struct {
		Code string `json:"code"`
		View struct {
			Banner domain.Banner `json:"banner"`
		} `json:"view"`
	}
	decode(t, b, &e)
	if e.Code != "no_area_selected" {
		t.Errorf("expected no_area_selected, got %q", e.Code)
	}
	if e.View.Banner.Action == nil || e.View.Banner.Action.Label != "GO TO MAP" {
		t.Errorf("expected GO TO MAP action, got %+v", e.View.Banner)
	}
	if src.calls != 0 {
		t.Errorf("expected no upstream call, got %d", src.calls)
	}
}

func TestStatistics_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		api  string
		msg  string
	}{
		{"too large", domain.ErrPayloadTooLarge, 422, "too_many_results", domain.MessageTooManyResults},
		{"network", domain.ErrNetworkFailure, 502, "upstream_error", domain.MessageFetchFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &mockCrimeSource{fetchFn: func(context.Context, domain.RegionQuery) ([]domain.CrimeRecord, error) {
				return nil, tt.err
			}}
			app := setupApp(makeDeps(src))
			code, b, _ := do(t, app, "GET", "/v1/statistics?poly="+squarePoly+"&date=2024-01", "")
			if code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, code)
			}
			var e struct {
				handler.APIError
				View struct {
					Banner *domain.Banner `json:"banner"`
				} `json:"view"`
			}
			decode(t, b, &e)
			if e.Code != tt.api {
				t.Errorf("expected %s, got %q", tt.api, e.Code)
			}
			if e.Message != tt.msg {
				t.Errorf("message = %q, want %q", e.Message, tt.msg)
			}
			if e.View.Banner == nil || e.View.Banner.Message != tt.msg {
				t.Errorf("view banner = %+v, want %q", e.View.Banner, tt.msg)
			}
		})
	}
}

func TestStatistics_InvalidInput(t *testing.T) {
	app := setupApp(makeDeps(okSource()))
	for _, q := range []string{
		"poly=" + squarePoly + "&date=2024-13",
		"poly=52.6,-1.2:52.6,-1.1&date=2024-01",
		"poly=abc&date=2024-01",
	} {
		if code, b, _ := do(t, app, "GET", "/v1/statistics?"+q, ""); code != 400 {
			t.Errorf("%s: expected 400, got %d: %s", q, code, b)
		}
	}
}

func TestStatisticsChartPNG(t *testing.T) {
	app := setupApp(makeDeps(okSource()))
	code, b, headers := do(t, app, "GET", "/v1/statistics/chart.png?poly="+squarePoly+"&date=2024-01&width=400&height=300", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, b)
	}
	if ct := strings.Join(headers["Content-Type"], ","); ct != "image/png" {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.HasPrefix(string(b), "\x89PNG") {
		t.Error("expected PNG signature")
	}
}

// ---- Reference data ----

func TestCategories(t *testing.T) {
	app := setupApp(makeDeps(&mockCrimeSource{}))
	code, b, _ := do(t, app, "GET", "/v1/categories", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	var cats []handler.Category
	decode(t, b, &cats)
	if len(cats) != len(domain.CategoryColors) {
		t.Fatalf("expected %d categories, got %d", len(domain.CategoryColors), len(cats))
	}
	if cats[0].Key != "anti-social-behaviour" || cats[0].Label != "Anti social behaviour" || cats[0].Color != "#6d2ddd" {
		t.Errorf("unexpected first category: %+v", cats[0])
	}
}

func TestMonths(t *testing.T) {
	app := setupApp(makeDeps(&mockCrimeSource{}))
	_, b, _ := do(t, app, "GET", "/v1/months", "")
	var months []domain.MonthOption
	decode(t, b, &months)
	if len(months) != 12 || months[0].Label != "January 2024" || months[11].Value != "2024-12" {
		t.Errorf("unexpected months: %+v", months)
	}
}

func TestETag_NotModified(t *testing.T) {
	app := setupApp(makeDeps(&mockCrimeSource{}))
	resp, err := app.Test(httptest.NewRequest("GET", "/v1/months", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected an ETag")
	}

	req := httptest.NewRequest("GET", "/v1/months", nil)
	req.Header.Set("If-None-Match", etag)
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

func TestRecentQueries(t *testing.T) {
	app := setupApp(makeDeps(&mockCrimeSource{}))
	if code, _, _ := do(t, app, "GET", "/v1/queries/recent", ""); code != 503 {
		t.Errorf("expected 503 without a query log, got %d", code)
	}

	repo := &mockQueryLogRepo{recentFn: func(_ context.Context, limit, offset int) ([]domain.QueryLogEntry, error) {
		out := make([]domain.QueryLogEntry, limit)
		for i := range out {
			out[i] = domain.QueryLogEntry{ID: int64(offset + i + 1), Status: "success"}
		}
		return out, nil
	}}
	app = setupApp(makeDeps(&mockCrimeSource{}, func(d *handler.Dependencies) {
		d.QueryLog = usecases.NewQueryLogService(repo)
	}))
	code, b, headers := do(t, app, "GET", "/v1/queries/recent?limit=5&offset=5", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	var page struct {
		Data       []domain.QueryLogEntry `json:"data"`
		Pagination handler.Pagination     `json:"pagination"`
	}
	decode(t, b, &page)
	if len(page.Data) != 5 || !page.Pagination.HasMore {
		t.Errorf("unexpected page: %+v", page.Pagination)
	}
	link := strings.Join(headers["Link"], ",")
	if !strings.Contains(link, `offset=10&limit=5>; rel="next"`) || !strings.Contains(link, `rel="prev"`) {
		t.Errorf("unexpected Link header %q", link)
	}
}

// ---- Trends ----

func TestTrends_Unavailable(t *testing.T) {
	app := setupApp(makeDeps(&mockCrimeSource{}))
	code, _, _ := do(t, app, "POST", "/v1/trends", `{"poly":"`+squarePoly+`"}`)
	if code != 503 {
		t.Errorf("expected 503, got %d", code)
	}
}

func TestTrends_StartAndPoll(t *testing.T) {
	done := false
	runner := &mockTrendRunner{
		resultFn: func(_ context.Context, id string) (*domain.TrendResult, bool, error) {
			if id == "missing" {
				return nil, false, domain.ErrTrendNotFound
			}
			if !done {
				return nil, false, nil
			}
			return &domain.TrendResult{Poly: squarePoly, Year: domain.QueryYear}, true, nil
		},
	}
	src := &mockCrimeSource{}
	app := setupApp(makeDeps(src, func(d *handler.Dependencies) {
		d.Trends = usecases.NewTrendService(src, runner)
	}))

	code, b, _ := do(t, app, "POST", "/v1/trends", `{"poly":"`+squarePoly+`"}`)
	if code != 202 {
		t.Fatalf("expected 202, got %d: %s", code, b)
	}
	var started map[string]string
	decode(t, b, &started)
	if started["id"] != "trend-1" {
		t.Errorf("unexpected id %q", started["id"])
	}

	if code, _, _ := do(t, app, "GET", "/v1/trends/trend-1", ""); code != 202 {
		t.Errorf("expected 202 while running, got %d", code)
	}
	done = true
	code, b, _ = do(t, app, "GET", "/v1/trends/trend-1", "")
	if code != 200 {
		t.Fatalf("expected 200 when done, got %d", code)
	}
	var result domain.TrendResult
	decode(t, b, &result)
	if result.Year != domain.QueryYear {
		t.Errorf("unexpected result: %+v", result)
	}

	if code, _, _ := do(t, app, "GET", "/v1/trends/missing", ""); code != 404 {
		t.Errorf("expected 404, got %d", code)
	}
	if code, _, _ := do(t, app, "POST", "/v1/trends", `{"poly":"noarea"}`); code != 422 {
		t.Errorf("expected 422 for noarea, got %d", code)
	}
}

// ---- GraphQL ----

func TestGraphQL_Statistics(t *testing.T) {
	app := setupApp(makeDeps(okSource()))
	query := fmt.Sprintf(`{"query":"{ statistics(poly: \"%s\", date: \"2024-01\") { total categories { key count } recap } }"}`, squarePoly)
	code, b, _ := do(t, app, "POST", "/graphql", query)
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	var result struct {
		Data struct {
			Statistics struct {
				Total      int `json:"total"`
				Categories []struct {
					Key   string `json:"key"`
					Count int    `json:"count"`
				} `json:"categories"`
				Recap []string `json:"recap"`
			} `json:"statistics"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	decode(t, b, &result)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	st := result.Data.Statistics
	if st.Total != 3 || len(st.Categories) != 2 || st.Categories[0].Key != "burglary" || st.Categories[0].Count != 2 {
		t.Errorf("unexpected statistics: %+v", st)
	}
	if len(st.Recap) == 0 || st.Recap[0] != "Statistics Recap" {
		t.Errorf("unexpected recap: %v", st.Recap)
	}
}

func TestGraphQL_SessionMutations(t *testing.T) {
	app := setupApp(makeDeps(&mockCrimeSource{}))
	code, b, _ := do(t, app, "POST", "/graphql", `{"query":"mutation { createSession { id phase } }"}`)
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	var created struct {
		Data struct {
			CreateSession struct {
				ID    string `json:"id"`
				Phase string `json:"phase"`
			} `json:"createSession"`
		} `json:"data"`
	}
	decode(t, b, &created)
	id := created.Data.CreateSession.ID
	if id == "" || created.Data.CreateSession.Phase != "inactive" {
		t.Fatalf("unexpected session: %s", b)
	}

	_, b, _ = do(t, app, "POST", "/graphql", `{"query":"mutation($id: String!) { toggleDraw(id: $id) { phase draw_button } }","variables":{"id":"`+id+`"}}`)
	var toggled struct {
		Data struct {
			ToggleDraw struct {
				Phase      string `json:"phase"`
				DrawButton string `json:"draw_button"`
			} `json:"toggleDraw"`
		} `json:"data"`
	}
	decode(t, b, &toggled)
	if toggled.Data.ToggleDraw.Phase != "drawing" || toggled.Data.ToggleDraw.DrawButton != usecases.DrawButtonActive {
		t.Errorf("unexpected toggle result: %s", b)
	}
}
