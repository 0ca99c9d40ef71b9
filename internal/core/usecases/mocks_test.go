package usecases_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/crimestat/crimestat/internal/core/domain"
	"github.com/crimestat/crimestat/internal/core/ports"
)

// --- Mock CrimeSource ---

type mockCrimeSource struct {
	mu      sync.Mutex
	calls   []domain.RegionQuery
	fetchFn func(ctx context.Context, q domain.RegionQuery) ([]domain.CrimeRecord, error)
}

func (m *mockCrimeSource) FetchCrimes(ctx context.Context, q domain.RegionQuery) ([]domain.CrimeRecord, error) {
	m.mu.Lock()
	m.calls = append(m.calls, q)
	m.mu.Unlock()
	if m.fetchFn != nil {
		return m.fetchFn(ctx, q)
	}
	return nil, nil
}

func (m *mockCrimeSource) Calls() []domain.RegionQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.RegionQuery(nil), m.calls...)
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (m *mockCache) Set(_ context.Context, key string, value []byte, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu        sync.Mutex
	outcomes  []ports.FetchOutcome
	publishFn func(ctx context.Context, o *ports.FetchOutcome) error
}

func (m *mockPublisher) PublishFetchOutcome(ctx context.Context, o *ports.FetchOutcome) error {
	m.mu.Lock()
	m.outcomes = append(m.outcomes, *o)
	m.mu.Unlock()
	if m.publishFn != nil {
		return m.publishFn(ctx, o)
	}
	return nil
}

// --- Recording MapSurface ---

type recordingSurface struct {
	mu     sync.Mutex
	events []ports.RenderEvent
}

func (r *recordingSurface) Render(_ context.Context, ev ports.RenderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingSurface) Kinds() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int)
	for _, ev := range r.events {
		out[ev.Kind]++
	}
	return out
}

// --- Mock TrendRunner ---

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

// --- Mock QueryLogRepository ---

type mockQueryLogRepo struct {
	inserted []domain.QueryLogEntry
	recentFn func(ctx context.Context, limit, offset int) ([]domain.QueryLogEntry, error)
}

func (m *mockQueryLogRepo) Insert(_ context.Context, e *domain.QueryLogEntry) error {
	m.inserted = append(m.inserted, *e)
	return nil
}

func (m *mockQueryLogRepo) Recent(ctx context.Context, limit, offset int) ([]domain.QueryLogEntry, error) {
	if m.recentFn != nil {
		return m.recentFn(ctx, limit, offset)
	}
	return nil, nil
}

// --- Fake clock ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// --- Fixtures ---

func sampleRecords() []domain.CrimeRecord {
	return []domain.CrimeRecord{
		{ID: 101, Category: "burglary", Location: domain.CrimeLocation{Latitude: "52.62", Longitude: "-1.15"}},
		{ID: 102, Category: "drugs", Location: domain.CrimeLocation{Latitude: "52.63", Longitude: "-1.14"},
			OutcomeStatus: &domain.Outcome{Category: "Investigation complete; no suspect identified", Date: "2024-03"}},
		{ID: 103, Category: "burglary", Location: domain.CrimeLocation{Latitude: "52.64", Longitude: "-1.13"}},
	}
}

var square = []domain.GeoPoint{
	{Lat: 52.60, Lon: -1.20},
	{Lat: 52.60, Lon: -1.10},
	{Lat: 52.66, Lon: -1.10},
	{Lat: 52.66, Lon: -1.20},
}

const squarePoly = "52.6,-1.2:52.6,-1.1:52.66,-1.1:52.66,-1.2:52.6,-1.2"
