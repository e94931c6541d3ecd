package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lox/solarwall/internal/models"
)

type memStore struct {
	mu       sync.Mutex
	lat, lon float64
	set      chan struct{}
	lookups  []models.LocationLookup
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{set: make(chan struct{}, 1)}
}

func (m *memStore) SetLocation(lat, lon float64) error {
	m.mu.Lock()
	m.lat, m.lon = lat, lon
	m.mu.Unlock()
	select {
	case m.set <- struct{}{}:
	default:
	}
	return nil
}

func (m *memStore) StartLocationLookup(provider string) (*models.LocationLookup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return &models.LocationLookup{ID: m.nextID, Provider: provider, StartedAt: time.Now()}, nil
}

func (m *memStore) CompleteLocationLookup(l *models.LocationLookup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups = append(m.lookups, *l)
	return nil
}

func TestRefreshStoresLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"city":"Bright","latitude":-36.729,"longitude":146.968}`))
	}))
	defer srv.Close()

	store := newMemStore()
	l := New(store, zerolog.Nop())
	l.SetEndpoint(srv.URL)

	if err := l.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if store.lat != -36.729 || store.lon != 146.968 {
		t.Errorf("location = %v,%v", store.lat, store.lon)
	}
	if len(store.lookups) != 1 {
		t.Fatalf("len(lookups) = %d, want 1", len(store.lookups))
	}
	got := store.lookups[0]
	if !got.Success || got.HTTPStatus.Int64 != 200 || got.Latitude.Float64 != -36.729 {
		t.Errorf("lookup = %+v", got)
	}
}

func TestRefreshPermanentFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	store := newMemStore()
	l := New(store, zerolog.Nop())
	l.SetEndpoint(srv.URL)

	if err := l.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
	if len(store.lookups) != 1 || store.lookups[0].Success || !store.lookups[0].ErrorMessage.Valid {
		t.Errorf("lookups = %+v", store.lookups)
	}
	if store.lookups[0].HTTPStatus.Int64 != 400 {
		t.Errorf("HTTPStatus = %v, want 400", store.lookups[0].HTTPStatus)
	}
}

func TestLookupRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"latitude":51.5,"longitude":-0.12}`))
	}))
	defer srv.Close()

	l := New(newMemStore(), zerolog.Nop())
	l.SetEndpoint(srv.URL)

	lat, lon, status, err := l.Lookup(context.Background())
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if lat != 51.5 || lon != -0.12 || status != 200 {
		t.Errorf("got %v,%v status %d", lat, lon, status)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestLookupServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":true,"reason":"RateLimited"}`))
	}))
	defer srv.Close()

	l := New(newMemStore(), zerolog.Nop())
	l.SetEndpoint(srv.URL)

	if _, _, _, err := l.Lookup(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRefreshAsync(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(`{"latitude":1,"longitude":2}`))
	}))
	defer srv.Close()

	store := newMemStore()
	l := New(store, zerolog.Nop())
	l.SetEndpoint(srv.URL)

	if !l.RefreshAsync(context.Background()) {
		t.Fatal("first RefreshAsync did not start")
	}
	if l.RefreshAsync(context.Background()) {
		t.Error("second RefreshAsync started while first is running")
	}
	close(release)

	select {
	case <-store.set:
	case <-time.After(5 * time.Second):
		t.Fatal("location was not stored")
	}
}
