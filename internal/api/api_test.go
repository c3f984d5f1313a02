package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tilakarasunh/K8s-health-guardian/internal/analyzer"
	"github.com/tilakarasunh/K8s-health-guardian/internal/snapshot"
)

func testResult() Result {
	return Result{
		Snapshot: snapshot.Snapshot{
			ClusterName: "test",
			Timestamp:   time.Unix(1700000000, 0).UTC(),
			Pods:        snapshot.PodCensus{Total: 4, Running: 3, Failed: 1},
		},
		Assessment: analyzer.Assessment{
			HealthScore: 88,
			Summary:     "mostly fine",
			Source:      analyzer.SourceRemoteAnalysis,
		},
		CompletedAt: time.Unix(1700000100, 0).UTC(),
	}
}

func TestStoreLatest(t *testing.T) {
	store := NewStore()
	if _, ok := store.Latest(); ok {
		t.Fatalf("empty store must not report a result")
	}

	store.Update(testResult())
	result, ok := store.Latest()
	if !ok {
		t.Fatalf("expected a stored result")
	}
	if result.Assessment.HealthScore != 88 {
		t.Fatalf("unexpected result: %+v", result)
	}

	updated := testResult()
	updated.Assessment.HealthScore = 42
	store.Update(updated)
	result, _ = store.Latest()
	if result.Assessment.HealthScore != 42 {
		t.Fatalf("store did not keep the newest result: %+v", result)
	}
}

func newTestMux(store *Store) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler("test", "dev", store).Register(mux)
	return mux
}

func TestReadyzBeforeAndAfterFirstRun(t *testing.T) {
	store := NewStore()
	mux := newTestMux(store)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/agent/v1/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before first run, got %d", rec.Code)
	}

	store.Update(testResult())
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/agent/v1/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after first run, got %d", rec.Code)
	}
}

func TestOverviewEndpoint(t *testing.T) {
	store := NewStore()
	store.Update(testResult())
	mux := newTestMux(store)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/agent/v1/overview", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode overview: %v", err)
	}
	if body["status"] != "ok" || body["clusterName"] != "test" || body["version"] != "dev" {
		t.Fatalf("unexpected overview: %+v", body)
	}
	if body["healthScore"].(float64) != 88 {
		t.Fatalf("unexpected score: %+v", body)
	}
	if body["source"] != "RemoteAnalysis" {
		t.Fatalf("unexpected source: %+v", body)
	}
}

func TestAssessmentEndpoint(t *testing.T) {
	store := NewStore()
	mux := newTestMux(store)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/agent/v1/assessment", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before first run, got %d", rec.Code)
	}

	store.Update(testResult())
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/agent/v1/assessment", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}

	var assessment analyzer.Assessment
	if err := json.Unmarshal(rec.Body.Bytes(), &assessment); err != nil {
		t.Fatalf("decode assessment: %v", err)
	}
	if assessment.HealthScore != 88 || assessment.Source != analyzer.SourceRemoteAnalysis {
		t.Fatalf("unexpected assessment: %+v", assessment)
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	store := NewStore()
	store.Update(testResult())
	mux := newTestMux(store)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/agent/v1/snapshot", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var snap snapshot.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.ClusterName != "test" || snap.Pods.Total != 4 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}
