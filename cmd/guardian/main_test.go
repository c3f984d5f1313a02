package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tilakarasunh/K8s-health-guardian/internal/forwarder"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReportSubject(t *testing.T) {
	got := reportSubject("prod-east", 87)
	want := "Cluster Health Report: prod-east (score 87/100)"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDeliverWithRetryRecovers(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := forwarder.NewSender(server.URL, "", 5*time.Second, false)
	envelope := forwarder.ReportEnvelope{ClusterName: "test", HealthScore: 90}

	err := deliverWithRetry(context.Background(), sender, envelope, 2, time.Millisecond, testLogger())
	if err != nil {
		t.Fatalf("expected recovery on retry, got %v", err)
	}
	if attempts.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts.Load())
	}
}

func TestDeliverWithRetryExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	sender := forwarder.NewSender(server.URL, "", 5*time.Second, false)
	envelope := forwarder.ReportEnvelope{ClusterName: "test"}

	err := deliverWithRetry(context.Background(), sender, envelope, 2, time.Millisecond, testLogger())
	if err == nil {
		t.Fatalf("expected error after retries exhausted")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Fatalf("error should carry the last status, got %v", err)
	}
	if attempts.Load() != 3 {
		t.Fatalf("expected initial attempt plus 2 retries, got %d", attempts.Load())
	}
}

func TestDeliverWithRetryStopsOnCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := forwarder.NewSender(server.URL, "", 5*time.Second, false)
	err := deliverWithRetry(ctx, sender, forwarder.ReportEnvelope{}, 5, time.Minute, testLogger())
	if err == nil {
		t.Fatalf("expected error on cancelled context")
	}
}
