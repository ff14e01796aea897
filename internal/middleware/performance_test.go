// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestPerformanceMonitor_RecordRequest(t *testing.T) {
	pm := NewPerformanceMonitor(100)

	pm.RecordRequest(&RequestMetrics{
		Path:       "/api/v1/works",
		Method:     "GET",
		DurationMS: 25,
		StatusCode: 200,
		Timestamp:  time.Now(),
	})

	recent := pm.GetRecentMetrics(10)
	if len(recent) != 1 {
		t.Fatalf("got %d metrics, want 1", len(recent))
	}
	if recent[0].Path != "/api/v1/works" || recent[0].DurationMS != 25 {
		t.Errorf("unexpected metric: %+v", recent[0])
	}
}

func TestPerformanceMonitor_SlidingWindow(t *testing.T) {
	pm := NewPerformanceMonitor(5)

	for i := 0; i < 10; i++ {
		pm.RecordRequest(&RequestMetrics{
			Path:       "/api/v1/works",
			Method:     "GET",
			DurationMS: int64(i),
			StatusCode: 200,
			Timestamp:  time.Now(),
		})
	}

	recent := pm.GetRecentMetrics(100)
	if len(recent) != 5 {
		t.Fatalf("window holds %d metrics, want 5", len(recent))
	}
	// Oldest entries were evicted
	if recent[0].DurationMS != 5 {
		t.Errorf("oldest retained duration = %d, want 5", recent[0].DurationMS)
	}
}

func TestPerformanceMonitor_GetStats(t *testing.T) {
	pm := NewPerformanceMonitor(100)

	durations := []int64{10, 20, 30, 40, 50}
	for _, d := range durations {
		pm.RecordRequest(&RequestMetrics{
			Path:       "/api/v1/chapters",
			Method:     "GET",
			DurationMS: d,
			StatusCode: 200,
			Timestamp:  time.Now(),
		})
	}
	pm.RecordRequest(&RequestMetrics{
		Path:       "/api/v1/works",
		Method:     "POST",
		DurationMS: 100,
		StatusCode: 201,
		Timestamp:  time.Now(),
	})

	stats := pm.GetStats()
	if len(stats) != 2 {
		t.Fatalf("got %d endpoints, want 2", len(stats))
	}

	// Sorted by request count descending
	top := stats[0]
	if top.Path != "GET /api/v1/chapters" {
		t.Fatalf("top endpoint = %s, want GET /api/v1/chapters", top.Path)
	}
	if top.RequestCount != 5 {
		t.Errorf("request count = %d, want 5", top.RequestCount)
	}
	if top.AvgDuration != 30 {
		t.Errorf("avg duration = %v, want 30", top.AvgDuration)
	}
	if top.MinDuration != 10 || top.MaxDuration != 50 {
		t.Errorf("min/max = %d/%d, want 10/50", top.MinDuration, top.MaxDuration)
	}
	if top.P50Duration != 30 {
		t.Errorf("p50 = %d, want 30", top.P50Duration)
	}
}

func TestPerformanceMonitor_Middleware(t *testing.T) {
	pm := NewPerformanceMonitor(100)

	handler := pm.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/works", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	recent := pm.GetRecentMetrics(1)
	if len(recent) != 1 {
		t.Fatal("middleware did not record the request")
	}
	if recent[0].StatusCode != http.StatusCreated {
		t.Errorf("recorded status = %d, want %d", recent[0].StatusCode, http.StatusCreated)
	}
	if recent[0].Method != "POST" {
		t.Errorf("recorded method = %s, want POST", recent[0].Method)
	}
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []int64
		p      float64
		want   int64
	}{
		{name: "median of five", sorted: []int64{1, 2, 3, 4, 5}, p: 0.50, want: 3},
		{name: "p95 of ten", sorted: []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, p: 0.95, want: 9},
		{name: "single element", sorted: []int64{42}, p: 0.99, want: 42},
		{name: "empty", sorted: nil, p: 0.50, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := percentile(tt.sorted, tt.p); got != tt.want {
				t.Errorf("percentile(%v, %v) = %d, want %d", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestPerformanceMonitor_ConcurrentAccess(t *testing.T) {
	pm := NewPerformanceMonitor(1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				pm.RecordRequest(&RequestMetrics{
					Path:       "/api/v1/works",
					Method:     "GET",
					DurationMS: int64(j),
					StatusCode: 200,
					Timestamp:  time.Now(),
				})
				pm.GetStats()
				pm.GetRecentMetrics(10)
			}
		}()
	}
	wg.Wait()

	if recent := pm.GetRecentMetrics(1000); len(recent) != 1000 {
		t.Errorf("window holds %d metrics, want 1000", len(recent))
	}
}
