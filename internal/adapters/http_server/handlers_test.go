package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	server "review_insights/internal/adapters/http_server"
	"review_insights/internal/app"
	"review_insights/internal/domain"
)

// ---- fakes ----

type fakeSource struct {
	mu   sync.Mutex
	recs []domain.ReviewRecord
	err  error
}

func (f *fakeSource) Name() string { return "fake" }
func (f *fakeSource) FetchReviews(ctx context.Context) ([]domain.ReviewRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recs, f.err
}
func (f *fakeSource) set(recs []domain.ReviewRecord, err error) {
	f.mu.Lock()
	f.recs, f.err = recs, err
	f.mu.Unlock()
}

func newTestServer(t *testing.T, src *fakeSource) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ctrl := app.NewRefreshController(nil)
	go func() { _ = ctrl.Run(ctx) }()

	srv := server.New(zerolog.Nop(), 5*time.Second)
	srv.MountHandlers(&server.Handlers{
		Q:   app.NewQueryService(ctrl),
		Ing: app.NewIngestionService(src, ctrl),
	})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts
}

func scored(scores ...int) []domain.ReviewRecord {
	out := make([]domain.ReviewRecord, len(scores))
	for i, s := range scores {
		out[i] = domain.ReviewRecord{ID: string(rune('a' + i)), PredictedScore: s}
	}
	return out
}

type statsBody struct {
	TotalReviews  int            `json:"totalReviews"`
	AverageRating float64        `json:"averageRating"`
	Distribution  map[string]int `json:"distribution"`
	Percentages   map[string]int `json:"percentages"`
}

func getStats(t *testing.T, ts *httptest.Server) statsBody {
	t.Helper()
	res, err := http.Get(ts.URL + "/v1/stats")
	if err != nil {
		t.Fatalf("GET stats: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("stats status %d", res.StatusCode)
	}
	var b statsBody
	if err := json.NewDecoder(res.Body).Decode(&b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return b
}

// ---- tests ----

func TestRefreshThenStats(t *testing.T) {
	ts := newTestServer(t, &fakeSource{recs: scored(5, 5, 4, 3, 2)})

	if b := getStats(t, ts); b.TotalReviews != 0 || b.AverageRating != 0 {
		t.Fatalf("expected empty stats before refresh, got %+v", b)
	}

	res, err := http.Post(ts.URL+"/v1/refresh", "application/json", nil)
	if err != nil {
		t.Fatalf("POST refresh: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("refresh status %d", res.StatusCode)
	}

	b := getStats(t, ts)
	if b.TotalReviews != 5 || b.AverageRating != 3.8 {
		t.Fatalf("unexpected stats: %+v", b)
	}
	if b.Distribution["5"] != 2 || b.Distribution["1"] != 0 {
		t.Fatalf("unexpected distribution: %+v", b.Distribution)
	}
	if b.Percentages["5"] != 40 || b.Percentages["2"] != 20 || b.Percentages["1"] != 0 {
		t.Fatalf("unexpected percentages: %+v", b.Percentages)
	}
}

func TestStats_ETag(t *testing.T) {
	ts := newTestServer(t, &fakeSource{})

	res, err := http.Get(ts.URL + "/v1/stats")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	etag := res.Header.Get("ETag")
	if !strings.HasPrefix(etag, `W/"`) {
		t.Fatalf("missing weak etag: %q", etag)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/v1/stats", nil)
	req.Header.Set("If-None-Match", etag)
	res, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", res.StatusCode)
	}
}

func TestRefreshFailure_KeepsStatsAndReportsDegraded(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	ts := newTestServer(t, src)

	res, _ := http.Get(ts.URL + "/readyz")
	var ready map[string]any
	_ = json.NewDecoder(res.Body).Decode(&ready)
	res.Body.Close()
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before first ingestion, got %d", res.StatusCode)
	}
	if _, ok := ready["last_success"]; ok || ready["status"] != "degraded" {
		t.Fatalf("unexpected readiness body: %v", ready)
	}

	res, _ = http.Post(ts.URL+"/v1/refresh", "application/json", nil)
	res.Body.Close()
	if res.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content type %q", ct)
	}

	src.set(scored(3), nil)
	res, _ = http.Post(ts.URL+"/v1/refresh", "application/json", nil)
	res.Body.Close()

	res, _ = http.Get(ts.URL + "/readyz")
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected ready after success, got %d", res.StatusCode)
	}

	src.set(nil, errors.New("timeout"))
	res, _ = http.Post(ts.URL+"/v1/refresh", "application/json", nil)
	res.Body.Close()

	if b := getStats(t, ts); b.TotalReviews != 1 || b.AverageRating != 3.0 || b.Percentages["3"] != 100 {
		t.Fatalf("stats changed after failed refresh: %+v", b)
	}
}

func TestSubmitAndGetReview(t *testing.T) {
	ts := newTestServer(t, &fakeSource{})

	res, err := http.Post(ts.URL+"/v1/reviews", "application/json",
		strings.NewReader(`{"id":"r1","predicted_score":4,"text":"nice"}`))
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("submit status %d", res.StatusCode)
	}

	res, _ = http.Post(ts.URL+"/v1/reviews", "application/json",
		strings.NewReader(`{"id":"r2","predicted_score":6}`))
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid score, got %d", res.StatusCode)
	}

	res, _ = http.Post(ts.URL+"/v1/reviews", "application/json",
		strings.NewReader(`{"predicted_score":3}`))
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing id, got %d", res.StatusCode)
	}

	res, _ = http.Get(ts.URL + "/v1/reviews/r1")
	var rv domain.ReviewRecord
	_ = json.NewDecoder(res.Body).Decode(&rv)
	res.Body.Close()
	if res.StatusCode != http.StatusOK || rv.PredictedScore != 4 || rv.Text != "nice" {
		t.Fatalf("get review: status=%d rv=%+v", res.StatusCode, rv)
	}

	res, _ = http.Get(ts.URL + "/v1/reviews/r2")
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for rejected review, got %d", res.StatusCode)
	}

	if b := getStats(t, ts); b.TotalReviews != 1 || b.Distribution["4"] != 1 {
		t.Fatalf("unexpected stats: %+v", b)
	}
}

func TestListReviews_Limit(t *testing.T) {
	ts := newTestServer(t, &fakeSource{recs: scored(1, 2, 3)})
	res, _ := http.Post(ts.URL+"/v1/refresh", "application/json", nil)
	res.Body.Close()

	res, err := http.Get(ts.URL + "/v1/reviews?limit=2")
	if err != nil {
		t.Fatal(err)
	}
	var page domain.ReviewsPage
	_ = json.NewDecoder(res.Body).Decode(&page)
	res.Body.Close()
	if page.Count != 3 || len(page.Items) != 2 || page.Items[0].PredictedScore != 1 {
		t.Fatalf("unexpected page: %+v", page)
	}

	res, _ = http.Get(ts.URL + "/v1/reviews?limit=0")
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for limit=0, got %d", res.StatusCode)
	}
}
