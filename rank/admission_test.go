package rank

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"serp-rank/rank/infra"
)

func postFrom(h http.Handler, remote, header, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/v1/message", strings.NewReader(body))
	r.RemoteAddr = remote
	if header != "" {
		r.Header.Set("X-Api-Key", header)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

const (
	findShoes  = `{"action":"findKeywordRank","keyword":"running shoes"}`
	getHistory = `{"action":"getSearchHistory"}`
)

func TestAdmission_ClientLimitRejectsWithHeaders(t *testing.T) {
	h := NewRouter(RouterOptions{
		Dispatcher: newTestDispatcher(t, serpRecords),
		Admission: AdmissionOptions{
			Clients:             infra.NewTokenBuckets(0.02, 1),
			RetryAfter:          time.Second,
			AddRateLimitHeaders: true,
		},
	})

	w1 := postFrom(h, "10.0.0.1:1234", "", getHistory)
	if w1.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w1.Code)
	}
	if w1.Header().Get("X-RateLimit-Key") != "10.0.0.1" {
		t.Fatalf("expected X-RateLimit-Key=10.0.0.1, got %q", w1.Header().Get("X-RateLimit-Key"))
	}
	if w1.Header().Get("X-RateLimit-RPS") != "0.02" || w1.Header().Get("X-RateLimit-Burst") != "1" {
		t.Fatalf("expected rate headers, got %v", w1.Header())
	}

	w2 := postFrom(h, "10.0.0.1:1234", "", getHistory)
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w2.Code)
	}
	// 1 token a cada 50s
	if got := w2.Header().Get("Retry-After"); got != "50" {
		t.Fatalf("expected Retry-After=50, got %q", got)
	}
	if body := w2.Body.String(); !strings.Contains(body, `"success":false`) || !strings.Contains(body, "rate limit exceeded") {
		t.Fatalf("expected JSON failure body, got %q", body)
	}
}

func TestAdmission_KeyByHeader(t *testing.T) {
	h := NewRouter(RouterOptions{
		Dispatcher: newTestDispatcher(t, serpRecords),
		Admission:  AdmissionOptions{Clients: infra.NewTokenBuckets(0.02, 1), KeyHeader: "X-Api-Key"},
	})

	// duas chaves diferentes no mesmo IP: cada uma tem seu balde
	if w := postFrom(h, "10.0.0.1:1234", "k1", getHistory); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for key k1, got %d", w.Code)
	}
	if w := postFrom(h, "10.0.0.1:1234", "k2", getHistory); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for key k2, got %d", w.Code)
	}
}

func TestAdmission_KeywordLimitPerClientAndKeyword(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := infra.NewPromRecorder(reg)
	h := NewRouter(RouterOptions{
		Dispatcher: newTestDispatcher(t, serpRecords),
		Admission:  AdmissionOptions{Keywords: infra.NewTokenBuckets(0.1, 1), Recorder: rec},
	})

	if w := postFrom(h, "10.0.0.1:1", "", findShoes); w.Code != http.StatusOK {
		t.Fatalf("expected first evaluation 200, got %d", w.Code)
	}
	w := postFrom(h, "10.0.0.1:1", "", `{"action":"findKeywordRank","keyword":"Running Shoes"}`)
	if w.Code != http.StatusTooManyRequests || !strings.Contains(w.Body.String(), "keyword evaluated too recently") {
		t.Fatalf("expected keyword rejection, got %d %q", w.Code, w.Body.String())
	}

	if w := postFrom(h, "10.0.0.1:1", "", `{"action":"findKeywordRank","keyword":"cheap flights"}`); w.Code != http.StatusOK {
		t.Fatalf("expected other keyword 200, got %d", w.Code)
	}
	if w := postFrom(h, "10.0.0.2:1", "", findShoes); w.Code != http.StatusOK {
		t.Fatalf("expected other client 200, got %d", w.Code)
	}
	if w := postFrom(h, "10.0.0.1:1", "", getHistory); w.Code != http.StatusOK {
		t.Fatalf("expected read 200, got %d", w.Code)
	}

	if got := testutil.ToFloat64(rec.ThrottledTotal.WithLabelValues("keyword_rate", "findKeywordRank")); got != 1 {
		t.Fatalf("expected 1 keyword rejection recorded, got %v", got)
	}
}

func TestAdmission_SlotsGuardOnlyEvaluations(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := infra.NewPromRecorder(reg)
	slots := infra.NewEvaluationSlots(1)
	hold, ok := slots.Acquire(context.Background())
	if !ok {
		t.Fatalf("expected to acquire the only slot")
	}

	h := NewRouter(RouterOptions{
		Dispatcher: newTestDispatcher(t, serpRecords),
		Admission:  AdmissionOptions{Slots: slots, AcquireTimeout: 10 * time.Millisecond, Recorder: rec},
	})

	for _, body := range []string{getHistory, `{"action":"getStats"}`, `{"action":"getErrorReport"}`} {
		if w := postFrom(h, "10.0.0.1:1", "", body); w.Code != http.StatusOK {
			t.Fatalf("expected %s to pass while slot is held, got %d", body, w.Code)
		}
	}
	for _, body := range []string{findShoes, `{"action":"scrapeResults"}`} {
		w := postFrom(h, "10.0.0.1:1", "", body)
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503 for %s while slot is held, got %d", body, w.Code)
		}
		if !strings.Contains(w.Body.String(), "too many concurrent evaluations") {
			t.Fatalf("expected JSON failure body, got %q", w.Body.String())
		}
	}
	if got := testutil.ToFloat64(rec.ThrottledTotal.WithLabelValues("concurrency", "scrapeResults")); got != 1 {
		t.Fatalf("expected busy rejection recorded for scrapeResults, got %v", got)
	}

	hold()
	if w := postFrom(h, "10.0.0.1:1", "", findShoes); w.Code != http.StatusOK {
		t.Fatalf("expected 200 after release, got %d", w.Code)
	}
	if slots.InFlight() != 0 {
		t.Fatalf("expected slot to be released after the evaluation, got %d in flight", slots.InFlight())
	}
}

func TestAdmission_ZeroOptionsAdmitAll(t *testing.T) {
	h := NewRouter(RouterOptions{Dispatcher: newTestDispatcher(t, serpRecords)})

	for i := 0; i < 5; i++ {
		if w := postFrom(h, "10.0.0.1:1", "", findShoes); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
}
