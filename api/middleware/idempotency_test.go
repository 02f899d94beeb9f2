package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type fakeStore struct {
	values map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}}
}

func (f *fakeStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return strings.Join([]string{"test", scope, id}, ":")
}

func (f *fakeStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

// newIdempotentRouter mounts the middleware inside nested Route groups the
// same way the production router does, so the tests exercise the partial
// route patterns chi reports mid-chain.
func newIdempotentRouter(store *fakeStore, hits *atomic.Int64) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Idempotency(store, nil))
		r.Route("/uploads", func(r chi.Router) {
			r.Post("/", func(w http.ResponseWriter, req *http.Request) {
				hits.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusAccepted)
				_, _ = w.Write([]byte(`{"data":{"status":"PENDING"}}`))
			})
			r.Post("/{uploadID}/redact", func(w http.ResponseWriter, req *http.Request) {
				hits.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`{"data":{"total_pages":2}}`))
			})
		})
	})
	return r
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	var hits atomic.Int64
	router := newIdempotentRouter(store, &hits)

	body := `{"method":"black"}`
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads/123/redact", bytes.NewReader([]byte(body)))
		req.Header.Set("Idempotency-Key", "key-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := send()
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d", first.Code)
	}
	second := send()
	if second.Code != http.StatusOK {
		t.Fatalf("second status = %d", second.Code)
	}

	if hits.Load() != 1 {
		t.Fatalf("handler hits = %d, want replay without re-execution", hits.Load())
	}
	if first.Body.String() != second.Body.String() {
		t.Fatal("replayed body must match the original response")
	}
}

func TestIdempotencyProtectsNestedSubmitRoute(t *testing.T) {
	store := newFakeStore()
	var hits atomic.Int64
	router := newIdempotentRouter(store, &hits)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", bytes.NewReader([]byte("%PDF-1.7")))
		req.Header.Set("Idempotency-Key", "submit-key-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := send()
	if first.Code != http.StatusAccepted {
		t.Fatalf("first status = %d", first.Code)
	}
	second := send()
	if second.Code != http.StatusAccepted {
		t.Fatalf("second status = %d", second.Code)
	}

	if hits.Load() != 1 {
		t.Fatalf("handler hits = %d, want the second request replayed from the store", hits.Load())
	}
	if len(store.values) != 1 {
		t.Fatalf("store entries = %d, want the response recorded", len(store.values))
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newFakeStore()
	var hits atomic.Int64
	router := newIdempotentRouter(store, &hits)

	first := httptest.NewRequest(http.MethodPost, "/api/v1/uploads/123/redact", bytes.NewReader([]byte(`{"method":"black"}`)))
	first.Header.Set("Idempotency-Key", "key-1")
	w1 := httptest.NewRecorder()
	router.ServeHTTP(w1, first)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/uploads/123/redact", bytes.NewReader([]byte(`{"method":"blur"}`)))
	second.Header.Set("Idempotency-Key", "key-1")
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, second)

	if w2.Code != http.StatusConflict {
		t.Fatalf("status = %d, want conflict on body mismatch", w2.Code)
	}
	if hits.Load() != 1 {
		t.Fatalf("handler hits = %d", hits.Load())
	}
}

func TestIdempotencySkipsRequestsWithoutKey(t *testing.T) {
	store := newFakeStore()
	var hits atomic.Int64
	router := newIdempotentRouter(store, &hits)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads/123/redact", bytes.NewReader([]byte(`{"method":"black"}`)))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
	}
	if hits.Load() != 2 {
		t.Fatalf("handler hits = %d, want both executed", hits.Load())
	}
}

func TestIdempotencyIgnoresUnmatchedRoutes(t *testing.T) {
	store := newFakeStore()
	var hits atomic.Int64

	r := chi.NewRouter()
	r.Use(Idempotency(store, nil))
	r.Get("/api/v1/uploads/{uploadID}", func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/uploads/123", nil)
	req.Header.Set("Idempotency-Key", "key-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if hits.Load() != 1 {
		t.Fatalf("handler hits = %d", hits.Load())
	}
	if len(store.values) != 0 {
		t.Fatalf("store entries = %d, want none for unmatched routes", len(store.values))
	}
}
