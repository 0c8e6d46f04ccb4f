package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/outflow-ledger/internal/auth"
	"github.com/josh-kwaku/outflow-ledger/internal/config"
	"github.com/josh-kwaku/outflow-ledger/internal/domain"
	"github.com/josh-kwaku/outflow-ledger/internal/events"
	"github.com/josh-kwaku/outflow-ledger/internal/handler"
	"github.com/josh-kwaku/outflow-ledger/internal/repository"
	"github.com/josh-kwaku/outflow-ledger/internal/repository/memory"
	"github.com/josh-kwaku/outflow-ledger/internal/service/ledger"
)

const testSecret = "middleware-test-secret"

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestAuth(t *testing.T) {
	principal := auth.Principal{UserID: uuid.New(), CompanyID: uuid.New()}
	valid, err := auth.GenerateToken(principal, testSecret, time.Hour)
	require.NoError(t, err)
	expired, err := auth.GenerateToken(principal, testSecret, -time.Minute)
	require.NoError(t, err)

	var seen auth.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := Auth(testSecret)(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{"valid token", "Bearer " + valid, http.StatusNoContent, ""},
		{"missing header", "", http.StatusUnauthorized, "MISSING_TOKEN"},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized, "INVALID_TOKEN"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantCode != "" {
				assert.Equal(t, tc.wantCode, decodeError(t, rec))
			}
		})
	}

	assert.Equal(t, principal, seen)
}

func TestTracing(t *testing.T) {
	var seen string
	h := Tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceIDFromContext(r.Context())
	}))

	t.Run("echoes caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "req-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "req-123", seen)
		assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	})

	t.Run("mints id when absent or oversized", func(t *testing.T) {
		for _, in := range []string{"", strings.Repeat("x", 200)} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if in != "" {
				req.Header.Set("X-Request-ID", in)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			_, err := uuid.Parse(seen)
			assert.NoError(t, err)
			assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
		}
	})
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/entries", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rec))
}

func TestLogging_PassesThroughStatus(t *testing.T) {
	h := Logging(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func withCompany(r *http.Request, companyID uuid.UUID) *http.Request {
	ctx := auth.ContextWithPrincipal(r.Context(), auth.Principal{UserID: uuid.New(), CompanyID: companyID})
	return r.WithContext(ctx)
}

func TestIdempotency(t *testing.T) {
	company := uuid.New()

	newHandler := func(status int) (http.Handler, *atomic.Int32) {
		var calls atomic.Int32
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			body, _ := io.ReadAll(r.Body)
			handler.RespondSuccess(w, status, map[string]string{"echo": string(body)})
		})
		return Idempotency(memory.NewIdempotencyStore())(next), &calls
	}

	post := func(h http.Handler, companyID uuid.UUID, key, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", strings.NewReader(body))
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, withCompany(req, companyID))
		return rec
	}

	t.Run("replays identical request", func(t *testing.T) {
		h, calls := newHandler(http.StatusCreated)

		first := post(h, company, "key-1", `{"a":1}`)
		second := post(h, company, "key-1", `{"a":1}`)

		assert.Equal(t, http.StatusCreated, first.Code)
		assert.Equal(t, http.StatusCreated, second.Code)
		assert.Equal(t, "true", second.Header().Get("X-Idempotent-Replayed"))
		assert.JSONEq(t, first.Body.String(), second.Body.String())
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("rejects reused key with different body", func(t *testing.T) {
		h, calls := newHandler(http.StatusCreated)

		post(h, company, "key-2", `{"a":1}`)
		rec := post(h, company, "key-2", `{"a":2}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "IDEMPOTENCY_CONFLICT", decodeError(t, rec))
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("keys are per company", func(t *testing.T) {
		h, calls := newHandler(http.StatusCreated)

		post(h, company, "key-3", `{"a":1}`)
		rec := post(h, uuid.New(), "key-3", `{"a":1}`)

		assert.Empty(t, rec.Header().Get("X-Idempotent-Replayed"))
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("missing key", func(t *testing.T) {
		h, calls := newHandler(http.StatusCreated)

		rec := post(h, company, "", `{}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "MISSING_IDEMPOTENCY_KEY", decodeError(t, rec))
		assert.Zero(t, calls.Load())
	})

	t.Run("server errors are not cached", func(t *testing.T) {
		h, calls := newHandler(http.StatusInternalServerError)

		post(h, company, "key-4", `{}`)
		post(h, company, "key-4", `{}`)

		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("reads bypass the cache", func(t *testing.T) {
		h, calls := newHandler(http.StatusOK)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int32(1), calls.Load())
	})
}

type failingStore struct{}

func (failingStore) Get(context.Context, string, uuid.UUID) (*repository.IdempotencyCacheEntry, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Set(context.Context, *repository.IdempotencyCacheEntry) error { return nil }

func TestIdempotency_LookupFailure(t *testing.T) {
	h := Idempotency(failingStore{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", strings.NewReader(`{}`))
	req.Header.Set("Idempotency-Key", "k")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withCompany(req, uuid.New()))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestIdempotency_PartialPlanIsReplayed(t *testing.T) {
	inserts := 0
	entries := memory.NewEntryStore(memory.WithFault(func(op memory.Op, _ *domain.LedgerEntry) error {
		if op != memory.OpInsert {
			return nil
		}
		inserts++
		if inserts == 3 {
			return errors.New("connection reset by peer")
		}
		return nil
	}))
	svc := ledger.NewService(entries, memory.NewAttachmentStore(), events.Nop{}, &config.Config{MaxInstallments: 120})
	h := Idempotency(memory.NewIdempotencyStore())(http.HandlerFunc(handler.NewEntryHandler(svc).CreatePlan))

	company := uuid.New()
	body := `{"category_id":"` + uuid.NewString() + `","item_id":"` + uuid.NewString() + `",` +
		`"description":"Equipment lease","amount":"1200.00","reference_period":"2024-01",` +
		`"due_date":"2024-01-15","installment_count":4}`

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/entries/plans", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "plan-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, withCompany(req, company))
		return rec
	}

	first := send()
	require.Equal(t, http.StatusBadGateway, first.Code, first.Body.String())

	second := send()
	assert.Equal(t, http.StatusBadGateway, second.Code)
	assert.Equal(t, "true", second.Header().Get("X-Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "PARTIAL_PLAN", decodeError(t, second))

	roots, err := svc.ListRootEntries(context.Background(), company, domain.RootFilter{})
	require.NoError(t, err)
	assert.Len(t, roots, 1, "retry must not create a second parent")
	assert.Equal(t, 2, entries.Len())
}
