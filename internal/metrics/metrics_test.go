package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/inpe-stac-search/internal/backend"
	"github.com/robert-malhotra/inpe-stac-search/internal/search"
	"github.com/robert-malhotra/inpe-stac-search/internal/stac"
	"github.com/robert-malhotra/inpe-stac-search/internal/translate"
)

// scrape returns the text exposition of m.
func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeOK},
		{context.Canceled, OutcomeCanceled},
		{fmt.Errorf("count: %w", backend.ErrRepositoryTimeout), OutcomeTimeout},
		{backend.ErrRepositoryUnavailable, OutcomeUnavailable},
		{backend.ErrItemNotFound, OutcomeNotFound},
		{fmt.Errorf("%w: bad", stac.ErrInvalidRequest), OutcomeInvalid},
		{translate.ErrInvalidBoundingBox, OutcomeInvalid},
		{translate.ErrUnknownField, OutcomeInvalid},
		{backend.ErrRepositoryFailure, OutcomeError},
		{errors.New("boom"), OutcomeError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Outcome(tt.err), "error %v", tt.err)
	}
}

func TestMetrics_ObserveStage(t *testing.T) {
	m := New()
	var instr search.Instrumenter = m

	instr.ObserveStage(context.Background(), search.StageCount, 5*time.Millisecond, nil)
	instr.ObserveStage(context.Background(), search.StageCount, 5*time.Millisecond, backend.ErrRepositoryTimeout)
	instr.ObserveStage(context.Background(), search.StageFetch, time.Millisecond, nil)

	body := scrape(t, m)
	assert.Contains(t, body, `stac_search_stage_total{outcome="ok",stage="count"} 1`)
	assert.Contains(t, body, `stac_search_stage_total{outcome="timeout",stage="count"} 1`)
	assert.Contains(t, body, `stac_search_stage_total{outcome="ok",stage="fetch"} 1`)
	assert.Contains(t, body, `stac_search_stage_duration_seconds_count{stage="count"} 2`)
}

func TestMetrics_Middleware(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/collections/{collectionId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/collections/a", "/collections/b", "/"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	body := scrape(t, m)
	assert.Contains(t, body, `stac_server_request_count{code="404",method="GET",route="/collections/{collectionId}"} 2`)
	assert.Contains(t, body, `stac_server_request_count{code="200",method="GET",route="/"} 1`)
	assert.Contains(t, body, `stac_server_requests_in_flight 0`)
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.ObserveStage(context.Background(), search.StagePlan, time.Millisecond, nil)

	assert.Contains(t, scrape(t, a), `stage="plan"`)
	assert.NotContains(t, scrape(t, b), `stac_search_stage_total{`)
}
