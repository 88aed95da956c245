package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

type recordedRequest struct {
	method, route string
	status        int
}

type fakeRecorder struct{ got []recordedRequest }

func (f *fakeRecorder) RecordHTTPRequest(method, route string, status int, _ time.Duration) {
	f.got = append(f.got, recordedRequest{method, route, status})
}

func TestMetrics_RecordsRoutePattern(t *testing.T) {
	rec := &fakeRecorder{}
	r := chi.NewRouter()
	r.Use(Metrics(rec))
	r.Get("/v1/config/{doc}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/plain", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/config/fixguenstig", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/plain", nil))

	assert.Equal(t, []recordedRequest{
		{http.MethodGet, "/v1/config/{doc}", http.StatusNotFound},
		{http.MethodGet, "/plain", http.StatusOK},
	}, rec.got)
}
