package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func BenchmarkWeatherPage_Cached(b *testing.B) {
	env := newTestEnv(b, &stubProvider{})
	env.serve(httptest.NewRequest(http.MethodGet, "/weather/Paris", nil))
	for b.Loop() {
		env.serve(httptest.NewRequest(http.MethodGet, "/weather/Paris", nil))
	}
}
