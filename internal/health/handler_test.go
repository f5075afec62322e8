// AngelaMos | 2026
// handler_test.go

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

var (
	up   = CheckFunc(func(context.Context) error { return nil })
	down = CheckFunc(func(context.Context) error { return errors.New("unreachable") })
)

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name string
		deps []Dependency
		want int
	}{
		{
			name: "all healthy",
			deps: []Dependency{{Name: "store", Checker: up}, {Name: "redis", Checker: up}},
			want: http.StatusOK,
		},
		{
			name: "required down",
			deps: []Dependency{{Name: "store", Checker: down}, {Name: "redis", Checker: up}},
			want: http.StatusServiceUnavailable,
		},
		{
			name: "optional down",
			deps: []Dependency{{Name: "store", Checker: up}, {Name: "nats", Checker: down, Optional: true}},
			want: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(NewHandler(tt.deps...), "/readyz")
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}

			var resp ReadinessResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(resp.Checks) != len(tt.deps) {
				t.Errorf("checks = %d, want %d", len(resp.Checks), len(tt.deps))
			}
			for i, c := range resp.Checks {
				if c.Name != tt.deps[i].Name {
					t.Errorf("check %d name = %q, want %q", i, c.Name, tt.deps[i].Name)
				}
			}
		})
	}
}

func TestShutdownFailsProbes(t *testing.T) {
	h := NewHandler(Dependency{Name: "store", Checker: up})
	h.SetShutdown(true)

	for _, path := range []string{"/healthz", "/livez", "/readyz"} {
		if rec := serve(h, path); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s = %d, want 503", path, rec.Code)
		}
	}
}

func TestNotReady(t *testing.T) {
	h := NewHandler()
	h.SetReady(false)

	if rec := serve(h, "/readyz"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz = %d, want 503", rec.Code)
	}
	if rec := serve(h, "/livez"); rec.Code != http.StatusOK {
		t.Errorf("livez = %d, want 200", rec.Code)
	}
}
