// AngelaMos | 2026
// response_test.go

package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestJSONErrorMapsAppErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"not found", NotFoundError("user"), http.StatusNotFound, "NOT_FOUND"},
		{"wrapped app error", fmt.Errorf("op: %w", ForbiddenError("no")), http.StatusForbidden, "FORBIDDEN"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			JSONError(w, tt.err)

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			resp := decodeResponse(t, w)
			if resp.Success || resp.Error == nil || resp.Error.Code != tt.wantBody {
				t.Errorf("response = %+v, want error code %s", resp, tt.wantBody)
			}
		})
	}
}

func TestInternalServerErrorTransient(t *testing.T) {
	w := httptest.NewRecorder()
	InternalServerError(w, fmt.Errorf("resolve: %w", ErrTransient))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestPaginated(t *testing.T) {
	w := httptest.NewRecorder()
	Paginated(w, []int{1, 2}, 2, 2, 5)

	resp := decodeResponse(t, w)
	if resp.Meta == nil {
		t.Fatal("meta missing")
	}
	if resp.Meta.TotalPages != 3 || resp.Meta.Page != 2 || resp.Meta.Total != 5 {
		t.Errorf("meta = %+v", resp.Meta)
	}
}
