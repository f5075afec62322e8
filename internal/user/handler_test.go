// AngelaMos | 2026
// handler_test.go

package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hotdog/elotto/internal/middleware"
)

// testAuth trusts X-Device-ID and X-Role headers.
func testAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), middleware.DeviceIDKey, r.Header.Get("X-Device-ID"))
		ctx = context.WithValue(ctx, middleware.RoleKey, r.Header.Get("X-Role"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	f := newFixture(t)
	h := NewHandler(f.svc)

	r := chi.NewRouter()
	h.RegisterRoutes(r, testAuth)
	h.RegisterOrganizerRoutes(r, testAuth, middleware.RequireOrganizer)
	h.RegisterAdminRoutes(r, testAuth, middleware.RequireAdmin)
	return r
}

func do(t *testing.T, h http.Handler, method, path, device, role string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-Device-ID", device)
	req.Header.Set("X-Role", role)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func TestHandlerProfileFlow(t *testing.T) {
	h := newTestRouter(t)

	rec, _ := do(t, h, http.MethodGet, "/me", "dev-1", "entrant", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET /me before profile = %d, want 404", rec.Code)
	}

	rec, env := do(t, h, http.MethodPut, "/me", "dev-1", "entrant", map[string]string{
		"name":  "Ada",
		"email": "ada@example.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /me = %d: %s", rec.Code, rec.Body)
	}
	var u UserResponse
	_ = json.Unmarshal(env.Data, &u)
	if u.Name != "Ada" || u.Type != "Entrant" {
		t.Errorf("PUT /me body = %+v", u)
	}

	rec, _ = do(t, h, http.MethodPut, "/me", "dev-1", "entrant", map[string]string{"email": "not-an-email"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid email = %d, want 400", rec.Code)
	}

	rec, _ = do(t, h, http.MethodDelete, "/me", "dev-1", "entrant", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("DELETE /me = %d, want 204", rec.Code)
	}
}

func TestHandlerRegistrationFlow(t *testing.T) {
	h := newTestRouter(t)

	rec, _ := do(t, h, http.MethodPost, "/me/registrations", "dev-1", "entrant", RegisterRequest{EventID: "evt-1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register = %d: %s", rec.Code, rec.Body)
	}

	rec, _ = do(t, h, http.MethodPost, "/me/registrations", "dev-1", "entrant", RegisterRequest{EventID: "evt-1"})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register = %d, want 409", rec.Code)
	}

	for _, id := range []string{"a/b", "evt 2"} {
		rec, _ = do(t, h, http.MethodPost, "/me/registrations", "dev-1", "entrant", RegisterRequest{EventID: id})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("register %q = %d, want 400", id, rec.Code)
		}
	}

	rec, _ = do(t, h, http.MethodPost, "/me/registrations/scan", "dev-1", "entrant", ScanRequest{Payload: "event:evt-0"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("scan = %d: %s", rec.Code, rec.Body)
	}

	rec, env := do(t, h, http.MethodGet, "/me/registrations", "dev-1", "entrant", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list = %d", rec.Code)
	}
	var regs []RegistrationResponse
	_ = json.Unmarshal(env.Data, &regs)
	if len(regs) != 2 || regs[0].EventID != "evt-0" || regs[1].EventID != "evt-1" {
		t.Errorf("registrations = %+v", regs)
	}

	rec, _ = do(t, h, http.MethodPut, "/me/registrations/evt-1/status", "dev-1", "entrant", SetStatusRequest{Status: "Selected"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("self select = %d, want 403", rec.Code)
	}

	rec, _ = do(t, h, http.MethodPut, "/events/evt-1/entrants/dev-1/status", "dev-1", "entrant", SetStatusRequest{Status: "Selected"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("entrant on organizer route = %d, want 403", rec.Code)
	}

	rec, env = do(t, h, http.MethodPut, "/events/evt-1/entrants/dev-1/status", "org-1", "organizer", SetStatusRequest{Status: "Selected"})
	if rec.Code != http.StatusOK {
		t.Fatalf("organizer select = %d: %s", rec.Code, rec.Body)
	}
	var reg RegistrationResponse
	_ = json.Unmarshal(env.Data, &reg)
	if reg.Status != "Selected" || reg.SelectedAt == nil {
		t.Errorf("registration = %+v", reg)
	}

	rec, _ = do(t, h, http.MethodPut, "/me/registrations/evt-1/status", "dev-1", "entrant", SetStatusRequest{Status: "Accepted"})
	if rec.Code != http.StatusOK {
		t.Errorf("accept = %d", rec.Code)
	}

	rec, _ = do(t, h, http.MethodPut, "/me/registrations/evt-9/status", "dev-1", "entrant", SetStatusRequest{Status: "Declined"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown registration = %d, want 404", rec.Code)
	}

	rec, _ = do(t, h, http.MethodPut, "/me/registrations/evt-1/status", "dev-1", "entrant", SetStatusRequest{Status: "Lost"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad status = %d, want 400", rec.Code)
	}

	rec, _ = do(t, h, http.MethodDelete, "/me/registrations/evt-0", "dev-1", "entrant", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("withdraw = %d, want 204", rec.Code)
	}
}

func TestHandlerAdminRoutes(t *testing.T) {
	h := newTestRouter(t)

	_, _ = do(t, h, http.MethodPut, "/me", "dev-1", "entrant", map[string]string{"name": "Ada"})
	_, _ = do(t, h, http.MethodPut, "/me", "dev-2", "entrant", map[string]string{"name": "Old Ada"})
	_, _ = do(t, h, http.MethodPost, "/me/registrations", "dev-2", "entrant", RegisterRequest{EventID: "evt-1"})

	rec, _ := do(t, h, http.MethodGet, "/admin/users", "dev-1", "entrant", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("entrant admin list = %d, want 403", rec.Code)
	}

	rec, env := do(t, h, http.MethodGet, "/admin/users?search=ada", "admin", "administrator", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin list = %d", rec.Code)
	}
	var users []UserResponse
	_ = json.Unmarshal(env.Data, &users)
	if len(users) != 2 {
		t.Errorf("listed %d users, want 2", len(users))
	}

	rec, _ = do(t, h, http.MethodPut, "/admin/users/dev-1/type", "admin", "administrator", SetTypeRequest{Type: "Organizer"})
	if rec.Code != http.StatusOK {
		t.Errorf("set type = %d: %s", rec.Code, rec.Body)
	}

	rec, env = do(t, h, http.MethodPost, "/admin/users/dev-1/merge", "admin", "administrator", MergeRequest{SourceID: "dev-2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("merge = %d: %s", rec.Code, rec.Body)
	}
	var merged UserResponse
	_ = json.Unmarshal(env.Data, &merged)
	if len(merged.Registrations) != 1 || merged.Type != "Organizer" {
		t.Errorf("merged = %+v", merged)
	}

	rec, _ = do(t, h, http.MethodGet, "/admin/users/dev-2", "admin", "administrator", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("merged source = %d, want 404", rec.Code)
	}

	rec, _ = do(t, h, http.MethodDelete, "/admin/users/dev-1", "admin", "administrator", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", rec.Code)
	}
}
