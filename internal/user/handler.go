// AngelaMos | 2026
// handler.go

package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hotdog/elotto/internal/core"
	"github.com/hotdog/elotto/internal/middleware"
	"github.com/hotdog/elotto/internal/qr"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/me", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.GetMe)
		r.Put("/", h.UpdateMe)
		r.Delete("/", h.DeleteMe)

		r.Route("/registrations", func(r chi.Router) {
			r.Get("/", h.ListRegistrations)
			r.Post("/", h.Register)
			r.Post("/scan", h.Scan)
			r.Get("/{eventID}", h.GetRegistration)
			r.Put("/{eventID}/status", h.SetOwnStatus)
			r.Delete("/{eventID}", h.Withdraw)
		})
	})
}

// RegisterOrganizerRoutes exposes lottery outcome updates to organizers.
func (h *Handler) RegisterOrganizerRoutes(
	r chi.Router,
	authenticator, organizerOnly func(http.Handler) http.Handler,
) {
	r.With(authenticator, organizerOnly).
		Put("/events/{eventID}/entrants/{deviceID}/status", h.SetEntrantStatus)
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/users", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/", h.ListUsers)
		r.Get("/{deviceID}", h.GetUser)
		r.Put("/{deviceID}/type", h.SetUserType)
		r.Post("/{deviceID}/merge", h.MergeUsers)
		r.Delete("/{deviceID}", h.DeleteUser)
	})
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())

	u, err := h.service.GetMe(r.Context(), deviceID)
	if err != nil {
		writeError(w, err, "user")
		return
	}

	core.OK(w, ToUserResponse(u))
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())

	var req UpdateMeRequest
	if !h.decode(w, r, &req) {
		return
	}

	u, err := h.service.UpdateMe(r.Context(), deviceID, req)
	if err != nil {
		writeError(w, err, "user")
		return
	}

	core.OK(w, ToUserResponse(u))
}

func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())

	if err := h.service.DeleteMe(r.Context(), deviceID); err != nil {
		writeError(w, err, "user")
		return
	}

	core.NoContent(w)
}

func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())

	regs, err := h.service.ListRegistrations(r.Context(), deviceID)
	if err != nil {
		writeError(w, err, "user")
		return
	}

	core.OK(w, ToRegistrationResponseList(regs))
}

func (h *Handler) GetRegistration(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())

	reg, err := h.service.GetRegistration(r.Context(), deviceID, chi.URLParam(r, "eventID"))
	if err != nil {
		writeError(w, err, "registration")
		return
	}

	core.OK(w, ToRegistrationResponse(reg))
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.register(w, r, req.EventID)
}

// Scan registers for the event encoded in a scanned check-in code.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if !h.decode(w, r, &req) {
		return
	}

	eventID, err := qr.ParsePayload(req.Payload)
	if err != nil {
		core.BadRequest(w, "unrecognised event code")
		return
	}
	h.register(w, r, eventID)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request, eventID string) {
	deviceID := middleware.GetDeviceID(r.Context())

	reg, err := h.service.Register(r.Context(), deviceID, eventID)
	if err != nil {
		writeError(w, err, "registration")
		return
	}

	core.Created(w, ToRegistrationResponse(reg))
}

func (h *Handler) SetOwnStatus(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())

	status, ok := h.decodeStatus(w, r)
	if !ok {
		return
	}

	reg, err := h.service.SetOwnStatus(r.Context(), deviceID, chi.URLParam(r, "eventID"), status)
	if err != nil {
		writeError(w, err, "registration")
		return
	}

	core.OK(w, ToRegistrationResponse(reg))
}

func (h *Handler) SetEntrantStatus(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetDeviceID(r.Context())

	status, ok := h.decodeStatus(w, r)
	if !ok {
		return
	}

	reg, err := h.service.SetStatus(
		r.Context(),
		actorID,
		chi.URLParam(r, "deviceID"),
		chi.URLParam(r, "eventID"),
		status,
	)
	if err != nil {
		writeError(w, err, "registration")
		return
	}

	core.OK(w, ToRegistrationResponse(reg))
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())

	if err := h.service.Withdraw(r.Context(), deviceID, chi.URLParam(r, "eventID")); err != nil {
		writeError(w, err, "registration")
		return
	}

	core.NoContent(w)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	params := ListUsersParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
		Search:   r.URL.Query().Get("search"),
		Type:     r.URL.Query().Get("type"),
	}
	params.Normalize()

	users, total, err := h.service.ListUsers(r.Context(), params)
	if err != nil {
		writeError(w, err, "user")
		return
	}

	core.Paginated(w, ToUserResponseList(users), params.Page, params.PageSize, total)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.GetUser(r.Context(), chi.URLParam(r, "deviceID"))
	if err != nil {
		writeError(w, err, "user")
		return
	}

	core.OK(w, ToUserResponse(u))
}

func (h *Handler) SetUserType(w http.ResponseWriter, r *http.Request) {
	var req SetTypeRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, err := ParseType(req.Type)
	if err != nil {
		core.BadRequest(w, "invalid user type")
		return
	}

	u, err := h.service.SetUserType(r.Context(), chi.URLParam(r, "deviceID"), t)
	if err != nil {
		writeError(w, err, "user")
		return
	}

	core.OK(w, ToUserResponse(u))
}

func (h *Handler) MergeUsers(w http.ResponseWriter, r *http.Request) {
	var req MergeRequest
	if !h.decode(w, r, &req) {
		return
	}

	u, err := h.service.MergeUsers(r.Context(), chi.URLParam(r, "deviceID"), req.SourceID)
	if err != nil {
		writeError(w, err, "user")
		return
	}

	core.OK(w, ToUserResponse(u))
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUser(r.Context(), chi.URLParam(r, "deviceID")); err != nil {
		writeError(w, err, "user")
		return
	}

	core.NoContent(w)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}
	return true
}

func (h *Handler) decodeStatus(w http.ResponseWriter, r *http.Request) (Status, bool) {
	var req SetStatusRequest
	if !h.decode(w, r, &req) {
		return 0, false
	}

	status, err := ParseStatus(req.Status)
	if err != nil {
		core.BadRequest(w, "invalid status")
		return 0, false
	}
	return status, true
}

func writeError(w http.ResponseWriter, err error, resource string) {
	switch {
	case errors.Is(err, ErrRegistrationNotFound):
		core.NotFound(w, "registration")
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, resource)
	case errors.Is(err, core.ErrDuplicateKey):
		core.Conflict(w, "already registered for this event")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, "invalid input")
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, "not permitted")
	default:
		core.InternalServerError(w, err)
	}
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
