// AngelaMos | 2026
// handler.go

package notification

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hotdog/elotto/internal/core"
	"github.com/hotdog/elotto/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type listResponse struct {
	Notifications []Notification `json:"notifications"`
	Unread        int            `json:"unread"`
}

func (h *Handler) RegisterRoutes(r chi.Router, authenticator func(http.Handler) http.Handler) {
	r.Route("/me/notifications", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.List)
		r.Post("/read", h.MarkAllRead)
		r.Post("/{notificationID}/read", h.MarkRead)
		r.Delete("/{notificationID}", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())

	items, err := h.service.List(r.Context(), deviceID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	unread := 0
	for _, n := range items {
		if !n.Read {
			unread++
		}
	}
	if items == nil {
		items = []Notification{}
	}

	core.OK(w, listResponse{Notifications: items, Unread: unread})
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())

	err := h.service.MarkRead(r.Context(), deviceID, chi.URLParam(r, "notificationID"))
	if err != nil {
		writeError(w, err)
		return
	}
	core.NoContent(w)
}

func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())

	if err := h.service.MarkAllRead(r.Context(), deviceID); err != nil {
		writeError(w, err)
		return
	}
	core.NoContent(w)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())

	err := h.service.Delete(r.Context(), deviceID, chi.URLParam(r, "notificationID"))
	if err != nil {
		writeError(w, err)
		return
	}
	core.NoContent(w)
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrNotFound) {
		core.NotFound(w, "notification")
		return
	}
	core.InternalServerError(w, err)
}
