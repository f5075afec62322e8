// AngelaMos | 2026
// handler.go

package qr

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hotdog/elotto/internal/core"
)

type Handler struct {
	generator *Generator
}

func NewHandler(generator *Generator) *Handler {
	return &Handler{generator: generator}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, organizerOnly func(http.Handler) http.Handler,
) {
	r.With(authenticator, organizerOnly).Get("/events/{eventID}/qr", h.EventCode)
}

func (h *Handler) EventCode(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	png, err := h.generator.PNG(eventID)
	if err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			core.BadRequest(w, "invalid event id")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // best-effort response write
	_, _ = w.Write(png)
}
