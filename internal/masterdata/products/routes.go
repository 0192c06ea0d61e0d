package products

import "github.com/go-chi/chi/v5"

// MountRoutes registers product routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Show)
	r.Put("/{id}", h.Replace)
	r.Patch("/{id}", h.Patch)
	r.Delete("/{id}", h.Delete)
}

// MountPackSizeRoutes registers read-only pack size lookups.
func (h *Handler) MountPackSizeRoutes(r chi.Router) {
	r.Get("/{id}", h.ShowPackSize)
}
