package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	r.Get("/items/", h.ListItems)
	r.Get("/statuses", h.GetStatuses)

	r.Route("/items/{barcode}", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			h.GetItem(w, r, chi.URLParam(r, "barcode"))
		})
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			h.CreateItem(w, r, chi.URLParam(r, "barcode"))
		})
		r.Delete("/", func(w http.ResponseWriter, r *http.Request) {
			h.DeleteItem(w, r, chi.URLParam(r, "barcode"))
		})
		r.Put("/status/{statusName}", func(w http.ResponseWriter, r *http.Request) {
			h.AddItemStatus(w, r, chi.URLParam(r, "barcode"), chi.URLParam(r, "statusName"))
		})
		r.Put("/hathifiles_timestamp/{timestamp}", func(w http.ResponseWriter, r *http.Request) {
			h.UpdateHathifilesTimestamp(w, r, chi.URLParam(r, "barcode"), chi.URLParam(r, "timestamp"))
		})
	})

	return r
}
