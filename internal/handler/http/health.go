package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func RegisterHealth(router chi.Router, service string) {
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok", Service: service})
	})
}
