package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"
)

// NewServer creates an HTTP server with all routes configured. The
// rebalance trigger is admin-gated when an API key is set.
func NewServer(port string, h *Handler, adminAPIKey string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/position", h.GetPosition)
	mux.HandleFunc("GET /api/v1/quote/latest", h.GetLatestQuote)
	mux.HandleFunc("GET /api/v1/cycles", h.ListCycles)
	mux.HandleFunc("GET /api/v1/cycles/latest", h.GetLatestCycle)
	mux.HandleFunc("GET /api/v1/cycles/{id}", h.GetCycleByID)

	trigger := http.HandlerFunc(h.TriggerRebalance)
	if adminAPIKey != "" {
		mux.Handle("POST /api/v1/rebalance", requireAuth(adminAPIKey, trigger))
	} else {
		mux.Handle("POST /api/v1/rebalance", trigger)
	}

	return &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
