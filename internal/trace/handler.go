package trace

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

const maxBodySize = 40 << 20 // data-URL images inflate by ~4/3

// Handler proxies trace requests to the raster tracing service so the
// browser never talks to it directly.
type Handler struct {
	client *Client
}

func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

// Trace handles POST /trace. The request body is a trace Request; the
// response is the sanitized Result.
func (h *Handler) Trace(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ImageData == "" {
		http.Error(w, "imageData is required", http.StatusBadRequest)
		return
	}
	if req.Mode == "" {
		req.Mode = ModeSilhouette
	}

	result, err := h.client.Trace(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrRejected) {
			http.Error(w, "trace produced unusable paths", http.StatusUnprocessableEntity)
			return
		}
		slog.Error("trace request", "error", err)
		http.Error(w, "trace service unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}
