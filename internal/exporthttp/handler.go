// Package exporthttp serves laser-ready SVG downloads. The document in
// the request body is exported without touching any live session state.
package exporthttp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kerfcraft/kerfcraft/backend-go/internal/document"
	"github.com/kerfcraft/kerfcraft/backend-go/internal/svgexport"
)

const maxBodySize = 20 << 20 // 20MB, traced documents can get large

type Handler struct {
	exporter *svgexport.Exporter
}

func NewHandler(exporter *svgexport.Exporter) *Handler {
	return &Handler{exporter: exporter}
}

// ExportSVG handles POST /export/svg. The body is the document JSON; the
// response is the SVG file as an attachment.
func (h *Handler) ExportSVG(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var doc document.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		http.Error(w, "invalid document: "+err.Error(), http.StatusBadRequest)
		return
	}

	payload, err := h.exporter.BuildPayload(r.Context(), &doc)
	if err != nil {
		slog.Error("export svg", "error", err, "design", doc.ID)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	filename := sanitizeFilename(payload.Name)
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.svg"`, filename))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(payload.SVG))

	slog.Info("exported design",
		"design", doc.ID,
		"cuts", payload.Meta.CutCount,
		"engraves", payload.Meta.EngraveCount)
}

// ExportMeta handles POST /export/meta: the payload metadata as JSON,
// used by the frontend to show a pre-download summary.
func (h *Handler) ExportMeta(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var doc document.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		http.Error(w, "invalid document: "+err.Error(), http.StatusBadRequest)
		return
	}

	payload, err := h.exporter.BuildPayload(r.Context(), &doc)
	if err != nil {
		slog.Error("export meta", "error", err, "design", doc.ID)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(payload.Meta)
}

// sanitizeFilename keeps filenames header-safe and filesystem-safe.
func sanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
	name = strings.Trim(name, "-")
	if name == "" {
		name = "design"
	}
	return name
}
