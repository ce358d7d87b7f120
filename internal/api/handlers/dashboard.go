// dashboard.go — GET /api/v1/dashboard.
// ETag ответа — отпечаток видимых групп и выбора; If-None-Match → 304.
package handlers

import (
	"net/http"
	"strings"

	"github.com/bigkaa/goartstore/dashboard-module/internal/api/middleware"
)

// GetDashboard — дашборд текущего пользователя.
func (h *APIHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.ViewerFromContext(r.Context())

	dashboard, err := h.dashboard.Render(r.Context(), viewer)
	if err != nil {
		h.handleServiceError(w, r, err, "render_dashboard")
		return
	}

	etag := `"` + dashboard.Etag + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")

	if etagMatches(r.Header.Get("If-None-Match"), dashboard.Etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	writeJSON(w, http.StatusOK, dashboard)
}

// etagMatches проверяет If-None-Match (список через запятую, W/ и "*").
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		candidate = strings.TrimPrefix(candidate, "W/")
		if strings.Trim(candidate, `"`) == etag {
			return true
		}
	}
	return false
}
