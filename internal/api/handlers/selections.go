// selections.go — выбор видимых пайплайнов:
// GET/PUT /api/v1/pipeline_selection,
// POST /api/v1/pipeline_selection/pipelines/{pipeline}/visible.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/goartstore/dashboard-module/internal/api/errors"
	"github.com/bigkaa/goartstore/dashboard-module/internal/api/middleware"
)

type selectionResponse struct {
	Selections  []string `json:"selections"`
	Blacklist   bool     `json:"blacklist"`
	LastUpdated string   `json:"last_updated,omitempty"`
}

type selectionRequest struct {
	Selections []string `json:"selections"`
	Blacklist  *bool    `json:"blacklist"`
}

// GetPipelineSelection — текущий выбор пайплайнов.
func (h *APIHandler) GetPipelineSelection(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.ViewerFromContext(r.Context())

	selections, err := h.selections.GetPersistedSelectedPipelines(r.Context(), viewer.SelectionID, viewer.UserID)
	if err != nil {
		h.handleServiceError(w, r, err, "get_selection")
		return
	}

	resp := selectionResponse{
		Selections: selections.Selections(),
		Blacklist:  selections.IsBlacklist,
	}
	if resp.Selections == nil {
		resp.Selections = []string{}
	}
	if !selections.LastUpdate.IsZero() {
		resp.LastUpdated = selections.LastUpdate.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdatePipelineSelection полностью заменяет список и режим.
// Без безопасности выставляет cookie с ключом сохранённой записи.
func (h *APIHandler) UpdatePipelineSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}
	if err := validateSelectionRequest(&req); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	viewer := middleware.ViewerFromContext(r.Context())
	key, err := h.selections.PersistSelectedPipelines(r.Context(), viewer.SelectionID, viewer.UserID, req.Selections, *req.Blacklist)
	if err != nil {
		h.handleServiceError(w, r, err, "persist_selection")
		return
	}

	if !h.security.IsSecurityEnabled() {
		http.SetCookie(w, &http.Cookie{
			Name:     h.cookie.Name,
			Value:    strconv.FormatInt(key, 10),
			Path:     "/",
			MaxAge:   int(h.cookie.MaxAge.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	w.WriteHeader(http.StatusNoContent)
}

// EnsurePipelineVisible делает пайплайн видимым, не меняя режим.
func (h *APIHandler) EnsurePipelineVisible(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "pipeline")
	if err := validateName("pipeline", name); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	viewer := middleware.ViewerFromContext(r.Context())
	if err := h.selections.UpdateUserPipelineSelections(r.Context(), viewer.SelectionID, viewer.UserID, name); err != nil {
		h.handleServiceError(w, r, err, "ensure_visible")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func validateSelectionRequest(req *selectionRequest) error {
	if req.Blacklist == nil {
		return errors.New("поле blacklist обязательно")
	}
	if len(req.Selections) > maxSelections {
		return fmt.Errorf("selections: не более %d элементов", maxSelections)
	}
	for _, name := range req.Selections {
		if err := validateName("selections", name); err != nil {
			return err
		}
	}
	return nil
}
