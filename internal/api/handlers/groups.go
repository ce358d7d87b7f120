// groups.go — снимки групп пайплайнов от CI-сервера:
// PUT/DELETE /api/v1/dashboard/groups/{group}.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/goartstore/dashboard-module/internal/api/errors"
	"github.com/bigkaa/goartstore/dashboard-module/internal/domain/model"
)

type groupPermissions struct {
	Admins  []string `json:"admins"`
	Viewers []string `json:"viewers"`
}

type groupPipeline struct {
	Name                 string `json:"name"`
	LastUpdatedTimestamp int64  `json:"last_updated_timestamp"`
}

type groupRequest struct {
	Permissions *groupPermissions `json:"permissions"`
	Pipelines   []groupPipeline   `json:"pipelines"`
}

type groupResponse struct {
	Name string `json:"name"`
	Etag string `json:"etag"`
}

// PutGroup заменяет снимок группы в каталоге.
func (h *APIHandler) PutGroup(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "group")
	if err := validateName("group", name); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	var req groupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}
	if err := validateGroupRequest(&req); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	var perms *model.Permissions
	if req.Permissions != nil {
		perms = model.NewPermissions(req.Permissions.Admins, req.Permissions.Viewers)
	}
	group := model.NewPipelineGroup(name, perms)
	for _, p := range req.Pipelines {
		group.AddPipeline(&model.DashboardPipeline{
			Name:                 p.Name,
			LastUpdatedTimestamp: p.LastUpdatedTimestamp,
		})
	}

	h.catalog.Put(group)
	writeJSON(w, http.StatusOK, groupResponse{Name: name, Etag: group.Etag()})
}

// DeleteGroup удаляет группу из каталога.
func (h *APIHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "group")
	if !h.catalog.Remove(name) {
		apierrors.NotFound(w, fmt.Sprintf("Группа %q не найдена", name))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func validateGroupRequest(req *groupRequest) error {
	if len(req.Pipelines) > maxGroupSize {
		return fmt.Errorf("pipelines: не более %d элементов", maxGroupSize)
	}
	for _, p := range req.Pipelines {
		if err := validateName("pipelines", p.Name); err != nil {
			return err
		}
	}
	return nil
}
