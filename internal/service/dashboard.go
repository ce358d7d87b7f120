// dashboard.go — отрисовка дашборда для конкретного пользователя.
// Группы фильтруются по правам и выбору пайплайнов, отрисованные группы
// кэшируются по etag группы и отпечатку выбора.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"github.com/bigkaa/goartstore/dashboard-module/internal/domain/model"
)

// Viewer — тот, для кого строится дашборд.
type Viewer struct {
	// UserID — id пользователя (только при включённой безопасности)
	UserID *int64
	// Username — имя пользователя для проверки прав групп
	Username string
	// SelectionID — токен выбора из cookie клиента
	SelectionID string
}

// PipelineView — пайплайн в отрисованном дашборде.
type PipelineView struct {
	Name                 string `json:"name"`
	LastUpdatedTimestamp int64  `json:"last_updated_timestamp"`
}

// GroupView — отрисованная группа.
type GroupView struct {
	Name      string         `json:"name"`
	Etag      string         `json:"etag"`
	Pipelines []PipelineView `json:"pipelines"`
}

// Dashboard — результат отрисовки.
type Dashboard struct {
	Etag   string       `json:"etag"`
	Groups []*GroupView `json:"groups"`
}

// SelectionsReader — чтение сохранённого выбора пайплайнов.
type SelectionsReader interface {
	GetPersistedSelectedPipelines(ctx context.Context, id string, userID *int64) (*model.PipelineSelections, error)
}

// DashboardService строит дашборд из каталога групп.
type DashboardService struct {
	catalog    *Catalog
	selections SelectionsReader
	cache      *RenderCache
	security   SecurityChecker
	logger     *slog.Logger
}

// NewDashboardService создаёт сервис дашборда.
func NewDashboardService(
	catalog *Catalog,
	selections SelectionsReader,
	cache *RenderCache,
	security SecurityChecker,
	logger *slog.Logger,
) *DashboardService {
	return &DashboardService{
		catalog:    catalog,
		selections: selections,
		cache:      cache,
		security:   security,
		logger:     logger.With(slog.String("component", "dashboard_service")),
	}
}

// Render строит дашборд для viewer.
// Группы без видимых пайплайнов пропускаются.
func (s *DashboardService) Render(ctx context.Context, viewer Viewer) (*Dashboard, error) {
	selections, err := s.selections.GetPersistedSelectedPipelines(ctx, viewer.SelectionID, viewer.UserID)
	if err != nil {
		return nil, err
	}
	fingerprint := selections.Fingerprint()

	h := sha256.New()
	dashboard := &Dashboard{Groups: []*GroupView{}}

	for _, group := range s.catalog.Groups() {
		if !s.canView(group, viewer.Username) {
			continue
		}

		etag := group.Etag()
		view := s.renderGroup(group, etag, selections, fingerprint)
		if len(view.Pipelines) == 0 {
			continue
		}

		dashboard.Groups = append(dashboard.Groups, view)
		h.Write([]byte(etag))
		h.Write([]byte("\n"))
	}
	h.Write([]byte(fingerprint))
	dashboard.Etag = hex.EncodeToString(h.Sum(nil))

	s.logger.Debug("Дашборд построен",
		slog.Int("groups", len(dashboard.Groups)),
		slog.String("etag", dashboard.Etag),
	)
	return dashboard, nil
}

// renderGroup возвращает отрисованную группу из кэша или строит её.
func (s *DashboardService) renderGroup(
	group *model.PipelineGroup,
	etag string,
	selections *model.PipelineSelections,
	fingerprint string,
) *GroupView {
	key := renderKey(etag, fingerprint)
	if view, ok := s.cache.Get(key); ok {
		return view
	}

	view := &GroupView{
		Name:      group.Name(),
		Etag:      etag,
		Pipelines: []PipelineView{},
	}
	for _, p := range group.AllPipelines() {
		if !selections.Includes(p.Name) {
			continue
		}
		view.Pipelines = append(view.Pipelines, PipelineView{
			Name:                 p.Name,
			LastUpdatedTimestamp: p.LastUpdatedTimestamp,
		})
	}

	s.cache.Set(key, view)
	return view
}

// canView — без безопасности видны все группы. Иначе группа видна
// просмотрщикам, администраторам, а также если у неё нет прав вовсе.
func (s *DashboardService) canView(group *model.PipelineGroup, username string) bool {
	if !s.security.IsSecurityEnabled() || !group.HasPermissions() {
		return true
	}
	return group.CanBeViewedBy(username) || group.CanBeAdministeredBy(username)
}
