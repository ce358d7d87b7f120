// handler.go — основной обработчик API Dashboard Module.
// Объединяет health и бизнес-обработчики, делегируя запросы в сервисный слой.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/bigkaa/goartstore/dashboard-module/internal/api/errors"
	"github.com/bigkaa/goartstore/dashboard-module/internal/domain/model"
	"github.com/bigkaa/goartstore/dashboard-module/internal/repository"
	"github.com/bigkaa/goartstore/dashboard-module/internal/service"
)

// Ограничения входных данных.
const (
	maxNameLen       = 255
	maxSelections    = 10000
	maxGroupSize     = 10000
	maxRequestBodyMB = 4
)

// DashboardRenderer строит дашборд.
type DashboardRenderer interface {
	Render(ctx context.Context, viewer service.Viewer) (*service.Dashboard, error)
}

// SelectionsManager — операции над выбором пайплайнов.
type SelectionsManager interface {
	GetPersistedSelectedPipelines(ctx context.Context, id string, userID *int64) (*model.PipelineSelections, error)
	PersistSelectedPipelines(ctx context.Context, id string, userID *int64, selected []string, isBlacklist bool) (int64, error)
	UpdateUserPipelineSelections(ctx context.Context, id string, userID *int64, pipelineName string) error
}

// GroupCatalog — каталог групп.
type GroupCatalog interface {
	Put(group *model.PipelineGroup)
	Remove(name string) bool
}

// CookieConfig — параметры cookie с токеном выбора.
type CookieConfig struct {
	Name   string
	MaxAge time.Duration
}

// APIHandler — основной обработчик API Dashboard Module.
type APIHandler struct {
	health     *HealthHandler
	dashboard  DashboardRenderer
	selections SelectionsManager
	catalog    GroupCatalog
	security   service.SecurityChecker
	cookie     CookieConfig
	logger     *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	dashboard DashboardRenderer,
	selections SelectionsManager,
	catalog GroupCatalog,
	security service.SecurityChecker,
	cookie CookieConfig,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:     health,
		dashboard:  dashboard,
		selections: selections,
		catalog:    catalog,
		security:   security,
		cookie:     cookie,
		logger:     logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON читает тело запроса с ограничением размера.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyMB<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// validateName проверяет имя группы или пайплайна.
func validateName(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%s: имя не может быть пустым", kind)
	}
	if len(name) > maxNameLen {
		return fmt.Errorf("%s: имя длиннее %d символов", kind, maxNameLen)
	}
	return nil
}

// handleServiceError маппит ошибки сервисного слоя в HTTP-ответы.
func (h *APIHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, repository.ErrConflict):
		apierrors.Conflict(w, "Конкурентное изменение выбора пайплайнов, повторите запрос")
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "Ошибка обработки запроса",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
