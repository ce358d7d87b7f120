// pipeline_selections.go — сервис выбора видимых пайплайнов дашборда.
// Находит запись по пользователю (безопасность включена) или по токену клиента,
// создаёт её при первом изменении, сохраняет только реальные изменения.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/dashboard-module/internal/domain/model"
	"github.com/bigkaa/goartstore/dashboard-module/internal/repository"
)

// Prometheus-метрики выбора пайплайнов.
var (
	selectionSavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dm_pipeline_selection_saves_total",
		Help: "Количество сохранений выбора пайплайнов.",
	}, []string{"operation"})
	selectionSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dm_pipeline_selection_saves_skipped_total",
		Help: "Количество пропущенных сохранений (пайплайн уже видим).",
	})
)

// Clock — источник текущего времени.
type Clock interface {
	Now() time.Time
}

// SystemClock — системные часы (UTC).
type SystemClock struct{}

// Now возвращает текущее время.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// SecurityChecker сообщает, включена ли безопасность.
// true — запись выбора ищется по пользователю, false — по токену клиента.
type SecurityChecker interface {
	IsSecurityEnabled() bool
}

// PipelineSelectionsService — сервис выбора пайплайнов.
// Поиск-или-создание и последующая запись не атомарны: от дублей при
// конкурентном первом сохранении защищает уникальный индекс хранилища.
type PipelineSelectionsService struct {
	repo     repository.PipelineSelectionsRepository
	security SecurityChecker
	clock    Clock
	logger   *slog.Logger
}

// NewPipelineSelectionsService создаёт сервис выбора пайплайнов.
func NewPipelineSelectionsService(
	repo repository.PipelineSelectionsRepository,
	security SecurityChecker,
	clock Clock,
	logger *slog.Logger,
) *PipelineSelectionsService {
	return &PipelineSelectionsService{
		repo:     repo,
		security: security,
		clock:    clock,
		logger:   logger.With(slog.String("component", "pipeline_selections_service")),
	}
}

// GetPersistedSelectedPipelines возвращает сохранённый выбор.
// Если записи нет — model.AllPipelineSelections() («видно всё»).
func (s *PipelineSelectionsService) GetPersistedSelectedPipelines(ctx context.Context, id string, userID *int64) (*model.PipelineSelections, error) {
	selections, err := s.load(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if selections == nil {
		return model.AllPipelineSelections(), nil
	}
	return selections, nil
}

// PersistSelectedPipelines полностью заменяет список и режим и сохраняет запись.
// Возвращает ключ сохранённой записи.
func (s *PipelineSelectionsService) PersistSelectedPipelines(
	ctx context.Context,
	id string,
	userID *int64,
	selected []string,
	isBlacklist bool,
) (int64, error) {
	if slices.Contains(selected, "") {
		return 0, fmt.Errorf("%w: пустое имя пайплайна в списке", ErrValidation)
	}

	selections, err := s.findOrCreate(ctx, id, userID)
	if err != nil {
		return 0, err
	}

	selections.Update(selected, s.clock.Now(), userID, isBlacklist)

	key, err := s.repo.Save(ctx, selections)
	if err != nil {
		return 0, fmt.Errorf("сохранение выбора пайплайнов: %w", err)
	}
	selectionSavesTotal.WithLabelValues("replace").Inc()

	s.logger.Debug("Выбор пайплайнов сохранён",
		slog.Int64("key", key),
		slog.Int("count", len(selected)),
		slog.Bool("blacklist", isBlacklist),
	)
	return key, nil
}

// UpdateUserPipelineSelections делает пайплайн видимым при текущем режиме.
// Запись сохраняется, только если список действительно изменился.
func (s *PipelineSelectionsService) UpdateUserPipelineSelections(ctx context.Context, id string, userID *int64, pipelineName string) error {
	if pipelineName == "" {
		return fmt.Errorf("%w: пустое имя пайплайна", ErrValidation)
	}

	selections, err := s.findOrCreate(ctx, id, userID)
	if err != nil {
		return err
	}

	if !selections.EnsurePipelineVisible(pipelineName) {
		selectionSkippedTotal.Inc()
		return nil
	}

	if _, err := s.repo.Save(ctx, selections); err != nil {
		return fmt.Errorf("сохранение выбора пайплайнов: %w", err)
	}
	selectionSavesTotal.WithLabelValues("ensure_visible").Inc()

	s.logger.Debug("Пайплайн сделан видимым",
		slog.String("pipeline", pipelineName),
		slog.Int64("key", selections.ID),
	)
	return nil
}

// findOrCreate возвращает существующую запись или новую несохранённую:
// пустой список исключений, текущее время, переданный пользователь.
func (s *PipelineSelectionsService) findOrCreate(ctx context.Context, id string, userID *int64) (*model.PipelineSelections, error) {
	selections, err := s.load(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if selections == nil {
		return model.NewPipelineSelections(nil, s.clock.Now(), userID, true), nil
	}
	return selections, nil
}

// load ищет запись строго по пользователю или строго по токену.
// Отсутствие записи — (nil, nil).
func (s *PipelineSelectionsService) load(ctx context.Context, id string, userID *int64) (*model.PipelineSelections, error) {
	var (
		selections *model.PipelineSelections
		err        error
	)
	switch {
	case s.security.IsSecurityEnabled():
		if userID == nil {
			return nil, nil
		}
		selections, err = s.repo.FindByUserID(ctx, *userID)
	default:
		if id == "" {
			return nil, nil
		}
		selections, err = s.repo.FindByID(ctx, id)
	}

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("получение выбора пайплайнов: %w", err)
	}
	return selections, nil
}
