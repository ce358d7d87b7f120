package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goartstore/dashboard-module/internal/domain/model"
)

// selectionColumns — столбцы pipeline_selections для SELECT-запросов.
const selectionColumns = `id, user_id, selections, is_blacklist, last_update`

// PipelineSelectionsRepository — хранилище выбора видимых пайплайнов.
// Отсутствие записи — ErrNotFound.
type PipelineSelectionsRepository interface {
	// FindByUserID возвращает запись пользователя.
	FindByUserID(ctx context.Context, userID int64) (*model.PipelineSelections, error)
	// FindByID возвращает запись по токену клиента (строковое представление ключа).
	FindByID(ctx context.Context, id string) (*model.PipelineSelections, error)
	// Save создаёт (ID == 0) или перезаписывает запись и возвращает её ключ.
	Save(ctx context.Context, s *model.PipelineSelections) (int64, error)
}

// pipelineSelectionsRepo — реализация PipelineSelectionsRepository через pgx.
type pipelineSelectionsRepo struct {
	db DBTX
}

// NewPipelineSelectionsRepository создаёт репозиторий выбора пайплайнов.
func NewPipelineSelectionsRepository(db DBTX) PipelineSelectionsRepository {
	return &pipelineSelectionsRepo{db: db}
}

// FindByUserID возвращает запись по user_id или ErrNotFound.
func (r *pipelineSelectionsRepo) FindByUserID(ctx context.Context, userID int64) (*model.PipelineSelections, error) {
	query := fmt.Sprintf(`SELECT %s FROM pipeline_selections WHERE user_id = $1`, selectionColumns)
	return r.scanOne(ctx, query, userID)
}

// FindByID возвращает запись по строковому ключу.
// Некорректный токен (не число) трактуется как отсутствие записи.
func (r *pipelineSelectionsRepo) FindByID(ctx context.Context, id string) (*model.PipelineSelections, error) {
	key, err := strconv.ParseInt(id, 10, 64)
	if err != nil || key <= 0 {
		return nil, ErrNotFound
	}
	query := fmt.Sprintf(`SELECT %s FROM pipeline_selections WHERE id = $1`, selectionColumns)
	return r.scanOne(ctx, query, key)
}

// Save сохраняет запись одним запросом: INSERT для новой, UPDATE для существующей.
// Устанавливает s.ID после вставки.
func (r *pipelineSelectionsRepo) Save(ctx context.Context, s *model.PipelineSelections) (int64, error) {
	selections := s.Selections()
	if selections == nil {
		selections = []string{}
	}

	if s.ID == 0 {
		query := `
			INSERT INTO pipeline_selections (user_id, selections, is_blacklist, last_update)
			VALUES ($1, $2, $3, $4)
			RETURNING id`

		var id int64
		err := r.db.QueryRow(ctx, query, s.UserID, selections, s.IsBlacklist, s.LastUpdate).Scan(&id)
		if err != nil {
			if isUniqueViolation(err) {
				return 0, fmt.Errorf("%w: выбор пайплайнов пользователя уже существует", ErrConflict)
			}
			return 0, fmt.Errorf("ошибка создания pipeline_selections: %w", err)
		}
		s.ID = id
		return id, nil
	}

	query := `
		UPDATE pipeline_selections
		SET user_id = $2, selections = $3, is_blacklist = $4, last_update = $5
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, s.ID, s.UserID, selections, s.IsBlacklist, s.LastUpdate)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: выбор пайплайнов пользователя уже существует", ErrConflict)
		}
		return 0, fmt.Errorf("ошибка обновления pipeline_selections[%d]: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrNotFound
	}
	return s.ID, nil
}

// scanOne выполняет запрос одной записи и собирает модель.
func (r *pipelineSelectionsRepo) scanOne(ctx context.Context, query string, arg any) (*model.PipelineSelections, error) {
	var (
		id          int64
		userID      *int64
		selections  []string
		isBlacklist bool
		lastUpdate  time.Time
	)
	err := r.db.QueryRow(ctx, query, arg).Scan(&id, &userID, &selections, &isBlacklist, &lastUpdate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения pipeline_selections: %w", err)
	}

	s := model.NewPipelineSelections(selections, lastUpdate, userID, isBlacklist)
	s.ID = id
	return s, nil
}
