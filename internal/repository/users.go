package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// UserRepository — отображение субъекта JWT в числовой идентификатор пользователя.
type UserRepository interface {
	// EnsureUser создаёт пользователя при первом обращении (upsert по subject)
	// и возвращает его id. Строка обновляется только при смене username.
	EnsureUser(ctx context.Context, subject, username string) (int64, error)
}

// userRepo — реализация UserRepository.
type userRepo struct {
	db DBTX
}

// NewUserRepository создаёт репозиторий пользователей.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepo{db: db}
}

// EnsureUser — условный upsert: при неизменном username конфликт не пишет
// в таблицу и RETURNING пуст, тогда id читается отдельным SELECT.
func (r *userRepo) EnsureUser(ctx context.Context, subject, username string) (int64, error) {
	query := `
		INSERT INTO users (subject, username)
		VALUES ($1, $2)
		ON CONFLICT (subject) DO UPDATE
		SET username = EXCLUDED.username,
			updated_at = NOW()
		WHERE users.username IS DISTINCT FROM EXCLUDED.username
		RETURNING id`

	var id int64
	err := r.db.QueryRow(ctx, query, subject, username).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		err = r.db.QueryRow(ctx, `SELECT id FROM users WHERE subject = $1`, subject).Scan(&id)
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка сохранения пользователя %q: %w", subject, err)
	}
	return id, nil
}
