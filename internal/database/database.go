// Пакет database — хранилище выбора пайплайнов дашборда в PostgreSQL.
//
// Схема из двух таблиц (миграции в migrations/):
//   - users — субъект JWT (sub) → числовой id пользователя;
//   - pipeline_selections — списки выбранных пайплайнов: по одному на
//     пользователя или анонимные, адресуемые cookie.
//
// Сервис считается готовым, только когда обе таблицы существуют.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/goartstore/dashboard-module/internal/config"
)

// applicationName — видно в pg_stat_activity.
const applicationName = "dashboard-module"

// readyTimeout ограничивает одну проверку готовности.
const readyTimeout = 3 * time.Second

// SchemaTables — таблицы, без которых выбор пайплайнов не работает.
var SchemaTables = []string{"users", "pipeline_selections"}

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrDirtySchema — предыдущая миграция прервалась, схему нужно чинить вручную.
var ErrDirtySchema = errors.New("схема БД в состоянии dirty")

// Connect открывает пул к базе выбора пайплайнов и проверяет её доступность.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула подключений: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("PostgreSQL %s:%d недоступен: %w", cfg.DBHost, cfg.DBPort, err)
	}

	logger.Info("Хранилище выбора пайплайнов подключено",
		slog.String("host", cfg.DBHost),
		slog.Int("port", cfg.DBPort),
		slog.String("database", cfg.DBName),
		slog.Int("max_conns", int(poolCfg.MaxConns)),
	)
	return pool, nil
}

// Migrate приводит схему users/pipeline_selections к последней версии.
// Dirty-состояние после прерванной миграции — ErrDirtySchema, без попытки Up.
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ошибка чтения встроенных миграций: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.DatabaseURL("pgx5"))
	if err != nil {
		return fmt.Errorf("ошибка инициализации миграций: %w", err)
	}
	defer m.Close()

	before, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		before = 0
	case err != nil:
		return fmt.Errorf("ошибка чтения версии схемы: %w", err)
	case dirty:
		return fmt.Errorf("версия %d: %w", before, ErrDirtySchema)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	after, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("ошибка чтения версии схемы: %w", err)
	}
	if after == before {
		logger.Debug("Схема актуальна", slog.Uint64("version", uint64(after)))
		return nil
	}
	logger.Info("Схема обновлена",
		slog.Uint64("from", uint64(before)),
		slog.Uint64("to", uint64(after)),
	)
	return nil
}

// ReadinessChecker — готовность хранилища для /health/ready:
// PostgreSQL отвечает и схема выбора пайплайнов на месте.
type ReadinessChecker struct {
	pool   *pgxpool.Pool
	tables []string
}

// NewReadinessChecker создаёт проверку по SchemaTables.
func NewReadinessChecker(pool *pgxpool.Pool) *ReadinessChecker {
	return &ReadinessChecker{pool: pool, tables: SchemaTables}
}

// CheckReady возвращает "ok" или "fail" с пояснением.
func (c *ReadinessChecker) CheckReady() (status, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), readyTimeout)
	defer cancel()

	missing, err := c.missingTables(ctx)
	if err != nil {
		return "fail", fmt.Sprintf("PostgreSQL недоступен: %v", err)
	}
	if len(missing) > 0 {
		return "fail", fmt.Sprintf("нет таблиц %v, миграции не применены", missing)
	}
	return "ok", "схема выбора пайплайнов доступна"
}

// missingTables — таблицы из c.tables, которых нет в search_path.
func (c *ReadinessChecker) missingTables(ctx context.Context) ([]string, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT t FROM unnest($1::text[]) AS t WHERE to_regclass(t) IS NULL`, c.tables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var missing []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		missing = append(missing, name)
	}
	return missing, rows.Err()
}
