package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/dashboard-module/internal/domain/model"
	"github.com/bigkaa/goartstore/dashboard-module/internal/repository"
)

// --- Моки ---

// memSelectionsRepo — in-memory реализация PipelineSelectionsRepository.
// Хранит копии записей, как настоящее хранилище.
type memSelectionsRepo struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]*model.PipelineSelections
	saves   int
	err     error
}

func newMemSelectionsRepo() *memSelectionsRepo {
	return &memSelectionsRepo{records: make(map[int64]*model.PipelineSelections)}
}

func cloneSelections(s *model.PipelineSelections) *model.PipelineSelections {
	c := model.NewPipelineSelections(s.Selections(), s.LastUpdate, s.UserID, s.IsBlacklist)
	c.ID = s.ID
	return c
}

func (m *memSelectionsRepo) FindByUserID(_ context.Context, userID int64) (*model.PipelineSelections, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, r := range m.records {
		if r.UserID != nil && *r.UserID == userID {
			return cloneSelections(r), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memSelectionsRepo) FindByID(_ context.Context, id string) (*model.PipelineSelections, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	key, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	r, ok := m.records[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneSelections(r), nil
}

func (m *memSelectionsRepo) Save(_ context.Context, s *model.PipelineSelections) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	if s.ID == 0 {
		m.nextID++
		s.ID = m.nextID
	}
	m.records[s.ID] = cloneSelections(s)
	m.saves++
	return s.ID, nil
}

func (m *memSelectionsRepo) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// fixedClock — часы с фиксированным временем.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

// securityFlag — реализация SecurityChecker для тестов.
type securityFlag bool

func (f securityFlag) IsSecurityEnabled() bool { return bool(f) }

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSelectionsService(repo *memSelectionsRepo, security bool) *PipelineSelectionsService {
	return NewPipelineSelectionsService(repo, securityFlag(security), fixedClock{now: testNow}, testLogger())
}

func int64Ptr(v int64) *int64 {
	return &v
}

// --- Тесты ---

// TestGetPersisted_Default — без записи возвращается «видно всё».
func TestGetPersisted_Default(t *testing.T) {
	for _, security := range []bool{false, true} {
		t.Run(fmt.Sprintf("security=%v", security), func(t *testing.T) {
			svc := newSelectionsService(newMemSelectionsRepo(), security)

			got, err := svc.GetPersistedSelectedPipelines(context.Background(), "42", int64Ptr(7))
			if err != nil {
				t.Fatalf("GetPersistedSelectedPipelines() ошибка: %v", err)
			}
			if !got.IsBlacklist {
				t.Error("IsBlacklist = false, ожидался true")
			}
			if len(got.Selections()) != 0 {
				t.Errorf("Selections() = %v, ожидался пустой список", got.Selections())
			}
		})
	}
}

// TestPersistThenGet — замена списка и последующее чтение.
func TestPersistThenGet(t *testing.T) {
	repo := newMemSelectionsRepo()
	svc := newSelectionsService(repo, false)
	ctx := context.Background()

	key, err := svc.PersistSelectedPipelines(ctx, "", nil, []string{"p1", "p2"}, false)
	if err != nil {
		t.Fatalf("PersistSelectedPipelines() ошибка: %v", err)
	}
	if key == 0 {
		t.Fatal("PersistSelectedPipelines() вернул нулевой ключ")
	}

	got, err := svc.GetPersistedSelectedPipelines(ctx, strconv.FormatInt(key, 10), nil)
	if err != nil {
		t.Fatalf("GetPersistedSelectedPipelines() ошибка: %v", err)
	}
	if got.IsBlacklist {
		t.Error("IsBlacklist = true, ожидался false")
	}
	if !slices.Equal(got.Selections(), []string{"p1", "p2"}) {
		t.Errorf("Selections() = %v, ожидался [p1 p2]", got.Selections())
	}
	if !got.LastUpdate.Equal(testNow) {
		t.Errorf("LastUpdate = %v, ожидался %v", got.LastUpdate, testNow)
	}
}

// TestPersist_UpdatesExistingRecord — повторная замена пишет в ту же запись.
func TestPersist_UpdatesExistingRecord(t *testing.T) {
	repo := newMemSelectionsRepo()
	svc := newSelectionsService(repo, false)
	ctx := context.Background()

	key, err := svc.PersistSelectedPipelines(ctx, "", nil, []string{"p1"}, true)
	if err != nil {
		t.Fatalf("PersistSelectedPipelines() ошибка: %v", err)
	}
	key2, err := svc.PersistSelectedPipelines(ctx, strconv.FormatInt(key, 10), nil, []string{"p2"}, false)
	if err != nil {
		t.Fatalf("повторный PersistSelectedPipelines() ошибка: %v", err)
	}
	if key2 != key {
		t.Errorf("ключ = %d, ожидался %d", key2, key)
	}
	if len(repo.records) != 1 {
		t.Errorf("записей = %d, ожидалась 1", len(repo.records))
	}
}

// TestLookupPrecedence — при включённой безопасности токен игнорируется, и наоборот.
func TestLookupPrecedence(t *testing.T) {
	repo := newMemSelectionsRepo()
	ctx := context.Background()

	byToken := model.NewPipelineSelections([]string{"token"}, testNow, nil, false)
	if _, err := repo.Save(ctx, byToken); err != nil {
		t.Fatal(err)
	}
	byUser := model.NewPipelineSelections([]string{"user"}, testNow, int64Ptr(7), false)
	if _, err := repo.Save(ctx, byUser); err != nil {
		t.Fatal(err)
	}

	secure := newSelectionsService(repo, true)
	got, err := secure.GetPersistedSelectedPipelines(ctx, byToken.Key(), int64Ptr(7))
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got.Selections(), []string{"user"}) {
		t.Errorf("security=true: Selections() = %v, ожидался [user]", got.Selections())
	}

	// Токен без пользователя при включённой безопасности — значение по умолчанию
	got, err = secure.GetPersistedSelectedPipelines(ctx, byToken.Key(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsBlacklist || len(got.Selections()) != 0 {
		t.Errorf("security=true без userID: %v/%v, ожидался ALL", got.IsBlacklist, got.Selections())
	}

	open := newSelectionsService(repo, false)
	got, err = open.GetPersistedSelectedPipelines(ctx, byToken.Key(), int64Ptr(7))
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got.Selections(), []string{"token"}) {
		t.Errorf("security=false: Selections() = %v, ожидался [token]", got.Selections())
	}
}

// TestPersist_SecurityEnabledSetsUser — новая запись создаётся для пользователя.
func TestPersist_SecurityEnabledSetsUser(t *testing.T) {
	repo := newMemSelectionsRepo()
	svc := newSelectionsService(repo, true)
	ctx := context.Background()

	if _, err := svc.PersistSelectedPipelines(ctx, "", int64Ptr(11), []string{"p1"}, true); err != nil {
		t.Fatal(err)
	}

	stored, err := repo.FindByUserID(ctx, 11)
	if err != nil {
		t.Fatalf("FindByUserID() ошибка: %v", err)
	}
	if stored.UserID == nil || *stored.UserID != 11 {
		t.Errorf("UserID = %v, ожидался 11", stored.UserID)
	}
}

// TestEnsureVisible_Blacklist — удаление из исключений сохраняется ровно один раз.
func TestEnsureVisible_Blacklist(t *testing.T) {
	repo := newMemSelectionsRepo()
	svc := newSelectionsService(repo, false)
	ctx := context.Background()

	key, err := svc.PersistSelectedPipelines(ctx, "", nil, []string{"p1", "p3"}, true)
	if err != nil {
		t.Fatal(err)
	}
	id := strconv.FormatInt(key, 10)
	before := repo.saveCount()

	if err := svc.UpdateUserPipelineSelections(ctx, id, nil, "p3"); err != nil {
		t.Fatalf("UpdateUserPipelineSelections() ошибка: %v", err)
	}
	if got := repo.saveCount() - before; got != 1 {
		t.Errorf("сохранений = %d, ожидалось 1", got)
	}

	if err := svc.UpdateUserPipelineSelections(ctx, id, nil, "p3"); err != nil {
		t.Fatalf("повторный UpdateUserPipelineSelections() ошибка: %v", err)
	}
	if got := repo.saveCount() - before; got != 1 {
		t.Errorf("сохранений после повтора = %d, ожидалось 1", got)
	}

	stored, _ := repo.FindByID(ctx, id)
	if !stored.IsBlacklist {
		t.Error("режим изменился на whitelist")
	}
	if !slices.Equal(stored.Selections(), []string{"p1"}) {
		t.Errorf("Selections() = %v, ожидался [p1]", stored.Selections())
	}
}

// TestEnsureVisible_Whitelist — добавление во включения идемпотентно.
func TestEnsureVisible_Whitelist(t *testing.T) {
	repo := newMemSelectionsRepo()
	svc := newSelectionsService(repo, true)
	ctx := context.Background()
	user := int64Ptr(5)

	if _, err := svc.PersistSelectedPipelines(ctx, "", user, []string{"p1"}, false); err != nil {
		t.Fatal(err)
	}
	before := repo.saveCount()

	for range 3 {
		if err := svc.UpdateUserPipelineSelections(ctx, "", user, "p2"); err != nil {
			t.Fatalf("UpdateUserPipelineSelections() ошибка: %v", err)
		}
	}
	if got := repo.saveCount() - before; got != 1 {
		t.Errorf("сохранений = %d, ожидалось 1", got)
	}

	stored, _ := repo.FindByUserID(ctx, 5)
	if stored.IsBlacklist {
		t.Error("режим изменился на blacklist")
	}
	if !slices.Equal(stored.Selections(), []string{"p1", "p2"}) {
		t.Errorf("Selections() = %v, ожидался [p1 p2]", stored.Selections())
	}
}

// TestEnsureVisible_NoRecordNoWrite — без записи всё и так видно, сохранения нет.
func TestEnsureVisible_NoRecordNoWrite(t *testing.T) {
	repo := newMemSelectionsRepo()
	svc := newSelectionsService(repo, false)

	if err := svc.UpdateUserPipelineSelections(context.Background(), "", nil, "p1"); err != nil {
		t.Fatalf("UpdateUserPipelineSelections() ошибка: %v", err)
	}
	if repo.saveCount() != 0 {
		t.Errorf("сохранений = %d, ожидалось 0", repo.saveCount())
	}
}

// TestStorageErrorsPropagate — ошибки хранилища возвращаются вызывающему.
func TestStorageErrorsPropagate(t *testing.T) {
	storageErr := errors.New("база недоступна")
	repo := newMemSelectionsRepo()
	repo.err = storageErr
	svc := newSelectionsService(repo, false)
	ctx := context.Background()

	if _, err := svc.GetPersistedSelectedPipelines(ctx, "1", nil); !errors.Is(err, storageErr) {
		t.Errorf("GetPersistedSelectedPipelines() = %v, ожидалась ошибка хранилища", err)
	}
	if _, err := svc.PersistSelectedPipelines(ctx, "1", nil, nil, true); !errors.Is(err, storageErr) {
		t.Errorf("PersistSelectedPipelines() = %v, ожидалась ошибка хранилища", err)
	}
	if err := svc.UpdateUserPipelineSelections(ctx, "1", nil, "p"); !errors.Is(err, storageErr) {
		t.Errorf("UpdateUserPipelineSelections() = %v, ожидалась ошибка хранилища", err)
	}
}

// TestConcurrentPersist_LastWriteWins — конкурентные замены не сливаются:
// итоговая запись совпадает ровно с одним из переданных списков.
func TestConcurrentPersist_LastWriteWins(t *testing.T) {
	repo := newMemSelectionsRepo()
	svc := newSelectionsService(repo, true)
	ctx := context.Background()
	user := int64Ptr(3)

	if _, err := svc.PersistSelectedPipelines(ctx, "", user, nil, true); err != nil {
		t.Fatal(err)
	}

	inputs := [][]string{{"a1", "a2"}, {"b1"}, {"c1", "c2", "c3"}}
	var wg sync.WaitGroup
	for _, in := range inputs {
		wg.Add(1)
		go func(selected []string) {
			defer wg.Done()
			if _, err := svc.PersistSelectedPipelines(ctx, "", user, selected, false); err != nil {
				t.Errorf("PersistSelectedPipelines() ошибка: %v", err)
			}
		}(in)
	}
	wg.Wait()

	stored, err := repo.FindByUserID(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	matched := false
	for _, in := range inputs {
		if slices.Equal(stored.Selections(), in) {
			matched = true
		}
	}
	if !matched {
		t.Errorf("Selections() = %v — не совпадает ни с одним входом", stored.Selections())
	}
	if len(repo.records) != 1 {
		t.Errorf("записей = %d, ожидалась 1", len(repo.records))
	}
}

// TestValidation — пустые имена отклоняются до обращения к хранилищу.
func TestValidation(t *testing.T) {
	repo := newMemSelectionsRepo()
	svc := newSelectionsService(repo, false)
	ctx := context.Background()

	if _, err := svc.PersistSelectedPipelines(ctx, "", nil, []string{"p1", ""}, true); !errors.Is(err, ErrValidation) {
		t.Errorf("PersistSelectedPipelines() = %v, ожидался ErrValidation", err)
	}
	if err := svc.UpdateUserPipelineSelections(ctx, "", nil, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("UpdateUserPipelineSelections() = %v, ожидался ErrValidation", err)
	}
	if repo.saveCount() != 0 {
		t.Errorf("сохранений = %d, ожидалось 0", repo.saveCount())
	}
}
