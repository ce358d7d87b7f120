package model

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strconv"
	"strings"
	"time"
)

// PipelineSelections — выбор видимых пайплайнов для пользователя или клиента.
// IsBlacklist=true: Selections — исключённые пайплайны (видно всё остальное).
// IsBlacklist=false: Selections — единственные видимые пайплайны.
// Сравнение имён регистронезависимое, хранится написание вызывающего.
type PipelineSelections struct {
	// ID — ключ записи в хранилище (0 — ещё не сохранена)
	ID int64
	// UserID — идентификатор пользователя (при включённой безопасности)
	UserID *int64
	// LastUpdate — время последнего изменения
	LastUpdate time.Time
	// IsBlacklist — режим списка (исключение/включение)
	IsBlacklist bool

	selections []string
}

// NewPipelineSelections создаёт запись выбора.
func NewPipelineSelections(selections []string, lastUpdate time.Time, userID *int64, isBlacklist bool) *PipelineSelections {
	return &PipelineSelections{
		UserID:      userID,
		LastUpdate:  lastUpdate,
		IsBlacklist: isBlacklist,
		selections:  normalizeSelections(selections),
	}
}

// AllPipelineSelections возвращает значение по умолчанию «видно всё»:
// пустой список исключений. Никогда не сохраняется.
func AllPipelineSelections() *PipelineSelections {
	return &PipelineSelections{IsBlacklist: true}
}

// Selections возвращает копию списка выбранных пайплайнов.
func (s *PipelineSelections) Selections() []string {
	return slices.Clone(s.selections)
}

// Key возвращает строковый токен записи для клиента (cookie).
// Пустая строка, если запись не сохранена.
func (s *PipelineSelections) Key() string {
	if s.ID == 0 {
		return ""
	}
	return strconv.FormatInt(s.ID, 10)
}

// Update полностью заменяет список, режим, пользователя и время изменения.
func (s *PipelineSelections) Update(selections []string, now time.Time, userID *int64, isBlacklist bool) {
	s.selections = normalizeSelections(selections)
	s.LastUpdate = now
	s.UserID = userID
	s.IsBlacklist = isBlacklist
}

// Includes проверяет, виден ли пайплайн при текущем выборе.
func (s *PipelineSelections) Includes(pipelineName string) bool {
	listed := s.indexOf(pipelineName) >= 0
	if s.IsBlacklist {
		return !listed
	}
	return listed
}

// EnsurePipelineVisible делает пайплайн видимым, не меняя режим.
// Возвращает true, если список изменился и запись нужно сохранить.
func (s *PipelineSelections) EnsurePipelineVisible(pipelineName string) bool {
	if s.IsBlacklist {
		before := len(s.selections)
		s.selections = slices.DeleteFunc(s.selections, func(name string) bool {
			return strings.EqualFold(name, pipelineName)
		})
		return len(s.selections) != before
	}
	if s.indexOf(pipelineName) >= 0 {
		return false
	}
	s.selections = append(s.selections, pipelineName)
	return true
}

// Fingerprint — хэш режима и списка, используется в ключах кэша рендеринга.
func (s *PipelineSelections) Fingerprint() string {
	h := sha256.New()
	if s.IsBlacklist {
		h.Write([]byte("blacklist"))
	} else {
		h.Write([]byte("whitelist"))
	}
	for _, name := range s.selections {
		h.Write([]byte{0})
		h.Write([]byte(strings.ToLower(name)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// normalizeSelections копирует список без повторов (без учёта регистра).
// Остаётся первое написание на первой позиции.
func normalizeSelections(selections []string) []string {
	if selections == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(selections))
	result := make([]string, 0, len(selections))
	for _, name := range selections {
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, name)
	}
	return result
}

func (s *PipelineSelections) indexOf(pipelineName string) int {
	return slices.IndexFunc(s.selections, func(name string) bool {
		return strings.EqualFold(name, pipelineName)
	})
}
