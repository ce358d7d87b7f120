package model

import (
	"slices"

	"github.com/cespare/xxhash/v2"
)

// Permissions — права доступа к группе пайплайнов.
// Наборы admins/viewers имеют семантику множеств: порядок и дубликаты
// не влияют ни на проверки, ни на Hash().
type Permissions struct {
	admins  []string
	viewers []string
}

// NewPermissions создаёт права из списков администраторов и наблюдателей.
func NewPermissions(admins, viewers []string) *Permissions {
	return &Permissions{
		admins:  normalizeSet(admins),
		viewers: normalizeSet(viewers),
	}
}

// Admins возвращает копию множества администраторов (отсортировано).
func (p *Permissions) Admins() []string {
	if p == nil {
		return nil
	}
	return slices.Clone(p.admins)
}

// Viewers возвращает копию множества наблюдателей (отсортировано).
func (p *Permissions) Viewers() []string {
	if p == nil {
		return nil
	}
	return slices.Clone(p.viewers)
}

// IsAdmin проверяет, входит ли пользователь в администраторы.
func (p *Permissions) IsAdmin(userName string) bool {
	if p == nil {
		return false
	}
	_, ok := slices.BinarySearch(p.admins, userName)
	return ok
}

// IsViewer проверяет, входит ли пользователь в наблюдатели.
func (p *Permissions) IsViewer(userName string) bool {
	if p == nil {
		return false
	}
	_, ok := slices.BinarySearch(p.viewers, userName)
	return ok
}

// Hash — детерминированный хэш прав (xxhash64 по отсортированным множествам).
// Для nil возвращает 0.
func (p *Permissions) Hash() int64 {
	if p == nil {
		return 0
	}
	d := xxhash.New()
	for _, a := range p.admins {
		_, _ = d.WriteString(a)
		_, _ = d.WriteString("\x00")
	}
	_, _ = d.WriteString("\x01")
	for _, v := range p.viewers {
		_, _ = d.WriteString(v)
		_, _ = d.WriteString("\x00")
	}
	return int64(d.Sum64()) //nolint:gosec // переполнение допустимо, нужен только знак/битовый образ
}

// normalizeSet сортирует и удаляет дубликаты.
func normalizeSet(items []string) []string {
	s := slices.Clone(items)
	slices.Sort(s)
	return slices.Compact(s)
}
