// catalog.go — каталог групп пайплайнов дашборда.
package service

import (
	"slices"
	"sync"

	"github.com/bigkaa/goartstore/dashboard-module/internal/domain/model"
)

// Catalog — потокобезопасный in-memory каталог групп в порядке добавления.
// Группы хранятся как снимки: после Put группа не изменяется.
type Catalog struct {
	mu     sync.RWMutex
	order  []string
	groups map[string]*model.PipelineGroup
}

// NewCatalog создаёт пустой каталог.
func NewCatalog() *Catalog {
	return &Catalog{groups: make(map[string]*model.PipelineGroup)}
}

// Put добавляет группу или заменяет существующую с тем же именем.
// Замена сохраняет позицию группы в каталоге.
func (c *Catalog) Put(group *model.PipelineGroup) {
	if group == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.groups[group.Name()]; !ok {
		c.order = append(c.order, group.Name())
	}
	c.groups[group.Name()] = group
}

// Remove удаляет группу. Возвращает false, если группы не было.
func (c *Catalog) Remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.groups[name]; !ok {
		return false
	}
	delete(c.groups, name)
	c.order = slices.DeleteFunc(c.order, func(n string) bool { return n == name })
	return true
}

// Get возвращает группу по имени.
func (c *Catalog) Get(name string) (*model.PipelineGroup, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.groups[name]
	return g, ok
}

// Groups возвращает все группы в порядке добавления.
func (c *Catalog) Groups() []*model.PipelineGroup {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*model.PipelineGroup, 0, len(c.order))
	for _, name := range c.order {
		result = append(result, c.groups[name])
	}
	return result
}

// Len — количество групп.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
