// Пакет model — доменные модели Dashboard Module.
// PipelineGroup — снимок группы пайплайнов для дашборда с вычислением etag.
// PipelineSelections — сохранённый выбор видимых пайплайнов пользователя.
package model

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// DashboardPipeline — состояние пайплайна на дашборде.
type DashboardPipeline struct {
	// Name — имя пайплайна (уникально в группе)
	Name string
	// LastUpdatedTimestamp — время последнего изменения (мс)
	LastUpdatedTimestamp int64
}

// PipelineGroup — именованная группа пайплайнов с правами доступа.
// Члены группы хранятся в порядке первой вставки: повторное добавление
// с тем же именем заменяет значение, но не позицию.
type PipelineGroup struct {
	name        string
	permissions *Permissions
	order       []string
	pipelines   map[string]*DashboardPipeline
}

// NewPipelineGroup создаёт пустую группу.
// permissions может быть nil — тогда HasPermissions() == false.
func NewPipelineGroup(name string, permissions *Permissions) *PipelineGroup {
	return &PipelineGroup{
		name:        name,
		permissions: permissions,
		pipelines:   make(map[string]*DashboardPipeline),
	}
}

// AddPipeline добавляет копию пайплайна в группу. nil игнорируется.
func (g *PipelineGroup) AddPipeline(p *DashboardPipeline) {
	if p == nil {
		return
	}
	cp := *p
	if _, ok := g.pipelines[cp.Name]; !ok {
		g.order = append(g.order, cp.Name)
	}
	g.pipelines[cp.Name] = &cp
}

// Etag возвращает SHA-256 (hex) от канонического представления группы:
//
//	name "/" permissionsHash "[" (pipeline ":" timestamp)* "]"
//
// Пайплайны идут в порядке вставки — перестановка членов меняет etag.
func (g *PipelineGroup) Etag() string {
	var buf bytes.Buffer
	buf.WriteString(g.name)
	buf.WriteString("/")
	buf.WriteString(strconv.FormatInt(g.permissions.Hash(), 10))
	buf.WriteString("[")
	for _, name := range g.order {
		buf.WriteString(name)
		buf.WriteString(":")
		buf.WriteString(strconv.FormatInt(g.pipelines[name].LastUpdatedTimestamp, 10))
	}
	buf.WriteString("]")

	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

// Name возвращает имя группы.
func (g *PipelineGroup) Name() string {
	return g.name
}

// Permissions возвращает права группы (может быть nil).
func (g *PipelineGroup) Permissions() *Permissions {
	return g.permissions
}

// AllPipelines возвращает копии пайплайнов группы в порядке вставки.
func (g *PipelineGroup) AllPipelines() []DashboardPipeline {
	result := make([]DashboardPipeline, 0, len(g.order))
	for _, name := range g.order {
		result = append(result, *g.pipelines[name])
	}
	return result
}

// AllPipelineNames возвращает имена пайплайнов в порядке вставки.
func (g *PipelineGroup) AllPipelineNames() []string {
	names := make([]string, len(g.order))
	copy(names, g.order)
	return names
}

// Pipeline возвращает копию пайплайна по имени.
func (g *PipelineGroup) Pipeline(name string) (DashboardPipeline, bool) {
	p, ok := g.pipelines[name]
	if !ok {
		return DashboardPipeline{}, false
	}
	return *p, true
}

// CanBeAdministeredBy — пользователь входит в администраторы группы.
func (g *PipelineGroup) CanBeAdministeredBy(userName string) bool {
	return g.permissions.IsAdmin(userName)
}

// CanBeViewedBy — пользователь входит в наблюдатели группы.
func (g *PipelineGroup) CanBeViewedBy(userName string) bool {
	return g.permissions.IsViewer(userName)
}

// HasPermissions — у группы заданы права.
func (g *PipelineGroup) HasPermissions() bool {
	return g.permissions != nil
}

// HasPipelines — в группе есть хотя бы один пайплайн.
func (g *PipelineGroup) HasPipelines() bool {
	return len(g.order) > 0
}
