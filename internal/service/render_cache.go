// Пакет service — бизнес-логика Dashboard Module.
// RenderCache — LRU-кэш отрисованных групп дашборда с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus-метрики кэша отрисовки.
var (
	renderCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dm_render_cache_hits_total",
		Help: "Общее количество попаданий в кэш отрисованных групп.",
	})
	renderCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dm_render_cache_misses_total",
		Help: "Общее количество промахов кэша отрисованных групп.",
	})
)

// RenderCache хранит отрисованные группы по ключу etag группы и отпечатка выбора.
// Устаревшие ключи не инвалидируются явно: новый etag даёт новый ключ,
// старые записи вытесняются LRU или истекают по TTL.
type RenderCache struct {
	cache *expirable.LRU[string, *GroupView]
}

// NewRenderCache создаёт кэш на maxSize записей с временем жизни ttl.
func NewRenderCache(maxSize int, ttl time.Duration) *RenderCache {
	return &RenderCache{cache: expirable.NewLRU[string, *GroupView](maxSize, nil, ttl)}
}

// renderKey — ключ кэша: etag группы + отпечаток выбора.
func renderKey(groupEtag, selectionsFingerprint string) string {
	return groupEtag + ":" + selectionsFingerprint
}

// Get возвращает группу из кэша. Обновляет метрики hit/miss.
func (c *RenderCache) Get(key string) (*GroupView, bool) {
	val, ok := c.cache.Get(key)
	if ok {
		renderCacheHitsTotal.Inc()
		return val, true
	}
	renderCacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись.
func (c *RenderCache) Set(key string, view *GroupView) {
	c.cache.Add(key, view)
}

// Len — текущее количество записей.
func (c *RenderCache) Len() int {
	return c.cache.Len()
}

// Purge очищает кэш.
func (c *RenderCache) Purge() {
	c.cache.Purge()
}
