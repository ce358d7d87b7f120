package service

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// UserStore — источник id пользователя по субъекту JWT.
type UserStore interface {
	EnsureUser(ctx context.Context, subject, username string) (int64, error)
}

// UserCache запоминает id пользователя, чтобы не обращаться к БД на каждый запрос.
// Ключ включает username: его смена даёт промах и обновление строки в БД.
type UserCache struct {
	store UserStore
	cache *expirable.LRU[string, int64]
}

// NewUserCache создаёт кэш на maxSize пользователей с временем жизни ttl.
func NewUserCache(store UserStore, maxSize int, ttl time.Duration) *UserCache {
	return &UserCache{
		store: store,
		cache: expirable.NewLRU[string, int64](maxSize, nil, ttl),
	}
}

// EnsureUser возвращает id из кэша или из store. Ошибки не кэшируются.
func (c *UserCache) EnsureUser(ctx context.Context, subject, username string) (int64, error) {
	key := subject + "\x00" + username
	if id, ok := c.cache.Get(key); ok {
		return id, nil
	}
	id, err := c.store.EnsureUser(ctx, subject, username)
	if err != nil {
		return 0, err
	}
	c.cache.Add(key, id)
	return id, nil
}
