package service

import (
	"testing"
	"time"
)

func TestRenderCache_GetSet(t *testing.T) {
	cache := NewRenderCache(10, 5*time.Minute)
	key := renderKey("etag-1", "fp-1")

	if _, ok := cache.Get(key); ok {
		t.Fatal("ожидался cache miss для нового ключа")
	}

	cache.Set(key, &GroupView{Name: "build", Etag: "etag-1"})
	got, ok := cache.Get(key)
	if !ok {
		t.Fatal("ожидался cache hit после Set")
	}
	if got.Name != "build" {
		t.Errorf("Name = %q, ожидался %q", got.Name, "build")
	}

	// Другой отпечаток выбора — другой ключ
	if _, ok := cache.Get(renderKey("etag-1", "fp-2")); ok {
		t.Error("ожидался cache miss для другого отпечатка")
	}
}

func TestRenderCache_TTLExpiration(t *testing.T) {
	cache := NewRenderCache(10, 50*time.Millisecond)
	cache.Set("k", &GroupView{Name: "g"})

	if _, ok := cache.Get("k"); !ok {
		t.Fatal("ожидался cache hit сразу после Set")
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok := cache.Get("k"); ok {
		t.Fatal("ожидался cache miss после истечения TTL")
	}
}

func TestRenderCache_Eviction(t *testing.T) {
	cache := NewRenderCache(2, 5*time.Minute)
	cache.Set("a", &GroupView{Name: "a"})
	cache.Set("b", &GroupView{Name: "b"})
	cache.Set("c", &GroupView{Name: "c"})

	if cache.Len() != 2 {
		t.Errorf("Len() = %d, ожидался 2", cache.Len())
	}
	if _, ok := cache.Get("a"); ok {
		t.Error("ожидалось вытеснение самой старой записи")
	}

	cache.Purge()
	if cache.Len() != 0 {
		t.Errorf("Len() после Purge = %d, ожидался 0", cache.Len())
	}
}
