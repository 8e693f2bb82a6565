package cache_test

import (
	"testing"
	"time"

	"github.com/gestorerp/notas-bfa-go/internal/domain"
	"github.com/gestorerp/notas-bfa-go/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[[]domain.Produto](5 * time.Minute)

	c.Set("produtos", []domain.Produto{{ID: 1, Nome: "Parafuso"}})
	val, ok := c.Get("produtos")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if len(val) != 1 || val[0].Nome != "Parafuso" {
		t.Errorf("unexpected cached value: %+v", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.Set("key1", "value1")
	c.Delete("key1")

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected key to be deleted")
	}
}
