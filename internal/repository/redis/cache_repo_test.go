package redis

import (
	"context"
	"testing"
	"time"

	"github.com/jchangwan/campus-closet-share/internal/cfg"
	"github.com/jchangwan/campus-closet-share/internal/domain"
	"github.com/jchangwan/campus-closet-share/pkg/clients"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
)

// Недоступный Redis не должен ломать поиск: чтение даёт промах, запись молча пропускается.
func TestCacheRepo_UnavailableRedisIsAMiss(t *testing.T) {
	redisCfg := &cfg.RedisCfg{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
		Timeout:     200 * time.Millisecond,
		ResultTTL:   time.Minute,
	}
	client := clients.NewRedisClient(redisCfg)
	defer client.Close()

	repo := NewCacheRepo(client, redisCfg, logger.NewNopLogger())
	ctx := context.Background()

	repo.SetNeighbors(ctx, "k", []domain.Neighbor{{Index: 1, Distance: 0.5}})

	if got, ok := repo.GetNeighbors(ctx, "k"); ok || got != nil {
		t.Fatalf("expected miss, got %v, %t", got, ok)
	}
}

func TestNeighborsKey(t *testing.T) {
	if got := neighborsKey("10:512:3:abc"); got != "recommend:neighbors:10:512:3:abc" {
		t.Errorf("got %q", got)
	}
}
