package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// AvailabilityCache はレベルごとの空席数をキャッシュする
// 正となる座席状態はメモリ上にあり、ここには読み取り用の写しだけを置く
type AvailabilityCache struct {
	client *redis.Client
}

// NewAvailabilityCache は新しいAvailabilityCacheインスタンスを作成する
func NewAvailabilityCache(client *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{client: client}
}

// GetAvailableCount はレベルの空席数をキャッシュから取得する
func (c *AvailabilityCache) GetAvailableCount(ctx context.Context, levelName string) (int, error) {
	val, err := c.client.Get(ctx, availableCountKey(levelName)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	return val, nil
}

// SetAvailableCount はレベルの空席数をキャッシュに保存する
func (c *AvailabilityCache) SetAvailableCount(ctx context.Context, levelName string, count int, ttl time.Duration) error {
	if err := c.client.Set(ctx, availableCountKey(levelName), count, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate は指定レベルのキャッシュをまとめて無効化する
func (c *AvailabilityCache) Invalidate(ctx context.Context, levelNames ...string) error {
	if len(levelNames) == 0 {
		return nil
	}
	keys := make([]string, 0, len(levelNames))
	for _, name := range levelNames {
		keys = append(keys, availableCountKey(name))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

// availableCountKey は "First Class" を seats:available:first-class に変換する
func availableCountKey(levelName string) string {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(levelName)), " ", "-")
	return "seats:available:" + slug
}
