package cache

import (
	"context"
	"fmt"
	"sort"
	"time"

	"storefront/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

const (
	// online:{product_id} -> hash { "{color_id}:{size}": 0|1 }
	KeyOnlineFlags = "online:%d"

	TTLOnlineFlags = 24 * time.Hour
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

func OnlineFlagsKey(productID int64) string {
	return fmt.Sprintf(KeyOnlineFlags, productID)
}

func OnlineFlagField(k model.StockKey) string {
	return fmt.Sprintf("%d:%s", k.ColorVariantID, k.Size)
}

// onlineフラグをRedisに写す。正はDB、こちらは読み取り用のコピー。
type AvailabilityCache struct {
	rdb *redis.Client
}

func NewAvailabilityCache(rdb *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{rdb: rdb}
}

func (c *AvailabilityCache) SetFlags(ctx context.Context, flags map[model.StockKey]int64) error {
	if len(flags) == 0 {
		return nil
	}

	// 商品ごとにまとめて1回のパイプラインで書く
	byProduct := make(map[int64]map[string]any)
	for k, v := range flags {
		m, ok := byProduct[k.ProductID]
		if !ok {
			m = make(map[string]any)
			byProduct[k.ProductID] = m
		}
		m[OnlineFlagField(k)] = v
	}

	ids := make([]int64, 0, len(byProduct))
	for id := range byProduct {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	_, err := c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range ids {
			key := OnlineFlagsKey(id)
			p.HSet(ctx, key, byProduct[id])
			p.Expire(ctx, key, TTLOnlineFlags)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set online flags: %w", err)
	}
	return nil
}

// 1商品分のフラグ。キャッシュにないものは含まない。
func (c *AvailabilityCache) Flags(ctx context.Context, productID int64) (map[string]string, error) {
	m, err := c.rdb.HGetAll(ctx, OnlineFlagsKey(productID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get online flags: %w", err)
	}
	return m, nil
}
