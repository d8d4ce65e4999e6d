package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rushteam/matchkit/core"
)

// DefaultCacheTTL 是推荐结果缓存的默认有效期（秒）。
const DefaultCacheTTL = 3600

const cachePrefix = "rec:"

// cacheEntry 是缓存的完整候选清单（截断前），随配置版本失效。
type cacheEntry struct {
	ConfigID        int64        `json:"config_id"`
	ConfigUpdatedAt time.Time    `json:"config_updated_at"`
	CreatedAt       time.Time    `json:"created_at"`
	Items           []*core.Item `json:"items"`
}

// Cache 把推荐候选清单存入 core.Store，按 主体类型+主体id+配置id 定位。
type Cache struct {
	store core.Store
	ttl   int
}

func NewCache(store core.Store, ttlSeconds int) *Cache {
	if ttlSeconds <= 0 {
		ttlSeconds = DefaultCacheTTL
	}
	return &Cache{store: store, ttl: ttlSeconds}
}

func cacheKey(kind core.Kind, subjectID, configID int64) string {
	return fmt.Sprintf("%s%s:%d:%d", cachePrefix, kind, subjectID, configID)
}

// Get 返回缓存的候选清单；未命中或配置版本过期时返回 nil。
func (c *Cache) Get(ctx context.Context, kind core.Kind, subjectID int64, cfg *core.TuningConfig) []*core.Item {
	raw, err := c.store.Get(ctx, cacheKey(kind, subjectID, cfg.ID))
	if err != nil {
		return nil
	}
	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.store.Delete(ctx, cacheKey(kind, subjectID, cfg.ID))
		return nil
	}
	// 配置原地更新（id 不变）也会使旧缓存失效
	if !entry.ConfigUpdatedAt.Equal(cfg.UpdatedAt) {
		c.store.Delete(ctx, cacheKey(kind, subjectID, cfg.ID))
		return nil
	}
	return entry.Items
}

// Put 写入候选清单，带 TTL。
func (c *Cache) Put(ctx context.Context, kind core.Kind, subjectID int64, cfg *core.TuningConfig, items []*core.Item) error {
	entry := cacheEntry{
		ConfigID:        cfg.ID,
		ConfigUpdatedAt: cfg.UpdatedAt,
		CreatedAt:       time.Now(),
		Items:           items,
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, cacheKey(kind, subjectID, cfg.ID), raw, c.ttl)
}

// Invalidate 删除主体在指定配置下的缓存。
func (c *Cache) Invalidate(ctx context.Context, kind core.Kind, subjectID, configID int64) error {
	return c.store.Delete(ctx, cacheKey(kind, subjectID, configID))
}

// Sweep 清理陈旧条目：配置版本不再活跃或条目超龄。后端 TTL 自动过期
// 之外的兜底清扫，返回删除条数。
func (c *Cache) Sweep(ctx context.Context, active *core.TuningConfig) (int, error) {
	keys, err := c.store.Keys(ctx, cachePrefix)
	if err != nil {
		return 0, err
	}
	removed := 0
	now := time.Now()
	for _, key := range keys {
		raw, err := c.store.Get(ctx, key)
		if err != nil {
			continue
		}
		var entry cacheEntry
		stale := json.Unmarshal(raw, &entry) != nil ||
			now.Sub(entry.CreatedAt) > time.Duration(c.ttl)*time.Second ||
			active == nil ||
			entry.ConfigID != active.ID ||
			!entry.ConfigUpdatedAt.Equal(active.UpdatedAt)
		if stale {
			if err := c.store.Delete(ctx, key); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
