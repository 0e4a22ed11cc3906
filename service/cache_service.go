package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cydxin/sitenotice-sdk/models"
	"github.com/go-redis/redis/v8"
)

// CacheService 纯性能优化层：启用公告集（全局）+ 每用户交互状态（按用户）。
// 失效策略：
// - 公告任何创建/编辑/重置/启停/删除 -> PurgeEnabled
// - 用户自己的 dismiss/acknowledge -> PurgeUser
// 缓存不可用（RDB 为 nil 或 Redis 故障）时直接回源数据库，不影响正确性。
//
// Redis Key:
// - sn:enabled_notices            -> JSON []SiteNotice (TTL 1h)
// - sn:viewed:{userID}            -> JSON map[noticeID]ViewedRecord (TTL 30m)
type CacheService struct {
	rdb *redis.Client

	enabledTTL time.Duration
	viewedTTL  time.Duration
}

func NewCacheService(rdb *redis.Client) *CacheService {
	return &CacheService{
		rdb:        rdb,
		enabledTTL: time.Hour,
		viewedTTL:  30 * time.Minute,
	}
}

// ViewedRecord 用户对某公告的最近交互快照（缓存用）。
type ViewedRecord struct {
	TimeViewed int64  `json:"time_viewed"` // epoch 秒
	Action     string `json:"action"`
}

const enabledNoticesKey = "sn:enabled_notices"

func viewedKey(userID uint64) string {
	return fmt.Sprintf("sn:viewed:%d", userID)
}

// GetEnabledNotices 读启用公告集缓存。miss 或缓存不可用返回 (nil, false)。
func (c *CacheService) GetEnabledNotices(ctx context.Context) ([]models.SiteNotice, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, enabledNoticesKey).Bytes()
	if err != nil {
		return nil, false
	}
	var notices []models.SiteNotice
	if err := json.Unmarshal(raw, &notices); err != nil {
		// 脏数据当 miss 处理并清掉
		_ = c.rdb.Del(ctx, enabledNoticesKey).Err()
		return nil, false
	}
	return notices, true
}

// SetEnabledNotices 写启用公告集缓存（尽力而为）。
func (c *CacheService) SetEnabledNotices(ctx context.Context, notices []models.SiteNotice) {
	if c == nil || c.rdb == nil {
		return
	}
	b, err := json.Marshal(notices)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, enabledNoticesKey, b, c.enabledTTL).Err()
}

// PurgeEnabled 公告变更后清启用集缓存。
func (c *CacheService) PurgeEnabled(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}
	_ = c.rdb.Del(ctx, enabledNoticesKey).Err()
}

// GetViewed 读用户交互状态缓存。miss 或缓存不可用返回 (nil, false)。
func (c *CacheService) GetViewed(ctx context.Context, userID uint64) (map[uint64]ViewedRecord, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, viewedKey(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var viewed map[uint64]ViewedRecord
	if err := json.Unmarshal(raw, &viewed); err != nil {
		_ = c.rdb.Del(ctx, viewedKey(userID)).Err()
		return nil, false
	}
	return viewed, true
}

// SetViewed 写用户交互状态缓存（尽力而为）。
func (c *CacheService) SetViewed(ctx context.Context, userID uint64, viewed map[uint64]ViewedRecord) {
	if c == nil || c.rdb == nil {
		return
	}
	b, err := json.Marshal(viewed)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, viewedKey(userID), b, c.viewedTTL).Err()
}

// PurgeUser 用户自己的交互写入后清其状态缓存。
func (c *CacheService) PurgeUser(ctx context.Context, userID uint64) {
	if c == nil || c.rdb == nil {
		return
	}
	_ = c.rdb.Del(ctx, viewedKey(userID)).Err()
}
