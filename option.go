package sitenotice_sdk

import (
	"context"

	"github.com/cydxin/sitenotice-sdk/service"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Config 引擎配置。身份/群组/课程完成度属于宿主系统，以回调注入。
type Config struct {
	DB          *gorm.DB
	RDB         *redis.Client
	TablePrefix string

	// LoginURL 强制下线后的跳转地址，默认 /login
	LoginURL string

	// CleanupLinkHistory 链接记录删除时是否级联删除点击历史
	CleanupLinkHistory bool

	// CohortResolver 用户 -> 所属群组 ID 列表
	CohortResolver func(ctx context.Context, userID uint64) ([]uint64, error)

	// CourseCompleted 用户是否已完成课程
	CourseCompleted func(ctx context.Context, userID, courseID uint64) (bool, error)

	// IsAdmin 管理员判定（管理接口授权 + 强制下线豁免）
	IsAdmin func(userID uint64) bool

	// UserResolver 确认审计所需的身份快照
	UserResolver func(ctx context.Context, userID uint64) (*service.UserInfo, error)

	// EventHandler 领域事件回调（可选，同步调用）
	EventHandler func(evt service.NoticeEvent)
}

type Option func(*Config)

func WithDB(db *gorm.DB) Option {
	return func(c *Config) {
		c.DB = db
	}
}

func WithRDB(rdb *redis.Client) Option {
	return func(c *Config) {
		c.RDB = rdb
	}
}

func WithTablePrefix(prefix string) Option {
	return func(c *Config) {
		c.TablePrefix = prefix
	}
}

func WithLoginURL(url string) Option {
	return func(c *Config) {
		c.LoginURL = url
	}
}

// WithCleanupLinkHistory 链接删除时级联清理点击历史。
func WithCleanupLinkHistory(cleanup bool) Option {
	return func(c *Config) {
		c.CleanupLinkHistory = cleanup
	}
}

func WithCohortResolver(fn func(ctx context.Context, userID uint64) ([]uint64, error)) Option {
	return func(c *Config) {
		c.CohortResolver = fn
	}
}

func WithCourseCompletion(fn func(ctx context.Context, userID, courseID uint64) (bool, error)) Option {
	return func(c *Config) {
		c.CourseCompleted = fn
	}
}

func WithAdminChecker(fn func(userID uint64) bool) Option {
	return func(c *Config) {
		c.IsAdmin = fn
	}
}

func WithUserResolver(fn func(ctx context.Context, userID uint64) (*service.UserInfo, error)) Option {
	return func(c *Config) {
		c.UserResolver = fn
	}
}

func WithEventHandler(fn func(evt service.NoticeEvent)) Option {
	return func(c *Config) {
		c.EventHandler = fn
	}
}
