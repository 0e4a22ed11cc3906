package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// 领域错误。NotFound 类调用方按 no-op 处理，不当作崩溃。
var (
	ErrNoticeNotFound   = errors.New("notice not found")
	ErrLinkNotFound     = errors.New("notice link not found")
	ErrPermissionDenied = errors.New("permission denied")
)

// UserInfo 宿主侧的用户身份快照，确认审计时冗余落库。
type UserInfo struct {
	ID        uint64
	Username  string
	Firstname string
	Lastname  string
	IDNumber  string
}

// NoticeEvent 领域事件。先持久化后分发，handler 不会看到写入前的状态。
type NoticeEvent struct {
	Type     string    `json:"type"`
	NoticeID uint64    `json:"notice_id"`
	UserID   uint64    `json:"user_id,omitempty"` // 触发者（管理操作为操作人，交互为用户）
	Time     time.Time `json:"time"`
}

// Service 基础服务，包含数据库、缓存与宿主注入的协作方。
// 身份/群组/课程完成度都属于宿主系统，通过函数注入，避免 SDK 反向依赖宿主。
type Service struct {
	DB          *gorm.DB
	RDB         *redis.Client
	TablePrefix string

	// LoginURL 强制下线后的跳转地址（redirecturl）
	LoginURL string

	// CleanupLinkHistory 删除链接记录时是否级联删除点击历史
	CleanupLinkHistory bool

	// CohortResolver 查询用户所属群组。未注入时按“无群组”处理，
	// 带受众限制的公告将不会展示给任何用户。
	CohortResolver func(ctx context.Context, userID uint64) ([]uint64, error)

	// CourseCompleted 查询用户是否完成某课程。未注入时按“未完成”处理（公告照常展示）。
	CourseCompleted func(ctx context.Context, userID, courseID uint64) (bool, error)

	// IsAdmin 管理员判定（强制下线豁免 + 管理端接口授权）。未注入时一律按非管理员。
	IsAdmin func(userID uint64) bool

	// UserResolver 获取身份快照字段用于确认审计。未注入时只落 userID。
	UserResolver func(ctx context.Context, userID uint64) (*UserInfo, error)

	// EventHandler 领域事件回调（可选）。同步调用，耗时处理请自行异步化。
	EventHandler func(evt NoticeEvent)

	// WsNotifier 公告集合变化时广播刷新信号（由 engine 注入 WS hub 的广播函数）。
	WsNotifier func(message []byte)

	// Cache 缓存服务（启用公告集 + 每用户交互状态）
	Cache *CacheService

	// Auth 鉴权服务，强制下线时吊销用户全部 token
	Auth *AuthService
}

// Table 获取带前缀的表名
func (s *Service) Table(name string) *gorm.DB {
	return s.DB.Table(name)
}

func (s *Service) dispatch(evt NoticeEvent) {
	if s.EventHandler == nil {
		return
	}
	s.EventHandler(evt)
}

func (s *Service) isAdmin(userID uint64) bool {
	if s.IsAdmin == nil {
		return false
	}
	return s.IsAdmin(userID)
}
