package sitenotice_sdk

import (
	"log"
	"net/http"
	"sync"

	"github.com/cydxin/sitenotice-sdk/middleware"
	model "github.com/cydxin/sitenotice-sdk/models"
	"github.com/cydxin/sitenotice-sdk/service"
	"github.com/gin-gonic/gin"
)

// NoticeEngine 站点公告引擎：站点级公告的模态展示、确认/关闭状态跟踪、
// 受众过滤与链接点击统计。嵌入宿主应用使用，宿主负责身份与路由。
type NoticeEngine struct {
	config *Config

	NoticeService      *service.NoticeService
	EligibilityService *service.EligibilityService
	InteractionService *service.InteractionService
	LinkService        *service.LinkService
	ReportService      *service.ReportService
	CacheService       *service.CacheService
	AuthService        *service.AuthService // 鉴权服务
	WsServer           *WsServer
}

var (
	Instance *NoticeEngine
	once     sync.Once
)

// NewEngine 创建实例
// 使用选项模式传入配置，Option回调
func NewEngine(opts ...Option) *NoticeEngine {
	once.Do(func() {
		c := &Config{
			TablePrefix: "sn_", // Default
			LoginURL:    "/login",
		}
		for _, opt := range opts {
			opt(c)
		}

		Instance = &NoticeEngine{config: c}

		// 表名前缀对齐：GORM 模型与 repository 裸 SQL 用同一个前缀
		model.SetTablePrefix(c.TablePrefix)

		// 初始化 WS（公告变更时向在线客户端广播刷新信号）
		Instance.WsServer = NewWsServer()
		go Instance.WsServer.Run()

		Instance.CacheService = service.NewCacheService(c.RDB)
		Instance.AuthService = service.NewAuthService(c.RDB)

		// 初始化基础 Service，注入宿主协作方回调
		baseService := &service.Service{
			DB:                 c.DB,
			RDB:                c.RDB,
			TablePrefix:        c.TablePrefix,
			LoginURL:           c.LoginURL,
			CleanupLinkHistory: c.CleanupLinkHistory,
			CohortResolver:     c.CohortResolver,
			CourseCompleted:    c.CourseCompleted,
			IsAdmin:            c.IsAdmin,
			UserResolver:       c.UserResolver,
			EventHandler:       c.EventHandler,
			WsNotifier:         Instance.WsServer.Broadcast, // 注入 WebSocket 广播函数
			Cache:              Instance.CacheService,
			Auth:               Instance.AuthService,
		}

		// 初始化各个 Service
		Instance.LinkService = service.NewLinkService(baseService)
		Instance.NoticeService = service.NewNoticeService(baseService, Instance.LinkService)
		Instance.EligibilityService = service.NewEligibilityService(baseService)
		Instance.InteractionService = service.NewInteractionService(baseService)
		Instance.ReportService = service.NewReportService(baseService)

		// 迁移表
		if err := Instance.AutoMigrate(); err != nil {
			log.Printf("AutoMigrate failed: %v", err)
		}
	})

	return Instance
}

func (e *NoticeEngine) AutoMigrate() error {
	db := e.config.DB
	log.Println("AutoMigrate...")
	return db.AutoMigrate(
		&model.SiteNotice{},
		&model.NoticeView{},
		&model.Acknowledgement{},
		&model.NoticeLink{},
		&model.LinkClick{},
	)
}

// ServeWS 处理 WebSocket 连接，客户端在连接上会收到 notice.refresh 推送。
func (e *NoticeEngine) ServeWS(w http.ResponseWriter, r *http.Request, userID uint64) {
	e.WsServer.ServeWS(w, r, userID)
}

// GinAuthMiddleware 返回配置好的 Gin 鉴权中间件
// 使用 NoticeEngine 内部的 AuthService 和 Redis 配置
//
// 使用示例:
//
//	engine := sitenotice_sdk.NewEngine(...)
//	r := gin.Default()
//	r.Use(engine.GinAuthMiddleware(nil)) // 使用默认配置
func (e *NoticeEngine) GinAuthMiddleware(opt *middleware.AuthOptions) gin.HandlerFunc {
	return middleware.GinAuthMiddleware(e.AuthService, opt)
}

// AdminOnlyMiddleware 管理端接口守卫（在 GinAuthMiddleware 之后使用）。
func (e *NoticeEngine) AdminOnlyMiddleware() gin.HandlerFunc {
	return middleware.AdminOnly(e.config.IsAdmin)
}

// RegisterRoutes 注册全部 HTTP 接口。
// 用户侧挂在 rg 下，管理侧挂在 rg/admin 下并带管理员守卫。
// 也可以不用此方法，参照 example 自行挂单个 handler。
func (e *NoticeEngine) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/notice/list", e.GinHandleListNotices)
	rg.POST("/notice/dismiss", e.GinHandleDismissNotice)
	rg.POST("/notice/ack", e.GinHandleAcknowledgeNotice)
	rg.POST("/notice/track", e.GinHandleTrackLink)

	admin := rg.Group("/admin", e.AdminOnlyMiddleware())
	admin.GET("/notice/list", e.GinHandleListAllNotices)
	admin.GET("/notice/:id", e.GinHandleGetNotice)
	admin.POST("/notice", e.GinHandleCreateNotice)
	admin.PUT("/notice/:id", e.GinHandleUpdateNotice)
	admin.POST("/notice/:id/reset", e.GinHandleResetNotice)
	admin.POST("/notice/:id/enable", e.GinHandleEnableNotice)
	admin.POST("/notice/:id/disable", e.GinHandleDisableNotice)
	admin.DELETE("/notice/:id", e.GinHandleDeleteNotice)
	admin.GET("/report/ack", e.GinHandleAckReport)
	admin.GET("/report/dismiss", e.GinHandleDismissReport)
	admin.GET("/report/linkclicks", e.GinHandleLinkClickReport)
}
