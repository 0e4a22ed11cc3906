package main

import (
	"context"
	"log"
	"strconv"

	sitenotice "github.com/cydxin/sitenotice-sdk"
	"github.com/cydxin/sitenotice-sdk/service"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	// 1. 初始化数据库连接
	dsn := "root:password@tcp(127.0.0.1:3306)/notice_db?charset=utf8mb4&parseTime=True&loc=Local"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("数据库连接失败:", err)
	}

	// 2. Redis（Token 认证 + 公告缓存）
	rdb := redis.NewClient(&redis.Options{
		Addr: "127.0.0.1:6379",
	})

	// 3. 初始化 Notice Engine（单例模式，全局只需调用一次）
	// 身份、群组、课程完成度都属于宿主系统，通过回调注入
	engine := sitenotice.NewEngine(
		sitenotice.WithDB(db),
		sitenotice.WithRDB(rdb),
		sitenotice.WithTablePrefix("sn_"), // 自定义表前缀
		sitenotice.WithLoginURL("/login"),
		sitenotice.WithCleanupLinkHistory(false),

		// 宿主的群组关系，这里演示用写死的数据
		sitenotice.WithCohortResolver(func(ctx context.Context, userID uint64) ([]uint64, error) {
			if userID == 1001 {
				return []uint64{1, 2}, nil
			}
			return nil, nil
		}),

		// 课程完成度判定，宿主自行实现
		sitenotice.WithCourseCompletion(func(ctx context.Context, userID, courseID uint64) (bool, error) {
			return false, nil
		}),

		// 管理员判定：管理接口授权 + 强制下线豁免
		sitenotice.WithAdminChecker(func(userID uint64) bool {
			return userID == 1
		}),

		// 确认审计需要的身份快照
		sitenotice.WithUserResolver(func(ctx context.Context, userID uint64) (*service.UserInfo, error) {
			return &service.UserInfo{
				ID:       userID,
				Username: "user" + strconv.FormatUint(userID, 10),
			}, nil
		}),

		// 领域事件回调（可选）
		sitenotice.WithEventHandler(func(evt service.NoticeEvent) {
			log.Printf("notice event: %s notice=%d user=%d", evt.Type, evt.NoticeID, evt.UserID)
		}),
	)

	// 4. 创建 Gin 路由
	r := gin.Default()

	// 设置 CORS（如果需要）
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// 注册 Swagger UI
	sitenotice.RegisterSwagger(r, "/swagger/*any")

	// 5. WebSocket 连接路由，客户端收到 notice.refresh 后重新拉取公告
	// 客户端连接：ws://localhost:8080/ws?token=YOUR_TOKEN
	r.GET("/ws", func(c *gin.Context) {
		userID, _, err := engine.AuthService.AuthenticateRequest(c.Request.Context(), c.Request)
		if err != nil {
			c.JSON(401, gin.H{"error": "token 无效"})
			return
		}
		engine.ServeWS(c.Writer, c.Request, userID)
	})

	// 演示：宿主登录成功后为用户签发 token
	// 实际业务里这一步应该在宿主自己的登录接口里做
	r.POST("/demo/login", func(c *gin.Context) {
		userIDStr := c.Query("user_id")
		userID, err := strconv.ParseUint(userIDStr, 10, 64)
		if err != nil || userID == 0 {
			c.JSON(400, gin.H{"error": "user_id 格式错误"})
			return
		}
		tokens := engine.AuthService.Tokens()
		token, err := tokens.GenerateToken()
		if err != nil {
			c.JSON(500, gin.H{"error": "token 生成失败"})
			return
		}
		if err := tokens.StoreToken(c.Request.Context(), token, userID, 0); err != nil {
			c.JSON(500, gin.H{"error": "token 签发失败"})
			return
		}
		c.JSON(200, gin.H{"token": token})
	})

	// 6. API 路由组：全部接口走 Token 认证
	api := r.Group("/api/v1")
	api.Use(engine.GinAuthMiddleware(nil))
	engine.RegisterRoutes(api)

	// 7. 启动服务器
	log.Println("Notice Server 启动在 :8080")
	log.Println("Swagger UI: http://localhost:8080/swagger/index.html")
	log.Println("WebSocket 地址: ws://localhost:8080/ws?token=YOUR_TOKEN")
	if err := r.Run(":8080"); err != nil {
		log.Fatal("服务器启动失败:", err)
	}
}
