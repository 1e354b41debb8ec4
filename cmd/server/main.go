package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-system/config"
	"chat-system/internal/handler"
	"chat-system/internal/model"
	"chat-system/internal/repository"
	"chat-system/internal/service"
	dbPkg "chat-system/pkg/db"
	"chat-system/pkg/jwt"
	"chat-system/pkg/logger"
	redisPkg "chat-system/pkg/redis"
	"chat-system/pkg/response"
	"chat-system/pkg/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg := config.LoadConfig()

	// 2. 初始化日志系统
	log := logger.InitLogger(cfg.Log)
	defer log.Sync()

	log.Info("=== 消息系统启动 ===")
	log.Info("服务器配置信息",
		zap.String("port", cfg.Server.Port),
		zap.String("database_host", cfg.Database.Host),
		zap.Int("database_port", cfg.Database.Port),
		zap.String("database_name", cfg.Database.Database),
		zap.Duration("jwt_expire_time", cfg.JWT.ExpireTime),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 初始化数据库连接
	if _, err := dbPkg.InitDB(cfg.Database); err != nil {
		log.Fatal("数据库连接失败", zap.Error(err))
	}
	defer func() {
		if err := dbPkg.CloseDB(); err != nil {
			log.Error("关闭数据库连接失败", zap.Error(err))
		}
	}()
	log.Info("数据库连接成功")

	// 3.1 自动迁移表结构
	if err := dbPkg.AutoMigrate(
		&model.User{},
		&model.Group{},
		&model.GroupMember{},
		&model.Message{},
		&model.Attachment{},
		&model.UserActivity{},
	); err != nil {
		log.Fatal("自动迁移失败", zap.Error(err))
	}
	log.Info("自动迁移完成")

	// 3.2 初始化Redis（在线状态缓存；失败只降级，不阻止启动）
	if err := redisPkg.InitRedis(cfg.Redis); err != nil {
		log.Warn("redis连接失败，在线状态缓存不可用", zap.Error(err))
	} else {
		defer redisPkg.Close()
		log.Info("redis连接成功")
	}

	// 3.3 初始化业务服务
	jwtSvc := jwt.NewJWTService(cfg.JWT)
	db := dbPkg.GetDB()
	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)

	wsManager := websocket.GetManager()
	attachmentSvc := service.NewAttachmentService(attachmentRepo, cfg.Upload)
	userSvc := service.NewUserService(userRepo, messageRepo, attachmentRepo, jwtSvc, wsManager)
	groupSvc := service.NewGroupService(groupRepo, userRepo)
	messageSvc := service.NewMessageService(messageRepo, userRepo, groupRepo, attachmentRepo, wsManager, attachmentSvc)

	userHandler := handler.NewUserHandler(userSvc)
	groupHandler := handler.NewGroupHandler(groupSvc)
	messageHandler := handler.NewMessageHandler(messageSvc)
	attachmentHandler := handler.NewAttachmentHandler(attachmentSvc)
	wsHandler := websocket.NewHandler(jwtSvc, cfg.WebSocket, wsManager, userSvc)

	// 4. 设置Gin模式
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 5. 创建Gin路由
	router := gin.New()
	router.Use(logger.LoggerMiddleware())      // 自定义日志中间件
	router.Use(logger.ErrorLoggerMiddleware()) // 错误日志中间件

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		if err := dbPkg.HealthCheck(); err != nil {
			status = "db-down"
		}
		response.Success(c, gin.H{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// 附件静态访问
	router.Static("/uploads", cfg.Upload.Dir)

	// 6. 绑定业务路由
	v1 := router.Group("/api/v1")
	{
		users := v1.Group("/users")
		{
			// 公开接口：登录即注册
			users.POST("/login", userHandler.Login)

			// 需要认证的接口
			authUsers := users.Group("")
			authUsers.Use(jwtSvc.AuthMiddleware())
			{
				authUsers.GET("/profile", userHandler.GetProfile)
				authUsers.PUT("/profile", userHandler.UpdateProfile)
				authUsers.GET("/search", userHandler.SearchUsers)
				authUsers.GET("/peers", userHandler.ChattedPeers)
				authUsers.GET("/online", userHandler.GetOnlineUsers)
				authUsers.POST("/activity", userHandler.RecordOnline)
				authUsers.GET("/stats", userHandler.Stats)
				authUsers.POST("/logout", userHandler.Logout)
			}
		}

		groups := v1.Group("/groups")
		groups.Use(jwtSvc.AuthMiddleware())
		{
			groups.POST("", groupHandler.CreateGroup)
			groups.POST("/:group_id/join", groupHandler.JoinGroup)
			groups.GET("/search", groupHandler.SearchGroups)
			groups.GET("/:group_id/members", groupHandler.Members)
		}

		messages := v1.Group("/messages")
		messages.Use(jwtSvc.AuthMiddleware())
		{
			messages.GET("", messageHandler.ListMessages)
			messages.POST("", messageHandler.SendMessage)
			messages.PUT("/:message_id", messageHandler.EditMessage)
			messages.DELETE("/:message_id", messageHandler.DeleteMessage)
			messages.POST("/seen", messageHandler.MarkSeen)
		}

		attachments := v1.Group("/attachments")
		attachments.Use(jwtSvc.AuthMiddleware())
		{
			attachments.POST("", attachmentHandler.Upload)
		}
	}

	// WebSocket订阅（事件推送通道）
	router.GET("/ws", wsHandler.Subscribe)

	// 7. 创建HTTP服务器
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 8. 启动HTTP服务器
	go func() {
		log.Info("HTTP服务器启动", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP服务器启动失败", zap.Error(err))
		}
	}()

	// 9. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("HTTP服务器关闭失败", zap.Error(err))
	}

	log.Info("服务器已安全关闭")
}
