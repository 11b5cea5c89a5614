// Package main 是应用程序的入口点。
package main

import (
	"context"
	"course-advisor-go/internal/catalog"
	"course-advisor-go/internal/config"
	"course-advisor-go/internal/repository"
	"course-advisor-go/internal/router"
	"course-advisor-go/internal/service"
	"course-advisor-go/pkg/database"
	"course-advisor-go/pkg/kafka"
	"course-advisor-go/pkg/keylock"
	"course-advisor-go/pkg/llm"
	"course-advisor-go/pkg/log"
	"course-advisor-go/pkg/monitoring"
	"course-advisor-go/pkg/storage"
	"course-advisor-go/pkg/token"
	"course-advisor-go/pkg/tracing"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	configPath := os.Getenv("COURSE_ADVISOR_CONFIG")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}
	config.Init(configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 链路追踪与指标
	shutdownTracing, err := tracing.Init(context.Background(), cfg.Tracing)
	if err != nil {
		log.Fatal("初始化链路追踪失败", err)
	}
	monitoring.Init()

	// 4. 初始化数据库和 Redis
	database.InitMySQL(cfg.Database.MySQL)
	database.InitRedis(cfg.Database.Redis)
	if cfg.Catalog.Source == config.CatalogSourceMinIO {
		storage.InitMinIO(cfg.MinIO)
	}

	// 5. 加载课程目录，加载失败时不提供服务
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	cat, err := catalog.Open(loadCtx, cfg.Catalog, cfg.MinIO.BucketName)
	cancelLoad()
	if err != nil {
		log.Fatal("加载课程目录失败", err)
	}
	log.Infof("课程目录加载完成, 共 %d 门课程", cat.Len())

	publisher := kafka.NewPublisher(cfg.Kafka)
	locks := keylock.New()

	// 6. 初始化 Repository
	userRepository := repository.NewUserRepository(database.DB)
	sessionRepository := repository.NewSessionRepository(database.RDB)
	conversationRepo := repository.NewConversationRepository(database.RDB, time.Duration(cfg.Session.HistoryTTLHours)*time.Hour)

	// 7. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	llmClient := llm.NewClient(cfg.LLM)
	userService := service.NewUserService(userRepository, sessionRepository, jwtManager, publisher)
	chatService := service.NewChatService(llmClient, conversationRepo, cat, locks)
	conversationService := service.NewConversationService(conversationRepo, locks)
	recommendService := service.NewRecommendService(llmClient, cat, publisher, cfg.LLM.JSONMode)

	// 8. 设置 Gin 模式并创建路由引擎，appCtx 在关闭时取消以停止中间件后台协程
	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()
	gin.SetMode(cfg.Server.Mode)
	r := router.New(router.Deps{
		Catalog:             cat,
		ChatService:         chatService,
		ConversationService: conversationService,
		RecommendService:    recommendService,
		UserService:         userService,
		JWTManager:          jwtManager,
		ServiceName:         cfg.Tracing.ServiceName,
		AllowedOrigins:      cfg.Server.AllowedOrigins,
		RateLimit:           cfg.RateLimit.MaxRequests,
		RateWindow:          time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute,
		Context:             appCtx,
	})

	// 9. 启动 HTTP 服务器
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		log.Infof("服务器启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("服务器启动失败", err)
		}
	}()

	// 10. 实现优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("服务器强制关闭", err)
	}
	stopApp()
	if err := publisher.Close(); err != nil {
		log.Error("关闭 Kafka 生产者失败", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		log.Error("关闭链路追踪失败", err)
	}
	database.CloseRedis()
	database.CloseMySQL()

	log.Info("服务器已优雅关闭")
}
