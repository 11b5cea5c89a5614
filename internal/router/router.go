// Package router 组装 gin 引擎与全部路由。
package router

import (
	"context"
	"course-advisor-go/internal/catalog"
	"course-advisor-go/internal/handler"
	"course-advisor-go/internal/middleware"
	"course-advisor-go/internal/service"
	"course-advisor-go/pkg/monitoring"
	"course-advisor-go/pkg/token"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps 是构建路由所需的依赖。
type Deps struct {
	Catalog             *catalog.Catalog
	ChatService         service.ChatService
	ConversationService service.ConversationService
	RecommendService    service.RecommendService
	UserService         service.UserService
	JWTManager          *token.JWTManager

	ServiceName    string
	AllowedOrigins []string
	RateLimit      int
	RateWindow     time.Duration

	// Context 结束时停止中间件的后台协程，为空时使用 context.Background()
	Context context.Context
}

// New 创建 gin 引擎并注册路由。
func New(d Deps) *gin.Engine {
	handler.RegisterValidators()
	ctx := d.Context
	if ctx == nil {
		ctx = context.Background()
	}

	r := gin.New() // 不带默认中间件
	r.Use(
		gin.Recovery(),
		otelgin.Middleware(d.ServiceName),
		monitoring.MetricsMiddleware(),
		middleware.CORS(d.AllowedOrigins),
		middleware.RequestLogger(),
	)

	chatHandler := handler.NewChatHandler(d.ChatService)
	userHandler := handler.NewUserHandler(d.UserService)
	limiter := middleware.RateLimiter(ctx, d.RateLimit, d.RateWindow)
	authed := middleware.AuthMiddleware(d.JWTManager, d.UserService)

	r.GET("/health", handler.Health)
	r.GET("/metrics", monitoring.PrometheusHandler())
	r.GET("/chat/ws", limiter, chatHandler.Stream)

	apiV1 := r.Group("/api/v1")
	{
		courses := apiV1.Group("/courses")
		{
			courseHandler := handler.NewCourseHandler(d.Catalog)
			courses.GET("", courseHandler.ListCourses)
			courses.GET("/:code", courseHandler.GetCourse)
		}

		chat := apiV1.Group("/chat")
		{
			conversationHandler := handler.NewConversationHandler(d.ConversationService)
			chat.POST("", limiter, chatHandler.Chat)
			chat.GET("/sessions/:sessionId", conversationHandler.GetHistory)
			chat.DELETE("/sessions/:sessionId", conversationHandler.Reset)
		}

		apiV1.POST("/recommendations", limiter, handler.NewRecommendHandler(d.RecommendService).Recommend)

		auth := apiV1.Group("/auth")
		{
			auth.POST("/refreshToken", handler.NewAuthHandler(d.UserService).RefreshToken)
		}

		users := apiV1.Group("/users")
		{
			// 无需认证的路由
			users.POST("/signup", userHandler.Signup)
			users.POST("/signin", userHandler.SignIn)
			users.GET("/:username/session", userHandler.SessionStatus)

			// 需要认证的路由
			users.POST("/signout", authed, userHandler.SignOut)
			users.GET("/me", authed, userHandler.GetProfile)
		}
	}
	return r
}
