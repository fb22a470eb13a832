package api

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yizeng/gab/gin/gorm/marketplace/docs"
	v1 "github.com/yizeng/gab/gin/gorm/marketplace/internal/api/handler/v1"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/api/middleware"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/config"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/events"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/metrics"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/service"
	"github.com/yizeng/gab/gin/gorm/marketplace/internal/session"
)

// Deps is what the server is built on. Publisher defaults to Hub when nil.
type Deps struct {
	Stores    Stores
	Sessions  session.Store
	Hub       *events.Hub
	Publisher events.Publisher
}

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine
}

func NewServer(conf *config.AppConfig, deps Deps) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config: conf,
		Router: engine,
	}

	if deps.Publisher == nil {
		deps.Publisher = deps.Hub
	}

	s.MountMiddlewares()

	authSvc := s.initAuthService(deps)
	authHandler := v1.NewAuthHandler(s.Config.API, authSvc)
	accountHandler := s.initAccountHandler(deps)
	productHandler := s.initProductHandler(deps)
	feedHandler := v1.NewFeedHandler(deps.Hub, s.Config.API.AllowedCORSDomains)
	s.MountHandlers(middleware.NewAuthenticator(authSvc), authHandler, accountHandler, productHandler, feedHandler)

	return s
}

func (s *Server) initAuthService(deps Deps) *service.AuthService {
	return service.NewAuthService(deps.Stores.Accounts, deps.Stores.Items, deps.Sessions, deps.Publisher, service.AuthConfig{
		SigningKey:     s.Config.API.JWTSigningKey,
		DefaultBalance: s.Config.API.DefaultBalance,
	})
}

func (s *Server) initAccountHandler(deps Deps) *v1.AccountHandler {
	svc := service.NewAccountService(deps.Stores.Snapshots)
	handler := v1.NewAccountHandler(svc)

	return handler
}

func (s *Server) initProductHandler(deps Deps) *v1.ProductHandler {
	items := service.NewItemService(deps.Stores.Items, deps.Publisher)
	purchases := service.NewPurchaseService(deps.Stores.Transfers, deps.Publisher)
	handler := v1.NewProductHandler(items, purchases)

	return handler
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(gin.Logger())
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	if s.Config.Tracing.Enabled {
		s.Router.Use(otelgin.Middleware(s.Config.Tracing.ServiceName))
	}
	s.Router.Use(metrics.Middleware())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(
	authenticator *middleware.Authenticator,
	authHandler *v1.AuthHandler,
	accountHandler *v1.AccountHandler,
	productHandler *v1.ProductHandler,
	feedHandler *v1.FeedHandler,
) {
	requireSession := authenticator.RequireSession()
	loginLimiter := middleware.NewRateLimiter(s.Config.RateLimit.LoginPerSecond, s.Config.RateLimit.LoginBurst)

	users := s.Router.Group("/users")
	{
		users.POST("/register", authHandler.HandleRegister)
		users.POST("/login", loginLimiter.Limit(), authHandler.HandleLogin)
		users.POST("/logout", requireSession, authHandler.HandleLogout)
		users.GET("/me", requireSession, accountHandler.HandleGetMe)
		users.DELETE("/me", requireSession, authHandler.HandleDeleteMe)
	}

	products := s.Router.Group("/products")
	{
		products.GET("", productHandler.HandleListProducts)
		products.POST("", requireSession, productHandler.HandleCreateProduct)
		products.POST("/buy", requireSession, productHandler.HandleBuyProduct)
		products.DELETE("/:id", requireSession, productHandler.HandleDeleteProduct)
	}

	s.Router.GET("/summary", requireSession, accountHandler.HandleGetSummary)
	s.Router.GET("/feed", feedHandler.HandleFeed)

	s.Router.GET("/", v1.HandleHealthcheck)
	s.Router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = "/"
	docs.SwaggerInfo.Title = "Marketplace API"
	docs.SwaggerInfo.Description = "Register, list items and buy them from each other."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
