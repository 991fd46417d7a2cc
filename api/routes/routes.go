package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"github.com/ArowuTest/draft-lottery-backend/internal/config"
	"github.com/ArowuTest/draft-lottery-backend/internal/handlers"
	"github.com/ArowuTest/draft-lottery-backend/internal/metrics"
	"github.com/ArowuTest/draft-lottery-backend/internal/middleware"
	"github.com/ArowuTest/draft-lottery-backend/pkg/jwt"
)

// HandlerDependencies holds all the handlers needed by the router
type HandlerDependencies struct {
	AuthHandler    *handlers.AuthHandler
	LotteryHandler *handlers.LotteryHandler
	LiveHandler    *handlers.LiveHandler
	Tokens         *jwt.TokenService
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps HandlerDependencies) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.LoggerMiddleware())
	router.Use(metrics.Middleware())
	router.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
		})

		auth := public.Group("/auth")
		{
			auth.POST("/register", deps.AuthHandler.Register)
			auth.POST("/login", deps.AuthHandler.Login)
		}
	}

	// Protected routes
	protected := router.Group("/api/v1")
	protected.Use(middleware.JWTAuthMiddleware(deps.Tokens))
	{
		lotteries := protected.Group("/lotteries")
		{
			lotteries.POST("", deps.LotteryHandler.CreateLottery)
			lotteries.GET("", deps.LotteryHandler.ListLotteries)
			lotteries.GET("/:id", deps.LotteryHandler.GetLottery)
			lotteries.PUT("/:id/teams/:teamId", deps.LotteryHandler.UpdateTeam)

			lotteries.POST("/:id/verification", deps.LotteryHandler.OpenVerification)
			lotteries.POST("/:id/verifiers", deps.LotteryHandler.AddVerifier)
			lotteries.POST("/:id/allocation", deps.LotteryHandler.Allocate)
			lotteries.POST("/:id/drawing", deps.LotteryHandler.StartDrawing)
			lotteries.POST("/:id/picks/next", deps.LotteryHandler.DrawNextPick)
			lotteries.POST("/:id/picks", deps.LotteryHandler.DrawRemaining)
			lotteries.POST("/:id/draft-order", deps.LotteryHandler.ComposeDraftOrder)
			lotteries.POST("/:id/complete", deps.LotteryHandler.Complete)

			lotteries.GET("/:id/reveal", deps.LotteryHandler.Reveal)
			lotteries.GET("/:id/combinations.csv", deps.LotteryHandler.ExportCombinations)
			lotteries.GET("/:id/draft-order.csv", deps.LotteryHandler.ExportDraftOrder)
			lotteries.GET("/:id/live", deps.LiveHandler.Stream)
		}
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
