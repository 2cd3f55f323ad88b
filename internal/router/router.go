package router

import (
	"net/http"
	"time"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/config"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/handlers"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/identity"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/ledger"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/models"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/services"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/session"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

// Deps carries everything the route handlers need, wired once in main.
type Deps struct {
	Machine    *session.Machine
	Ledger     *ledger.Service
	Resolver   *identity.Resolver
	Content    *models.Content
	Dispatcher *services.Dispatcher
}

func rateKeyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func rateErrorHandler(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, try again later"})
}

func Setup(log *zap.Logger, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))

	store := cookie.NewStore([]byte(config.Conf.Server.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   false, // Set to true behind TLS in production
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400 * 7,
	})
	r.Use(sessions.Sessions("ssb_session", store))

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
	})
	r.Use(func(c *gin.Context) {
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			c.Abort()
			return
		}
	})

	authHandler := handlers.NewAuthHandler(log, deps.Resolver)
	testHandler := handlers.NewTestHandler(log, deps.Machine, deps.Ledger, deps.Content)
	resultsHandler := handlers.NewResultsHandler(log, deps.Dispatcher)
	billingHandler := handlers.NewBillingHandler(log, deps.Ledger, config.Conf.Payment.WebhookSecret)
	leaderboardHandler := handlers.NewLeaderboardHandler(log)

	rateLimitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: 5,
	})
	limiter := ratelimit.RateLimiter(rateLimitStore, &ratelimit.Options{
		ErrorHandler: rateErrorHandler,
		KeyFunc:      rateKeyFunc,
	})

	api := r.Group("/api")
	api.Use(CSRFProtection())
	api.Use(IdentityMiddleware(log))
	{
		api.POST("/register", limiter, authHandler.Register)
		api.POST("/login", limiter, authHandler.Login)
		api.POST("/logout", authHandler.Logout)
		api.GET("/me", authHandler.Me)

		api.GET("/limits", testHandler.Limits)
		api.GET("/leaderboard", leaderboardHandler.Show)

		tests := api.Group("/tests")
		{
			tests.POST("", testHandler.Start)
			tests.GET("/:id", testHandler.State)
			tests.PUT("/:id/draft", testHandler.Draft)
			tests.POST("/:id/responses", testHandler.Submit)
			tests.POST("/:id/advance", testHandler.Advance)
		}

		results := api.Group("/results")
		{
			results.GET("", resultsHandler.Dashboard)
			results.GET("/:id", resultsHandler.Show)
			results.POST("/:id/retry-analysis", resultsHandler.RetryAnalysis)
		}
	}

	// Provider webhooks authenticate by signature, not cookie, so they sit
	// outside the CSRF-protected session surface.
	r.POST("/webhooks/payment", limiter, billingHandler.Webhook)

	return r
}
