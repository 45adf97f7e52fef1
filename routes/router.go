package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/saminter22/yatube/config"
	"github.com/saminter22/yatube/controllers"
	"github.com/saminter22/yatube/middleware"
	"github.com/saminter22/yatube/utils"
)

// SetupRouter wires routes, middlewares, and controllers. The page cache is
// passed in so deployments and tests choose the backing store.
func SetupRouter(db *gorm.DB, cache utils.PageCache) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// File-based zap access log instead of Gin's console logger
	if gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress); err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Resolve the viewer identity for public pages, record PV after each request
	r.Use(middleware.Identify())
	r.Use(middleware.PageViewRecorder(db))

	// Uploaded post images
	r.Static("/media", cfg.MediaRoot)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	feedController := controllers.NewFeedController(db, cache)
	postController := controllers.NewPostController(db)
	followController := controllers.NewFollowController(db)
	adminController := controllers.NewAdminController(db, cache)

	// Public listings
	r.GET("/", feedController.Index)
	r.GET("/group/:slug/", feedController.GroupPosts)
	r.GET("/profile/:username/", feedController.Profile)
	r.GET("/posts/:id/", postController.PostDetail)

	// Authoring and social actions require a session
	writeLimit := middleware.RateLimitMiddleware()
	r.GET("/create/", middleware.LoginRequired(), postController.PostCreate)
	r.POST("/create/", middleware.LoginRequired(), writeLimit, postController.PostCreate)
	r.GET("/posts/:id/edit/", middleware.LoginRequired(), postController.PostEdit)
	r.POST("/posts/:id/edit/", middleware.LoginRequired(), writeLimit, postController.PostEdit)
	r.POST("/posts/:id/comment/", middleware.LoginRequired(), writeLimit, postController.AddComment)
	r.GET("/follow/", middleware.LoginRequired(), feedController.FollowIndex)
	r.GET("/profile/:username/follow/", middleware.LoginRequired(), followController.ProfileFollow)
	r.GET("/profile/:username/unfollow/", middleware.LoginRequired(), followController.ProfileUnfollow)

	authGroup := r.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/signup/", authController.Signup)
	authGroup.POST("/login/", authController.Login)
	authGroup.GET("/login/", func(ctx *gin.Context) {
		// Landing spot for the anonymous bounce; the client posts back here.
		utils.Success(ctx, gin.H{"login_required": true, "next": ctx.Query("next")})
	})
	authGroup.POST("/logout/", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me/", middleware.AuthRequired(), authController.Me)
	authGroup.GET("/oauth/github/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/github/callback", authController.OAuthCallback)

	internal := r.Group("/internal")
	internal.Use(middleware.AuthRequired())
	internal.POST("/groups/", adminController.CreateGroup)
	internal.POST("/cache/clear/", adminController.ClearIndexCache)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "page not found")
	})

	return r
}
