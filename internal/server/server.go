package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/farellandr/rollcall/config"
	"github.com/farellandr/rollcall/internal/handlers"
	"github.com/farellandr/rollcall/internal/middleware"
	"github.com/farellandr/rollcall/internal/passcode"
	"github.com/farellandr/rollcall/internal/services"
	"github.com/farellandr/rollcall/internal/store"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func Start(cfg *config.Config, log *zap.Logger) error {
	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	gin.SetMode(cfg.GinMode)
	r := NewRouter(cfg, db, log)

	log.Info("server listening", zap.String("port", cfg.Port))
	return r.Run(":" + cfg.Port)
}

// NewRouter wires services over db and mounts every route.
func NewRouter(cfg *config.Config, db *gorm.DB, log *zap.Logger) *gin.Engine {
	st := store.New(db)
	signer := passcode.NewSigner(cfg.CardSecret)

	users := services.NewUserService(st, log)
	events := services.NewEventService(st, log)
	registrations := services.NewRegistrationService(st, log, signer)
	checkins := services.NewCheckInService(st, log, signer)
	queries := services.NewQueryService(st)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	r.Static(handlers.UploadURLPrefix, cfg.UploadDir)

	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := st.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "Database connection failed."})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
		})
	})

	setupRoutes(r, cfg, routeHandlers{
		auth:         handlers.NewAuthHandler(users, cfg.JWTSecret, cfg.TokenTTL, log),
		profile:      handlers.NewProfileHandler(users, queries, log),
		event:        handlers.NewEventHandler(events, queries, cfg.UploadDir, log),
		registration: handlers.NewRegistrationHandler(registrations, log),
		checkin:      handlers.NewCheckInHandler(checkins, log),
	})
	return r
}

type routeHandlers struct {
	auth         *handlers.AuthHandler
	profile      *handlers.ProfileHandler
	event        *handlers.EventHandler
	registration *handlers.RegistrationHandler
	checkin      *handlers.CheckInHandler
}

func setupRoutes(r *gin.Engine, cfg *config.Config, h routeHandlers) {
	public := r.Group("/v1")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/signup", h.auth.SignUp)
			auth.POST("/login", h.auth.Login)
		}

		eventPublic := public.Group("/events")
		{
			eventPublic.GET("", h.event.ListEvents)
			eventPublic.GET("/:id", h.event.GetEvent)
			eventPublic.GET("/:id/participants", h.event.ListParticipants)
		}
	}

	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuth(cfg.JWTSecret))
	{
		eventProtected := protected.Group("/events")
		{
			eventProtected.POST("", h.event.CreateEvent)
			eventProtected.PUT("/:id", h.event.UpdateEvent)
			eventProtected.PUT("/:id/banner", h.event.UploadBanner)
			eventProtected.POST("/:id/publish", h.event.PublishEvent())
			eventProtected.POST("/:id/cancel", h.event.CancelEvent())
			eventProtected.POST("/:id/finish", h.event.FinishEvent())
			eventProtected.POST("/:id/draft", h.event.RevertEventToDraft())
			eventProtected.POST("/:id/register", h.registration.Register)
			eventProtected.GET("/:id/registration", h.event.RegistrationStatus)
			eventProtected.GET("/:id/registrations", h.event.ListRegistrations)
			eventProtected.GET("/:id/review-eligibility", h.event.ReviewEligibility)
		}

		registrations := protected.Group("/registrations")
		{
			registrations.POST("/:id/cancel", h.registration.Cancel)
			registrations.PATCH("/:id/status", h.registration.UpdateStatus)
			registrations.GET("/:id/card", h.registration.Card)
			registrations.GET("/:id/card/qr", h.registration.CardQR)
			registrations.POST("/:id/checkin", h.checkin.CheckIn)
			registrations.GET("/:id/checkins", h.checkin.ListCheckIns)
		}

		protected.POST("/checkin/qr", h.checkin.CheckInByQR)

		me := protected.Group("/me")
		{
			me.GET("", h.profile.GetProfile)
			me.PUT("", h.profile.UpdateProfile)
			me.GET("/events", h.profile.MyEvents)
			me.GET("/registrations", h.profile.MyRegistrations)
		}

		protected.GET("/users/:id/shared-event", h.profile.SharedEvent)
		protected.GET("/dashboard/stats", h.profile.DashboardStats)
	}
}
