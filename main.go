package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hemantmeena2005/chat/config"
	"github.com/hemantmeena2005/chat/controller"
	"github.com/hemantmeena2005/chat/logging"
	"github.com/hemantmeena2005/chat/middleware"
	"github.com/hemantmeena2005/chat/service"
	"github.com/hemantmeena2005/chat/storage"
	"github.com/hemantmeena2005/chat/store"
	"github.com/hemantmeena2005/chat/ws"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogDebug)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(cfg.DB, log)
	if err != nil {
		log.Fatal("open store", zap.String("driver", cfg.DB.Driver), zap.Error(err))
	}

	// redis is optional; without it delivery stays on this instance
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("redis ping", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		defer rdb.Close()
	}

	blobs, err := storage.NewDiskStore(cfg.Uploads.Dir, cfg.Uploads.URLPrefix, cfg.Uploads.MaxBytes)
	if err != nil {
		log.Fatal("uploads dir", zap.String("dir", cfg.Uploads.Dir), zap.Error(err))
	}

	// services
	userSvc := service.NewUserService(db)
	msgSvc := service.NewMessageService(db, cfg.History.DefaultLimit, cfg.History.MaxLimit)
	friendSvc := service.NewFriendService(db, cfg.Friends.ResendCooldown)
	postSvc := service.NewPostService(db)
	noteSvc := service.NewNotificationService(db)

	// ws hub (init before controllers needing it)
	secret := []byte(cfg.Auth.Secret)
	hub := ws.NewHub(ctx, rdb, log.Named("hub"))
	router := ws.NewRouter(hub, userSvc, msgSvc, friendSvc, log.Named("ws"), ws.RouterConfig{
		TokenSecret:  secret,
		RequireToken: cfg.Auth.RequireToken,
		ReadLimit:    cfg.WS.ReadLimit,
		EventTimeout: cfg.WS.EventTimeout,
	})
	dispatcher := ws.NewDispatcher(hub, noteSvc, log.Named("notify"))

	controllers := controller.Controllers{
		Auth:          controller.NewAuthController(userSvc, secret, cfg.Auth.TokenTTL, log),
		Users:         controller.NewUserController(userSvc, friendSvc, hub, blobs, log),
		Posts:         controller.NewPostController(postSvc, dispatcher, blobs, log),
		Notifications: controller.NewNotificationController(noteSvc, log),
	}

	if !cfg.LogDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(log.Named("http")))
	r.Use(cors.New(corsConfig(cfg.HTTP.CORSOrigins)))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "online": hub.Registry().Len()})
	})
	r.Static(cfg.Uploads.URLPrefix, blobs.Dir())
	controllers.Register(r, middleware.AuthMiddleware(secret))

	// ws endpoint
	r.GET("/ws", func(c *gin.Context) {
		ws.ServeWS(ctx, hub, router, c)
	})

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: r}
	go func() {
		log.Info("starting server", zap.String("addr", cfg.HTTP.Addr), zap.String("db", cfg.DB.Driver), zap.Bool("redis", rdb != nil))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}

func corsConfig(origins []string) cors.Config {
	cc := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
	}
	for _, o := range origins {
		if o == "*" {
			cc.AllowAllOrigins = true
			return cc
		}
	}
	cc.AllowOrigins = origins
	return cc
}
