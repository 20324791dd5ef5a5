package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	"scorta/internal/handler"
	"scorta/internal/listeners"
	"scorta/internal/models"
	"scorta/internal/service"
	"scorta/pkg/cache"
	"scorta/pkg/config"
	"scorta/pkg/i18n"
	"scorta/pkg/logger"
	"scorta/pkg/metrics"
	"scorta/pkg/middleware"
	"scorta/pkg/notification"
	"scorta/pkg/scheduler"
	"scorta/pkg/storage"
	"scorta/pkg/util"
	ws "scorta/pkg/websocket"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg := config.GlobalConfig

	if err := logger.Init(cfg.Log); err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	db, err := util.InitDatabase(cfg.DBDriver, cfg.DSN)
	if err != nil {
		logger.Fatal("database init failed", zap.Error(err))
	}
	if err := models.Migrate(db); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	c, err := cache.NewCache(cache.Config{
		Type: cfg.CacheType,
		Redis: cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
	})
	if err != nil {
		logger.Fatal("cache init failed", zap.Error(err))
	}
	defer c.Close()

	var store storage.Store
	if cfg.Minio.Endpoint != "" {
		ms, err := storage.NewMinioStore(cfg.Minio)
		if err != nil {
			logger.Fatal("minio init failed", zap.Error(err))
		}
		store = ms
	} else {
		logger.Warn("MINIO_ENDPOINT not set, using local audio storage")
		store = storage.NewLocalStore(util.GetEnvDefault("AUDIO_STORAGE_DIR", "./data/audio"))
	}

	m := metrics.New()
	hub := ws.NewHub(ws.DefaultConfig())
	sched := scheduler.New()

	t := i18n.New(cfg.DefaultLanguage)
	push := notification.NewPush(notification.PushConfig{
		AppKey:       util.GetEnv("PUSH_APP_KEY"),
		MasterSecret: util.GetEnv("PUSH_MASTER_SECRET"),
	}, nil)
	sms := notification.NewSMS(notification.SMSConfig{
		SignName:     util.GetEnv("SMS_SIGN_NAME"),
		TemplateCode: util.GetEnv("SMS_TEMPLATE_CODE"),
	}, nil)

	provider := service.NewStoreLocationProvider(db)
	locationSvc := service.NewLocationService(db, provider, sched)
	contactSvc := service.NewContactService(db)
	profileSvc := service.NewProfileService(db, c)
	chatSvc := service.NewChatService(db)
	audioSvc := service.NewAudioService(db, store, m)
	fanout := service.NewFanoutQueue(service.FanoutConfig{
		Workers:    cfg.FanoutWorkers,
		MaxRetries: cfg.FanoutRetries,
		SignedTTL:  time.Duration(cfg.SignedURLTTLSec) * time.Second,
	}, chatSvc, contactSvc, profileSvc, audioSvc, hub, m)
	audioSvc.SetFanout(fanout)
	sosSvc := service.NewSOSService(db, provider, locationSvc, audioSvc, contactSvc, profileSvc, t, m,
		time.Duration(cfg.LocationPushIntervalSec)*time.Second)

	listeners.NewAlertListener(hub, push, sms, contactSvc, profileSvc).Register()

	cron := scheduler.NewCron(time.UTC)
	if _, err := cron.Add(cfg.PermissionSweepSpec, scheduler.FuncJob(func(ctx context.Context) {
		if _, err := locationSvc.SweepExpiredPermissions(ctx); err != nil {
			logger.Warn("permission sweep failed", zap.Error(err))
		}
	})); err != nil {
		logger.Fatal("cron setup failed", zap.Error(err))
	}
	cron.Start()

	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.Middleware(m))
	r.Use(middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:      util.GetEnvDefault("RATE_LIMIT", "120-M"),
		SkipPaths: []string{"/health", "/metrics"},
	}, memory.NewStore()).Middleware())

	handler.Register(r, cfg.APIPrefix, cfg.JWTSecret, &handler.Handlers{
		SOS:      handler.NewSOSHandler(sosSvc),
		Contacts: handler.NewContactHandler(contactSvc),
		Location: handler.NewLocationHandler(locationSvc),
		Audio:    handler.NewAudioHandler(audioSvc, time.Duration(cfg.SignedURLTTLSec)*time.Second),
		Chat:     handler.NewChatHandler(chatSvc, hub),
		Profile:  handler.NewProfileHandler(profileSvc),
		System:   handler.NewSystemHandler(db),
		WS:       ws.NewHandler(hub),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	sosSvc.Stop()
	fanout.Close()
	cron.Stop()
	sched.Stop()
	hub.Shutdown()
	logger.Info("bye")
}
