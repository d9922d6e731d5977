package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/platemarket/api/rest"
	"github.com/kasuganosora/platemarket/api/sse"
	apows "github.com/kasuganosora/platemarket/api/ws"
	"github.com/kasuganosora/platemarket/audit"
	"github.com/kasuganosora/platemarket/cache"
	"github.com/kasuganosora/platemarket/config"
	dbadapter "github.com/kasuganosora/platemarket/db"
	"github.com/kasuganosora/platemarket/game/event"
	"github.com/kasuganosora/platemarket/game/quest"
	"github.com/kasuganosora/platemarket/game/session"
	mw "github.com/kasuganosora/platemarket/middleware"
	"github.com/kasuganosora/platemarket/model"
	"github.com/kasuganosora/platemarket/plugin/hook"
	"github.com/kasuganosora/platemarket/resource"
	"github.com/kasuganosora/platemarket/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
		gin.SetMode(gin.ReleaseMode)
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Security.JWTSecret == "" {
		logger.Fatal("security.jwt_secret must be set")
	}
	// Warn loudly if admin endpoints will be disabled.
	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Hooks ----
	hooks := hook.NewHookCenter()
	hooks.Register(hook.OnMarketEvent, 100, "log", func(ctx context.Context, _ hook.Event, data any) (any, error) {
		if ev, ok := data.(event.Event); ok {
			logger.Debug("market event broadcast",
				zap.String("kind", string(ev.Kind)),
				zap.String("trace_id", session.TraceID(ctx)))
		}
		return data, nil
	})
	hooks.Register(hook.OnQuestComplete, 100, "log", func(ctx context.Context, _ hook.Event, data any) (any, error) {
		if def, ok := data.(*quest.QuestDef); ok {
			logger.Info("quest completed",
				zap.Int("quest_id", def.ID),
				zap.String("trace_id", session.TraceID(ctx)))
		}
		return data, nil
	})

	// ---- Ledger ----
	var ledger apirest.LedgerReader
	db, err := dbadapter.Open(cfg.Database)
	switch {
	case errors.Is(err, dbadapter.ErrDisabled):
		logger.Info("ledger disabled")
	case err != nil:
		log.Fatalf("db: %v", err)
	default:
		if err := model.AutoMigrate(db); err != nil {
			log.Fatalf("db migrate: %v", err)
		}
		ledgerSvc := audit.New(db, logger)
		defer ledgerSvc.Stop(context.Background())
		ledgerSvc.Attach(hooks)
		ledger = ledgerSvc
		logger.Info("ledger initialized", zap.String("mode", cfg.Database.Mode))
	}

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Asset catalog ----
	catalog, err := resource.Load(cfg.Assets.CatalogPath, logger)
	if err != nil {
		log.Fatalf("assets: %v", err)
	}

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	// ---- Game sessions ----
	notifier := session.NewCacheNotifier(c, pubsub, cfg.Game.NotificationHistory, cfg.Game.SessionTTL)
	mgr := session.NewManager(session.ConfigFrom(cfg.Game), cfg.Game.SessionTTL, sched, notifier, hooks, logger)
	mgr.StartGC(cfg.Game.SessionGCInterval)
	defer mgr.CloseAll(context.Background())

	// ---- WS Router ----
	wsRouter := apows.NewRouter(logger)
	apows.NewGameHandlers(mgr, logger).RegisterHandlers(wsRouter)

	// ---- Gin HTTP Server ----
	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(ctx, rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": mgr.Count()})
	})

	// ---- REST API routes ----
	gameH := apirest.NewGameHandler(mgr, notifier, c, cfg.Security, logger)
	adminH := apirest.NewAdminHandler(mgr, sched, ledger, pubsub, logger)
	assetH := apirest.NewAssetHandler(catalog)

	api := r.Group("/api")
	{
		gameH.Register(api, api.Group("", mw.Auth(cfg.Security, c)))
		api.GET("/assets/:key", assetH.Lookup)

		adminG := api.Group("/admin")
		adminG.Use(mw.IPWhitelist(cfg.Security.AdminWhitelist), apirest.AdminAuth(cfg.Server.AdminKey))
		adminH.Register(adminG)
	}

	// ---- WebSocket ----
	wsH := apows.NewHandler(c, pubsub, cfg.Security, mgr, wsRouter, logger)
	r.GET("/ws", wsH.ServeWS)

	// ---- SSE ----
	sseH := sse.NewHandler(pubsub, c, cfg.Security, notifier, logger)
	r.GET("/sse", sseH.ServeSSE)

	// ---- Front-end static files ----
	if cfg.Server.StaticDir != "" {
		r.StaticFile("/", cfg.Server.StaticDir+"/index.html")
		r.Static("/static", cfg.Server.StaticDir)
		logger.Info("Serving front-end", zap.String("dir", cfg.Server.StaticDir))
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		logger.Info("Server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}
