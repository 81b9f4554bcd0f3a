package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CProject/global"
	"CProject/logger"
	"CProject/middleware/security"
	"CProject/module/moderation"
	"CProject/service/events"
	"CProject/service/room"
	"CProject/service/storage/redis"
	"CProject/service/store"

	"github.com/gin-gonic/gin"
)

func main() {
	conf := global.Load()
	global.ConfigIds()

	ctx := context.Background()

	// snapshot cache: optional, nil client disables it
	var cache *store.SnapshotCache
	if conf.Redis.Addr != "" {
		if err := redis.InitRedis(redis.Config{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		}); err != nil {
			logger.Errorf("redis init failed: %v", err)
			os.Exit(1)
		}
		cache = store.NewSnapshotCache(redis.GetRedis(), conf.Redis.CacheTTL)
		defer redis.CloseRedis()
	}

	// room store: mongo when configured, in-memory otherwise
	var st store.RoomStore
	if conf.Mongo.URI != "" {
		ms, err := store.NewMongoStore(ctx, store.MongoConfig{
			URI:         conf.Mongo.URI,
			Database:    conf.Mongo.Database,
			Username:    conf.Mongo.Username,
			Password:    conf.Mongo.Password,
			MaxPoolSize: conf.Mongo.PoolSize,
		})
		if err != nil {
			logger.Errorf("mongo init failed: %v", err)
			os.Exit(1)
		}
		st = ms
	} else {
		logger.Infof("no MONGO_URI, using in-memory store")
		st = store.NewMemoryStore()
	}

	bridge, err := events.NewBridge(events.Config{
		Servers: conf.Nats.Servers,
		Name:    conf.Nats.Name,
	})
	if err != nil {
		logger.Errorf("nats init failed: %v", err)
		os.Exit(1)
	}
	defer bridge.Close()

	gate := room.NewGate(room.GateConf{
		Interval:   conf.Throttle.Interval,
		SweepEvery: conf.Throttle.SweepEvery,
		StaleAfter: conf.Throttle.StaleAfter,
	})
	defer gate.Close()

	srv := room.NewServer(room.ServerOptions{
		Conf: room.Config{
			GatewayID:     conf.Gateway.ID,
			SendQueueSize: conf.Gateway.SendQueueSize,
			PingInterval:  conf.Gateway.PingInterval,
			WriteWait:     conf.Gateway.WriteWait,
			MaxOccupancy:  conf.Gateway.MaxOccupancy,
		},
		Gate:   gate,
		Store:  st,
		Bridge: bridge,
		Cache:  cache,
	})

	var authOpts *security.Options
	if conf.Auth.JWTSecret != "" {
		authOpts = &security.Options{Secret: []byte(conf.Auth.JWTSecret)}
	} else {
		logger.Warnf("no JWT_SECRET, identity taken from query parameters")
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "gateway": conf.Gateway.ID})
	})
	r.GET("/ws", security.Middleware(authOpts), srv.HandleWS)
	moderation.NewHandler(srv).Register(r.Group("/api/v1"))

	httpSrv := &http.Server{Addr: conf.Gateway.Addr, Handler: r}
	go func() {
		logger.Infof("gateway %s listening on %s", conf.Gateway.ID, conf.Gateway.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("listen: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
	logger.Sync()
}
