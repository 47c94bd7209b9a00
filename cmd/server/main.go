package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/suPer8Hu/lingochat/internal/ai"
	"github.com/suPer8Hu/lingochat/internal/chat"
	"github.com/suPer8Hu/lingochat/internal/config"
	"github.com/suPer8Hu/lingochat/internal/db"
	"github.com/suPer8Hu/lingochat/internal/httpapi"
	"github.com/suPer8Hu/lingochat/internal/httpapi/handlers"
	"github.com/suPer8Hu/lingochat/internal/logger"
	"github.com/suPer8Hu/lingochat/internal/metrics"
	"github.com/suPer8Hu/lingochat/internal/ratelimit"
	"github.com/suPer8Hu/lingochat/internal/realtime"
	"github.com/suPer8Hu/lingochat/internal/store/rabbitmq"
	"github.com/suPer8Hu/lingochat/internal/store/redisstore"
	"github.com/suPer8Hu/lingochat/internal/translate"
	"github.com/suPer8Hu/lingochat/internal/users"
	"github.com/suPer8Hu/lingochat/internal/ws"
)

func main() {
	_ = godotenv.Load()
	logger.Init(os.Stdout)
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	repo := chat.NewRepo(gdb)

	// optional profile cache
	var cache *redisstore.Store
	if cfg.RedisAddr != "" {
		cache = redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := cache.Ping(pctx)
		cancel()
		if err != nil {
			log.Fatalf("redis ping: %v", err)
		}
		defer cache.Close()
	}
	dir := users.NewDirectory(gdb, cache, cfg.ProfileCacheTTL)

	reg := ai.NewRegistry()
	reg.Register("ollama", cfg.OllamaModel, func(model string) ai.Provider {
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, model)
	})
	reg.Register("openrouter", cfg.OpenRouterModel, func(model string) ai.Provider {
		return ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, model, cfg.OpenRouterSiteURL, cfg.OpenRouterAppName)
	})
	provider, err := reg.Open(cfg.AIProvider, "")
	if err != nil {
		log.Fatalf("ai provider: %v", err)
	}
	broker := translate.NewBroker(provider, cfg.DefaultLanguage)

	var events realtime.Publisher
	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			log.Fatalf("rabbit publisher: %v", err)
		}
		defer pub.Close()
		events = pub
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	engine := realtime.NewEngine(realtime.Options{
		Users:      dir,
		Log:        repo,
		Translator: broker,
		Events:     events,
		Metrics:    metrics.New(promReg),
		Limiter:    ratelimit.New(cfg.MsgRatePerSec, cfg.MsgBurst, 10*time.Minute),
	})

	wsHandler := ws.NewHandler(engine, ws.Options{
		JWTSecret:    cfg.JWTSecret,
		AuthRequired: cfg.WSAuthRequired,
		SendBuffer:   cfg.WSSendBuffer,
		PingInterval: cfg.WSPingInterval,
	})
	h := handlers.NewHandler(cfg, dir, chat.NewService(repo), broker)
	r := httpapi.NewRouter(cfg, h, wsHandler, promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("listening", "addr", cfg.HTTPAddr, "aiProvider", cfg.AIProvider, "events", cfg.RabbitURL != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		slog.Error("http shutdown", "error", err)
	}
	engine.Wait()
}
