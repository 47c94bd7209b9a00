package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suPer8Hu/lingochat/internal/archive"
	"github.com/suPer8Hu/lingochat/internal/chat"
	"github.com/suPer8Hu/lingochat/internal/config"
	"github.com/suPer8Hu/lingochat/internal/db"
	"github.com/suPer8Hu/lingochat/internal/logger"
	"github.com/suPer8Hu/lingochat/internal/store/rabbitmq"
)

// workerConcurrency reads WORKER_CONCURRENCY, clamped to [1, 50].
func workerConcurrency() int {
	n, err := strconv.Atoi(os.Getenv("WORKER_CONCURRENCY"))
	if err != nil || n <= 0 {
		return 2
	}
	return min(n, 50)
}

func main() {
	_ = godotenv.Load()
	logger.Init(os.Stdout)
	cfg := config.Load()
	if cfg.RabbitURL == "" {
		log.Fatalf("RABBIT_URL is required for the archive worker")
	}

	gdb := db.Connect(cfg.DBDSN)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	if err := rabbitmq.DeclareConsumerQueues(ch, cfg.RabbitExchange, cfg.RabbitQueue, cfg.RabbitRetryDelay); err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	workers := workerConcurrency()
	// prefetch bounds unacked deliveries to what the pool can hold
	if err := ch.Qos(workers, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}
	deliveries, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &consumer{
		archiver:   archive.New(chat.NewRepo(gdb)),
		retry:      channelPublisher(ch, rabbitmq.RetryQueue(cfg.RabbitQueue)),
		maxRetries: cfg.RabbitMaxRetries,
		workers:    workers,
	}
	slog.Info("archive worker started", "queue", cfg.RabbitQueue, "workers", workers)
	c.run(ctx, deliveries)
	slog.Info("archive worker stopped")
}
