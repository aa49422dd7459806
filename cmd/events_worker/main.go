package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/oksasatya/go-firestore-crud/config"
	"github.com/oksasatya/go-firestore-crud/internal/infrastructure/search"
	"github.com/oksasatya/go-firestore-crud/internal/worker"
	"github.com/oksasatya/go-firestore-crud/pkg/helpers"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName+"-events", cfg.Env)

	if cfg.RabbitMQURL == "" || cfg.RabbitMQEventQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}
	addrs := cfg.ESAddrs()
	if len(addrs) == 0 {
		logger.Fatal("Elasticsearch not configured")
	}

	es, err := search.NewClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		logger.Fatalf("elasticsearch: %v", err)
	}
	idx := search.NewUserIndex(es, cfg.ESUsersIndex, logger)

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatalf("amqp dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatalf("amqp channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	// Prefetch for fair dispatch
	if err := ch.Qos(16, 0, false); err != nil {
		logger.Fatalf("qos: %v", err)
	}
	if err := helpers.DeclareQueue(ch, cfg.RabbitMQEventQueue); err != nil {
		logger.Fatalf("queue declare: %v", err)
	}
	msgs, err := ch.Consume(cfg.RabbitMQEventQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		worker.NewUserEvents(idx, logger).Run(ctx, msgs)
		close(done)
	}()

	logger.Infof("events worker listening on queue=%s index=%s", cfg.RabbitMQEventQueue, cfg.ESUsersIndex)
	select {
	case <-ctx.Done():
		logger.Info("shutting down...")
	case <-done:
		logger.Warn("delivery channel closed")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}
