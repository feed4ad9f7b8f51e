package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avelora/skybooking/config"
	"github.com/avelora/skybooking/internal/cache"
	"github.com/avelora/skybooking/internal/kafka"
	"github.com/avelora/skybooking/internal/notify"
	"github.com/avelora/skybooking/internal/repository"
	"github.com/avelora/skybooking/internal/scheduler"
	"github.com/jackc/pgx/v5/pgxpool"
	kafkaGo "github.com/segmentio/kafka-go"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.FlightsCacheTTL)*time.Second)

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	sched := scheduler.New(
		repository.NewFlightRepository(pool),
		repository.NewFlightSeatRepository(pool),
		repository.NewBookingRepository(pool),
		repository.NewReviewRepository(pool),
		redisCache,
		time.Duration(cfg.Scheduler.BoardingHours)*time.Hour,
		time.Duration(cfg.Scheduler.RetentionDays)*24*time.Hour,
		time.Duration(cfg.Scheduler.PurgeLockSeconds)*time.Second,
		scheduler.WithProducer(producer, cfg.Kafka.NotificationsTopic),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.BookingEventsTopic)
	defer consumer.Close()

	notifier := notify.NewNotifier()

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.BookingEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Printf("decode event: %v", err)
				return nil
			}
			return notifier.Notify(ctx, event)
		}); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	ticker := time.NewTicker(time.Duration(cfg.Scheduler.SweepMinutes) * time.Minute)
	defer ticker.Stop()

	sched.Sweep(ctx)
	for {
		select {
		case <-ticker.C:
			sched.Sweep(ctx)
		case <-ctx.Done():
			log.Println("shutting down scheduler")
			return
		}
	}
}
