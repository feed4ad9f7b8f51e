package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avelora/skybooking/api"
	"github.com/avelora/skybooking/config"
	"github.com/avelora/skybooking/internal/booking"
	"github.com/avelora/skybooking/internal/bootstrap"
	"github.com/avelora/skybooking/internal/cache"
	"github.com/avelora/skybooking/internal/flights"
	"github.com/avelora/skybooking/internal/inventory"
	"github.com/avelora/skybooking/internal/kafka"
	"github.com/avelora/skybooking/internal/pricing"
	"github.com/avelora/skybooking/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
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

	flightRepo := repository.NewFlightRepository(pool)
	seatRepo := repository.NewFlightSeatRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	airplaneRepo := repository.NewAirplaneRepository(pool)
	reviewRepo := repository.NewReviewRepository(pool)

	engine := pricing.NewEngine()
	if cfg.Booking.FlatPricing {
		engine = pricing.NewFlatEngine()
	}

	inv := inventory.NewManager(seatRepo, airplaneRepo)
	flightService := flights.NewService(flightRepo, seatRepo, bookingRepo, reviewRepo, airplaneRepo, inv, redisCache)
	bookingService := booking.NewService(
		engine,
		inv,
		bookingRepo,
		flightRepo,
		redisCache,
		producer,
		cfg.Kafka.BookingEventsTopic,
		time.Duration(cfg.Booking.SeatHoldTTLSeconds)*time.Second,
		time.Duration(cfg.Scheduler.PurgeLockSeconds)*time.Second,
	)

	router := api.NewRouter(flightService, bookingService)
	if err := bootstrap.Run(ctx, cfg, router); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
