package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Booking   BookingConfig   `yaml:"booking"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type BookingConfig struct {
	FlatPricing        bool `yaml:"flat_pricing"`
	SeatHoldTTLSeconds int  `yaml:"seat_hold_ttl_seconds"`
	FlightsCacheTTL    int  `yaml:"flights_cache_ttl_seconds"`
}

type SchedulerConfig struct {
	SweepMinutes     int `yaml:"sweep_minutes"`
	BoardingHours    int `yaml:"boarding_hours"`
	RetentionDays    int `yaml:"retention_days"`
	PurgeLockSeconds int `yaml:"purge_lock_seconds"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Booking.SeatHoldTTLSeconds == 0 {
		c.Booking.SeatHoldTTLSeconds = 120
	}
	if c.Scheduler.SweepMinutes == 0 {
		c.Scheduler.SweepMinutes = 5
	}
	if c.Scheduler.BoardingHours == 0 {
		c.Scheduler.BoardingHours = 3
	}
	if c.Scheduler.RetentionDays == 0 {
		c.Scheduler.RetentionDays = 30
	}
	if c.Scheduler.PurgeLockSeconds == 0 {
		c.Scheduler.PurgeLockSeconds = 60
	}
}
