package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fitoclin/fitoclin/libs/config"
)

type settings struct {
	Service        string
	LogLevel       string
	Port           string
	GRPCPort       string
	DatabaseURL    string
	DBMaxConns     int
	DBMinConns     int
	MigrateOnStart bool

	Location        *time.Location
	SlotDuration    time.Duration
	DoctorID        string
	ScheduleCache   int
	NotifyTimeout   time.Duration
	DefaultListDays int

	JWTSecret string
	JWTIssuer string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SlotLockTTL   time.Duration
	RateLimit     int

	KafkaBrokers []string
	KafkaGroupID string

	SMTPHost string
	SMTPPort string
	SMTPFrom string
}

func loadSettings() (settings, error) {
	s := settings{
		Service:       config.String("SERVICE_NAME", "scheduling-service"),
		LogLevel:      config.String("LOG_LEVEL", "info"),
		DoctorID:      config.String("DOCTOR_ID", ""),
		JWTIssuer:     config.String("JWT_ISSUER", ""),
		RedisAddr:     config.String("REDIS_ADDR", ""),
		RedisPassword: config.String("REDIS_PASSWORD", ""),
		KafkaBrokers:  config.List("KAFKA_BROKERS", ""),
		SMTPHost:      config.String("SMTP_HOST", ""),
		SMTPPort:      config.String("SMTP_PORT", "1025"),
		SMTPFrom:      config.String("SMTP_FROM", ""),
	}
	s.MigrateOnStart = config.Bool("MIGRATE_ON_START", true)

	var err error
	if s.Port, err = config.Port("PORT", "8080"); err != nil {
		return s, err
	}
	if s.GRPCPort, err = config.Port("GRPC_PORT", "9080"); err != nil {
		return s, err
	}
	if s.DatabaseURL, err = config.RequiredString("DATABASE_URL"); err != nil {
		return s, err
	}
	if s.JWTSecret, err = config.RequiredString("JWT_SECRET"); err != nil {
		return s, err
	}
	if s.Location, err = config.Location("CLINIC_TIMEZONE", "America/Sao_Paulo"); err != nil {
		return s, err
	}

	if s.DBMaxConns, err = config.Int("DB_MAX_CONNS", 10, 2, 1000); err != nil {
		return s, err
	}
	if s.DBMinConns, err = config.Int("DB_MIN_CONNS", 1, 0, 1000); err != nil {
		return s, err
	}
	if s.DBMinConns > s.DBMaxConns {
		return s, fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", s.DBMinConns, s.DBMaxConns)
	}

	minutes, err := config.Int("SLOT_DURATION_MINUTES", 60, 5, 240)
	if err != nil {
		return s, err
	}
	s.SlotDuration = time.Duration(minutes) * time.Minute

	if s.ScheduleCache, err = config.Int("SCHEDULE_CACHE_SIZE", 64, 1, 100_000); err != nil {
		return s, err
	}
	if s.DefaultListDays, err = config.Int("APPOINTMENTS_DEFAULT_DAYS", 30, 1, 366); err != nil {
		return s, err
	}
	if s.NotifyTimeout, err = config.Seconds("NOTIFY_TIMEOUT_SECONDS", 15*time.Second); err != nil {
		return s, err
	}
	if s.RedisDB, err = config.Int("REDIS_DB", 0, 0, 15); err != nil {
		return s, err
	}
	if s.SlotLockTTL, err = config.Seconds("SLOT_LOCK_TTL_SECONDS", 10*time.Second); err != nil {
		return s, err
	}
	if s.RateLimit, err = config.Int("RATE_LIMIT_PER_MINUTE", 120, 1, 1_000_000); err != nil {
		return s, err
	}

	s.KafkaGroupID = config.String("KAFKA_GROUP_ID", "")
	if s.KafkaGroupID == "" {
		// Every replica keeps its own cache, so every replica needs every change event.
		host, _ := os.Hostname()
		s.KafkaGroupID = fmt.Sprintf("%s-cache-%s", s.Service, host)
	}
	return s, nil
}
