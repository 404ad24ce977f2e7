package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fitoclin/fitoclin/libs/auth"
	"github.com/fitoclin/fitoclin/libs/config"
	"github.com/fitoclin/fitoclin/libs/db"
	"github.com/fitoclin/fitoclin/libs/grpcx"
	"github.com/fitoclin/fitoclin/libs/httpx"
	"github.com/fitoclin/fitoclin/libs/kafkax"
	otelx "github.com/fitoclin/fitoclin/libs/otel"
	"github.com/fitoclin/fitoclin/libs/runtime"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/availability"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/booking"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/consumer"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/directory"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/handlers"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/locker"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/notify"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/outbox"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/schedule"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/storage"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	cfg, err := loadSettings()
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(cfg.Service, cfg.LogLevel)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.Service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	pool, err := db.Open(ctx, cfg.DatabaseURL, db.Options{
		MaxConns: int32(cfg.DBMaxConns),
		MinConns: int32(cfg.DBMinConns),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.MigrateOnStart {
		if _, err := db.Migrate(ctx, pool, storage.Migrations(), logger); err != nil {
			logger.Error("migrations failed", "err", err)
			os.Exit(1)
		}
	}

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)},
	}

	var (
		limiter httpx.Limiter = httpx.NewMemoryLimiter(time.Minute)
		locks   booking.SlotLocker
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
		limiter = httpx.NewRedisLimiter(rdb, time.Minute, cfg.Service+":rl")
		locks = locker.New(rdb, cfg.Service+":lock:", cfg.SlotLockTTL, logger)
	} else {
		logger.Warn("redis not configured; slot lock disabled and rate limit is per instance")
	}

	outboxRepo := outbox.NewRepository(pool)
	users := storage.NewUserRepository(pool)
	scheduleRepo := storage.NewScheduleRepository(pool, outboxRepo)
	appointmentRepo := storage.NewAppointmentRepository(pool, outboxRepo)

	cache, err := schedule.NewCache(scheduleRepo, cfg.ScheduleCache)
	if err != nil {
		logger.Error("schedule cache init failed", "err", err)
		os.Exit(1)
	}
	writer := schedule.NewWriter(scheduleRepo, cache, logger)
	doctors := directory.NewResolver(users, cfg.DoctorID)

	calc := availability.NewCalculator(cache, appointmentRepo, doctors, logger, availability.Config{
		Location:     cfg.Location,
		SlotDuration: cfg.SlotDuration,
	})

	var notifier booking.Notifier
	if cfg.SMTPHost != "" {
		notifier = notify.NewConfirmations(notify.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom), cfg.Location)
	} else {
		logger.Warn("smtp not configured; booking confirmations disabled")
	}
	committer := booking.NewCommitter(appointmentRepo, calc, doctors, doctors, locks, notifier, logger, booking.Config{
		Location:      cfg.Location,
		NotifyTimeout: cfg.NotifyTimeout,
	})
	defer committer.Wait()

	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	if len(cfg.KafkaBrokers) > 0 {
		invalidations := consumer.New(logger, consumer.Config{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroupID,
			Topic:   outbox.TopicScheduleChanged,
		}, consumer.ScheduleChanged(cache, logger))
		go invalidations.Run(ctx)
	}

	grpcSrv, healthSrv := grpcx.NewServer(logger)
	if err := grpcx.Serve(ctx, logger, ":"+cfg.GRPCPort, grpcSrv, healthSrv, cfg.Service, db.ReadyCheck(pool)); err != nil {
		logger.Error("grpc server failed to start", "err", err)
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	h := handlers.New(calc, committer, writer, doctors, logger, handlers.Config{
		Location:        cfg.Location,
		DefaultListDays: cfg.DefaultListDays,
	})
	h.Register(mux, auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer))

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.RateLimit(limiter, cfg.RateLimit, logger, true),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(15*time.Second),
	)
	handler = otelhttp.NewHandler(handler, "scheduling")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("scheduling service ready",
		"timezone", cfg.Location.String(),
		"slot_minutes", int(cfg.SlotDuration/time.Minute),
		"doctor_id", cfg.DoctorID,
	)
	runtime.RunHTTPServer(ctx, srv, logger, 10*time.Second)
}
