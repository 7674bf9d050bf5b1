package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/chikitsa-health/hospital-backend/internal/api/router"
	"github.com/chikitsa-health/hospital-backend/internal/appointments"
	appconfig "github.com/chikitsa-health/hospital-backend/internal/config"
	"github.com/chikitsa-health/hospital-backend/internal/directory"
	"github.com/chikitsa-health/hospital-backend/internal/http/handlers"
	"github.com/chikitsa-health/hospital-backend/internal/notify"
	"github.com/chikitsa-health/hospital-backend/internal/observability/metrics"
	"github.com/chikitsa-health/hospital-backend/internal/schedule"
	"github.com/chikitsa-health/hospital-backend/internal/worker/reminders"
	"github.com/chikitsa-health/hospital-backend/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting hospital-backend API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, slot cache disabled", "error", err)
			redisClient = nil
		}
	}

	registry := prometheus.NewRegistry()
	bookingMetrics := metrics.NewBookingMetrics(registry)

	// Stores
	directoryStore := directory.NewStore(pool)
	workingHours := schedule.NewWorkingHoursStore(pool)
	unavailability := schedule.NewUnavailabilityStore(pool, logger)
	appointmentStore := appointments.NewStore(pool)

	// Scheduling engine
	engineCfg := appointments.Config{
		SlotDuration:   cfg.SlotDuration,
		MaxAdvanceDays: cfg.MaxAdvanceDays,
		MinCancelLead:  cfg.MinCancelLead,
	}
	generator := appointments.NewGenerator(directoryStore, workingHours, unavailability, appointmentStore, engineCfg).
		WithMetrics(bookingMetrics)
	slotCache := appointments.NewSlotCache(redisClient, cfg.SlotCacheTTL, bookingMetrics, logger)
	service := appointments.NewService(appointmentStore, generator, directoryStore, directoryStore, slotCache, bookingMetrics, engineCfg, logger)
	calendar := appointments.NewCalendarService(directoryStore, workingHours, unavailability, appointmentStore, engineCfg)

	// Handlers
	appointmentsHandler := handlers.NewAppointmentsHandler(service, appointmentStore, generator, slotCache, calendar, logger)
	scheduleHandler := handlers.NewScheduleHandler(workingHours, unavailability, logger)

	r := router.New(&router.Config{
		Logger:         logger,
		Appointments:   appointmentsHandler,
		Schedule:       scheduleHandler,
		JWTSecret:      cfg.JWTSecret,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		HealthCheck: func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		},
	})

	// Day-before reminder emails
	var sender notify.EmailSender = notify.NewStubEmailSender(logger)
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		sender = sg
	}
	reminderWorker := reminders.NewWorker(reminders.NewStore(pool), sender, logger).
		WithInterval(cfg.ReminderInterval).
		WithRetry(cfg.ReminderRetryAttempts, cfg.ReminderRetryBase).
		WithHospitalPhone(cfg.HospitalPhone)
	go reminderWorker.Run(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
