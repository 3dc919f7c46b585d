package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"localhire/internal/api"
	"localhire/internal/config"
	"localhire/internal/database"
	"localhire/internal/domain"
	"localhire/internal/events"
	"localhire/internal/logging"
	"localhire/internal/media"
	"localhire/internal/metrics"
	"localhire/internal/notify"
	"localhire/internal/repository"
	"localhire/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := prepareDirectories(cfg); err != nil {
		logger.Error().Err(err).Msg("prepare directories")
		return err
	}

	db, err := database.Open(ctx, cfg.Database, &logger)
	if err != nil {
		logger.Error().Err(err).Str("driver", cfg.Database.Driver).Msg("init database")
		return err
	}
	defer db.Close()

	redisClient := initRedis(ctx, cfg, &logger)
	defer func() { _ = repository.Close(redisClient) }()

	uploader, uploadsDir, err := initMedia(cfg, &logger)
	if err != nil {
		return err
	}

	mailer := newMailer(cfg)
	eventBus := events.NewEventBus()
	dispatcher := initNotifications(cfg, mailer, &logger)
	dispatcher.Register(eventBus)

	policy := service.PolicyFromConfig(cfg.Booking)
	ratings := ratingStore(db, redisClient)
	limiter := bookingLimiter(redisClient, &logger)

	contractors := service.NewContractorService(db, ratings, uploader, policy, &logger)
	if err := contractors.Seed(ctx, cfg.Contractors); err != nil {
		logger.Error().Err(err).Msg("seed contractors")
		return err
	}

	svc := api.Services{
		Appointments: service.NewAppointmentService(db, db, uploader, eventBus, limiter, policy, &logger),
		Contractors:  contractors,
		Ratings:      service.NewRatingService(ratings, db, eventBus, &logger),
		Signup:       service.NewSignupService(mailer, cfg.Mail.SignupAddress, &logger),
		Health:       db.PingContext,
		UploadsDir:   uploadsDir,
	}
	apiServer := api.NewServer(cfg.API, svc, &logger)

	startMetrics(ctx, cfg, &logger)

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(db, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("pending notifications dropped")
	}

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func prepareDirectories(cfg *config.Config) error {
	if cfg.Database.Driver == database.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}
	if cfg.Media.Bucket == "" {
		if err := os.MkdirAll(cfg.Media.LocalPath, 0o755); err != nil {
			return fmt.Errorf("create uploads directory: %w", err)
		}
	}
	return nil
}

// initRedis returns a nil client when redis is not configured. A failed ping
// only warns: the limiter fails over to memory and ratings fail until redis
// is back.
func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable at start-up")
		return client
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

// ratingStore follows configuration only. Totals never move between stores,
// so a redis outage surfaces as failed rating requests, which callers retry.
func ratingStore(db *database.DB, client *redis.Client) domain.RatingStore {
	if client != nil {
		return repository.NewRedisRatingStore(client)
	}
	return database.NewRatingStore(db)
}

func bookingLimiter(client *redis.Client, logger *zerolog.Logger) domain.RateLimiter {
	if client == nil {
		return repository.NewMemoryLimiter()
	}
	return repository.NewFailoverLimiter(repository.NewRedisLimiter(client), repository.NewMemoryLimiter(), logger)
}

func initMedia(cfg *config.Config, logger *zerolog.Logger) (domain.MediaUploader, string, error) {
	maxSize := cfg.API.MaxUploadMB << 20
	if cfg.Media.Bucket == "" {
		logger.Info().Str("path", cfg.Media.LocalPath).Msg("storing uploads on disk")
		return media.NewDiskUploader(cfg.Media.LocalPath, cfg.Media.PublicURL, maxSize), cfg.Media.LocalPath, nil
	}

	client, err := media.NewS3Client(cfg.Media)
	if err != nil {
		logger.Error().Err(err).Msg("init s3 client")
		return nil, "", err
	}
	logger.Info().Str("bucket", cfg.Media.Bucket).Msg("storing uploads in object storage")
	return media.NewS3Uploader(client, cfg.Media, maxSize, logger), "", nil
}

// newMailer returns nil when SMTP is not configured; a nil mailer reports
// ErrMailDisabled on send.
func newMailer(cfg *config.Config) *notify.Mailer {
	if !cfg.Mail.Enabled() {
		return nil
	}
	return notify.NewMailer(notify.NewDialer(cfg.Mail), cfg.Mail.From)
}

func initNotifications(cfg *config.Config, mailer *notify.Mailer, logger *zerolog.Logger) *notify.Dispatcher {
	var telegram *notify.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			logger.Warn().Err(err).Msg("telegram unavailable, admin alerts disabled")
		} else {
			telegram = notify.NewTelegramNotifier(botAPI, cfg.Telegram.AdminChatIDs)
		}
	}

	notifyLogger := logger.With().Str("component", "notify").Logger()
	return notify.NewDispatcher(mailer, telegram, cfg.Mail.AdminAddress, &notifyLogger)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
