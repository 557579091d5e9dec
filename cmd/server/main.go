package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fablab/fablab-registration/internal/handlers"
	"github.com/fablab/fablab-registration/internal/locking"
	"github.com/fablab/fablab-registration/internal/metrics"
	"github.com/fablab/fablab-registration/internal/notifications"
	"github.com/fablab/fablab-registration/internal/repositories"
	"github.com/fablab/fablab-registration/internal/services"
	"github.com/fablab/fablab-registration/internal/workers"
	"github.com/fablab/fablab-registration/pkg/config"
	"github.com/fablab/fablab-registration/pkg/database"
	"github.com/fablab/fablab-registration/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	if err := config.Load(); err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.AppConfig

	logger.Init()
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	if err := database.Init(cfg.Database.Path); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	settingsRepo := repositories.NewSettingsRepository(database.DB)
	if err := settingsRepo.SeedDefaults(context.Background()); err != nil {
		logger.Fatalf("Failed to seed default settings: %v", err)
	}

	metrics.Register()

	// Initialize dependencies
	cal := services.NewCalendar(time.Now, cfg.Location())
	locker, closeLocker := newSlotLocker(cfg.Redis)
	defer closeLocker()

	overrideRepo := repositories.NewWorkingHoursOverrideRepository(database.DB)
	sectionRepo := repositories.NewSectionAvailabilityRepository(database.DB)
	registrationRepo := repositories.NewRegistrationRepository(database.DB)
	taskRepo := repositories.NewTaskRepository(database.DB)
	userRepo := repositories.NewUserRepository(database.DB)
	jobRepo := repositories.NewJobRepository(database.DB)

	workingHoursService := services.NewWorkingHoursService(settingsRepo, overrideRepo)
	sectionService := services.NewSectionAvailabilityService(database.DB, sectionRepo, cal)
	availabilityService := services.NewAvailabilityService(database.DB, workingHoursService)
	notificationService := services.NewNotificationService(cfg.Mail.AdminNotifyEmail)
	registrationService := services.NewRegistrationService(database.DB, locker, workingHoursService, notificationService, cal)
	taskService := services.NewTaskService(database.DB, taskRepo, cal)
	exportService := services.NewScheduleExportService(availabilityService, registrationRepo)
	userService := services.NewUserService(userRepo)
	schedulerService := services.NewSchedulerService(sectionService, cal, cfg.Scheduling.SweepCron)

	// Initialize worker manager
	sender := notifications.NewSender(cfg.Mail.SMTPHost, cfg.Mail.SMTPPort, cfg.Mail.From)
	workerManager := workers.NewWorkerManager(jobRepo, sender, cfg.Notifications.Workers, cfg.Notifications.MaxAttempts)

	router := handlers.NewRouter(&handlers.Handlers{
		Registration:        handlers.NewRegistrationHandler(registrationService, availabilityService),
		SectionAvailability: handlers.NewSectionAvailabilityHandler(sectionService),
		WorkingHours:        handlers.NewWorkingHoursHandler(workingHoursService, cal),
		Task:                handlers.NewTaskHandler(taskService),
		Export:              handlers.NewExportHandler(exportService, cal),
		User:                handlers.NewUserHandler(userService),
		Health:              handlers.NewHealthHandler(database.DB, jobRepo, workerManager.GetWorkerStatus),
		NotFound:            handlers.NewNotFoundHandler(),
	}, cfg.Auth.JWTSecret)

	if cfg.Auth.JWTSecret == "" {
		logger.Warnf("JWT_SECRET is empty, staff routes will reject every request")
	}

	// Start background work
	if err := workerManager.StartAll(); err != nil {
		logger.Fatalf("Failed to start workers: %v", err)
	}
	if err := schedulerService.StartScheduler(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}

	// Setup server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Infof("Server starting on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server shutdown error: %v", err)
	}
	schedulerService.Stop(ctx)
	workerManager.StopAll()
	logger.Infof("Server stopped")
}

// newSlotLocker picks the Redis lock when REDIS_ADDR is set so several
// instances share booking locks, and the in-process lock otherwise.
func newSlotLocker(cfg config.RedisConfig) (locking.SlotLocker, func()) {
	if cfg.Addr == "" {
		return locking.NewLocalSlotLocker(), func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatalf("Failed to connect to Redis at %s: %v", cfg.Addr, err)
	}

	logger.Infof("Using Redis slot locks at %s", cfg.Addr)
	return locking.NewRedisSlotLocker(rdb), func() { _ = rdb.Close() }
}
