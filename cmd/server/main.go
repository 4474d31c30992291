package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dias221467/habit_tracker/internal/config"
	"github.com/Dias221467/habit_tracker/internal/database"
	"github.com/Dias221467/habit_tracker/internal/handlers"
	"github.com/Dias221467/habit_tracker/internal/realtime"
	"github.com/Dias221467/habit_tracker/internal/repository"
	"github.com/Dias221467/habit_tracker/internal/repository/memory"
	"github.com/Dias221467/habit_tracker/internal/scheduler"
	"github.com/Dias221467/habit_tracker/internal/services"
	"github.com/Dias221467/habit_tracker/pkg/email"
	"github.com/Dias221467/habit_tracker/pkg/logger"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration from .env file and the environment
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	logger.InitLogger(cfg.LogLevel)
	logger.Log.Info("Logger initialized")

	if err := run(cfg); err != nil {
		logger.Log.WithError(err).Fatal("Server stopped")
	}
}

// stores bundles the persistence backends selected by STORAGE.
type stores struct {
	users         services.UserDirectory
	habits        services.HabitDirectory
	notifications services.NotificationStore
	settings      services.SettingsStore
	probes        map[string]handlers.Probe
	close         func(context.Context) error
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.close(shutdownCtx); err != nil {
			logger.Log.WithError(err).Warn("Failed to close storage")
		}
	}()

	// --- Real-time transport ---
	hub := realtime.NewHub()
	defer hub.Close()

	var emitter realtime.Emitter = hub
	if cfg.RedisURL != "" {
		client, err := realtime.ConnectRedis(ctx, cfg.RedisURL, 3, 2*time.Second)
		if err != nil {
			return err
		}
		defer client.Close()

		emitter = realtime.NewRedisEmitter(client, cfg.RedisChannel)
		go func() {
			if err := realtime.Relay(ctx, client, cfg.RedisChannel, hub); err != nil {
				logger.Log.WithError(err).Error("Realtime relay stopped")
			}
		}()
		st.probes["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	// --- Email ---
	mailer, err := email.New(email.Config{
		Provider:             cfg.Email.Provider,
		SenderEmail:          cfg.Email.SenderEmail,
		SupportEmail:         cfg.Email.SupportEmail,
		SMTPHost:             cfg.Email.SMTPHost,
		SMTPPort:             cfg.Email.SMTPPort,
		SMTPUser:             cfg.Email.SMTPUser,
		SMTPPassword:         cfg.Email.SMTPPassword,
		PostmarkServerToken:  cfg.Email.PostmarkServerToken,
		PostmarkAccountToken: cfg.Email.PostmarkAccountToken,
		ResendAPIKey:         cfg.Email.ResendAPIKey,
		DevDir:               cfg.Email.DevDir,
	})
	if err != nil {
		return fmt.Errorf("email setup failed: %w", err)
	}
	logger.Log.WithField("provider", cfg.Email.Provider).Info("Email sender configured")

	// --- Services ---
	dispatcher := services.NewDispatcher(emitter, mailer)
	selector := services.NewRecipientSelector(st.users, st.habits)
	notificationService := services.NewNotificationService(st.notifications, selector, dispatcher, st.settings)
	reminderService := services.NewReminderService(st.habits, st.users, st.notifications, dispatcher, st.settings)
	settingsService := services.NewSettingsService(st.settings)
	preferenceService := services.NewPreferenceService(st.users)

	if cfg.Scheduler.Enabled {
		c, err := scheduler.StartReminderCronJobs(reminderService, cfg.Scheduler)
		if err != nil {
			return err
		}
		defer func() { <-c.Stop().Done() }()
	}

	// --- Handlers ---
	router := handlers.NewRouter(handlers.RouterConfig{
		JWTSecret:     cfg.JWTSecret,
		CORSOrigins:   cfg.CORSOrigins,
		Users:         st.users,
		Notifications: handlers.NewNotificationHandler(notificationService),
		Settings:      handlers.NewSettingsHandler(settingsService, preferenceService),
		WS:            handlers.NewWSHandler(hub, st.users, cfg.JWTSecret, cfg.CORSOrigins),
		Health:        handlers.NewHealthHandler(st.probes),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.WithField("port", cfg.Port).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.Storage == config.StorageMemory {
		users, habits := memory.NewUsers(), memory.NewHabits()
		if cfg.SeedFile != "" {
			if err := loadSeed(cfg.SeedFile, users, habits); err != nil {
				return nil, err
			}
		}
		logger.Log.Warn("Using in-memory storage; data is lost on restart")
		return &stores{
			users:         users,
			habits:        habits,
			notifications: memory.NewNotifications(),
			settings:      memory.NewSettings(),
			probes:        map[string]handlers.Probe{},
			close:         func(context.Context) error { return nil },
		}, nil
	}

	db, err := database.ConnectDB(ctx, cfg.Mongo)
	if err != nil {
		return nil, err
	}
	if err := database.EnsureIndexes(ctx, db); err != nil {
		logger.Log.WithError(err).Warn("Index creation failed")
	}
	logger.Log.WithFields(logrus.Fields{"database": cfg.Mongo.Database}).Info("Using MongoDB storage")

	return &stores{
		users:         repository.NewUserRepository(db),
		habits:        repository.NewHabitRepository(db),
		notifications: repository.NewNotificationRepository(db),
		settings:      repository.NewSettingsRepository(db),
		probes:        map[string]handlers.Probe{"mongo": database.Healthcheck(db)},
		close:         db.Client().Disconnect,
	}, nil
}
