package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"go-presence/internal/attendance"
	"go-presence/internal/config"
	"go-presence/internal/shared/connection"
)

// RunWorker schedules the daily counter reset: every user's today_*
// fields go back to zero so per-day break statistics start fresh. The
// schedule is a standard 5-field cron expression.
func RunWorker(cfg config.Config) error {
	logger := zap.L().Named("app.worker")

	gormDB, err := connection.ConnectGORMWithRetry(
		cfg.DBHost,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBPort,
		cfg.DBSSLMode,
		5,
	)
	if err != nil {
		return err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	statusRepo := attendance.NewStatusRepository(gormDB)

	c := cron.New()
	_, err = c.AddFunc(cfg.DailyResetSchedule, func() {
		if err := statusRepo.ResetDailyAll(context.Background()); err != nil {
			logger.Error("daily stats reset failed", zap.Error(err))
			return
		}
		logger.Info("daily stats reset completed", zap.String("schedule", cfg.DailyResetSchedule))
	})
	if err != nil {
		return err
	}

	c.Start()
	logger.Info("daily reset scheduled", zap.String("cron", cfg.DailyResetSchedule))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("worker shutting down")
	ctx := c.Stop()
	<-ctx.Done()

	return nil
}
