package app

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-presence/internal/attendance"
	"go-presence/internal/config"
	"go-presence/internal/shared/connection"
)

func BuildApp(router *gin.Engine, cfg config.Config) error {
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

	redisClient, err := connection.ConnectRedisWithRetry(cfg.RedisAddr, 5)
	if err != nil {
		return err
	}

	// The broker is optional for the API binary; without it status
	// changes simply are not fanned out.
	publisher := attendance.NewNoopStatusPublisher()
	if len(cfg.KafkaBrokers) > 0 {
		writer, err := connection.ConnectKafkaWithRetry(cfg.KafkaBrokers, 5)
		if err != nil {
			return err
		}
		publisher = attendance.NewKafkaStatusPublisher(writer)
	} else {
		zap.L().Warn("no kafka brokers configured, status change fan-out disabled")
	}

	return registerModules(router, gormDB, redisClient, publisher, cfg)
}
