package main

import (
	"github.com/voltwise/prepaid-meter-service/internal/config"
	"github.com/voltwise/prepaid-meter-service/internal/logging"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName)
}
