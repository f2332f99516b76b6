package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the service logger. Development mode gets the colored
// console encoder; production gets JSON.
func New(serviceName string, development bool) (*zap.Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.InitialFields = map[string]interface{}{
		"service": serviceName,
	}
	return cfg.Build()
}

// NewTest returns a no-op logger for tests.
func NewTest() *zap.Logger { return zap.NewNop() }
