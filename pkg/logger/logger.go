package logger

import (
	"strings"
	"sync"

	"github.com/cozy-creator/brandgen/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger *zap.Logger
)

// NewLogger builds a zap logger for the configured environment: JSON
// output in production, the deterministic example encoder under test and
// colored console output otherwise.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	env := config.DefaultEnvironment
	if cfg != nil && cfg.Environment != "" {
		env = strings.ToLower(cfg.Environment)
	}

	switch env {
	case "prod", "production":
		return zap.NewProduction()
	case "test":
		return zap.NewExample(), nil
	default:
		dev := zap.NewDevelopmentConfig()
		dev.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return dev.Build()
	}
}

func MustNewLogger(cfg *config.Config) *zap.Logger {
	return zap.Must(NewLogger(cfg))
}

func InitLogger(cfg *config.Config) (*zap.Logger, error) {
	l, err := NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	SetLogger(l)
	return l, nil
}

func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// GetLogger returns the process logger, or a no-op logger when none was
// initialized.
func GetLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}

// Named returns a child of the process logger tagged with component.
func Named(component string) *zap.Logger {
	return GetLogger().Named(component)
}

func Sync() {
	_ = GetLogger().Sync()
}

func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}
