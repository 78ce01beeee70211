package xlog

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogEncoderType selects how log records are rendered.
type LogEncoderType uint8

const (
	JSON LogEncoderType = iota
	PlainText
)

type loggerCfg struct {
	encoder LogEncoderType
	level   zapcore.Level
}

// XLoggerOption configures NewXLogger, mirroring the teacher's
// functional-options style for its own logger constructor.
type XLoggerOption func(*loggerCfg)

func WithXLoggerEncoder(enc LogEncoderType) XLoggerOption {
	return func(cfg *loggerCfg) { cfg.encoder = enc }
}

func WithXLoggerLevel(lvl zapcore.Level) XLoggerOption {
	return func(cfg *loggerCfg) { cfg.level = lvl }
}

// NewXLogger builds a *zap.Logger writing to stderr. The level
// defaults to the XAVL_LOG_LEVEL environment variable (DEBUG by
// default) the way the teacher's xlog package reads XLOG_LVL.
func NewXLogger(opts ...XLoggerOption) *zap.Logger {
	cfg := &loggerCfg{
		encoder: JSON,
		level:   levelFromEnv(),
	}
	for _, o := range opts {
		o(cfg)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var enc zapcore.Encoder
	switch cfg.encoder {
	case PlainText:
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), cfg.level)
	return zap.New(core, zap.AddCaller())
}

func levelFromEnv() zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(os.Getenv("XAVL_LOG_LEVEL"))) {
	case "INFO":
		return zapcore.InfoLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.DebugLevel
	}
}
