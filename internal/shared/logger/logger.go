package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.Logger

// Init はロガーを初期化する（debug=trueで開発用フォーマット）
func Init(debug bool) {
	if log != nil {
		_ = log.Sync()
	}

	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	cfg.DisableStacktrace = !debug

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	log = l
}

// Sync flushes any buffered log entries.
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}

func Debug(msg string, fields ...zap.Field) {
	ensure()
	log.Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	ensure()
	log.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	ensure()
	log.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	ensure()
	log.Error(msg, fields...)
}

// Fatal logs the message and exits the process.
func Fatal(msg string, fields ...zap.Field) {
	ensure()
	log.Fatal(msg, fields...)
}

// ensure はInit前の呼び出しでもpanicさせない
func ensure() {
	if log == nil {
		Init(false)
	}
}
