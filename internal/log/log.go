package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

var (
	logger     *zap.SugaredLogger
	loggerOnce sync.Once
	levelVar   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// initLogger builds the shared logger: console encoding to stderr with
// RFC3339 timestamps, leveled through levelVar so SetLevel still works
// after first use.
func initLogger() {
	loggerOnce.Do(func() {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stderr),
			levelVar,
		)
		logger = zap.New(core).Sugar()
	})
}

func SetLevel(l Level) {
	initLogger()
	switch l {
	case LevelDebug:
		levelVar.SetLevel(zapcore.DebugLevel)
	case LevelError:
		levelVar.SetLevel(zapcore.ErrorLevel)
	default:
		levelVar.SetLevel(zapcore.InfoLevel)
	}
}

// Sync flushes buffered entries. Call once on shutdown.
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}

func Debug(msg string, kv ...any) {
	initLogger()
	logger.Debugw(msg, kv...)
}

func Info(msg string, kv ...any) {
	initLogger()
	logger.Infow(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	initLogger()
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	logger.Errorw(msg, extended...)
}
