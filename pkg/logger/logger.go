package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Leveled logger shared by the whole service.
// - zap core (JSON in production, console when development is set)
// - Debug/Info/Warn/Error/Fatal variants and Init(level)

var (
	mu    sync.RWMutex
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	out   = zapcore.Lock(os.Stdout)
	dev   bool
	base  *zap.Logger
	sugar *zap.SugaredLogger
)

func init() {
	rebuild()
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Unknown values select info.
func Init(l string) {
	level.SetLevel(parseLevel(l))
}

// Configure sets level and encoder style in one call. development switches to the
// human-readable console encoder.
func Configure(l string, development bool) {
	mu.Lock()
	dev = development
	mu.Unlock()
	Init(l)
	rebuild()
}

func parseLevel(l string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func rebuild() {
	mu.Lock()
	defer mu.Unlock()
	var enc zapcore.Encoder
	if dev {
		cfg := zap.NewDevelopmentEncoderConfig()
		enc = zapcore.NewConsoleEncoder(cfg)
	} else {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	}
	core := zapcore.NewCore(enc, out, level)
	base = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	sugar = base.Sugar()
}

// setOutput redirects log output; used by tests.
func setOutput(w io.Writer) {
	mu.Lock()
	out = zapcore.AddSync(w)
	mu.Unlock()
	rebuild()
}

func s() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// L returns the structured logger for callers that log with zap fields.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base.WithOptions(zap.AddCallerSkip(-1))
}

func Debugf(format string, v ...interface{}) { s().Debugf(format, v...) }
func Infof(format string, v ...interface{})  { s().Infof(format, v...) }
func Warnf(format string, v ...interface{})  { s().Warnf(format, v...) }
func Errorf(format string, v ...interface{}) { s().Errorf(format, v...) }

// Fatalf logs regardless of the configured level and exits the process.
func Fatalf(format string, v ...interface{}) {
	s().Fatalf(format, v...)
}

// Sync flushes buffered entries.
func Sync() error {
	return s().Sync()
}

// LevelString returns the current level as text.
func LevelString() string {
	return level.Level().String()
}
