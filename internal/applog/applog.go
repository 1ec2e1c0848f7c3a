package applog

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	fileName    = "wegweiser.log"
	maxFileSize = 5 << 20 // 5 MB
	maxValueLen = 200
	truncSuffix = "…"
)

var (
	mu     sync.Mutex
	logger = zap.NewNop().Sugar()
)

// Init opens the log file for appending. Call once at startup.
// If the file exceeds 5 MB, it is rotated (renamed to .log.1) before opening.
// Until then every log call is a no-op.
func Init(dir string) error {
	path := filepath.Join(dir, fileName)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	// Rotate if too large.
	if info, err := os.Stat(path); err == nil && info.Size() > maxFileSize {
		os.Rename(path, path+".1")
	}

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.Sampling = nil
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Use(l)
	return nil
}

// Use routes log calls to l. Tests use it with zaptest/observer loggers.
func Use(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l.Sugar()
}

// Close flushes the log and detaches it.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	_ = logger.Sync()
	logger = zap.NewNop().Sugar()
}

// Info logs a structured event line.
//
//	applog.Info("bridge.connected", "remote", addr)
//	applog.Info("pins.toggled", "key", "A-A1", "pinned", true)
func Info(event string, kv ...any) {
	current().Infow(event, clip(kv)...)
}

// Warn logs a recoverable condition.
func Warn(event string, kv ...any) {
	current().Warnw(event, clip(kv)...)
}

// Error logs an event with an error.
//
//	applog.Error("pins.save", err, "count", 3)
func Error(event string, err error, kv ...any) {
	msg := "<nil>"
	if err != nil {
		msg = truncate(err.Error())
	}
	current().Errorw(event, append([]any{"err", msg}, clip(kv)...)...)
}

func current() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// clip truncates string values so a single field can't flood the log.
func clip(kv []any) []any {
	out := make([]any, len(kv))
	for i, v := range kv {
		if s, ok := v.(string); ok && i%2 == 1 {
			v = truncate(s)
		}
		out[i] = v
	}
	return out
}

func truncate(s string) string {
	if len(s) > maxValueLen {
		s = strings.ToValidUTF8(s[:maxValueLen], "") + truncSuffix
	}
	return s
}
