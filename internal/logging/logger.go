package logging

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "WIFIPROV_LOG_LEVEL"

// Initialize creates a new logger with the specified level.
// If level is empty, it checks WIFIPROV_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		logger.Store(zap.NewNop())
		return nil
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(parseLevel(level)),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	built, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Store(built)

	return nil
}

// InitializeFromEnv initializes the logger from the WIFIPROV_LOG_LEVEL
// environment variable.
func InitializeFromEnv() error {
	return Initialize("")
}

// SetLogger replaces the global logger. Tests use it with zaptest/observer.
// A nil logger restores the silent default.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		// Unknown level - use info as default when explicitly set to something
		return zapcore.InfoLevel
	}
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	return logger.Load()
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// LogStateChange logs a supervisor state transition
func LogStateChange(from, to string, ssid string, retries int) {
	Info("Supervisor state changed",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("ssid", ssid),
		zap.Int("retry_count", retries),
	)
}

// LogConnectAttempt logs the outcome of a station association attempt.
// A nil err means the attempt was issued (outcome "begin") or succeeded.
func LogConnectAttempt(ssid string, outcome string, err error) {
	fields := []zap.Field{
		zap.String("ssid", ssid),
		zap.String("outcome", outcome),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
		Warn("Connection attempt", fields...)
		return
	}
	Info("Connection attempt", fields...)
}

// LogPortalEvent logs a configuration portal lifecycle event
func LogPortalEvent(event string, fields ...zap.Field) {
	Info("Portal event", append([]zap.Field{zap.String("event", event)}, fields...)...)
}

// LogHTTPRequest logs a portal HTTP request
func LogHTTPRequest(remoteAddr string, method string, path string, statusCode int) {
	Info("HTTP request handled",
		zap.String("remote_addr", remoteAddr),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status_code", statusCode),
	)
}

// LogDNSQuery logs a captive DNS query at debug level
func LogDNSQuery(remoteAddr string, name string, qtype string, answer string) {
	Debug("Captive DNS query",
		zap.String("remote_addr", remoteAddr),
		zap.String("name", name),
		zap.String("qtype", qtype),
		zap.String("answer", answer),
	)
}

// Sync flushes any buffered log entries
func Sync() {
	_ = GetLogger().Sync()
}
