package logger

import (
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/egpaydcx/egpay-backend/internal/types/environments"
)

type Logger struct {
	wrappedLogger *zap.Logger
}

func New(env environments.Environment) *Logger {
	var cfg zap.Config

	switch env {
	case environments.Development:
		cfg = newDevelopmentLoggerConfig()
	case environments.Test:
		cfg = newTestLoggerConfig()
	case environments.Staging:
		cfg = newStagingLoggerConfig()
	case environments.Production:
		cfg = newProductionLoggerConfig()
	default:
		cfg = newProductionLoggerConfig()
	}

	zapLogger, err := cfg.Build()
	if err != nil {
		panic(err)
	}

	return &Logger{
		wrappedLogger: zapLogger,
	}
}

func (l *Logger) Debug(msg string, inputFields ...map[string]string) {
	l.log(zapcore.DebugLevel, msg, inputFields...)
}

func (l *Logger) Info(msg string, inputFields ...map[string]string) {
	l.log(zapcore.InfoLevel, msg, inputFields...)
}

func (l *Logger) Warn(msg string, inputFields ...map[string]string) {
	l.log(zapcore.WarnLevel, msg, inputFields...)
}

func (l *Logger) Error(msg string, inputFields ...map[string]string) {
	l.log(zapcore.ErrorLevel, msg, inputFields...)
}

func (l *Logger) Fatal(msg string, inputFields ...map[string]string) {
	fields := []zap.Field{}

	if len(inputFields) > 0 {
		fields = transformStrMapToFields(inputFields[0])
	}

	l.wrappedLogger.Fatal(msg, fields...)
}

// Sync flushes buffered entries, call it before the process exits.
func (l *Logger) Sync() {
	_ = l.wrappedLogger.Sync()
}

func (l *Logger) log(level zapcore.Level, msg string, inputFields ...map[string]string) {
	ce := l.wrappedLogger.Check(level, msg)
	if ce == nil {
		return
	}

	fields := []zap.Field{}
	if len(inputFields) > 0 {
		fields = transformStrMapToFields(inputFields[0])
	}

	ce.Write(fields...)
}

const redacted = "[redacted]"

// field names whose values must never reach the log output
var secretKeys = []string{"privatekey", "private_key", "bottoken", "bot_token", "secret", "password"}

func isSecretKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range secretKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// transformStrMapToFields orders fields by key so entries read the same on every run
func transformStrMapToFields(strMap map[string]string) []zap.Field {
	keys := make([]string, 0, len(strMap))
	for k := range strMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		v := strMap[k]
		if isSecretKey(k) {
			v = redacted
		}
		fields = append(fields, zap.String(k, v))
	}

	return fields
}
