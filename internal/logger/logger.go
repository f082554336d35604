// Package logger wraps a process-wide zap logger with the helpers every
// layer logs through. Request-scoped fields ride on the context.
package logger

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a no-op until Init, so packages can log from tests without any
// setup.
var Logger = zap.NewNop()

type fieldsKey struct{}

func Init(development bool, level string) error {
	config := zap.NewProductionConfig()
	if development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")

	if level != "" {
		lvl, err := zapcore.ParseLevel(strings.ToLower(level))
		if err != nil {
			return err
		}
		config.Level = zap.NewAtomicLevelAt(lvl)
	}

	built, err := config.Build()
	if err != nil {
		return err
	}
	Logger = built.Named("tracker")
	return nil
}

// Replace swaps the global logger and returns a func restoring the old one.
func Replace(l *zap.Logger) func() {
	prev := Logger
	Logger = l
	return func() { Logger = prev }
}

func Sync() {
	_ = Logger.Sync()
}

// WithFields returns a context whose request logs carry fields in addition
// to any already attached.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	prev := Fields(ctx)
	merged := make([]zap.Field, 0, len(prev)+len(fields))
	merged = append(merged, prev...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

func Fields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	f, _ := ctx.Value(fieldsKey{}).([]zap.Field)
	return f
}

// FromContext is the global logger bound to the context's request fields.
func FromContext(ctx context.Context) *zap.Logger {
	if f := Fields(ctx); len(f) > 0 {
		return Logger.With(f...)
	}
	return Logger
}

func Debug(msg string, fields ...zap.Field) {
	Logger.Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	Logger.Info(msg, fields...)
}

func Log(lvl zapcore.Level, msg string, fields ...zap.Field) {
	Logger.Log(lvl, msg, fields...)
}

func HttpRequestInfo(r *http.Request, msg string, fields ...zap.Field) {
	FromContext(r.Context()).Info(msg, append([]zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("query", r.URL.RawQuery),
	}, fields...)...)
}

func Error(msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	Logger.Error(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Logger.Warn(msg, fields...)
}
