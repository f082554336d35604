package middleware

import (
	"context"
	"net/http"
	"time"

	"teamTracker/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey string

const (
	RequestIdKey contextKey = "request_id"
	accessLogKey contextKey = "access_log"
)

const maxRequestIDLen = 64

// RequestID adopts a well-formed X-Request-ID from the client or mints one,
// and attaches it with the client address to every log of the request.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestId := r.Header.Get("X-Request-ID")
		if !validRequestID(requestId) {
			requestId = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestId)

		ctx := context.WithValue(r.Context(), RequestIdKey, requestId)
		ctx = logger.WithFields(ctx,
			zap.String("request_id", requestId),
			zap.String("client_ip", clientIP(r)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIdKey).(string); ok {
		return id
	}
	return ""
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

// accessLog collects what inner middleware learns about the caller, so the
// finishing log line can report it.
type accessLog struct {
	uid  string
	role string
}

func noteCaller(ctx context.Context, uid, role string) {
	if al, ok := ctx.Value(accessLogKey).(*accessLog); ok {
		al.uid, al.role = uid, role
	}
}

type loggingWriter struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

func (lw *loggingWriter) WriteHeader(code int) {
	if !lw.wroteHeader {
		lw.status = code
		lw.wroteHeader = true
		lw.ResponseWriter.WriteHeader(code)
	}
}

func (lw *loggingWriter) Write(b []byte) (int, error) {
	if !lw.wroteHeader {
		lw.WriteHeader(http.StatusOK)
	}
	n, err := lw.ResponseWriter.Write(b)
	lw.size += n
	return n, err
}

func (lw *loggingWriter) Unwrap() http.ResponseWriter {
	return lw.ResponseWriter
}

// Logging writes one line when a request arrives and one when it finishes.
// The finishing line names the matched route and the authenticated caller.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := logger.FromContext(r.Context())

		log.Debug("HTTP_IN: Request started",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)

		al := &accessLog{}
		lw := &loggingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lw, r.WithContext(context.WithValue(r.Context(), accessLogKey, al)))

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", lw.status),
			zap.Int("bytes_written", lw.size),
			zap.Duration("ms", time.Since(start)),
		}
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			fields = append(fields, zap.String("route", rc.RoutePattern()))
		}
		if al.uid != "" {
			fields = append(fields, zap.String("uid", al.uid), zap.String("role", al.role))
		}
		log.Log(levelFor(lw.status), "HTTP_OUT: Request finished", fields...)
	})
}

func levelFor(status int) zapcore.Level {
	switch {
	case status >= 500:
		return zap.ErrorLevel
	case status >= 400:
		return zap.WarnLevel
	}
	return zap.InfoLevel
}
