// Пакет ratelimit — ограничение частоты запросов к публичным endpoint'ам
// проверки сертификатов. Fixed-window счётчик в Redis: INCR по ключу
// клиента + TTL окна. При недоступном Redis запросы пропускаются
// (fail-open), чтобы не блокировать проверку сертификатов.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	apierrors "github.com/ArokiaMartinN/agriqcert/internal/api/errors"
)

// Limiter — fixed-window ограничитель частоты на Redis.
type Limiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	logger *slog.Logger
}

// New создаёт Limiter поверх готового Redis-клиента.
// client == nil означает, что ограничение отключено.
func New(client *redis.Client, limit int, window time.Duration, logger *slog.Logger) *Limiter {
	return &Limiter{
		client: client,
		limit:  int64(limit),
		window: window,
		logger: logger.With(slog.String("component", "ratelimit")),
	}
}

// Allow инкрементирует счётчик окна для ключа и возвращает, допущен ли
// запрос, и текущее значение счётчика. TTL ставится одним pipeline
// с инкрементом.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, int64, error) {
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("ошибка инкремента счётчика %s: %w", key, err)
	}

	n := incr.Val()
	return n <= l.limit, n, nil
}

// Middleware возвращает HTTP middleware, ограничивающий частоту запросов
// по IP клиента. При превышении лимита — 429. Ошибки Redis логируются,
// запрос пропускается.
func (l *Limiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil || l.client == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "qc:ratelimit:verify:" + clientIP(r)

			allowed, n, err := l.Allow(r.Context(), key)
			if err != nil {
				l.logger.Warn("Redis недоступен, запрос пропущен без ограничения",
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				l.logger.Warn("Превышен лимит запросов",
					slog.String("client", clientIP(r)),
					slog.Int64("count", n),
					slog.Int64("limit", l.limit),
				)
				apierrors.TooManyRequests(w, "Превышен лимит запросов, повторите позже")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP извлекает IP клиента из RemoteAddr (host:port).
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ReadinessChecker проверяет доступность Redis для readiness probe.
type ReadinessChecker struct {
	client *redis.Client
}

// NewReadinessChecker создаёт Redis readiness checker.
func NewReadinessChecker(client *redis.Client) *ReadinessChecker {
	return &ReadinessChecker{client: client}
}

// CheckReady проверяет соединение через PING.
// Возвращает "ok" или "fail" с сообщением об ошибке.
func (c *ReadinessChecker) CheckReady() (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return "fail", fmt.Sprintf("ошибка соединения с Redis: %v", err)
	}
	return "ok", "Redis доступен"
}
