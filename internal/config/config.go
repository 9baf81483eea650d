// Пакет config — загрузка и валидация конфигурации AgriQCert
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации AgriQCert.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Публичный базовый URL сервиса (для verify-ссылок в QR-кодах)
	PublicBaseURL string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Аутентификация ---

	// Секрет подписи JWT (HS256)
	JWTSecret string
	// Время жизни access-токена
	JWTTTL time.Duration

	// --- Сертификаты ---

	// Секрет для вычисления integrity stamp сертификатов
	VCSigningSecret string
	// Срок действия сертификата в днях
	VCTTLDays int
	// Строгая проверка соответствия issuer назначенному QA-агентству:
	// при false несоответствие только логируется
	StrictIssuerMatch bool

	// --- Redis (ограничение частоты публичной верификации) ---

	// Адрес Redis (host:port); пустое значение отключает rate limiting
	RedisAddr string
	// Лимит запросов верификации на IP в окне
	VerifyRateLimit int
	// Длительность окна rate limiting
	VerifyRateWindow time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// QC_PORT — порт HTTP-сервера (по умолчанию 8000)
	cfg.Port, err = getEnvInt("QC_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("QC_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("QC_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// QC_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("QC_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("QC_LOG_LEVEL: %w", err)
	}

	// QC_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("QC_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("QC_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// QC_PUBLIC_BASE_URL — базовый URL verify-страницы для QR-кодов
	cfg.PublicBaseURL = strings.TrimRight(
		getEnvDefault("QC_PUBLIC_BASE_URL", "http://localhost:3000"), "/")

	// --- PostgreSQL ---

	// QC_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("QC_DB_HOST")
	if err != nil {
		return nil, err
	}

	// QC_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("QC_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("QC_DB_PORT: %w", err)
	}

	// QC_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("QC_DB_NAME")
	if err != nil {
		return nil, err
	}

	// QC_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("QC_DB_USER")
	if err != nil {
		return nil, err
	}

	// QC_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("QC_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// QC_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("QC_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("QC_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Аутентификация ---

	// QC_JWT_SECRET — обязательный
	cfg.JWTSecret, err = getEnvRequired("QC_JWT_SECRET")
	if err != nil {
		return nil, err
	}

	// QC_JWT_TTL — время жизни токена (по умолчанию 24h)
	cfg.JWTTTL, err = getEnvDuration("QC_JWT_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("QC_JWT_TTL: %w", err)
	}

	// --- Сертификаты ---

	// QC_VC_SIGNING_SECRET — обязательный
	cfg.VCSigningSecret, err = getEnvRequired("QC_VC_SIGNING_SECRET")
	if err != nil {
		return nil, err
	}

	// QC_VC_TTL_DAYS — срок действия сертификата (по умолчанию 180 дней)
	cfg.VCTTLDays, err = getEnvInt("QC_VC_TTL_DAYS", 180)
	if err != nil {
		return nil, fmt.Errorf("QC_VC_TTL_DAYS: %w", err)
	}
	if cfg.VCTTLDays < 1 {
		return nil, fmt.Errorf("QC_VC_TTL_DAYS: значение %d должно быть положительным", cfg.VCTTLDays)
	}

	// QC_STRICT_ISSUER_MATCH — строгая проверка issuer (по умолчанию false)
	cfg.StrictIssuerMatch, err = getEnvBool("QC_STRICT_ISSUER_MATCH", false)
	if err != nil {
		return nil, fmt.Errorf("QC_STRICT_ISSUER_MATCH: %w", err)
	}

	// --- Redis ---

	// QC_REDIS_ADDR — адрес Redis (опционально)
	cfg.RedisAddr = getEnvDefault("QC_REDIS_ADDR", "")

	// QC_VERIFY_RATE_LIMIT — лимит верификаций на IP в окне (по умолчанию 60)
	cfg.VerifyRateLimit, err = getEnvInt("QC_VERIFY_RATE_LIMIT", 60)
	if err != nil {
		return nil, fmt.Errorf("QC_VERIFY_RATE_LIMIT: %w", err)
	}
	if cfg.VerifyRateLimit < 1 {
		return nil, fmt.Errorf("QC_VERIFY_RATE_LIMIT: значение %d должно быть положительным", cfg.VerifyRateLimit)
	}

	// QC_VERIFY_RATE_WINDOW — окно rate limiting (по умолчанию 1m)
	cfg.VerifyRateWindow, err = getEnvDuration("QC_VERIFY_RATE_WINDOW", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("QC_VERIFY_RATE_WINDOW: %w", err)
	}

	// --- Graceful shutdown ---

	// QC_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("QC_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("QC_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// VCTTL возвращает срок действия сертификата как time.Duration.
func (c *Config) VCTTL() time.Duration {
	return time.Duration(c.VCTTLDays) * 24 * time.Hour
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
