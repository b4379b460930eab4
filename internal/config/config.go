// Пакет config — загрузка и валидация конфигурации консоли администратора
// Krishibazar из переменных окружения.
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

// Config содержит все параметры конфигурации консоли.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- Backend REST API ---

	// Адрес REST API (без trailing slash)
	BackendURL string
	// Адрес статики (uploads); по умолчанию совпадает с BackendURL
	AssetURL string
	// Путь к CA-сертификату для TLS-соединений с backend (опционально)
	BackendCACertPath string
	// Таймаут одного запроса к backend
	BackendTimeout time.Duration
	// Число повторов идемпотентных GET
	BackendRetryMax int
	// Первая задержка перед повтором
	BackendRetryInitial time.Duration
	// Путь проверки доступности backend
	BackendHealthPath string

	// --- Сессия ---

	// Ключ шифрования cookie сессии
	SessionSecret string
	// Secure flag для cookie (false только для локальной разработки)
	CookieSecure bool
	// URL JWKS для проверки подписи токенов backend (опционально)
	JWKSURL string

	// --- PostgreSQL (журнал действий, опционально) ---

	// Хост PostgreSQL; пусто — журнал отключён
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

	// --- Зависимости и кэш ---

	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Группа сервиса в метриках topologymetrics
	DephealthGroup string
	// Максимум записей в кэше каталога прав
	PermissionCacheSize int
	// Время жизни записи кэша каталога прав
	PermissionCacheTTL time.Duration

	// --- UI ---

	// Размер страницы списков по умолчанию
	PageSize int
	// Язык интерфейса по умолчанию (en, bn)
	DefaultLanguage string

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

	// KB_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("KB_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("KB_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("KB_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// KB_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("KB_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("KB_LOG_LEVEL: %w", err)
	}

	// KB_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("KB_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("KB_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- Backend ---

	// KB_BACKEND_URL — обязательный
	cfg.BackendURL, err = getEnvRequired("KB_BACKEND_URL")
	if err != nil {
		return nil, err
	}
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	if !strings.HasPrefix(cfg.BackendURL, "http://") && !strings.HasPrefix(cfg.BackendURL, "https://") {
		return nil, fmt.Errorf("KB_BACKEND_URL: ожидается http:// или https:// адрес, получено %q", cfg.BackendURL)
	}

	// KB_ASSET_URL — адрес статики (по умолчанию KB_BACKEND_URL)
	cfg.AssetURL = strings.TrimRight(getEnvDefault("KB_ASSET_URL", cfg.BackendURL), "/")

	// KB_BACKEND_CA_CERT_PATH — путь к CA-сертификату (опционально)
	cfg.BackendCACertPath = getEnvDefault("KB_BACKEND_CA_CERT_PATH", "")

	// KB_BACKEND_TIMEOUT — таймаут запроса (по умолчанию 30s)
	cfg.BackendTimeout, err = getEnvDuration("KB_BACKEND_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("KB_BACKEND_TIMEOUT: %w", err)
	}

	// KB_BACKEND_RETRY_MAX — число повторов GET (по умолчанию 2)
	cfg.BackendRetryMax, err = getEnvInt("KB_BACKEND_RETRY_MAX", 2)
	if err != nil {
		return nil, fmt.Errorf("KB_BACKEND_RETRY_MAX: %w", err)
	}
	if cfg.BackendRetryMax < 0 || cfg.BackendRetryMax > 5 {
		return nil, fmt.Errorf("KB_BACKEND_RETRY_MAX: значение %d вне допустимого диапазона 0-5", cfg.BackendRetryMax)
	}

	// KB_BACKEND_RETRY_INITIAL — первая задержка повтора (по умолчанию 200ms)
	cfg.BackendRetryInitial, err = getEnvDuration("KB_BACKEND_RETRY_INITIAL", 200*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("KB_BACKEND_RETRY_INITIAL: %w", err)
	}

	// KB_BACKEND_HEALTH_PATH — путь проверки backend (по умолчанию "/")
	cfg.BackendHealthPath = getEnvDefault("KB_BACKEND_HEALTH_PATH", "/")
	if !strings.HasPrefix(cfg.BackendHealthPath, "/") {
		cfg.BackendHealthPath = "/" + cfg.BackendHealthPath
	}

	// --- Сессия ---

	// KB_SESSION_SECRET — обязательный
	cfg.SessionSecret, err = getEnvRequired("KB_SESSION_SECRET")
	if err != nil {
		return nil, err
	}
	if len(cfg.SessionSecret) < 16 {
		return nil, fmt.Errorf("KB_SESSION_SECRET: ключ короче 16 символов")
	}

	// KB_COOKIE_SECURE — Secure flag cookie (по умолчанию true)
	cfg.CookieSecure, err = getEnvBool("KB_COOKIE_SECURE", true)
	if err != nil {
		return nil, fmt.Errorf("KB_COOKIE_SECURE: %w", err)
	}

	// KB_JWKS_URL — проверка подписи токенов (опционально)
	cfg.JWKSURL = getEnvDefault("KB_JWKS_URL", "")

	// --- PostgreSQL ---

	// KB_DB_HOST — пусто, журнал действий отключён
	cfg.DBHost = getEnvDefault("KB_DB_HOST", "")

	// KB_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("KB_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("KB_DB_PORT: %w", err)
	}

	if cfg.DBHost != "" {
		// При заданном хосте имя БД, пользователь и пароль обязательны
		if cfg.DBName, err = getEnvRequired("KB_DB_NAME"); err != nil {
			return nil, err
		}
		if cfg.DBUser, err = getEnvRequired("KB_DB_USER"); err != nil {
			return nil, err
		}
		if cfg.DBPassword, err = getEnvRequired("KB_DB_PASSWORD"); err != nil {
			return nil, err
		}
	}

	// KB_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("KB_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("KB_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Зависимости и кэш ---

	// KB_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("KB_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("KB_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// KB_DEPHEALTH_GROUP — группа сервиса (по умолчанию krishibazar)
	cfg.DephealthGroup = getEnvDefault("KB_DEPHEALTH_GROUP", "krishibazar")

	// KB_PERMISSION_CACHE_SIZE — размер кэша каталога прав (по умолчанию 256)
	cfg.PermissionCacheSize, err = getEnvInt("KB_PERMISSION_CACHE_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("KB_PERMISSION_CACHE_SIZE: %w", err)
	}
	if cfg.PermissionCacheSize < 1 {
		return nil, fmt.Errorf("KB_PERMISSION_CACHE_SIZE: значение %d должно быть положительным", cfg.PermissionCacheSize)
	}

	// KB_PERMISSION_CACHE_TTL — время жизни записи кэша (по умолчанию 5m)
	cfg.PermissionCacheTTL, err = getEnvDuration("KB_PERMISSION_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("KB_PERMISSION_CACHE_TTL: %w", err)
	}

	// --- UI ---

	// KB_PAGE_SIZE — размер страницы списков (по умолчанию 10)
	cfg.PageSize, err = getEnvInt("KB_PAGE_SIZE", 10)
	if err != nil {
		return nil, fmt.Errorf("KB_PAGE_SIZE: %w", err)
	}
	if cfg.PageSize < 1 || cfg.PageSize > 100 {
		return nil, fmt.Errorf("KB_PAGE_SIZE: значение %d вне допустимого диапазона 1-100", cfg.PageSize)
	}

	// KB_DEFAULT_LANGUAGE — язык интерфейса (по умолчанию en)
	cfg.DefaultLanguage = strings.ToLower(getEnvDefault("KB_DEFAULT_LANGUAGE", "en"))
	if cfg.DefaultLanguage != "en" && cfg.DefaultLanguage != "bn" {
		return nil, fmt.Errorf("KB_DEFAULT_LANGUAGE: недопустимое значение %q, допустимые: en, bn", cfg.DefaultLanguage)
	}

	// --- Graceful shutdown ---

	// KB_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("KB_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("KB_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// JournalEnabled сообщает, настроен ли PostgreSQL для журнала действий.
func (c *Config) JournalEnabled() bool {
	return c.DBHost != ""
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL без учётных данных (лейблы метрик зависимостей).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
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

// getEnvBool возвращает логическое значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное логическое значение: %q", val)
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
