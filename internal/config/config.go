// Пакет config — загрузка и валидация конфигурации Document Store
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

// Окружения развёртывания.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config содержит все параметры конфигурации Document Store.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Окружение: development или production.
	// В production детали ошибок не возвращаются клиенту.
	Env string

	// --- MongoDB ---

	// Строка подключения к MongoDB
	MongoURI string
	// Имя базы данных
	MongoDatabase string
	// Имя GridFS bucket для содержимого файлов
	GridFSBucket string
	// Размер чанка GridFS в байтах
	GridFSChunkSize int32
	// Имя коллекции метаданных файлов
	MetadataCollection string
	// Таймаут подключения и выбора сервера
	MongoConnectTimeout time.Duration
	// Таймаут одной операции с хранилищем
	MongoOperationTimeout time.Duration

	// --- Загрузка ---

	// Максимальный размер файла в байтах
	MaxFileSize int64
	// Максимальное количество файлов в одном multi-upload запросе
	MaxFilesPerUpload int
	// Количество файлов multi-upload, обрабатываемых параллельно
	UploadConcurrency int

	// --- Логирование ---

	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// IsProduction сообщает, запущен ли сервис в production-окружении.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Load загружает конфигурацию из переменных окружения, валидирует
// значения и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// DS_PORT — порт HTTP-сервера (по умолчанию 8080)
	port, err := getEnvInt("DS_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("DS_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("DS_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// DS_ENV — окружение (по умолчанию development)
	cfg.Env = strings.ToLower(getEnvDefault("DS_ENV", EnvDevelopment))
	if cfg.Env != EnvDevelopment && cfg.Env != EnvProduction {
		return nil, fmt.Errorf("DS_ENV: недопустимое значение %q, допустимые: development, production", cfg.Env)
	}

	cfg.MongoURI = getEnvDefault("DS_MONGO_URI", "mongodb://localhost:27017")
	if !strings.HasPrefix(cfg.MongoURI, "mongodb://") && !strings.HasPrefix(cfg.MongoURI, "mongodb+srv://") {
		return nil, fmt.Errorf("DS_MONGO_URI: ожидается схема mongodb:// или mongodb+srv://")
	}
	cfg.MongoDatabase = getEnvDefault("DS_MONGO_DATABASE", "document_store")
	cfg.GridFSBucket = getEnvDefault("DS_GRIDFS_BUCKET", "uploads")
	cfg.MetadataCollection = getEnvDefault("DS_METADATA_COLLECTION", "files")

	// DS_GRIDFS_CHUNK_SIZE — размер чанка (по умолчанию 255 KiB, как у драйвера)
	chunkSize, err := getEnvInt("DS_GRIDFS_CHUNK_SIZE", 255*1024)
	if err != nil {
		return nil, fmt.Errorf("DS_GRIDFS_CHUNK_SIZE: %w", err)
	}
	if chunkSize <= 0 || chunkSize > 16*1024*1024 {
		return nil, fmt.Errorf("DS_GRIDFS_CHUNK_SIZE: значение %d вне диапазона 1-16777216", chunkSize)
	}
	cfg.GridFSChunkSize = int32(chunkSize)

	cfg.MongoConnectTimeout, err = getEnvDuration("DS_MONGO_CONNECT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DS_MONGO_CONNECT_TIMEOUT: %w", err)
	}
	cfg.MongoOperationTimeout, err = getEnvDuration("DS_MONGO_OPERATION_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DS_MONGO_OPERATION_TIMEOUT: %w", err)
	}

	// DS_MAX_FILE_SIZE — максимальный размер файла (по умолчанию 100 MiB)
	cfg.MaxFileSize, err = getEnvInt64("DS_MAX_FILE_SIZE", 100*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("DS_MAX_FILE_SIZE: %w", err)
	}
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("DS_MAX_FILE_SIZE: значение должно быть положительным")
	}

	cfg.MaxFilesPerUpload, err = getEnvInt("DS_MAX_FILES_PER_UPLOAD", 10)
	if err != nil {
		return nil, fmt.Errorf("DS_MAX_FILES_PER_UPLOAD: %w", err)
	}
	if cfg.MaxFilesPerUpload <= 0 {
		return nil, fmt.Errorf("DS_MAX_FILES_PER_UPLOAD: значение должно быть положительным")
	}

	cfg.UploadConcurrency, err = getEnvInt("DS_UPLOAD_CONCURRENCY", 4)
	if err != nil {
		return nil, fmt.Errorf("DS_UPLOAD_CONCURRENCY: %w", err)
	}
	if cfg.UploadConcurrency <= 0 {
		return nil, fmt.Errorf("DS_UPLOAD_CONCURRENCY: значение должно быть положительным")
	}

	// DS_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("DS_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("DS_LOG_LEVEL: %w", err)
	}

	// DS_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("DS_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("DS_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---
	// Чтение и запись тела до 100 MiB — таймауты в минутах, а не секундах.

	cfg.HTTPReadTimeout, err = getEnvDuration("DS_HTTP_READ_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("DS_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("DS_HTTP_WRITE_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("DS_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("DS_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DS_HTTP_IDLE_TIMEOUT: %w", err)
	}
	cfg.ShutdownTimeout, err = getEnvDuration("DS_SHUTDOWN_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DS_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
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

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1m, 5m)", val)
	}
	if d <= 0 {
		return 0, fmt.Errorf("длительность должна быть положительной: %q", val)
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
