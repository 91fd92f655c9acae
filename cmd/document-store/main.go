// Точка входа Document Store — сервиса хранения документов,
// удостоверяющих личность (MongoDB: GridFS для содержимого, коллекция для метаданных).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bigkaa/goartstore/document-store/api"
	apierrors "github.com/bigkaa/goartstore/document-store/internal/api/errors"
	"github.com/bigkaa/goartstore/document-store/internal/api/handlers"
	"github.com/bigkaa/goartstore/document-store/internal/api/middleware"
	"github.com/bigkaa/goartstore/document-store/internal/api/routes"
	"github.com/bigkaa/goartstore/document-store/internal/config"
	"github.com/bigkaa/goartstore/document-store/internal/server"
	"github.com/bigkaa/goartstore/document-store/internal/service"
	"github.com/bigkaa/goartstore/document-store/internal/storage/mongodb"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Document Store запускается",
		slog.String("version", config.Version),
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("Сервис завершился с ошибкой", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Document Store остановлен")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// --- Инициализация компонентов ---

	// 1. Контракт API
	doc, err := api.LoadSpec(context.Background())
	if err != nil {
		return err
	}

	// 2. Подключение к MongoDB (ленивое: устанавливается при первом обращении)
	conn := mongodb.NewConnection(mongodb.ConnectionConfig{
		URI:            cfg.MongoURI,
		Database:       cfg.MongoDatabase,
		ConnectTimeout: cfg.MongoConnectTimeout,
	}, logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := conn.Close(ctx); err != nil {
			logger.Warn("Ошибка закрытия подключения к MongoDB", slog.String("error", err.Error()))
		}
	}()

	// 3. Хранилища
	blobs := mongodb.NewBlobStore(conn, mongodb.BlobStoreConfig{
		Bucket:           cfg.GridFSBucket,
		ChunkSize:        cfg.GridFSChunkSize,
		OperationTimeout: cfg.MongoOperationTimeout,
	}, logger)
	repo := mongodb.NewFileRepository(conn, mongodb.FileRepositoryConfig{
		Collection:       cfg.MetadataCollection,
		OperationTimeout: cfg.MongoOperationTimeout,
	}, logger)

	// Индексы — best effort: недоступная на старте БД не мешает запуску
	ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoConnectTimeout)
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Warn("Не удалось создать индексы метаданных", slog.String("error", err.Error()))
	} else {
		logger.Info("Индексы метаданных проверены")
	}
	cancel()

	// 4. Сервисный слой
	fileSvc := service.NewFileService(cfg, blobs, repo, logger)

	// 5. HTTP handlers
	errWriter := apierrors.NewWriter(cfg.IsProduction())
	filesHandler := handlers.NewFilesHandler(cfg, fileSvc, errWriter, logger)
	healthHandler := handlers.NewHealthHandler(conn)
	openapiHandler, err := handlers.NewOpenAPIHandler(doc)
	if err != nil {
		return err
	}
	apiHandler := handlers.NewAPIHandler(filesHandler, healthHandler, openapiHandler)

	// 6. HTTP-сервер
	srv := server.New(cfg, logger, apiHandler,
		routes.Options{ErrorHandlerFunc: apiHandler.HandleParamError},
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
	)

	// 7. Запуск сервера (блокирующий вызов с graceful shutdown)
	return srv.Run()
}
