// Пакет mongodb — хранилища Document Store поверх MongoDB:
// содержимое файлов в GridFS (chunked storage), метаданные в отдельной коллекции.
package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/bigkaa/goartstore/document-store/internal/domain/model"
)

// ConnectionConfig — параметры подключения к MongoDB.
type ConnectionConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// Connection — лениво инициализируемое подключение к MongoDB.
// Клиент создаётся при первом обращении и переиспользуется. Создание клиента
// не обращается к серверу: драйвер устанавливает соединения в фоне,
// а каждая операция ограничена собственным таймаутом. Поэтому недоступный
// сервер не выстраивает вызовы в очередь на мьютексе.
type Connection struct {
	cfg    ConnectionConfig
	logger *slog.Logger

	mu     sync.Mutex
	client *mongo.Client
}

// NewConnection создаёт подключение без обращения к серверу.
func NewConnection(cfg ConnectionConfig, logger *slog.Logger) *Connection {
	return &Connection{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "mongodb")),
	}
}

// Database возвращает handle базы данных, при необходимости создавая клиент.
func (c *Connection) Database(ctx context.Context) (*mongo.Database, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(c.cfg.Database), nil
}

// getClient возвращает кэшированный клиент или создаёт новый.
// Под мьютексом выполняется только разбор URI и запуск мониторинга топологии.
func (c *Connection) getClient(ctx context.Context) (*mongo.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	opts := options.Client().
		ApplyURI(c.cfg.URI).
		SetConnectTimeout(c.cfg.ConnectTimeout).
		SetServerSelectionTimeout(c.cfg.ConnectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		c.logger.Error("Ошибка создания клиента MongoDB", slog.String("error", err.Error()))
		return nil, fmt.Errorf("подключение к MongoDB: %w: %w", model.ErrStoreUnavailable, err)
	}

	c.logger.Info("Клиент MongoDB создан",
		slog.String("database", c.cfg.Database),
	)
	c.client = client
	return client, nil
}

// Ping проверяет доступность MongoDB. Ожидание ограничено ConnectTimeout
// и не блокирует других вызывающих.
func (c *Connection) Ping(ctx context.Context) error {
	client, err := c.getClient(ctx)
	if err != nil {
		return err
	}

	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return classify("ping", err)
	}
	return nil
}

// Connected сообщает, создан ли клиент. К серверу не обращается.
func (c *Connection) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client != nil
}

// Close закрывает подключение. Повторный вызов безопасен;
// после Close следующий Database создаст новый клиент.
func (c *Connection) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}

	err := c.client.Disconnect(ctx)
	c.client = nil
	if err != nil {
		return fmt.Errorf("отключение от MongoDB: %w", err)
	}

	c.logger.Info("Подключение к MongoDB закрыто")
	return nil
}
