package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bigkaa/goartstore/document-store/internal/domain/model"
)

// FileRepositoryConfig — параметры коллекции метаданных.
type FileRepositoryConfig struct {
	Collection       string
	OperationTimeout time.Duration
}

// FileRepository — CRUD записей FileRecord в коллекции MongoDB.
type FileRepository struct {
	conn   *Connection
	cfg    FileRepositoryConfig
	logger *slog.Logger
	// now — источник времени, подменяется в тестах
	now func() time.Time
}

// NewFileRepository создаёт репозиторий метаданных.
func NewFileRepository(conn *Connection, cfg FileRepositoryConfig, logger *slog.Logger) *FileRepository {
	return &FileRepository{
		conn:   conn,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "file_repository")),
		now:    time.Now,
	}
}

// collection возвращает коллекцию метаданных и контекст с таймаутом операции.
func (r *FileRepository) collection(ctx context.Context) (*mongo.Collection, context.Context, context.CancelFunc, error) {
	db, err := r.conn.Database(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	opCtx, cancel := context.WithTimeout(ctx, r.cfg.OperationTimeout)
	return db.Collection(r.cfg.Collection), opCtx, cancel, nil
}

// EnsureIndexes создаёт индексы для выборок по категории и дате загрузки.
func (r *FileRepository) EnsureIndexes(ctx context.Context) error {
	coll, opCtx, cancel, err := r.collection(ctx)
	if err != nil {
		return classify("ensure indexes", err)
	}
	defer cancel()

	_, err = coll.Indexes().CreateMany(opCtx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "uploadDate", Value: -1}},
			Options: options.Index().SetName("category_uploadDate"),
		},
		{
			Keys:    bson.D{{Key: "uploadDate", Value: -1}},
			Options: options.Index().SetName("uploadDate"),
		},
	})
	if err != nil {
		return classify("ensure indexes", err)
	}
	return nil
}

// Create валидирует запись, назначает ID и UploadDate и сохраняет её.
// Переданная запись не изменяется; возвращается сохранённая копия.
func (r *FileRepository) Create(ctx context.Context, rec *model.FileRecord) (*model.FileRecord, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if rec.BlobID == "" {
		return nil, model.NewValidationError("blobId", "обязательное поле")
	}

	created := *rec
	created.ID = uuid.New().String()
	// MongoDB хранит время с точностью до миллисекунд
	created.UploadDate = r.now().UTC().Truncate(time.Millisecond)

	coll, opCtx, cancel, err := r.collection(ctx)
	if err != nil {
		return nil, classify("create file record", err)
	}
	defer cancel()

	if _, err := coll.InsertOne(opCtx, &created); err != nil {
		return nil, classify("create file record", err)
	}

	r.logger.Debug("Запись метаданных создана",
		slog.String("file_id", created.ID),
		slog.String("blob_id", created.BlobID),
	)
	return &created, nil
}

// FindByID возвращает запись по ID или ErrNotFound.
func (r *FileRepository) FindByID(ctx context.Context, id string) (*model.FileRecord, error) {
	coll, opCtx, cancel, err := r.collection(ctx)
	if err != nil {
		return nil, classify("find file record", err)
	}
	defer cancel()

	var rec model.FileRecord
	if err := coll.FindOne(opCtx, bson.D{{Key: "_id", Value: id}}).Decode(&rec); err != nil {
		return nil, classify("find file record", err)
	}
	return &rec, nil
}

// FindAll возвращает записи по убыванию UploadDate,
// при заданной категории — только записи этой категории.
func (r *FileRepository) FindAll(ctx context.Context, filter model.ListFilter) ([]*model.FileRecord, error) {
	coll, opCtx, cancel, err := r.collection(ctx)
	if err != nil {
		return nil, classify("list file records", err)
	}
	defer cancel()

	query := bson.D{}
	if filter.Category != nil {
		query = append(query, bson.E{Key: "category", Value: *filter.Category})
	}

	// _id — вторичный ключ для стабильного порядка при равных датах
	opts := options.Find().SetSort(bson.D{{Key: "uploadDate", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := coll.Find(opCtx, query, opts)
	if err != nil {
		return nil, classify("list file records", err)
	}

	records := make([]*model.FileRecord, 0)
	if err := cursor.All(opCtx, &records); err != nil {
		return nil, classify("list file records", err)
	}
	return records, nil
}

// DeleteByID удаляет запись; ErrNotFound, если записи нет.
func (r *FileRepository) DeleteByID(ctx context.Context, id string) error {
	coll, opCtx, cancel, err := r.collection(ctx)
	if err != nil {
		return classify("delete file record", err)
	}
	defer cancel()

	res, err := coll.DeleteOne(opCtx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return classify("delete file record", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete file record %s: %w", id, model.ErrNotFound)
	}
	return nil
}
