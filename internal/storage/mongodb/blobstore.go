package mongodb

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bigkaa/goartstore/document-store/internal/domain/model"
)

// BlobStoreConfig — параметры GridFS bucket.
type BlobStoreConfig struct {
	// Bucket — имя bucket (коллекции <bucket>.files и <bucket>.chunks)
	Bucket string
	// ChunkSize — размер чанка в байтах
	ChunkSize int32
	// OperationTimeout — ограничение на одну операцию, включая чтение потока
	OperationTimeout time.Duration
}

// BlobStore хранит содержимое файлов в GridFS.
// Идентификатор blob-а — hex-представление ObjectID.
type BlobStore struct {
	conn   *Connection
	cfg    BlobStoreConfig
	logger *slog.Logger
}

// NewBlobStore создаёт адаптер GridFS.
func NewBlobStore(conn *Connection, cfg BlobStoreConfig, logger *slog.Logger) *BlobStore {
	return &BlobStore{
		conn:   conn,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "blob_store")),
	}
}

// bucket создаёт GridFS bucket на одну операцию.
// Deadline-ы bucket-а изменяемые, поэтому общий bucket между запросами не используется.
func (s *BlobStore) bucket(ctx context.Context) (*gridfs.Bucket, error) {
	db, err := s.conn.Database(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.GridFSBucket().SetName(s.cfg.Bucket)
	if s.cfg.ChunkSize > 0 {
		opts.SetChunkSizeBytes(s.cfg.ChunkSize)
	}

	b, err := gridfs.NewBucket(db, opts)
	if err != nil {
		return nil, fmt.Errorf("создание GridFS bucket: %w", err)
	}
	return b, nil
}

// deadline возвращает ближайший из deadline контекста и now+OperationTimeout.
func (s *BlobStore) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(s.cfg.OperationTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

// Put сохраняет поток как новый blob. Возвращает идентификатор и число записанных байт.
func (s *BlobStore) Put(ctx context.Context, r io.Reader, filename string, meta model.BlobMetadata) (string, int64, error) {
	b, err := s.bucket(ctx)
	if err != nil {
		return "", 0, classify("put blob", err)
	}
	if err := b.SetWriteDeadline(s.deadline(ctx)); err != nil {
		return "", 0, fmt.Errorf("put blob: %w", err)
	}

	counter := &countingReader{r: r}
	id, err := b.UploadFromStream(filename, counter, options.GridFSUpload().SetMetadata(meta))
	if err != nil {
		return "", 0, classify("put blob", err)
	}

	s.logger.Debug("Blob сохранён",
		slog.String("blob_id", id.Hex()),
		slog.String("filename", filename),
		slog.Int64("size", counter.n),
	)
	return id.Hex(), counter.n, nil
}

// Get открывает поток содержимого blob-а. Открытие ограничено OperationTimeout,
// при чтении таймаут отсчитывается заново на каждый Read, поэтому медленный
// клиент не обрывает длинную передачу. Вызывающий обязан закрыть Reader.
func (s *BlobStore) Get(ctx context.Context, blobID string) (*model.Blob, error) {
	oid, err := parseBlobID(blobID)
	if err != nil {
		return nil, err
	}

	b, err := s.bucket(ctx)
	if err != nil {
		return nil, classify("get blob", err)
	}
	if err := b.SetReadDeadline(s.deadline(ctx)); err != nil {
		return nil, fmt.Errorf("get blob: %w", err)
	}

	stream, err := b.OpenDownloadStream(oid)
	if err != nil {
		return nil, classify("get blob", err)
	}

	file := stream.GetFile()
	var meta model.BlobMetadata
	if len(file.Metadata) > 0 {
		if err := bson.Unmarshal(file.Metadata, &meta); err != nil {
			s.logger.Warn("Некорректный sidecar blob-а",
				slog.String("blob_id", blobID),
				slog.String("error", err.Error()),
			)
		}
	}

	return &model.Blob{
		Reader:      newDeadlineReader(stream, s.cfg.OperationTimeout),
		Size:        file.Length,
		ContentType: meta.ContentType,
	}, nil
}

// Delete удаляет blob вместе с его чанками.
func (s *BlobStore) Delete(ctx context.Context, blobID string) error {
	oid, err := parseBlobID(blobID)
	if err != nil {
		return err
	}

	b, err := s.bucket(ctx)
	if err != nil {
		return classify("delete blob", err)
	}
	if err := b.SetWriteDeadline(s.deadline(ctx)); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}

	if err := b.Delete(oid); err != nil {
		return classify("delete blob", err)
	}

	s.logger.Debug("Blob удалён", slog.String("blob_id", blobID))
	return nil
}

// Exists проверяет наличие blob-а без чтения содержимого.
func (s *BlobStore) Exists(ctx context.Context, blobID string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(blobID)
	if err != nil {
		return false, nil
	}

	db, err := s.conn.Database(ctx)
	if err != nil {
		return false, classify("exists blob", err)
	}

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	n, err := db.Collection(s.cfg.Bucket+".files").CountDocuments(opCtx,
		bson.D{{Key: "_id", Value: oid}},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, classify("exists blob", err)
	}
	return n > 0, nil
}

// readDeadliner — поток чтения с настраиваемым deadline (gridfs.DownloadStream).
type readDeadliner interface {
	io.ReadCloser
	SetReadDeadline(t time.Time) error
}

// deadlineReader продлевает deadline потока перед каждым чтением чанка.
type deadlineReader struct {
	stream  readDeadliner
	timeout time.Duration
	now     func() time.Time
}

func newDeadlineReader(stream readDeadliner, timeout time.Duration) *deadlineReader {
	return &deadlineReader{stream: stream, timeout: timeout, now: time.Now}
}

func (r *deadlineReader) Read(p []byte) (int, error) {
	if err := r.stream.SetReadDeadline(r.now().Add(r.timeout)); err != nil {
		return 0, fmt.Errorf("продление deadline чтения blob-а: %w", err)
	}
	return r.stream.Read(p)
}

func (r *deadlineReader) Close() error {
	return r.stream.Close()
}

// parseBlobID разбирает идентификатор. Некорректный идентификатор
// не может ссылаться на существующий blob, поэтому это ErrNotFound.
func parseBlobID(blobID string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(blobID)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("blob %q: %w", blobID, model.ErrNotFound)
	}
	return oid, nil
}

// countingReader считает байты, прочитанные из исходного потока.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
