// Пакет service — бизнес-логика Document Store.
// files.go — оркестратор загрузки, чтения и удаления документов поверх двух
// независимых хранилищ: blob-хранилища содержимого и репозитория метаданных.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/goartstore/document-store/internal/api/middleware"
	"github.com/bigkaa/goartstore/document-store/internal/config"
	"github.com/bigkaa/goartstore/document-store/internal/domain/model"
)

// compensationTimeout — ограничение на компенсирующее удаление blob-а.
const compensationTimeout = 30 * time.Second

// BlobStore — хранилище содержимого файлов.
type BlobStore interface {
	Put(ctx context.Context, r io.Reader, filename string, meta model.BlobMetadata) (string, int64, error)
	Get(ctx context.Context, blobID string) (*model.Blob, error)
	Delete(ctx context.Context, blobID string) error
}

// FileRepository — хранилище метаданных файлов.
type FileRepository interface {
	Create(ctx context.Context, rec *model.FileRecord) (*model.FileRecord, error)
	FindByID(ctx context.Context, id string) (*model.FileRecord, error)
	FindAll(ctx context.Context, filter model.ListFilter) ([]*model.FileRecord, error)
	DeleteByID(ctx context.Context, id string) error
}

// UploadParams — параметры загрузки одного файла.
type UploadParams struct {
	// Reader — поток данных файла
	Reader io.Reader
	// OriginalFilename — оригинальное имя файла
	OriginalFilename string
	// ContentType — MIME-тип из заголовка multipart part
	ContentType string
	// Size — заявленный размер (из multipart header), 0 если неизвестен
	Size int64
	// Category — категория в виде строки; неизвестное значение даёт other
	Category string
	// Description — описание файла (опционально)
	Description string
}

// UploadFailure — ошибка загрузки одного файла в пакетной загрузке.
type UploadFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
	// Err — исходная ошибка, наружу не сериализуется
	Err error `json:"-"`
}

// MultiUploadResult — результат пакетной загрузки.
// Порядок элементов соответствует порядку файлов в запросе.
type MultiUploadResult struct {
	Uploaded []*model.FileRecord
	Failed   []UploadFailure
}

// FileService — оркестратор операций с документами.
type FileService struct {
	blobs       BlobStore
	repo        FileRepository
	maxFileSize int64
	maxFiles    int
	concurrency int
	logger      *slog.Logger
}

// NewFileService создаёт оркестратор.
func NewFileService(cfg *config.Config, blobs BlobStore, repo FileRepository, logger *slog.Logger) *FileService {
	concurrency := cfg.UploadConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &FileService{
		blobs:       blobs,
		repo:        repo,
		maxFileSize: cfg.MaxFileSize,
		maxFiles:    cfg.MaxFilesPerUpload,
		concurrency: concurrency,
		logger:      logger.With(slog.String("component", "file_service")),
	}
}

// Upload загружает один файл.
//
// Поток:
//  1. Проверка наличия данных, MIME-типа и размера
//  2. Валидация будущей записи метаданных
//  3. Запись blob-а
//  4. Создание записи метаданных со ссылкой на blob
//
// Ошибки валидации возвращаются до любой записи в хранилища.
// Если шаг 4 не удался, blob удаляется компенсирующим вызовом (best effort).
func (s *FileService) Upload(ctx context.Context, params UploadParams) (*model.FileRecord, error) {
	// 1. Проверяем входные данные
	if params.Reader == nil {
		s.countOperation("upload", "validation_error")
		return nil, model.NewValidationError("file", "файл не передан")
	}

	mimeType := model.NormalizeMimeType(params.ContentType)
	if !model.IsAllowedMimeType(mimeType) {
		s.countOperation("upload", "validation_error")
		return nil, model.NewValidationError("mimeType",
			fmt.Sprintf("тип файла %s не поддерживается", mimeType))
	}

	if params.Size > s.maxFileSize {
		s.countOperation("upload", "validation_error")
		return nil, model.NewValidationError("size",
			fmt.Sprintf("размер файла %d байт превышает максимум %d байт", params.Size, s.maxFileSize))
	}

	// 2. Валидируем запись до записи содержимого
	rec := &model.FileRecord{
		OriginalName: params.OriginalFilename,
		MimeType:     mimeType,
		Size:         params.Size,
		Category:     model.ParseCategory(params.Category),
		Description:  params.Description,
	}
	if err := rec.Validate(); err != nil {
		s.countOperation("upload", "validation_error")
		return nil, err
	}

	// 3. Записываем содержимое. Поток ограничен maxFileSize+1 байтом,
	// чтобы обнаружить превышение при неизвестном заранее размере.
	limited := io.LimitReader(params.Reader, s.maxFileSize+1)
	blobID, written, err := s.blobs.Put(ctx, limited, rec.OriginalName, model.BlobMetadata{
		ContentType: rec.MimeType,
		Category:    rec.Category,
		Description: rec.Description,
	})
	if err != nil {
		s.countOperation("upload", resultOf(err))
		s.logger.Error("Ошибка записи содержимого файла",
			slog.String("filename", rec.OriginalName),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	if written > s.maxFileSize {
		if err := s.removeBlob(ctx, blobID); err != nil {
			s.reportOrphan(blobID, rec.OriginalName, err)
		}
		s.countOperation("upload", "validation_error")
		return nil, model.NewValidationError("size",
			fmt.Sprintf("размер файла превышает максимум %d байт", s.maxFileSize))
	}

	// Фактический размер — источник истины
	rec.Size = written
	rec.BlobID = blobID

	// 4. Создаём запись метаданных
	created, err := s.repo.Create(ctx, rec)
	if err != nil {
		s.logger.Error("Ошибка создания записи метаданных",
			slog.String("filename", rec.OriginalName),
			slog.String("blob_id", blobID),
			slog.String("error", err.Error()),
		)
		s.compensate(ctx, blobID, rec.OriginalName)
		s.countOperation("upload", resultOf(err))
		return nil, err
	}

	s.countOperation("upload", "success")
	middleware.UploadedBytesTotal.Add(float64(created.Size))

	s.logger.Info("Файл загружен",
		slog.String("file_id", created.ID),
		slog.String("filename", created.OriginalName),
		slog.String("category", string(created.Category)),
		slog.Int64("size", created.Size),
	)

	return created, nil
}

// compensate удаляет blob, для которого не удалось создать запись метаданных.
func (s *FileService) compensate(ctx context.Context, blobID, filename string) {
	if err := s.removeBlob(ctx, blobID); err != nil {
		s.reportOrphan(blobID, filename, err)
		return
	}

	middleware.ConsistencyGapsTotal.WithLabelValues("orphan_blob_compensated").Inc()
	s.logger.Warn("Blob без записи метаданных удалён",
		slog.String("gap", "orphan_blob_compensated"),
		slog.String("blob_id", blobID),
		slog.String("filename", filename),
	)
}

// removeBlob удаляет blob вне отмены контекста запроса: клиент мог уже отключиться.
// Отсутствующий blob не считается ошибкой.
func (s *FileService) removeBlob(ctx context.Context, blobID string) error {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if err := s.blobs.Delete(cctx, blobID); err != nil && !errors.Is(err, model.ErrNotFound) {
		return err
	}
	return nil
}

// reportOrphan фиксирует blob, оставшийся без записи метаданных.
func (s *FileService) reportOrphan(blobID, filename string, err error) {
	middleware.ConsistencyGapsTotal.WithLabelValues("orphan_blob").Inc()
	s.logger.Error("Blob остался без записи метаданных",
		slog.String("gap", "orphan_blob"),
		slog.String("blob_id", blobID),
		slog.String("filename", filename),
		slog.String("error", err.Error()),
	)
}

// UploadMultiple загружает несколько файлов независимо друг от друга.
// Ошибка одного файла не прерывает остальные. Не более concurrency
// файлов загружается одновременно.
func (s *FileService) UploadMultiple(ctx context.Context, items []UploadParams) (*MultiUploadResult, error) {
	if len(items) == 0 {
		return nil, model.NewValidationError("files", "файлы не переданы")
	}
	if len(items) > s.maxFiles {
		return nil, model.NewValidationError("files",
			fmt.Sprintf("за один запрос можно загрузить не более %d файлов", s.maxFiles))
	}

	records := make([]*model.FileRecord, len(items))
	errs := make([]error, len(items))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range items {
		i := i
		g.Go(func() error {
			records[i], errs[i] = s.Upload(ctx, items[i])
			return nil
		})
	}
	_ = g.Wait()

	result := &MultiUploadResult{
		Uploaded: make([]*model.FileRecord, 0, len(items)),
		Failed:   make([]UploadFailure, 0),
	}
	for i, err := range errs {
		if err != nil {
			result.Failed = append(result.Failed, UploadFailure{
				Filename: items[i].OriginalFilename,
				Error:    err.Error(),
				Err:      err,
			})
			continue
		}
		result.Uploaded = append(result.Uploaded, records[i])
	}

	s.logger.Info("Пакетная загрузка завершена",
		slog.Int("total", len(items)),
		slog.Int("uploaded", len(result.Uploaded)),
		slog.Int("failed", len(result.Failed)),
	)

	return result, nil
}

// Get возвращает запись метаданных по ID.
func (s *FileService) Get(ctx context.Context, id string) (*model.FileRecord, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.countOperation("get", resultOf(err))
		return nil, err
	}
	s.countOperation("get", "success")
	return rec, nil
}

// Open возвращает запись и открытый поток содержимого.
// Вызывающий обязан закрыть blob.Reader.
func (s *FileService) Open(ctx context.Context, id string) (*model.FileRecord, *model.Blob, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.countOperation("download", resultOf(err))
		return nil, nil, err
	}

	blob, err := s.blobs.Get(ctx, rec.BlobID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			middleware.ConsistencyGapsTotal.WithLabelValues("dangling_record").Inc()
			s.logger.Error("Запись метаданных ссылается на отсутствующий blob",
				slog.String("gap", "dangling_record"),
				slog.String("file_id", rec.ID),
				slog.String("blob_id", rec.BlobID),
			)
		}
		s.countOperation("download", resultOf(err))
		return nil, nil, err
	}

	s.countOperation("download", "success")
	return rec, blob, nil
}

// Delete удаляет документ.
//
// Поток:
//  1. Поиск записи метаданных
//  2. Удаление blob-а (отсутствующий blob не считается ошибкой)
//  3. Удаление записи метаданных
//
// Успех возвращается только если запись метаданных действительно удалена.
func (s *FileService) Delete(ctx context.Context, id string) error {
	// 1. Ищем запись
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.countOperation("delete", resultOf(err))
		return err
	}

	// 2. Удаляем содержимое
	if err := s.blobs.Delete(ctx, rec.BlobID); err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			s.countOperation("delete", resultOf(err))
			s.logger.Error("Ошибка удаления содержимого файла",
				slog.String("file_id", rec.ID),
				slog.String("blob_id", rec.BlobID),
				slog.String("error", err.Error()),
			)
			return err
		}
		middleware.ConsistencyGapsTotal.WithLabelValues("missing_blob_on_delete").Inc()
		s.logger.Warn("Blob удаляемого файла уже отсутствует",
			slog.String("gap", "missing_blob_on_delete"),
			slog.String("file_id", rec.ID),
			slog.String("blob_id", rec.BlobID),
		)
	}

	// 3. Удаляем запись
	if err := s.repo.DeleteByID(ctx, rec.ID); err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			middleware.ConsistencyGapsTotal.WithLabelValues("record_without_blob").Inc()
			s.logger.Error("Содержимое удалено, запись метаданных осталась",
				slog.String("gap", "record_without_blob"),
				slog.String("file_id", rec.ID),
				slog.String("blob_id", rec.BlobID),
				slog.String("error", err.Error()),
			)
		}
		s.countOperation("delete", resultOf(err))
		return err
	}

	s.countOperation("delete", "success")
	s.logger.Info("Файл удалён",
		slog.String("file_id", rec.ID),
		slog.String("filename", rec.OriginalName),
	)
	return nil
}

// List возвращает записи по убыванию даты загрузки.
// category == nil — все записи.
func (s *FileService) List(ctx context.Context, category *model.Category) ([]*model.FileRecord, error) {
	records, err := s.repo.FindAll(ctx, model.ListFilter{Category: category})
	if err != nil {
		s.countOperation("list", resultOf(err))
		return nil, err
	}
	s.countOperation("list", "success")
	return records, nil
}

func (s *FileService) countOperation(operation, result string) {
	middleware.OperationsTotal.WithLabelValues(operation, result).Inc()
}

// resultOf возвращает значение лейбла result для ошибки.
func resultOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, model.ErrValidation):
		return "validation_error"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrStoreUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
