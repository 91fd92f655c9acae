// files.go — HTTP handlers для файловых операций Document Store.
// Upload, Upload multiple, List, List by category, Get, Download, View, Delete.
package handlers

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bigkaa/goartstore/document-store/internal/api/errors"
	"github.com/bigkaa/goartstore/document-store/internal/api/routes"
	"github.com/bigkaa/goartstore/document-store/internal/config"
	"github.com/bigkaa/goartstore/document-store/internal/domain/model"
	"github.com/bigkaa/goartstore/document-store/internal/service"
)

// multipartOverhead — запас на заголовки частей и текстовые поля формы.
const multipartOverhead = 1 << 20

// multipartMemory — объём формы, который держится в памяти; остальное
// multipart сбрасывает во временные файлы.
const multipartMemory = 32 << 20

const fileNotFoundMessage = "Файл не найден"

// FileService — операции с документами, используемые HTTP-слоем.
type FileService interface {
	Upload(ctx context.Context, params service.UploadParams) (*model.FileRecord, error)
	UploadMultiple(ctx context.Context, items []service.UploadParams) (*service.MultiUploadResult, error)
	Get(ctx context.Context, id string) (*model.FileRecord, error)
	Open(ctx context.Context, id string) (*model.FileRecord, *model.Blob, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, category *model.Category) ([]*model.FileRecord, error)
}

// FilesHandler — обработчик файловых endpoints.
type FilesHandler struct {
	svc         FileService
	errs        *errors.Writer
	maxFileSize int64
	maxFiles    int
	production  bool
	logger      *slog.Logger
}

// NewFilesHandler создаёт обработчик файловых endpoints.
func NewFilesHandler(cfg *config.Config, svc FileService, errs *errors.Writer, logger *slog.Logger) *FilesHandler {
	return &FilesHandler{
		svc:         svc,
		errs:        errs,
		maxFileSize: cfg.MaxFileSize,
		maxFiles:    cfg.MaxFilesPerUpload,
		production:  cfg.IsProduction(),
		logger:      logger.With(slog.String("component", "files_handler")),
	}
}

// successResponse — стандартный успешный ответ.
type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// multiUploadData — тело data ответа пакетной загрузки.
type multiUploadData struct {
	Uploaded []model.FileView       `json:"uploaded"`
	Errors   []service.UploadFailure `json:"errors"`
}

// UploadFile обрабатывает POST /files/upload.
// Multipart form: file (обязательно), category, description (опционально).
func (h *FilesHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.errs.ValidationError(w, multipartError(err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errs.ValidationError(w, model.NewValidationError("file", "поле 'file' обязательно"))
		return
	}
	defer file.Close()

	created, err := h.svc.Upload(r.Context(), uploadParams(file, header, r))
	if err != nil {
		h.errs.FromError(w, err, fileNotFoundMessage)
		return
	}

	writeJSON(w, http.StatusCreated, successResponse{
		Success: true,
		Message: "Файл загружен",
		Data:    created.View(),
	})
}

// UploadMultipleFiles обрабатывает POST /files/upload-multiple.
// Multipart form: files (1..maxFiles), category и description применяются ко всем файлам.
func (h *FilesHandler) UploadMultipleFiles(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize*int64(h.maxFiles)+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.errs.ValidationError(w, multipartError(err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		h.errs.ValidationError(w, model.NewValidationError("files", "поле 'files' обязательно"))
		return
	}
	if len(headers) > h.maxFiles {
		h.errs.ValidationError(w, model.NewValidationError("files",
			fmt.Sprintf("за один запрос можно загрузить не более %d файлов", h.maxFiles)))
		return
	}

	items := make([]service.UploadParams, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			h.errs.InternalError(w, "Ошибка чтения multipart", err)
			return
		}
		defer f.Close()
		items = append(items, uploadParams(f, fh, r))
	}

	result, err := h.svc.UploadMultiple(r.Context(), items)
	if err != nil {
		h.errs.FromError(w, err, fileNotFoundMessage)
		return
	}

	data := multiUploadData{
		Uploaded: views(result.Uploaded),
		Errors:   make([]service.UploadFailure, 0, len(result.Failed)),
	}
	for _, f := range result.Failed {
		data.Errors = append(data.Errors, service.UploadFailure{
			Filename: f.Filename,
			Error:    h.itemErrorMessage(f.Err),
		})
	}

	writeJSON(w, http.StatusCreated, successResponse{
		Success: true,
		Message: fmt.Sprintf("Загружено файлов: %d из %d", len(data.Uploaded), len(items)),
		Data:    data,
	})
}

// ListFiles обрабатывает GET /files.
func (h *FilesHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, nil)
}

// ListFilesByCategory обрабатывает GET /files/category/{category}.
// Неизвестная категория даёт пустой список, а не ошибку.
func (h *FilesHandler) ListFilesByCategory(w http.ResponseWriter, r *http.Request, category string) {
	c := model.Category(strings.ToLower(strings.TrimSpace(category)))
	if !c.IsValid() {
		writeList(w, nil)
		return
	}
	h.list(w, r, &c)
}

func (h *FilesHandler) list(w http.ResponseWriter, r *http.Request, category *model.Category) {
	records, err := h.svc.List(r.Context(), category)
	if err != nil {
		h.errs.FromError(w, err, fileNotFoundMessage)
		return
	}
	writeList(w, records)
}

// GetFile обрабатывает GET /files/{id}.
func (h *FilesHandler) GetFile(w http.ResponseWriter, r *http.Request, id routes.FileId) {
	rec, err := h.svc.Get(r.Context(), id.String())
	if err != nil {
		h.errs.FromError(w, err, fileNotFoundMessage)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Data: rec.View()})
}

// DownloadFile обрабатывает GET /files/{id}/download (Content-Disposition: attachment).
func (h *FilesHandler) DownloadFile(w http.ResponseWriter, r *http.Request, id routes.FileId) {
	h.serveContent(w, r, id, "attachment")
}

// ViewFile обрабатывает GET /files/{id}/view (Content-Disposition: inline).
func (h *FilesHandler) ViewFile(w http.ResponseWriter, r *http.Request, id routes.FileId) {
	h.serveContent(w, r, id, "inline")
}

// serveContent отдаёт содержимое файла потоком из blob-хранилища.
func (h *FilesHandler) serveContent(w http.ResponseWriter, r *http.Request, id routes.FileId, disposition string) {
	rec, blob, err := h.svc.Open(r.Context(), id.String())
	if err != nil {
		h.errs.FromError(w, err, fileNotFoundMessage)
		return
	}
	defer blob.Reader.Close()

	contentType := rec.MimeType
	if contentType == "" {
		contentType = blob.ContentType
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(blob.Size, 10))
	w.Header().Set("Content-Disposition", contentDisposition(disposition, rec.OriginalName))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	// Заголовки уже отправлены: ошибку чтения можно только залогировать
	if n, err := io.Copy(w, blob.Reader); err != nil {
		h.logger.Warn("Передача содержимого файла прервана",
			slog.String("file_id", rec.ID),
			slog.Int64("sent", n),
			slog.Int64("size", blob.Size),
			slog.String("error", err.Error()),
		)
	}
}

// DeleteFile обрабатывает DELETE /files/{id}.
func (h *FilesHandler) DeleteFile(w http.ResponseWriter, r *http.Request, id routes.FileId) {
	if err := h.svc.Delete(r.Context(), id.String()); err != nil {
		h.errs.FromError(w, err, fileNotFoundMessage)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Файл удалён"})
}

// HandleParamError обрабатывает ошибки разбора path-параметров.
// Некорректный id не может принадлежать ни одному файлу, поэтому это 404.
func (h *FilesHandler) HandleParamError(w http.ResponseWriter, _ *http.Request, err error) {
	var perr *routes.InvalidParamFormatError
	if stderrors.As(err, &perr) && perr.ParamName == "id" {
		h.errs.NotFound(w, fileNotFoundMessage, err)
		return
	}
	h.errs.ValidationError(w, model.NewValidationError("path", err.Error()))
}

// itemErrorMessage — текст ошибки одного файла в пакетной загрузке.
// В production технические детали заменяются общим сообщением.
func (h *FilesHandler) itemErrorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case stderrors.Is(err, model.ErrValidation), !h.production:
		return err.Error()
	case stderrors.Is(err, model.ErrStoreUnavailable):
		return "хранилище временно недоступно"
	default:
		return "внутренняя ошибка сервера"
	}
}

// --- Вспомогательные функции ---

// uploadParams собирает параметры загрузки из части multipart и полей формы.
func uploadParams(f multipart.File, fh *multipart.FileHeader, r *http.Request) service.UploadParams {
	return service.UploadParams{
		Reader:           f,
		OriginalFilename: fh.Filename,
		ContentType:      fh.Header.Get("Content-Type"),
		Size:             fh.Size,
		Category:         r.FormValue("category"),
		Description:      r.FormValue("description"),
	}
}

// multipartError преобразует ошибку разбора формы в ошибку валидации.
func multipartError(err error) *model.ValidationError {
	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		return model.NewValidationError("size",
			fmt.Sprintf("размер запроса превышает %d байт", maxErr.Limit))
	}
	return model.NewValidationError("body", "ошибка разбора multipart: "+err.Error())
}

// contentDisposition формирует заголовок с URL-кодированным именем файла.
func contentDisposition(disposition, filename string) string {
	escaped := url.PathEscape(filename)
	return fmt.Sprintf(`%s; filename="%s"; filename*=UTF-8''%s`, disposition, escaped, escaped)
}

func views(records []*model.FileRecord) []model.FileView {
	out := make([]model.FileView, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.View())
	}
	return out
}

func writeList(w http.ResponseWriter, records []*model.FileRecord) {
	data := views(records)
	count := len(data)
	writeJSON(w, http.StatusOK, successResponse{Success: true, Count: &count, Data: data})
}
