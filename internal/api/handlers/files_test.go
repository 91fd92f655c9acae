package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/goartstore/document-store/internal/api/errors"
	"github.com/bigkaa/goartstore/document-store/internal/api/routes"
	"github.com/bigkaa/goartstore/document-store/internal/config"
	"github.com/bigkaa/goartstore/document-store/internal/domain/model"
	"github.com/bigkaa/goartstore/document-store/internal/service"
)

const testFileID = "8f14e45f-ceea-467f-a0e6-1b0e3c3e5a10"

// --- Мок сервиса ---

type mockFileService struct {
	uploadFn         func(ctx context.Context, params service.UploadParams) (*model.FileRecord, error)
	uploadMultipleFn func(ctx context.Context, items []service.UploadParams) (*service.MultiUploadResult, error)
	getFn            func(ctx context.Context, id string) (*model.FileRecord, error)
	openFn           func(ctx context.Context, id string) (*model.FileRecord, *model.Blob, error)
	deleteFn         func(ctx context.Context, id string) error
	listFn           func(ctx context.Context, category *model.Category) ([]*model.FileRecord, error)
}

func (m *mockFileService) Upload(ctx context.Context, params service.UploadParams) (*model.FileRecord, error) {
	return m.uploadFn(ctx, params)
}

func (m *mockFileService) UploadMultiple(ctx context.Context, items []service.UploadParams) (*service.MultiUploadResult, error) {
	return m.uploadMultipleFn(ctx, items)
}

func (m *mockFileService) Get(ctx context.Context, id string) (*model.FileRecord, error) {
	return m.getFn(ctx, id)
}

func (m *mockFileService) Open(ctx context.Context, id string) (*model.FileRecord, *model.Blob, error) {
	return m.openFn(ctx, id)
}

func (m *mockFileService) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func (m *mockFileService) List(ctx context.Context, category *model.Category) ([]*model.FileRecord, error) {
	return m.listFn(ctx, category)
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error {
	return m.err
}

// --- Хелперы ---

func testConfig() *config.Config {
	return &config.Config{
		Env:               config.EnvDevelopment,
		MaxFileSize:       1024,
		MaxFilesPerUpload: 3,
	}
}

// newTestRouter собирает маршруты так же, как main.
func newTestRouter(t *testing.T, cfg *config.Config, svc FileService, db Pinger) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	errWriter := apierrors.NewWriter(cfg.IsProduction())
	files := NewFilesHandler(cfg, svc, errWriter, logger)
	openapi := &OpenAPIHandler{body: []byte(`{"openapi":"3.0.3"}`)}
	h := NewAPIHandler(files, NewHealthHandler(db), openapi)

	return routes.HandlerWithOptions(h, chi.NewRouter(), routes.Options{ErrorHandlerFunc: h.HandleParamError})
}

func sampleRecord(name string) *model.FileRecord {
	return &model.FileRecord{
		ID:           testFileID,
		OriginalName: name,
		MimeType:     "application/pdf",
		Size:         1536,
		Category:     model.CategoryPassport,
		Description:  "скан паспорта",
		BlobID:       "65f0c0ffee0000000000abcd",
		UploadDate:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

type formFile struct {
	field, name, contentType, content string
}

// multipartBody формирует multipart-запрос с файлами и полями.
func multipartBody(t *testing.T, files []formFile, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.field, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("CreatePart: %v", err)
		}
		_, _ = part.Write([]byte(f.content))
	}
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("multipart close: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("тело ответа не JSON: %v", err)
	}
	return body
}

// --- Upload ---

func TestUploadFile_Success(t *testing.T) {
	var got service.UploadParams
	var gotContent string
	svc := &mockFileService{
		uploadFn: func(_ context.Context, p service.UploadParams) (*model.FileRecord, error) {
			got = p
			data, _ := io.ReadAll(p.Reader)
			gotContent = string(data)
			return sampleRecord(p.OriginalFilename), nil
		},
	}
	router := newTestRouter(t, testConfig(), svc, nil)

	body, ct := multipartBody(t,
		[]formFile{{"file", "паспорт.pdf", "application/pdf", "%PDF-1.4"}},
		map[string]string{"category": "passport", "description": "скан паспорта"},
	)
	req := httptest.NewRequest(http.MethodPost, "/files/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("статус = %d, ожидался 201: %s", rec.Code, rec.Body.String())
	}
	if got.OriginalFilename != "паспорт.pdf" || got.ContentType != "application/pdf" ||
		got.Category != "passport" || got.Description != "скан паспорта" {
		t.Errorf("параметры загрузки: %+v", got)
	}
	if gotContent != "%PDF-1.4" {
		t.Errorf("содержимое = %q", gotContent)
	}

	resp := decodeJSON(t, rec)
	if resp["success"] != true {
		t.Errorf("success = %v", resp["success"])
	}
	data := resp["data"].(map[string]any)
	if data["sizeFormatted"] != "1.5 KB" {
		t.Errorf("sizeFormatted = %v", data["sizeFormatted"])
	}
	if _, ok := data["blobId"]; ok {
		t.Error("blobId не должен отдаваться клиенту")
	}
}

func TestUploadFile_BadRequests(t *testing.T) {
	svc := &mockFileService{
		uploadFn: func(context.Context, service.UploadParams) (*model.FileRecord, error) {
			t.Error("сервис не должен вызываться")
			return nil, nil
		},
	}
	router := newTestRouter(t, testConfig(), svc, nil)

	t.Run("без поля file", func(t *testing.T) {
		body, ct := multipartBody(t, nil, map[string]string{"category": "passport"})
		req := httptest.NewRequest(http.MethodPost, "/files/upload", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("статус = %d, ожидался 400", rec.Code)
		}
	})

	t.Run("не multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/files/upload", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("статус = %d, ожидался 400", rec.Code)
		}
	})

	t.Run("превышен размер запроса", func(t *testing.T) {
		big := strings.Repeat("x", 2<<20)
		body, ct := multipartBody(t, []formFile{{"file", "big.txt", "text/plain", big}}, nil)
		req := httptest.NewRequest(http.MethodPost, "/files/upload", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("статус = %d, ожидался 400", rec.Code)
		}
		resp := decodeJSON(t, rec)
		if resp["code"] != apierrors.CodeValidationError {
			t.Errorf("code = %v", resp["code"])
		}
	})
}

func TestUploadFile_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"недопустимый тип", model.NewValidationError("mimeType", "тип файла application/x-executable не поддерживается"), http.StatusBadRequest},
		{"хранилище недоступно", fmt.Errorf("put blob: %w", model.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{"прочая ошибка", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockFileService{
				uploadFn: func(context.Context, service.UploadParams) (*model.FileRecord, error) {
					return nil, tt.err
				},
			}
			router := newTestRouter(t, testConfig(), svc, nil)

			body, ct := multipartBody(t, []formFile{{"file", "a.exe", "application/x-executable", "MZ"}}, nil)
			req := httptest.NewRequest(http.MethodPost, "/files/upload", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("статус = %d, ожидался %d", rec.Code, tt.status)
			}
			if resp := decodeJSON(t, rec); resp["success"] != false {
				t.Errorf("success = %v", resp["success"])
			}
		})
	}
}

// --- Upload multiple ---

func TestUploadMultipleFiles_PartialSuccess(t *testing.T) {
	var gotItems int
	svc := &mockFileService{
		uploadMultipleFn: func(_ context.Context, items []service.UploadParams) (*service.MultiUploadResult, error) {
			gotItems = len(items)
			for _, it := range items {
				if it.Category != "utility_bill" {
					t.Errorf("категория формы не передана файлу %s", it.OriginalFilename)
				}
			}
			return &service.MultiUploadResult{
				Uploaded: []*model.FileRecord{sampleRecord("1.pdf"), sampleRecord("2.pdf")},
				Failed: []service.UploadFailure{{
					Filename: "3.exe",
					Error:    "тип не поддерживается",
					Err:      model.NewValidationError("mimeType", "тип не поддерживается"),
				}},
			}, nil
		},
	}
	router := newTestRouter(t, testConfig(), svc, nil)

	body, ct := multipartBody(t, []formFile{
		{"files", "1.pdf", "application/pdf", "1"},
		{"files", "2.pdf", "application/pdf", "2"},
		{"files", "3.exe", "application/x-executable", "3"},
	}, map[string]string{"category": "utility_bill"})
	req := httptest.NewRequest(http.MethodPost, "/files/upload-multiple", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("статус = %d, ожидался 201: %s", rec.Code, rec.Body.String())
	}
	if gotItems != 3 {
		t.Errorf("сервису передано %d файлов, ожидалось 3", gotItems)
	}

	resp := decodeJSON(t, rec)
	data := resp["data"].(map[string]any)
	if n := len(data["uploaded"].([]any)); n != 2 {
		t.Errorf("uploaded = %d, ожидалось 2", n)
	}
	errs := data["errors"].([]any)
	if len(errs) != 1 {
		t.Fatalf("errors = %d, ожидалось 1", len(errs))
	}
	if e := errs[0].(map[string]any); e["filename"] != "3.exe" || e["error"] == "" {
		t.Errorf("ошибка файла: %v", e)
	}
}

func TestUploadMultipleFiles_Limits(t *testing.T) {
	svc := &mockFileService{
		uploadMultipleFn: func(context.Context, []service.UploadParams) (*service.MultiUploadResult, error) {
			t.Error("сервис не должен вызываться")
			return nil, nil
		},
	}
	router := newTestRouter(t, testConfig(), svc, nil)

	tests := []struct {
		name  string
		files int
	}{
		{"нет файлов", 0},
		{"больше лимита", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := make([]formFile, tt.files)
			for i := range files {
				files[i] = formFile{"files", fmt.Sprintf("%d.txt", i), "text/plain", "x"}
			}
			body, ct := multipartBody(t, files, map[string]string{"category": "other"})
			req := httptest.NewRequest(http.MethodPost, "/files/upload-multiple", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("статус = %d, ожидался 400", rec.Code)
			}
		})
	}
}

// TestUploadMultipleFiles_ProductionHidesItemDetail проверяет скрытие деталей ошибок файлов.
func TestUploadMultipleFiles_ProductionHidesItemDetail(t *testing.T) {
	cfg := testConfig()
	cfg.Env = config.EnvProduction

	svc := &mockFileService{
		uploadMultipleFn: func(context.Context, []service.UploadParams) (*service.MultiUploadResult, error) {
			return &service.MultiUploadResult{
				Uploaded: []*model.FileRecord{},
				Failed: []service.UploadFailure{{
					Filename: "a.pdf",
					Error:    "put blob: connection refused 10.0.0.5:27017",
					Err:      fmt.Errorf("put blob: connection refused 10.0.0.5:27017: %w", model.ErrStoreUnavailable),
				}},
			}, nil
		},
	}
	router := newTestRouter(t, cfg, svc, nil)

	body, ct := multipartBody(t, []formFile{{"files", "a.pdf", "application/pdf", "x"}}, nil)
	req := httptest.NewRequest(http.MethodPost, "/files/upload-multiple", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if strings.Contains(rec.Body.String(), "10.0.0.5") {
		t.Errorf("в production детали ошибки не должны отдаваться: %s", rec.Body.String())
	}
}

// --- List ---

func TestListFiles(t *testing.T) {
	svc := &mockFileService{
		listFn: func(_ context.Context, category *model.Category) ([]*model.FileRecord, error) {
			if category != nil {
				t.Errorf("ожидался список без фильтра, получена категория %s", *category)
			}
			return []*model.FileRecord{sampleRecord("a.pdf"), sampleRecord("b.pdf")}, nil
		},
	}
	router := newTestRouter(t, testConfig(), svc, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d", rec.Code)
	}
	resp := decodeJSON(t, rec)
	if resp["count"] != float64(2) || len(resp["data"].([]any)) != 2 {
		t.Errorf("count = %v, data = %v", resp["count"], resp["data"])
	}
}

func TestListFilesByCategory(t *testing.T) {
	var called bool
	svc := &mockFileService{
		listFn: func(_ context.Context, category *model.Category) ([]*model.FileRecord, error) {
			called = true
			if category == nil || *category != model.CategoryUtilityBill {
				t.Errorf("категория = %v, ожидалась utility_bill", category)
			}
			return []*model.FileRecord{}, nil
		},
	}
	router := newTestRouter(t, testConfig(), svc, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/category/utility_bill", nil))
	if rec.Code != http.StatusOK || !called {
		t.Fatalf("статус = %d, вызов сервиса = %v", rec.Code, called)
	}

	// Неизвестная категория — пустой список без обращения к хранилищу
	called = false
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/category/selfie", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидался 200", rec.Code)
	}
	if called {
		t.Error("для неизвестной категории сервис не должен вызываться")
	}
	resp := decodeJSON(t, rec)
	if resp["count"] != float64(0) {
		t.Errorf("count = %v, ожидался 0", resp["count"])
	}
	if data, ok := resp["data"].([]any); !ok || len(data) != 0 {
		t.Errorf("data = %v, ожидался пустой массив", resp["data"])
	}
}

func TestListFiles_StoreUnavailable(t *testing.T) {
	svc := &mockFileService{
		listFn: func(context.Context, *model.Category) ([]*model.FileRecord, error) {
			return nil, model.ErrStoreUnavailable
		},
	}
	router := newTestRouter(t, testConfig(), svc, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("статус = %d, ожидался 503", rec.Code)
	}
}

// --- Get / Delete ---

func TestGetFile(t *testing.T) {
	svc := &mockFileService{
		getFn: func(_ context.Context, id string) (*model.FileRecord, error) {
			if id != testFileID {
				return nil, model.ErrNotFound
			}
			return sampleRecord("a.pdf"), nil
		},
	}
	router := newTestRouter(t, testConfig(), svc, nil)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"найден", "/files/" + testFileID, http.StatusOK},
		{"не найден", "/files/00000000-0000-4000-8000-000000000000", http.StatusNotFound},
		{"некорректный id", "/files/not-a-uuid", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.status {
				t.Errorf("статус = %d, ожидался %d", rec.Code, tt.status)
			}
		})
	}
}

func TestDeleteFile(t *testing.T) {
	deleted := map[string]bool{}
	svc := &mockFileService{
		deleteFn: func(_ context.Context, id string) error {
			if deleted[id] {
				return model.ErrNotFound
			}
			deleted[id] = true
			return nil
		},
	}
	router := newTestRouter(t, testConfig(), svc, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/files/"+testFileID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидался 200", rec.Code)
	}
	if resp := decodeJSON(t, rec); resp["success"] != true {
		t.Errorf("success = %v", resp["success"])
	}

	// Повторное удаление — 404
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/files/"+testFileID, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("повторное удаление: статус = %d, ожидался 404", rec.Code)
	}
}

// --- Download / View ---

func TestDownloadAndView(t *testing.T) {
	content := []byte("%PDF-1.4 содержимое")
	svc := &mockFileService{
		openFn: func(_ context.Context, id string) (*model.FileRecord, *model.Blob, error) {
			if id != testFileID {
				return nil, nil, model.ErrNotFound
			}
			rec := sampleRecord("паспорт РФ.pdf")
			return rec, &model.Blob{
				Reader: io.NopCloser(bytes.NewReader(content)),
				Size:   int64(len(content)),
			}, nil
		},
	}
	router := newTestRouter(t, testConfig(), svc, nil)

	tests := []struct {
		path        string
		disposition string
	}{
		{"/files/" + testFileID + "/download", "attachment"},
		{"/files/" + testFileID + "/view", "inline"},
	}
	for _, tt := range tests {
		t.Run(tt.disposition, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("статус = %d", rec.Code)
			}
			if !bytes.Equal(rec.Body.Bytes(), content) {
				t.Error("содержимое ответа не совпадает с загруженным")
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
				t.Errorf("Content-Type = %q", ct)
			}
			if cl := rec.Header().Get("Content-Length"); cl != fmt.Sprint(len(content)) {
				t.Errorf("Content-Length = %q", cl)
			}
			cd := rec.Header().Get("Content-Disposition")
			if !strings.HasPrefix(cd, tt.disposition+`; filename="`) {
				t.Errorf("Content-Disposition = %q", cd)
			}
			if !strings.Contains(cd, "%D0%BF%D0%B0%D1%81%D0%BF%D0%BE%D1%80%D1%82%20%D0%A0%D0%A4.pdf") {
				t.Errorf("имя файла должно быть URL-кодировано: %q", cd)
			}
		})
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/00000000-0000-4000-8000-000000000000/download", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("несуществующий файл: статус = %d, ожидался 404", rec.Code)
	}
}

// --- Health / OpenAPI ---

func TestGetHealth(t *testing.T) {
	tests := []struct {
		name     string
		db       Pinger
		database string
	}{
		{"подключено", &mockPinger{}, "connected"},
		{"недоступно", &mockPinger{err: model.ErrStoreUnavailable}, "disconnected"},
		{"без хранилища", nil, "disconnected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, testConfig(), &mockFileService{}, tt.db)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("статус = %d, ожидался 200", rec.Code)
			}
			resp := decodeJSON(t, rec)
			if resp["success"] != true || resp["status"] != "ok" {
				t.Errorf("ответ: %v", resp)
			}
			if resp["database"] != tt.database {
				t.Errorf("database = %v, ожидалось %s", resp["database"], tt.database)
			}
		})
	}
}

func TestGetOpenAPI(t *testing.T) {
	router := newTestRouter(t, testConfig(), &mockFileService{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d", rec.Code)
	}
	if resp := decodeJSON(t, rec); resp["openapi"] != "3.0.3" {
		t.Errorf("openapi = %v", resp["openapi"])
	}
}

func TestContentDisposition(t *testing.T) {
	got := contentDisposition("attachment", `a "b".pdf`)
	want := `attachment; filename="a%20%22b%22.pdf"; filename*=UTF-8''a%20%22b%22.pdf`
	if got != want {
		t.Errorf("contentDisposition = %q, ожидалось %q", got, want)
	}
}
