// Пакет routes — привязка HTTP API Document Store к chi-роутеру.
// Маршруты и параметры соответствуют api/openapi.yaml; path-параметры
// разбираются через oapi-codegen runtime так же, как в chi-server обёртках.
package routes

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// FileId — идентификатор файла в пути.
type FileId = openapi_types.UUID //nolint:revive // имя из контракта

// ServerInterface — обработчики всех операций API.
type ServerInterface interface {
	// GET /health
	GetHealth(w http.ResponseWriter, r *http.Request)
	// GET /metrics
	GetMetrics(w http.ResponseWriter, r *http.Request)
	// GET /openapi.json
	GetOpenAPI(w http.ResponseWriter, r *http.Request)
	// GET /files
	ListFiles(w http.ResponseWriter, r *http.Request)
	// POST /files/upload
	UploadFile(w http.ResponseWriter, r *http.Request)
	// POST /files/upload-multiple
	UploadMultipleFiles(w http.ResponseWriter, r *http.Request)
	// GET /files/category/{category}
	ListFilesByCategory(w http.ResponseWriter, r *http.Request, category string)
	// GET /files/{id}
	GetFile(w http.ResponseWriter, r *http.Request, id FileId)
	// DELETE /files/{id}
	DeleteFile(w http.ResponseWriter, r *http.Request, id FileId)
	// GET /files/{id}/download
	DownloadFile(w http.ResponseWriter, r *http.Request, id FileId)
	// GET /files/{id}/view
	ViewFile(w http.ResponseWriter, r *http.Request, id FileId)
}

// InvalidParamFormatError — path-параметр не соответствует формату контракта.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("некорректный формат параметра %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// ErrorHandlerFunc обрабатывает ошибки разбора параметров.
type ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)

// Options — параметры привязки маршрутов.
type Options struct {
	// ErrorHandlerFunc — обработчик ошибок разбора параметров (по умолчанию 400 text/plain)
	ErrorHandlerFunc ErrorHandlerFunc
}

// serverInterfaceWrapper разбирает параметры и вызывает обработчик.
type serverInterfaceWrapper struct {
	handler          ServerInterface
	errorHandlerFunc ErrorHandlerFunc
}

// bindFileID разбирает {id} в UUID.
func (siw *serverInterfaceWrapper) bindFileID(w http.ResponseWriter, r *http.Request) (FileId, bool) {
	var id FileId
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "id", Err: err})
		return id, false
	}
	return id, true
}

func (siw *serverInterfaceWrapper) ListFilesByCategory(w http.ResponseWriter, r *http.Request) {
	var category string
	err := runtime.BindStyledParameterWithOptions("simple", "category", chi.URLParam(r, "category"), &category,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "category", Err: err})
		return
	}
	siw.handler.ListFilesByCategory(w, r, category)
}

func (siw *serverInterfaceWrapper) GetFile(w http.ResponseWriter, r *http.Request) {
	if id, ok := siw.bindFileID(w, r); ok {
		siw.handler.GetFile(w, r, id)
	}
}

func (siw *serverInterfaceWrapper) DeleteFile(w http.ResponseWriter, r *http.Request) {
	if id, ok := siw.bindFileID(w, r); ok {
		siw.handler.DeleteFile(w, r, id)
	}
}

func (siw *serverInterfaceWrapper) DownloadFile(w http.ResponseWriter, r *http.Request) {
	if id, ok := siw.bindFileID(w, r); ok {
		siw.handler.DownloadFile(w, r, id)
	}
}

func (siw *serverInterfaceWrapper) ViewFile(w http.ResponseWriter, r *http.Request) {
	if id, ok := siw.bindFileID(w, r); ok {
		siw.handler.ViewFile(w, r, id)
	}
}

// HandlerWithOptions регистрирует маршруты с заданными опциями.
func HandlerWithOptions(si ServerInterface, r chi.Router, options Options) http.Handler {
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}

	wrapper := &serverInterfaceWrapper{
		handler:          si,
		errorHandlerFunc: options.ErrorHandlerFunc,
	}

	r.Get("/health", si.GetHealth)
	r.Get("/metrics", si.GetMetrics)
	r.Get("/openapi.json", si.GetOpenAPI)

	r.Route("/files", func(r chi.Router) {
		r.Get("/", si.ListFiles)
		r.Post("/upload", si.UploadFile)
		r.Post("/upload-multiple", si.UploadMultipleFiles)
		r.Get("/category/{category}", wrapper.ListFilesByCategory)
		r.Get("/{id}", wrapper.GetFile)
		r.Delete("/{id}", wrapper.DeleteFile)
		r.Get("/{id}/download", wrapper.DownloadFile)
		r.Get("/{id}/view", wrapper.ViewFile)
	})

	return r
}
