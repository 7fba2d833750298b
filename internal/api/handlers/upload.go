package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/cloo-solutions/mentor/internal/api"
	"github.com/cloo-solutions/mentor/internal/domain"
	"github.com/cloo-solutions/mentor/internal/telemetry"
)

const (
	// Multipart field names accepted for the document, in lookup order.
	primaryUploadField  = "book"
	fallbackUploadField = "file"

	multipartMemory = 8 << 20
	spoolPattern    = "upload-*"
)

type UploadHandler struct {
	svc       KnowledgeService
	uploadDir string
}

// NewUploadHandler creates a handler that spools uploads into uploadDir
// before ingestion. An empty uploadDir uses the system temp directory.
func NewUploadHandler(svc KnowledgeService, uploadDir string) *UploadHandler {
	return &UploadHandler{svc: svc, uploadDir: uploadDir}
}

type UploadResponse struct {
	Message string `json:"message"`
	Source  string `json:"source"`
	Indexed int    `json:"indexed"`
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		api.HandleError(w, r, domain.ErrMissingFile)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := formFile(r)
	if err != nil {
		api.HandleError(w, r, domain.ErrMissingFile)
		return
	}
	defer file.Close()

	telemetry.AddBreadcrumb(r.Context(), "upload", header.Filename)

	data, err := h.spool(file)
	if err != nil {
		api.HandleError(w, r, domain.NewInternalError("failed to store upload", err))
		return
	}

	result, err := h.svc.IngestDocument(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, UploadResponse{
		Message: result.Message(),
		Source:  result.Source,
		Indexed: result.Indexed,
	})
}

func formFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	file, header, err := r.FormFile(primaryUploadField)
	if errors.Is(err, http.ErrMissingFile) {
		return r.FormFile(fallbackUploadField)
	}
	return file, header, err
}

// spool copies the upload to a file in the upload directory, reads it back
// and removes it. Files left behind by a crash are removed by the sweeper.
func (h *UploadHandler) spool(src io.Reader) ([]byte, error) {
	if h.uploadDir != "" {
		if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
	}
	f, err := os.CreateTemp(h.uploadDir, spoolPattern)
	if err != nil {
		return nil, fmt.Errorf("create spool file: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	if _, err := io.Copy(f, src); err != nil {
		return nil, fmt.Errorf("write spool file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind spool file: %w", err)
	}
	return io.ReadAll(f)
}
