// Package extract turns uploaded study material into plain text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/cloo-solutions/mentor/internal/domain"
)

// ErrOCRUnavailable is returned for images when no transcriber is configured.
var ErrOCRUnavailable = errors.New("image transcription not configured")

// ImageTranscriber runs OCR over an image.
type ImageTranscriber interface {
	ImageToText(ctx context.Context, image []byte, contentType string) (string, error)
}

type format int

const (
	formatUnsupported format = iota
	formatPDF
	formatPlain
	formatImage
)

var formats = map[string]format{
	".pdf":  formatPDF,
	".txt":  formatPlain,
	".md":   formatPlain,
	".png":  formatImage,
	".jpg":  formatImage,
	".jpeg": formatImage,
	".webp": formatImage,
}

func formatOf(filename string) format {
	return formats[strings.ToLower(filepath.Ext(filename))]
}

// Extractor extracts plain text from PDF, text and image uploads.
type Extractor struct {
	ocr ImageTranscriber
}

// NewExtractor returns a new Extractor. ocr may be nil, in which case image
// uploads fail with ErrOCRUnavailable.
func NewExtractor(ocr ImageTranscriber) *Extractor {
	return &Extractor{ocr: ocr}
}

// IsSupported reports whether filename has an extension the extractor handles.
func (e *Extractor) IsSupported(filename string) bool {
	return formatOf(filename) != formatUnsupported
}

// Extract returns the trimmed text of an upload. It returns
// domain.ErrUnsupportedFormat for unknown extensions and
// domain.ErrNoTextExtracted when the document holds no text.
func (e *Extractor) Extract(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	var (
		text string
		err  error
	)

	switch formatOf(filename) {
	case formatPDF:
		text, err = extractPDF(data)
	case formatPlain:
		text, err = extractPlain(data)
	case formatImage:
		text, err = e.extractImage(ctx, filename, contentType, data)
	default:
		return "", domain.ErrUnsupportedFormat
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.ErrNoTextExtracted
	}
	return text, nil
}

func (e *Extractor) extractImage(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	if e.ocr == nil {
		return "", ErrOCRUnavailable
	}
	if len(data) == 0 {
		return "", nil
	}
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
			contentType = byExt
		}
	}
	text, err := e.ocr.ImageToText(ctx, data, contentType)
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return text, nil
}
