package ocr

import (
	"net/http"
	"strings"

	"github.com/pagesafe/pagesafe-backend/pkg/config"
)

// NewLocalizer selects the OCR engine from configuration: a remote detection
// service when a base URL is set, embedded Tesseract otherwise.
func NewLocalizer(cfg config.OCRConfig) Localizer {
	if strings.TrimSpace(cfg.RemoteBaseURL) != "" {
		return NewRemoteLocalizer(cfg.RemoteBaseURL, &http.Client{Timeout: cfg.RemoteTimeout}, cfg.ConfidenceThreshold)
	}
	return NewTesseractLocalizer(cfg)
}
