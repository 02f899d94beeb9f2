package controllers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pagesafe/pagesafe-backend/api/responses"
	"github.com/pagesafe/pagesafe-backend/internal/uploads"
	pkgerrors "github.com/pagesafe/pagesafe-backend/pkg/errors"
	"github.com/pagesafe/pagesafe-backend/pkg/logger"
)

const uploadFormField = "file"

// SubmitUpload accepts a multipart PDF document and queues it for ingestion.
func SubmitUpload(svc *uploads.Service, logg *logger.Logger, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "uploads service unavailable"))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		file, header, err := r.FormFile(uploadFormField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "multipart field 'file' is required"))
			return
		}
		defer file.Close()

		if !isPDFUpload(header.Filename, header.Header.Get("Content-Type")) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "only PDF documents are supported"))
			return
		}

		document, err := io.ReadAll(file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading document"))
			return
		}

		resp, err := svc.SubmitDocument(r.Context(), uploads.SubmitInput{
			Filename: header.Filename,
			Document: document,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, resp)
	}
}

// GetUploadStatus reports the upload's lifecycle state and page count.
func GetUploadStatus(svc *uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "uploads service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "uploadID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid upload id"))
			return
		}

		resp, err := svc.GetStatus(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, resp)
	}
}

func isPDFUpload(filename, contentType string) bool {
	if strings.HasPrefix(strings.ToLower(contentType), "application/pdf") {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}
