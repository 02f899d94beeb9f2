package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pagesafe/pagesafe-backend/api/responses"
	"github.com/pagesafe/pagesafe-backend/api/validators"
	"github.com/pagesafe/pagesafe-backend/internal/redaction"
	"github.com/pagesafe/pagesafe-backend/pkg/enums"
	pkgerrors "github.com/pagesafe/pagesafe-backend/pkg/errors"
	"github.com/pagesafe/pagesafe-backend/pkg/logger"
)

// regionsHeader reports how many regions were obscured in a single-image run.
const regionsHeader = "X-PII-Regions"

type redactUploadRequest struct {
	Method string `json:"method" validate:"omitempty,oneof=black blur"`
}

// RedactUpload redacts every page of an upload and returns a per-page summary.
func RedactUpload(runner *redaction.Runner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runner == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "redaction models unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "uploadID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid upload id"))
			return
		}

		var payload redactUploadRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		method := enums.RedactionMethodBlack
		if payload.Method != "" {
			parsed, parseErr := enums.ParseRedactionMethod(payload.Method)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid redaction method"))
				return
			}
			method = parsed
		}

		summary, err := runner.Run(r.Context(), id, method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

// RedactImage redacts a single uploaded image and streams the PNG result
// back. The region count travels in a response header so the body stays
// pure image bytes.
func RedactImage(engine *redaction.Engine, logg *logger.Logger, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "redaction models unavailable"))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		file, _, err := r.FormFile(uploadFormField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "multipart field 'file' is required"))
			return
		}
		defer file.Close()

		imageBytes, err := io.ReadAll(file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading image"))
			return
		}

		method := enums.RedactionMethodBlack
		if raw := strings.TrimSpace(r.FormValue("method")); raw != "" {
			parsed, parseErr := enums.ParseRedactionMethod(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid redaction method"))
				return
			}
			method = parsed
		}

		result, err := engine.Redact(r.Context(), imageBytes, method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, mapEngineError(err))
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set(regionsHeader, strconv.Itoa(result.RegionCount()))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Image)
	}
}

func mapEngineError(err error) error {
	switch {
	case pkgerrors.As(err) != nil:
		return err
	case errors.Is(err, redaction.ErrInvalidImage):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "image bytes could not be decoded")
	case errors.Is(err, redaction.ErrUnsupportedMethod):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid redaction method")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "redacting image")
	}
}
