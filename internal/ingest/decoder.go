package ingest

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"go.uber.org/multierr"

	"github.com/pagesafe/pagesafe-backend/pkg/config"
)

// ErrDecode indicates the submitted bytes are not a readable PDF document.
var ErrDecode = errors.New("document could not be decoded")

// PDFDecoder rasterizes PDF documents into per-page JPEG images. The page
// count is validated up front so a structurally broken document fails before
// any rendering work.
type PDFDecoder struct {
	dpi         int
	jpegQuality int
}

// NewPDFDecoder constructs a decoder with the configured render settings.
func NewPDFDecoder(cfg config.IngestConfig) (*PDFDecoder, error) {
	if cfg.DPI <= 0 {
		return nil, fmt.Errorf("render dpi must be positive")
	}
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		return nil, fmt.Errorf("jpeg quality must be between 1 and 100")
	}
	return &PDFDecoder{dpi: cfg.DPI, jpegQuality: cfg.JPEGQuality}, nil
}

// DecodePages renders every page of the document, in order, as JPEG bytes.
func (d *PDFDecoder) DecodePages(raw []byte) (pages [][]byte, err error) {
	expected, err := pdfapi.PageCount(bytes.NewReader(raw), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if expected == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrDecode)
	}

	doc, err := fitz.NewFromMemory(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer func() {
		err = multierr.Append(err, doc.Close())
	}()

	pages = make([][]byte, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		img, renderErr := doc.ImageDPI(i, float64(d.dpi))
		if renderErr != nil {
			return nil, fmt.Errorf("%w: rendering page %d: %v", ErrDecode, i+1, renderErr)
		}

		var buf bytes.Buffer
		if encodeErr := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(d.jpegQuality)); encodeErr != nil {
			return nil, fmt.Errorf("encoding page %d: %w", i+1, encodeErr)
		}
		pages = append(pages, buf.Bytes())
	}

	if len(pages) != expected {
		return nil, fmt.Errorf("%w: rendered %d of %d pages", ErrDecode, len(pages), expected)
	}
	return pages, nil
}
