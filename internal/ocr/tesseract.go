package ocr

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/pagesafe/pagesafe-backend/pkg/config"
)

// TesseractLocalizer produces word-granular fragments from a Tesseract
// client. Words sharing a (block, paragraph, line) triple are grouped into
// one fragment whose text is the words joined by single spaces.
type TesseractLocalizer struct {
	clientFactory func() *gosseract.Client
	languages     []string
	pageSegMode   gosseract.PageSegMode
	threshold     float64
}

// NewTesseractLocalizer constructs a Tesseract-backed localizer.
func NewTesseractLocalizer(cfg config.OCRConfig) *TesseractLocalizer {
	return &TesseractLocalizer{
		clientFactory: gosseract.NewClient,
		languages:     cfg.Languages,
		pageSegMode:   gosseract.PageSegMode(cfg.PageSegMode),
		threshold:     cfg.ConfidenceThreshold,
	}
}

type lineKey struct {
	block, par, line int
}

// Locate runs recognition over the image bytes and returns grouped fragments.
// Words below the confidence threshold, or empty after trimming, are dropped
// before grouping.
func (t *TesseractLocalizer) Locate(ctx context.Context, imageBytes []byte) ([]Fragment, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	client := t.clientFactory()
	defer client.Close()

	if err := client.SetImageFromBytes(imageBytes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(t.languages) > 0 {
		if err := client.SetLanguage(t.languages...); err != nil {
			return nil, fmt.Errorf("%w: set languages: %v", ErrRecognition, err)
		}
	}
	if err := client.SetPageSegMode(t.pageSegMode); err != nil {
		return nil, fmt.Errorf("%w: set page seg mode: %v", ErrRecognition, err)
	}

	boxes, err := client.GetBoundingBoxesVerbose()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecognition, err)
	}

	return t.group(boxes), nil
}

func (t *TesseractLocalizer) group(boxes []gosseract.BoundingBox) []Fragment {
	type line struct {
		words   []string
		regions []Region
		confSum float64
	}

	lines := map[lineKey]*line{}
	order := []lineKey{}
	for _, b := range boxes {
		word := strings.TrimSpace(b.Word)
		if word == "" || b.Confidence < t.threshold {
			continue
		}
		key := lineKey{block: b.BlockNum, par: b.ParNum, line: b.LineNum}
		entry, ok := lines[key]
		if !ok {
			entry = &line{}
			lines[key] = entry
			order = append(order, key)
		}
		entry.words = append(entry.words, word)
		entry.regions = append(entry.regions, RegionFromBox(Box{
			X:      b.Box.Min.X,
			Y:      b.Box.Min.Y,
			Width:  b.Box.Dx(),
			Height: b.Box.Dy(),
		}))
		entry.confSum += b.Confidence
	}

	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.block != b.block {
			return a.block < b.block
		}
		if a.par != b.par {
			return a.par < b.par
		}
		return a.line < b.line
	})

	fragments := make([]Fragment, 0, len(order))
	for _, key := range order {
		entry := lines[key]
		fragments = append(fragments, Fragment{
			Text:       strings.Join(entry.words, " "),
			Regions:    entry.regions,
			Confidence: entry.confSum / float64(len(entry.words)),
		})
	}
	return fragments
}
