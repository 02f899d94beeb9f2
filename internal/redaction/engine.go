package redaction

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/pagesafe/pagesafe-backend/internal/ocr"
	"github.com/pagesafe/pagesafe-backend/internal/pii"
	"github.com/pagesafe/pagesafe-backend/pkg/config"
	"github.com/pagesafe/pagesafe-backend/pkg/enums"
	"github.com/pagesafe/pagesafe-backend/pkg/logger"
	"github.com/pagesafe/pagesafe-backend/pkg/metrics"
)

var (
	// ErrInvalidImage indicates the input bytes are not a decodable image.
	ErrInvalidImage = errors.New("image bytes could not be decoded")
	// ErrUnsupportedMethod indicates an unknown redaction method argument.
	// It is raised before any decoding work begins.
	ErrUnsupportedMethod = errors.New("unsupported redaction method")
)

// Result carries the redacted artifact and the regions that were obscured.
type Result struct {
	Image   []byte
	Regions []ocr.Box
}

// RegionCount returns the number of obscured regions.
func (r *Result) RegionCount() int {
	if r == nil {
		return 0
	}
	return len(r.Regions)
}

// Engine composes the text localizer and the PII classifier: it localizes
// fragments, classifies each fragment's text, maps PII hits back to the
// fragment's word regions and obscures them on a copy of the input image.
type Engine struct {
	localizer  ocr.Localizer
	classifier pii.Classifier
	logg       *logger.Logger
	metrics    *metrics.PipelineMetrics
	blurSigma  float64
	padding    int
}

// NewEngine constructs a redaction engine around pre-initialized inference
// handles. Engines are built once at process start and injected; nothing
// here lazy-loads a model.
func NewEngine(localizer ocr.Localizer, classifier pii.Classifier, logg *logger.Logger, pipelineMetrics *metrics.PipelineMetrics, cfg config.RedactionConfig) (*Engine, error) {
	if localizer == nil {
		return nil, fmt.Errorf("text localizer required")
	}
	if classifier == nil {
		return nil, fmt.Errorf("pii classifier required")
	}
	if cfg.BlurSigma <= 0 {
		return nil, fmt.Errorf("blur sigma must be positive")
	}
	if cfg.BoxPadding < 0 {
		return nil, fmt.Errorf("box padding must not be negative")
	}
	return &Engine{
		localizer:  localizer,
		classifier: classifier,
		logg:       logg,
		metrics:    pipelineMetrics,
		blurSigma:  cfg.BlurSigma,
		padding:    cfg.BoxPadding,
	}, nil
}

// Redact obscures every region whose fragment classified as PII and returns
// the result as PNG bytes. A classification failure on a single fragment is
// absorbed: the fragment is treated as non-PII and processing continues.
func (e *Engine) Redact(ctx context.Context, imageBytes []byte, method enums.RedactionMethod) (*Result, error) {
	if !method.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}

	img, err := imaging.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	fragments, err := e.localizer.Locate(ctx, imageBytes)
	if err != nil {
		return nil, fmt.Errorf("localizing text: %w", err)
	}

	regions := e.classifyFragments(ctx, fragments)

	redacted := e.obscure(img, regions, method)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, redacted, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding redacted image: %w", err)
	}

	return &Result{Image: buf.Bytes(), Regions: regions}, nil
}

func (e *Engine) classifyFragments(ctx context.Context, fragments []ocr.Fragment) []ocr.Box {
	var regions []ocr.Box
	for _, fragment := range fragments {
		entities, err := e.classifier.Classify(ctx, fragment.Text)
		if err != nil {
			e.metrics.IncClassificationError()
			if e.logg != nil {
				logCtx := e.logg.WithField(ctx, "fragment", fragment.Text)
				e.logg.Warn(logCtx, "classification failed, treating fragment as non-PII")
			}
			continue
		}
		if len(entities) == 0 {
			continue
		}
		// A PII hit anywhere in the fragment marks all of its word regions.
		for _, region := range fragment.Regions {
			if box, ok := region.Bounds(); ok {
				regions = append(regions, box)
			}
		}
	}
	return regions
}
