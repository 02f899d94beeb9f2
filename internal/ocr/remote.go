package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// RemoteLocalizer talks to an HTTP detection service (an EasyOCR-style
// server) that returns fragments with loosely typed geometry: axis-aligned
// boxes or four-point polygons, sometimes malformed. Malformed geometry is
// skipped per fragment, never fatal.
type RemoteLocalizer struct {
	baseURL    string
	httpClient *http.Client
	threshold  float64
}

// NewRemoteLocalizer constructs a localizer client against baseURL.
func NewRemoteLocalizer(baseURL string, httpClient *http.Client, threshold float64) *RemoteLocalizer {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RemoteLocalizer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		threshold:  threshold,
	}
}

type detectRequest struct {
	Image string `json:"image"`
}

type detectFragment struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Boxes      []Region `json:"boxes"`
}

type detectResponse struct {
	Fragments []detectFragment `json:"fragments"`
}

// Locate posts the image to the detection service and filters the response
// by confidence. The remote service reports confidence on the same 0-100
// scale as Tesseract.
func (r *RemoteLocalizer) Locate(ctx context.Context, imageBytes []byte) ([]Fragment, error) {
	payload, err := json.Marshal(detectRequest{
		Image: base64.StdEncoding.EncodeToString(imageBytes),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrRecognition, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/detect", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecognition, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecognition, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: detection service returned %d", ErrRecognition, resp.StatusCode)
	}

	var decoded detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrRecognition, err)
	}

	fragments := make([]Fragment, 0, len(decoded.Fragments))
	for _, f := range decoded.Fragments {
		text := strings.TrimSpace(f.Text)
		if text == "" || f.Confidence < r.threshold {
			continue
		}
		regions := make([]Region, 0, len(f.Boxes))
		for _, region := range f.Boxes {
			if _, ok := region.Bounds(); ok {
				regions = append(regions, region)
			}
		}
		if len(regions) == 0 {
			continue
		}
		fragments = append(fragments, Fragment{
			Text:       text,
			Regions:    regions,
			Confidence: f.Confidence,
		})
	}
	return fragments, nil
}
