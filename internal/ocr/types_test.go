package ocr

import (
	"encoding/json"
	"testing"
)

func TestRegionUnmarshalBoxForm(t *testing.T) {
	t.Parallel()

	var r Region
	if err := json.Unmarshal([]byte(`[10, 20, 30, 40]`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	box, ok := r.Bounds()
	if !ok {
		t.Fatal("expected a valid region")
	}
	want := Box{X: 10, Y: 20, Width: 30, Height: 40}
	if box != want {
		t.Fatalf("bounds = %+v, want %+v", box, want)
	}
}

func TestRegionUnmarshalQuadForm(t *testing.T) {
	t.Parallel()

	var r Region
	if err := json.Unmarshal([]byte(`[[10,10],[50,10],[50,40],[10,40]]`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	box, ok := r.Bounds()
	if !ok {
		t.Fatal("expected a valid region")
	}
	want := Box{X: 10, Y: 10, Width: 40, Height: 30}
	if box != want {
		t.Fatalf("bounds = %+v, want %+v", box, want)
	}
}

func TestRegionQuadMatchesEquivalentBox(t *testing.T) {
	t.Parallel()

	quad := RegionFromQuad([4]Point{{10, 10}, {50, 10}, {50, 40}, {10, 40}})
	box := RegionFromBox(Box{X: 10, Y: 10, Width: 40, Height: 30})

	quadBounds, ok := quad.Bounds()
	if !ok {
		t.Fatal("quad should be valid")
	}
	boxBounds, ok := box.Bounds()
	if !ok {
		t.Fatal("box should be valid")
	}
	if quadBounds != boxBounds {
		t.Fatalf("quad bounds %+v != box bounds %+v", quadBounds, boxBounds)
	}
}

func TestRegionUnmarshalMalformedIsSkippable(t *testing.T) {
	t.Parallel()

	cases := []string{
		`[1, 2, 3]`,
		`[[1,2],[3,4]]`,
		`"not a region"`,
		`{"x": 1}`,
	}
	for _, raw := range cases {
		var r Region
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if _, ok := r.Bounds(); ok {
			t.Fatalf("expected %s to decode as invalid", raw)
		}
	}
}

func TestRegionDegenerateBounds(t *testing.T) {
	t.Parallel()

	zeroWidth := RegionFromBox(Box{X: 5, Y: 5, Width: 0, Height: 10})
	if _, ok := zeroWidth.Bounds(); ok {
		t.Fatal("zero-width box should be rejected")
	}

	collapsed := RegionFromQuad([4]Point{{5, 5}, {5, 5}, {5, 5}, {5, 5}})
	if _, ok := collapsed.Bounds(); ok {
		t.Fatal("collapsed quad should be rejected")
	}
}

func TestRegionMarshalEmitsBoxForm(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(RegionFromQuad([4]Point{{10, 10}, {50, 10}, {50, 40}, {10, 40}}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `[10,10,40,30]` {
		t.Fatalf("marshal = %s", data)
	}
}
