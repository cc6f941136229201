package suggest

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/menta2k/snapcrop/pkg/overlay"
	"github.com/menta2k/snapcrop/pkg/projector"
	"github.com/menta2k/snapcrop/pkg/types"
)

type fakeClient struct {
	detection *types.Detection
	err       error
	prompt    string
	imgB64    string
}

func (f *fakeClient) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	f.prompt = prompt
	return "a test image", f.err
}

func (f *fakeClient) DetectSubject(ctx context.Context, model, prompt, imgB64 string) (*types.Detection, error) {
	f.prompt, f.imgB64 = prompt, imgB64
	if f.err != nil {
		return nil, f.err
	}
	d := *f.detection
	return &d, nil
}

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	return img
}

func TestDetectorSuggest(t *testing.T) {
	fc := &fakeClient{detection: &types.Detection{
		Subject: types.Subject{Label: "cat", Confidence: 0.9, Box: types.Box{X: 0.8, Y: 0.1, W: 0.5, H: 0.3}},
		Tags:    []string{" Cat", "cat", "PET", ""},
	}}
	d := NewDetector(fc, "llava")

	subject, err := d.Suggest(context.Background(), testImage(64, 48))
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if fc.imgB64 == "" {
		t.Error("Expected an encoded image payload")
	}
	if fc.prompt != DefaultPrompt {
		t.Error("Expected the default prompt")
	}
	if subject.Label != "cat" {
		t.Errorf("Expected label cat, got %q", subject.Label)
	}
	if math.Abs(subject.Box.Right()-1) > 1e-9 {
		t.Errorf("Expected box cut at the right edge, got %+v", subject.Box)
	}
}

func TestDetectorDetectSubjectNormalizesTags(t *testing.T) {
	fc := &fakeClient{detection: &types.Detection{
		Subject: types.Subject{Label: "cat", Confidence: 0.9, Box: types.Box{W: 0.5, H: 0.5}},
		Tags:    []string{" Cat", "cat", "PET", "", "a", "b", "c", "d"},
	}}
	result, err := NewDetector(fc, "m", WithPrompt("custom")).DetectSubject(context.Background(), "aGk=")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"cat", "pet", "a", "b", "c"}
	if len(result.Tags) != len(want) {
		t.Fatalf("Expected tags %v, got %v", want, result.Tags)
	}
	for i := range want {
		if result.Tags[i] != want[i] {
			t.Errorf("tag %d: expected %q, got %q", i, want[i], result.Tags[i])
		}
	}
	if fc.prompt != "custom" {
		t.Errorf("Expected custom prompt, got %q", fc.prompt)
	}
}

func TestDetectorDemotesFallback(t *testing.T) {
	fc := &fakeClient{detection: &types.Detection{
		Subject:     types.Subject{Label: "parse error", Confidence: 0.1, Box: types.Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}},
		Description: "Failed to parse model response",
	}}
	subject, err := NewDetector(fc, "m").Suggest(context.Background(), testImage(8, 8))
	if err != nil {
		t.Fatal(err)
	}
	if subject.Label != "none" || subject.Confidence != 0 {
		t.Errorf("Expected demoted subject, got %+v", subject)
	}
}

func TestDetectorClientError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewDetector(&fakeClient{err: boom}, "m").Suggest(context.Background(), testImage(8, 8))
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped client error, got %v", err)
	}
}

func TestTestVision(t *testing.T) {
	fc := &fakeClient{}
	out, err := NewDetector(fc, "m").TestVision(context.Background(), "aGk=")
	if err != nil || out != "a test image" {
		t.Errorf("unexpected result %q, %v", out, err)
	}
	if fc.prompt != SimpleTestPrompt {
		t.Error("Expected the simple test prompt")
	}
}

func TestLocalSuggest(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for y := 60; y < 140; y++ {
		for x := 60; x < 140; x++ {
			img.Set(x, y, color.White)
		}
	}

	subject, err := NewLocal(nil).Suggest(context.Background(), img)
	if err != nil {
		t.Fatalf("Suggest failed: %v", err)
	}
	if subject.Box.W <= 0 || subject.Box.H <= 0 {
		t.Errorf("Expected a non-empty box, got %+v", subject.Box)
	}
}

func TestLocalSuggestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLocal(nil).Suggest(ctx, testImage(8, 8)); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestSeedSelection(t *testing.T) {
	ov := overlay.NewDefault()
	ov.Resize(1000, 1000)
	// 4000x3000 image letterboxed into 1000x1000: displayed (0,125)-(1000,875)
	geom := projector.ComputeDisplayGeometry(1000, 1000, 4000, 3000)

	subject := types.Subject{Label: "dog", Confidence: 0.8, Box: types.Box{X: 0.25, Y: 0.5, W: 0.5, H: 0.25}}
	if !SeedSelection(ov, subject, geom, 0.5) {
		t.Fatal("Expected the selection to be seeded")
	}

	want := types.R(250, 500, 750, 687.5)
	if got := ov.CropRect(); got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}

	// Projecting the seeded selection returns the subject in pixels.
	px, err := projector.Project(ov.CropRect(), geom.Rect(), 4000, 3000)
	if err != nil {
		t.Fatal(err)
	}
	if px != image.Rect(1000, 1500, 3000, 2250) {
		t.Errorf("unexpected pixel rect %v", px)
	}
}

func TestSeedSelectionGrowsToMinSize(t *testing.T) {
	ov := overlay.NewDefault()
	ov.Resize(400, 400)
	geom := projector.ComputeDisplayGeometry(400, 400, 400, 400)

	subject := types.Subject{Label: "dot", Confidence: 1, Box: types.Box{X: 0, Y: 0.5, W: 0.01, H: 0.01}}
	if !SeedSelection(ov, subject, geom, 0) {
		t.Fatal("Expected the selection to be seeded")
	}

	r := ov.CropRect()
	if r.Width() < 80 || r.Height() < 80 {
		t.Errorf("Expected at least min size, got %+v", r)
	}
	if r.Left < 0 || r.Right > 400 || r.Top < 0 || r.Bottom > 400 {
		t.Errorf("selection leaves the view: %+v", r)
	}
}

func TestSeedSelectionRejects(t *testing.T) {
	geom := projector.ComputeDisplayGeometry(400, 400, 400, 400)
	tests := []struct {
		name    string
		subject types.Subject
		geom    projector.DisplayGeometry
	}{
		{"low confidence", types.Subject{Label: "x", Confidence: 0.1, Box: types.Box{W: 1, H: 1}}, geom},
		{"none label", types.Subject{Label: "none", Confidence: 1, Box: types.Box{W: 1, H: 1}}, geom},
		{"empty box", types.Subject{Label: "x", Confidence: 1}, geom},
		{"degenerate display", types.Subject{Label: "x", Confidence: 1, Box: types.Box{W: 1, H: 1}}, projector.DisplayGeometry{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ov := overlay.NewDefault()
			ov.Resize(400, 400)
			before := ov.CropRect()
			if SeedSelection(ov, tt.subject, tt.geom, 0.5) {
				t.Error("Expected rejection")
			}
			if ov.CropRect() != before {
				t.Error("overlay changed on rejection")
			}
		})
	}
}

func TestGrow(t *testing.T) {
	tests := []struct {
		lo, hi, min, limit float64
		wantLo, wantHi     float64
	}{
		{100, 300, 80, 400, 100, 300},
		{0, 10, 80, 400, 0, 80},
		{395, 400, 80, 400, 320, 400},
		{0, 500, 80, 400, 0, 400},
		{10, 20, 500, 400, 0, 400},
	}
	for _, tt := range tests {
		lo, hi := grow(tt.lo, tt.hi, tt.min, tt.limit)
		if lo != tt.wantLo || hi != tt.wantHi {
			t.Errorf("grow(%v,%v,%v,%v) = (%v,%v), want (%v,%v)", tt.lo, tt.hi, tt.min, tt.limit, lo, hi, tt.wantLo, tt.wantHi)
		}
	}
}
