package snapcrop

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/menta2k/snapcrop/pkg/cropper"
	"github.com/menta2k/snapcrop/pkg/history"
	"github.com/menta2k/snapcrop/pkg/projector"
	"github.com/menta2k/snapcrop/pkg/types"
)

// createTestImage creates a simple test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 64, 255})
		}
	}
	return img
}

func fixedClock() time.Time { return time.UnixMilli(1700000000000) }

type fakeSuggester struct {
	subject types.Subject
	err     error
}

func (f fakeSuggester) Suggest(ctx context.Context, img image.Image) (types.Subject, error) {
	return f.subject, f.err
}

func TestNew(t *testing.T) {
	s := New()
	if s.Overlay() == nil {
		t.Fatal("overlay is nil")
	}
	if _, ok := s.Source(); ok {
		t.Error("new session should have no source")
	}
	if GetVersion() != Version {
		t.Errorf("Expected version %s, got %s", Version, GetVersion())
	}
}

func TestCropIdentityLayout(t *testing.T) {
	s := New()
	s.SetSource(createTestImage(400, 800))
	s.Layout(400, 800)

	res, err := s.Crop()
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	want := image.Rect(80, 160, 320, 640)
	if res.Rect != want {
		t.Errorf("Expected %v, got %v", want, res.Rect)
	}
	if res.Fallback {
		t.Error("unexpected fallback")
	}
	if b := res.Image.Bounds(); b.Dx() != 240 || b.Dy() != 480 {
		t.Errorf("Expected 240x480 crop, got %v", b)
	}
}

func TestDragThenProject(t *testing.T) {
	s := New()
	s.SetSource(createTestImage(800, 800))
	s.Layout(400, 400)

	// seed (80,80)-(320,320); drag the body 40px right
	s.PointerDown(200, 200)
	s.PointerMove(240, 200)
	s.PointerUp()

	rect, err := s.Project()
	if err != nil {
		t.Fatal(err)
	}
	if want := image.Rect(240, 160, 720, 640); rect != want {
		t.Errorf("Expected %v, got %v", want, rect)
	}
}

func TestCropFallsBackOutsideImage(t *testing.T) {
	s := New()
	s.SetSource(createTestImage(400, 100))
	s.Layout(1000, 1000)
	// image displayed at (0,375)-(1000,625)
	s.Overlay().SetCropRect(types.R(0, 0, 1000, 300))

	res, err := s.Crop()
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if !res.Fallback || !errors.Is(res.Reason, projector.ErrOutsideImage) {
		t.Errorf("Expected outside-image fallback, got %+v", res)
	}
	if res.Rect != image.Rect(0, 0, 400, 100) {
		t.Errorf("Expected full rect, got %v", res.Rect)
	}
}

func TestCropWithoutFallback(t *testing.T) {
	s := New(WithCropConfig(cropper.CropConfig{FallbackToFull: false}))
	s.SetSource(createTestImage(100, 100))
	s.Overlay().SetCropRect(types.R(0, 0, 50, 50))

	// no layout: the display is degenerate
	if _, err := s.Crop(); !errors.Is(err, projector.ErrDegenerateDisplay) {
		t.Errorf("Expected ErrDegenerateDisplay, got %v", err)
	}
}

func TestNoSource(t *testing.T) {
	s := New()
	s.Layout(100, 100)

	if _, err := s.Project(); !errors.Is(err, ErrNoSource) {
		t.Errorf("Project: expected ErrNoSource, got %v", err)
	}
	if _, err := s.Crop(); !errors.Is(err, ErrNoSource) {
		t.Errorf("Crop: expected ErrNoSource, got %v", err)
	}
	r := <-s.CropAsync(context.Background())
	if !errors.Is(r.Err, ErrNoSource) {
		t.Errorf("CropAsync: expected ErrNoSource, got %v", r.Err)
	}
	if !s.Geometry().Empty() {
		t.Error("Expected empty geometry without source")
	}
}

func TestCropAsyncSaves(t *testing.T) {
	dir := t.TempDir()
	s := New(
		WithOutput(types.OutputOptions{Dir: dir, Prefix: "crop", Extension: "png", Quality: 95}),
		WithClock(fixedClock),
	)
	s.SetSource(createTestImage(200, 200))
	s.Layout(200, 200)

	r, ok := <-s.CropAsync(context.Background())
	if !ok {
		t.Fatal("channel closed without result")
	}
	if r.Err != nil {
		t.Fatalf("CropAsync failed: %v", r.Err)
	}
	want := filepath.Join(dir, "crop_1700000000000.png")
	if r.Path != want {
		t.Errorf("Expected path %s, got %s", want, r.Path)
	}

	f, err := os.Open(r.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 120 {
		t.Errorf("Expected 120x120 saved crop, got %v", b)
	}

	if _, ok := <-s.CropAsync(context.Background()); !ok {
		t.Fatal("second crop missing")
	}
	if _, err := os.Stat(filepath.Join(dir, "crop_1700000000000-1.png")); err != nil {
		t.Errorf("Expected a unique second file: %v", err)
	}
}

func TestCropAsyncCancelled(t *testing.T) {
	dir := t.TempDir()
	s := New(WithOutput(types.OutputOptions{Dir: dir}))
	s.SetSource(createTestImage(100, 100))
	s.Layout(100, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if r, ok := <-s.CropAsync(ctx); ok {
		t.Errorf("Expected dropped result, got %+v", r)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Expected nothing written, found %d files", len(entries))
	}
}

func TestCropAsyncUsesSnapshot(t *testing.T) {
	s := New()
	s.SetSource(createTestImage(300, 300))
	s.Layout(300, 300)

	ch := s.CropAsync(context.Background())
	s.Overlay().SetCropRect(types.R(0, 0, 10, 10))

	r := <-ch
	if r.Err != nil {
		t.Fatal(r.Err)
	}
	if want := image.Rect(60, 60, 240, 240); r.Crop.Rect != want {
		t.Errorf("Expected %v, got %v", want, r.Crop.Rect)
	}
}

func TestRecord(t *testing.T) {
	s := New()
	if _, err := s.Record("x.jpg", ""); !errors.Is(err, ErrNoHistory) {
		t.Errorf("Expected ErrNoHistory, got %v", err)
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	f, _ := os.Create(src)
	png.Encode(f, createTestImage(10, 10))
	f.Close()

	store := history.NewStore(filepath.Join(dir, "history"))
	s = New(WithHistory(store))
	item, err := s.Record(src, "receipt")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if item.Example != "receipt" {
		t.Errorf("Expected example receipt, got %q", item.Example)
	}
	items, err := store.List()
	if err != nil || len(items) != 1 {
		t.Fatalf("Expected one history item, got %d (%v)", len(items), err)
	}
}

func TestSuggest(t *testing.T) {
	s := New()
	if _, _, err := s.Suggest(context.Background()); !errors.Is(err, ErrNoSuggester) {
		t.Errorf("Expected ErrNoSuggester, got %v", err)
	}

	sg := fakeSuggester{subject: types.Subject{Label: "cup", Confidence: 0.9, Box: types.Box{X: 0.5, Y: 0.5, W: 0.5, H: 0.5}}}
	s = New(WithSuggester(sg, 0.5))
	s.SetSource(createTestImage(200, 200))
	s.Layout(400, 400)

	subject, seeded, err := s.Suggest(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !seeded || subject.Label != "cup" {
		t.Fatalf("Expected seeded cup, got %+v seeded=%v", subject, seeded)
	}
	if want := types.R(200, 200, 400, 400); s.Selection() != want {
		t.Errorf("Expected %+v, got %+v", want, s.Selection())
	}

	rect, err := s.Project()
	if err != nil {
		t.Fatal(err)
	}
	if rect != image.Rect(100, 100, 200, 200) {
		t.Errorf("unexpected projection %v", rect)
	}
}

func TestSuggestError(t *testing.T) {
	boom := errors.New("boom")
	s := New(WithSuggester(fakeSuggester{err: boom}, 0))
	s.SetSource(createTestImage(10, 10))
	if _, _, err := s.Suggest(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Expected wrapped error, got %v", err)
	}
}

func TestPreview(t *testing.T) {
	s := New()
	if _, err := s.Preview(); err == nil {
		t.Error("Expected error without layout")
	}

	s.SetSource(createTestImage(200, 100))
	s.Layout(200, 200)
	img, err := s.Preview()
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 200 {
		t.Errorf("Expected 200x200 preview, got %v", b)
	}
	// letterbox band above the image is dimmed black
	if c := img.NRGBAAt(100, 10); c.R != 0 || c.G != 0 || c.B != 0 {
		t.Errorf("Expected black letterbox, got %v", c)
	}
}

func TestSavePreview(t *testing.T) {
	s := New()
	s.SetSource(createTestImage(50, 50))
	s.Layout(100, 100)

	path := filepath.Join(t.TempDir(), "preview.png")
	if err := s.SavePreview(path); err != nil {
		t.Fatalf("SavePreview failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("preview not written: %v", err)
	}
}

func TestInvalidateHook(t *testing.T) {
	calls := 0
	s := New(WithInvalidate(func() { calls++ }))
	s.Layout(100, 100)
	if calls != 1 {
		t.Errorf("Expected one redraw after layout, got %d", calls)
	}
}
