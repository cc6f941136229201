package cropper

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/menta2k/snapcrop/pkg/imageio"
	"github.com/menta2k/snapcrop/pkg/projector"
	"github.com/menta2k/snapcrop/pkg/types"
)

// createTestImage creates a simple test image
func createTestImage(width, height int) imageio.SourceImage {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	// Create a pattern with a bright central region
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x > width/3 && x < 2*width/3 && y > height/3 && y < 2*height/3 {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.RGBA{64, 64, 64, 255})
			}
		}
	}

	return imageio.NewSourceImage(img)
}

func TestNew(t *testing.T) {
	cropper := New()
	if cropper == nil {
		t.Fatal("New() returned nil")
	}
	if !cropper.config.FallbackToFull {
		t.Error("Expected FallbackToFull to be true by default")
	}
}

func TestNewWithConfig(t *testing.T) {
	cropper := NewWithConfig(CropConfig{FallbackToFull: false})
	if cropper.config.FallbackToFull {
		t.Error("Expected FallbackToFull to be false")
	}
}

func TestCropSelection(t *testing.T) {
	cropper := New()
	src := createTestImage(4000, 3000)
	geom := projector.ComputeDisplayGeometry(1000, 1000, 4000, 3000)

	result, err := cropper.CropSelection(src, types.R(250, 125, 750, 500), geom)
	if err != nil {
		t.Fatalf("CropSelection failed: %v", err)
	}
	if result.Fallback {
		t.Fatalf("unexpected fallback: %v", result.Reason)
	}
	if result.Rect != image.Rect(1000, 0, 3000, 1500) {
		t.Errorf("Expected rect (1000,0)-(3000,1500), got %v", result.Rect)
	}

	b := result.Image.Bounds()
	if b.Dx() != 2000 || b.Dy() != 1500 {
		t.Errorf("Expected 2000x1500 image, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestCropSelectionFallback(t *testing.T) {
	cropper := New()
	src := createTestImage(400, 300)
	geom := projector.ComputeDisplayGeometry(400, 300, 400, 300)

	result, err := cropper.CropSelection(src, types.R(500, 500, 600, 600), geom)
	if err != nil {
		t.Fatalf("CropSelection failed: %v", err)
	}
	if !result.Fallback {
		t.Fatal("Expected fallback to the full image")
	}
	if !errors.Is(result.Reason, projector.ErrOutsideImage) {
		t.Errorf("Expected OutsideImage reason, got %v", result.Reason)
	}
	if result.Image != src.Image {
		t.Error("Fallback must return the unmodified source")
	}
}

func TestCropSelectionNoFallback(t *testing.T) {
	cropper := NewWithConfig(CropConfig{FallbackToFull: false})
	src := createTestImage(400, 300)

	_, err := cropper.CropSelection(src, types.R(10, 10, 50, 50), projector.DisplayGeometry{})
	if !errors.Is(err, projector.ErrDegenerateDisplay) {
		t.Errorf("Expected ErrDegenerateDisplay, got %v", err)
	}
}

func TestCropToRect(t *testing.T) {
	cropper := New()
	src := createTestImage(300, 300)

	result, err := cropper.CropToRect(src, image.Rect(101, 101, 199, 199))
	if err != nil {
		t.Fatalf("CropToRect failed: %v", err)
	}
	r, g, b, _ := result.Image.At(0, 0).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Error("Expected the crop to start inside the bright region")
	}

	if _, err := cropper.CropToRect(src, image.Rect(400, 400, 500, 500)); err == nil {
		t.Error("Expected error for rect outside the image")
	}
}

func BenchmarkCropSelection(b *testing.B) {
	cropper := New()
	src := createTestImage(1920, 1080)
	geom := projector.ComputeDisplayGeometry(1080, 1920, 1920, 1080)
	sel := types.R(200, 800, 800, 1100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cropper.CropSelection(src, sel, geom)
	}
}
