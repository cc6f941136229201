package vision

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

// createTestImage draws a white square on a black background
func createTestImage(width, height int, square image.Rectangle) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if (image.Point{X: x, Y: y}).In(square) {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.RGBA{0, 0, 0, 255})
			}
		}
	}
	return img
}

func TestNew(t *testing.T) {
	detector := New()
	if detector == nil {
		t.Fatal("New() returned nil")
	}

	if detector.config.EdgeThreshold != 0.01 {
		t.Errorf("Expected edge threshold 0.01, got %f", detector.config.EdgeThreshold)
	}
	if detector.config.MaxSide != 256 {
		t.Errorf("Expected max side 256, got %d", detector.config.MaxSide)
	}
}

func TestNewWithConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EdgeThreshold = 0.2

	detector := NewWithConfig(cfg)
	if detector.config.EdgeThreshold != 0.2 {
		t.Errorf("Expected edge threshold 0.2, got %f", detector.config.EdgeThreshold)
	}
}

func TestRegionCenter(t *testing.T) {
	region := Region{X: 10, Y: 20, Width: 100, Height: 80}

	centerX, centerY := region.Center()
	if centerX != 60 || centerY != 60 {
		t.Errorf("Expected center (60,60), got (%d,%d)", centerX, centerY)
	}
}

func TestRegionArea(t *testing.T) {
	region := Region{Width: 50, Height: 40}
	if region.Area() != 2000 {
		t.Errorf("Expected area 2000, got %d", region.Area())
	}
}

func TestRegionUnion(t *testing.T) {
	a := Region{X: 10, Y: 10, Width: 10, Height: 10, Score: 0.2}
	b := Region{X: 15, Y: 5, Width: 20, Height: 10, Score: 0.5}

	u := a.Union(b)
	want := Region{X: 10, Y: 5, Width: 25, Height: 15, Score: 0.5}
	if u != want {
		t.Errorf("Expected %+v, got %+v", want, u)
	}
}

func TestDetectSubjectsSortedByScore(t *testing.T) {
	img := createTestImage(200, 150, image.Rect(100, 50, 160, 110))

	regions, err := New().DetectSubjects(img)
	if err != nil {
		t.Fatalf("DetectSubjects failed: %v", err)
	}
	if len(regions) == 0 {
		t.Fatal("Expected at least one region")
	}
	if len(regions) > 10 {
		t.Errorf("Expected at most 10 regions, got %d", len(regions))
	}
	for i := 1; i < len(regions); i++ {
		if regions[i].Score > regions[i-1].Score {
			t.Errorf("regions not sorted at %d: %f > %f", i, regions[i].Score, regions[i-1].Score)
		}
	}
}

func TestFindSubjectLocatesSquare(t *testing.T) {
	square := image.Rect(240, 150, 340, 250)
	img := createTestImage(400, 300, square)

	subject, err := New().FindSubject(img)
	if err != nil {
		t.Fatalf("FindSubject failed: %v", err)
	}

	cx := (subject.Box.X + subject.Box.W/2) * 400
	cy := (subject.Box.Y + subject.Box.H/2) * 300
	if !(image.Point{X: int(cx), Y: int(cy)}).In(square) {
		t.Errorf("subject center (%.1f,%.1f) outside square %v (box %+v)", cx, cy, square, subject.Box)
	}
	if subject.Confidence <= 0 || subject.Confidence > 1 {
		t.Errorf("confidence out of range: %f", subject.Confidence)
	}
	if subject.Box.Right() > 1 || subject.Box.Bottom() > 1 {
		t.Errorf("box leaves the image: %+v", subject.Box)
	}
}

func TestFindSubjectUniformImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 120, 120))

	_, err := New().FindSubject(img)
	if !errors.Is(err, ErrNoSubject) {
		t.Errorf("Expected ErrNoSubject, got %v", err)
	}
}

func TestDetectSubjectsEmptyImage(t *testing.T) {
	_, err := New().DetectSubjects(image.NewRGBA(image.Rectangle{}))
	if !errors.Is(err, ErrEmptyImage) {
		t.Errorf("Expected ErrEmptyImage, got %v", err)
	}
}

func TestScaleRegionStaysInside(t *testing.T) {
	r := scaleRegion(Region{X: 250, Y: 180, Width: 10, Height: 10}, 4, 1024, 768)
	if r.X+r.Width > 1024 || r.Y+r.Height > 768 {
		t.Errorf("scaled region leaves image: %+v", r)
	}
}

func BenchmarkFindSubject(b *testing.B) {
	img := createTestImage(1024, 768, image.Rect(400, 300, 700, 600))
	detector := New()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		detector.FindSubject(img)
	}
}
