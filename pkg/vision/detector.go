// Package vision finds the visually dominant region of a photo without a
// model, from an edge and brightness saliency map.
package vision

import (
	"errors"
	"image"
	"math"
	"sort"

	"github.com/disintegration/imaging"

	"github.com/menta2k/snapcrop/pkg/types"
)

// ErrNoSubject is returned when no window scores above the edge threshold
var ErrNoSubject = errors.New("vision: no salient region found")

// ErrEmptyImage is returned for images without pixels
var ErrEmptyImage = errors.New("vision: empty image")

// SubjectDetector provides functionality to detect subjects/important regions in images
type SubjectDetector struct {
	config DetectionConfig
}

// DetectionConfig holds configuration for subject detection
type DetectionConfig struct {
	EdgeThreshold   float64
	ContrastWeight  float64
	ColorWeight     float64
	MinSubjectRatio float64
	// MaxSide bounds the working resolution; 0 analyzes at full size.
	MaxSide int
	// MergeTop is how many of the best windows are merged into the subject box.
	MergeTop int
}

// DefaultConfig returns the detector defaults
func DefaultConfig() DetectionConfig {
	return DetectionConfig{
		EdgeThreshold:   0.01,
		ContrastWeight:  0.3,
		ColorWeight:     0.2,
		MinSubjectRatio: 0.01,
		MaxSide:         256,
		MergeTop:        3,
	}
}

// New creates a new SubjectDetector with default configuration
func New() *SubjectDetector {
	return &SubjectDetector{config: DefaultConfig()}
}

// NewWithConfig creates a new SubjectDetector with custom configuration
func NewWithConfig(config DetectionConfig) *SubjectDetector {
	return &SubjectDetector{config: config}
}

// Region represents a rectangular region of interest in pixels
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
	Score  float64
}

// Center returns the center point of the region
func (r Region) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Area returns the area of the region
func (r Region) Area() int {
	return r.Width * r.Height
}

// Union returns the smallest region covering r and o, keeping the higher score
func (r Region) Union(o Region) Region {
	x0, y0 := min(r.X, o.X), min(r.Y, o.Y)
	x1, y1 := max(r.X+r.Width, o.X+o.Width), max(r.Y+r.Height, o.Y+o.Height)
	return Region{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0, Score: math.Max(r.Score, o.Score)}
}

// DetectSubjects analyzes an image and returns regions of interest in the
// image's own pixel coordinates, best first.
func (d *SubjectDetector) DetectSubjects(img image.Image) ([]Region, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, ErrEmptyImage
	}

	work, scale := d.workingImage(img)
	wb := work.Bounds()
	width, height := wb.Dx(), wb.Dy()

	saliencyMap := d.calculateSaliencyMap(work)
	regions := d.findImportantRegions(saliencyMap, width, height)
	filtered := d.filterAndScoreRegions(regions, width, height)

	const maxRegions = 10
	if len(filtered) > maxRegions {
		filtered = filtered[:maxRegions]
	}

	for i := range filtered {
		filtered[i] = scaleRegion(filtered[i], scale, bounds.Dx(), bounds.Dy())
	}
	return filtered, nil
}

// FindSubject merges the best regions into one normalized subject box
func (d *SubjectDetector) FindSubject(img image.Image) (types.Subject, error) {
	regions, err := d.DetectSubjects(img)
	if err != nil {
		return types.Subject{}, err
	}
	if len(regions) == 0 {
		return types.Subject{}, ErrNoSubject
	}

	best := regions[0]
	n := min(max(d.config.MergeTop, 1), len(regions))
	for _, r := range regions[1:n] {
		best = best.Union(r)
	}

	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	return types.Subject{
		Label:      "salient region",
		Confidence: d.confidence(regions[0].Score),
		Box: types.Box{
			X: float64(best.X) / w,
			Y: float64(best.Y) / h,
			W: float64(best.Width) / w,
			H: float64(best.Height) / h,
		},
	}, nil
}

func (d *SubjectDetector) confidence(score float64) float64 {
	top := d.config.ContrastWeight + d.config.ColorWeight
	if top <= 0 {
		return 0
	}
	return math.Min(math.Max(score/top, 0), 1)
}

// workingImage downsamples large images; scale maps working pixels back
func (d *SubjectDetector) workingImage(img image.Image) (image.Image, float64) {
	b := img.Bounds()
	side := max(b.Dx(), b.Dy())
	if d.config.MaxSide <= 0 || side <= d.config.MaxSide {
		return img, 1
	}
	work := imaging.Fit(img, d.config.MaxSide, d.config.MaxSide, imaging.Linear)
	return work, float64(b.Dx()) / float64(work.Bounds().Dx())
}

func scaleRegion(r Region, scale float64, maxW, maxH int) Region {
	if scale == 1 {
		return r
	}
	x := min(int(math.Floor(float64(r.X)*scale)), maxW-1)
	y := min(int(math.Floor(float64(r.Y)*scale)), maxH-1)
	return Region{
		X:      x,
		Y:      y,
		Width:  max(min(int(math.Ceil(float64(r.Width)*scale)), maxW-x), 1),
		Height: max(min(int(math.Ceil(float64(r.Height)*scale)), maxH-y), 1),
		Score:  r.Score,
	}
}

var neighbors = [8][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}

func (d *SubjectDetector) calculateSaliencyMap(img image.Image) [][]float64 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	saliencyMap := make([][]float64, height)
	for i := range saliencyMap {
		saliencyMap[i] = make([]float64, width)
	}

	// Edge strength against the 8 neighbors plus brightness
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			r1, g1, b1, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()

			var edgeStrength float64
			for _, offset := range neighbors {
				r2, g2, b2, _ := img.At(x+offset[0]+bounds.Min.X, y+offset[1]+bounds.Min.Y).RGBA()
				dr := float64(r1) - float64(r2)
				dg := float64(g1) - float64(g2)
				db := float64(b1) - float64(b2)
				edgeStrength += math.Sqrt(dr*dr + dg*dg + db*db)
			}
			edgeStrength /= 8.0 * 65535.0

			brightness := (float64(r1) + float64(g1) + float64(b1)) / (3.0 * 65535.0)

			saliencyMap[y][x] = d.config.ContrastWeight*edgeStrength + d.config.ColorWeight*brightness
		}
	}

	return saliencyMap
}

// windowFractions are the sliding window sides relative to the short side
var windowFractions = []int{10, 8, 6, 4, 3}

func (d *SubjectDetector) findImportantRegions(saliencyMap [][]float64, width, height int) []Region {
	var regions []Region
	short := min(width, height)

	for _, frac := range windowFractions {
		windowSize := short / frac
		if windowSize < 10 {
			continue
		}
		step := max(windowSize/8, 1)

		for y := 0; y <= height-windowSize; y += step {
			for x := 0; x <= width-windowSize; x += step {
				score := calculateRegionScore(saliencyMap, x, y, windowSize, windowSize)
				if score > d.config.EdgeThreshold {
					regions = append(regions, Region{
						X:      x,
						Y:      y,
						Width:  windowSize,
						Height: windowSize,
						Score:  score,
					})
				}
			}
		}
	}

	return regions
}

func calculateRegionScore(saliencyMap [][]float64, x, y, width, height int) float64 {
	var totalScore float64
	count := 0

	for ry := y; ry < y+height && ry < len(saliencyMap); ry++ {
		for rx := x; rx < x+width && rx < len(saliencyMap[ry]); rx++ {
			totalScore += saliencyMap[ry][rx]
			count++
		}
	}

	if count == 0 {
		return 0
	}
	return totalScore / float64(count)
}

func (d *SubjectDetector) filterAndScoreRegions(regions []Region, imageWidth, imageHeight int) []Region {
	minArea := int(float64(imageWidth*imageHeight) * d.config.MinSubjectRatio)

	filtered := regions[:0]
	for _, region := range regions {
		if region.Area() >= minArea {
			filtered = append(filtered, region)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score > filtered[j].Score
	})
	return filtered
}
