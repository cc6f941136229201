package cropper

import (
	"fmt"
	"image"

	"github.com/menta2k/snapcrop/pkg/imageio"
	"github.com/menta2k/snapcrop/pkg/projector"
	"github.com/menta2k/snapcrop/pkg/types"
)

// Cropper cuts the user's selection out of a source bitmap
type Cropper struct {
	processor *imageio.Processor
	config    CropConfig
}

// CropConfig holds configuration for selection cropping
type CropConfig struct {
	// FallbackToFull returns the unmodified source when the selection
	// cannot be projected, instead of failing.
	FallbackToFull bool
}

// New creates a new Cropper with default configuration
func New() *Cropper {
	return &Cropper{
		processor: imageio.NewProcessor(),
		config: CropConfig{
			FallbackToFull: true,
		},
	}
}

// NewWithConfig creates a new Cropper with custom configuration
func NewWithConfig(config CropConfig) *Cropper {
	return &Cropper{
		processor: imageio.NewProcessor(),
		config:    config,
	}
}

// CropResult contains the result of a cropping operation
type CropResult struct {
	Image image.Image
	// Rect is the pixel rectangle that was cut, relative to the source.
	Rect image.Rectangle
	// Fallback is set when the whole source was kept; Reason says why.
	Fallback bool
	Reason   error
}

// Plan projects a view-space selection onto src without touching pixels.
// geom is the fit-center geometry of src inside the container the overlay
// covers.
func (c *Cropper) Plan(src imageio.SourceImage, selection types.Rect, geom projector.DisplayGeometry) (image.Rectangle, error) {
	return projector.Project(selection, geom.Rect(), src.Width, src.Height)
}

// CropSelection projects selection onto src and extracts the pixels.
func (c *Cropper) CropSelection(src imageio.SourceImage, selection types.Rect, geom projector.DisplayGeometry) (CropResult, error) {
	rect, err := c.Plan(src, selection, geom)
	if err != nil {
		if !c.config.FallbackToFull {
			return CropResult{}, fmt.Errorf("failed to project selection: %w", err)
		}
		return CropResult{
			Image:    src.Image,
			Rect:     image.Rect(0, 0, src.Width, src.Height),
			Fallback: true,
			Reason:   err,
		}, nil
	}
	return c.CropToRect(src, rect)
}

// CropToRect extracts a pixel rectangle from src
func (c *Cropper) CropToRect(src imageio.SourceImage, rect image.Rectangle) (CropResult, error) {
	img, err := c.processor.Crop(src.Image, rect)
	if err != nil {
		return CropResult{}, fmt.Errorf("failed to crop %v: %w", rect, err)
	}
	return CropResult{Image: img, Rect: rect}, nil
}
