// Package snapcrop lets a user frame part of a captured photo with a
// draggable, resizable rectangle and cuts exactly that part out of the
// full-resolution bitmap.
//
// A Session ties the pieces together: the selection overlay drawn over the
// preview container, the source image, the fit-center geometry between
// them and the crop pipeline.
//
// Basic usage:
//
//	s := snapcrop.New(snapcrop.WithOutput(types.OutputOptions{Dir: "cropped"}))
//	if err := s.LoadSource("photo.jpg"); err != nil {
//		log.Fatal(err)
//	}
//	s.Layout(1080, 1920)
//	s.PointerDown(200, 400)
//	s.PointerMove(260, 420)
//	s.PointerUp()
//
//	res := <-s.CropAsync(context.Background())
//	if res.Err != nil {
//		log.Fatal(res.Err)
//	}
//	fmt.Println("wrote", res.Path)
//
// The package consists of these components:
//
//  1. Overlay (pkg/overlay): gesture state machine and rendering
//  2. Projector (pkg/projector): view to pixel mapping
//  3. Cropper (pkg/cropper): pixel extraction with a full-image fallback
//  4. History (pkg/history): log of captured images
//  5. Suggest (pkg/suggest): selection seeding from a detected subject
package snapcrop

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"time"

	"github.com/disintegration/imaging"

	"github.com/menta2k/snapcrop/internal/utils"
	"github.com/menta2k/snapcrop/pkg/cropper"
	"github.com/menta2k/snapcrop/pkg/history"
	"github.com/menta2k/snapcrop/pkg/imageio"
	"github.com/menta2k/snapcrop/pkg/overlay"
	"github.com/menta2k/snapcrop/pkg/projector"
	"github.com/menta2k/snapcrop/pkg/suggest"
	"github.com/menta2k/snapcrop/pkg/types"
)

// Version of the snapcrop library
const Version = "1.0.0"

var (
	// ErrNoSource is returned when an operation needs a source image
	ErrNoSource = errors.New("snapcrop: no source image")
	// ErrNoHistory is returned by Record when no history store is set
	ErrNoHistory = errors.New("snapcrop: history disabled")
	// ErrNoSuggester is returned by Suggest when no suggester is set
	ErrNoSuggester = errors.New("snapcrop: no suggester configured")
)

// Session is one editing session over a single source image. Like the
// overlay it wraps, it is meant to be driven from one goroutine; CropAsync
// hands copies of its state to a worker.
type Session struct {
	overlay   *overlay.Overlay
	cropper   *cropper.Cropper
	processor *imageio.Processor

	source     imageio.SourceImage
	hasSource  bool
	containerW float64
	containerH float64

	output        types.OutputOptions
	history       *history.Store
	suggester     suggest.Suggester
	minConfidence float64

	overlayCfg  overlay.Config
	overlayOpts []overlay.Option
	cropCfg     cropper.CropConfig
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Session
type Option func(*Session)

// WithOverlayConfig replaces the overlay defaults
func WithOverlayConfig(cfg overlay.Config) Option {
	return func(s *Session) { s.overlayCfg = cfg }
}

// WithInvalidate registers the redraw hook of the overlay
func WithInvalidate(fn func()) Option {
	return func(s *Session) { s.overlayOpts = append(s.overlayOpts, overlay.WithInvalidate(fn)) }
}

// WithCropConfig sets the crop fallback policy
func WithCropConfig(cfg cropper.CropConfig) Option {
	return func(s *Session) { s.cropCfg = cfg }
}

// WithOutput sets where and how crops are written. An empty Dir keeps
// crops in memory only.
func WithOutput(out types.OutputOptions) Option {
	return func(s *Session) { s.output = out }
}

// WithHistory enables Record
func WithHistory(store *history.Store) Option {
	return func(s *Session) { s.history = store }
}

// WithSuggester enables Suggest. Subjects below minConfidence are ignored.
func WithSuggester(sg suggest.Suggester, minConfidence float64) Option {
	return func(s *Session) {
		s.suggester = sg
		s.minConfidence = minConfidence
	}
}

// WithLogger sets the logger; the default discards.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for output names
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates a session with no source image
func New(opts ...Option) *Session {
	s := &Session{
		processor:  imageio.NewProcessor(),
		overlayCfg: overlay.DefaultConfig(),
		cropCfg:    cropper.CropConfig{FallbackToFull: true},
		output:     types.OutputOptions{Prefix: "crop", Extension: "jpg", Quality: 95},
		logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.overlay = overlay.New(s.overlayCfg, s.overlayOpts...)
	s.cropper = cropper.NewWithConfig(s.cropCfg)
	return s
}

// SetSource sets the full-resolution image being cropped
func (s *Session) SetSource(img image.Image) {
	s.source = imageio.NewSourceImage(img)
	s.hasSource = true
}

// LoadSource loads the source image from a file path or URL
func (s *Session) LoadSource(source string) error {
	src, err := s.processor.LoadSource(source)
	if err != nil {
		return fmt.Errorf("failed to load source: %w", err)
	}
	s.source = src
	s.hasSource = true
	s.logger.Debug("source loaded", "source", source, "width", src.Width, "height", src.Height)
	return nil
}

// Source returns the source image and whether one is set
func (s *Session) Source() (imageio.SourceImage, bool) { return s.source, s.hasSource }

// Overlay exposes the selection overlay
func (s *Session) Overlay() *overlay.Overlay { return s.overlay }

// Layout records the container size. The overlay covers the whole
// container and is seeded on the first non-zero size.
func (s *Session) Layout(width, height float64) {
	s.containerW, s.containerH = width, height
	s.overlay.Resize(width, height)
}

func (s *Session) PointerDown(x, y float64) { s.overlay.PointerDown(x, y) }
func (s *Session) PointerMove(x, y float64) { s.overlay.PointerMove(x, y) }
func (s *Session) PointerUp()               { s.overlay.PointerUp() }
func (s *Session) PointerCancel()           { s.overlay.PointerCancel() }

// Selection returns the current selection in view coordinates
func (s *Session) Selection() types.Rect { return s.overlay.CropRect() }

// Geometry returns where the source is displayed inside the container.
// It is zero until both a source and a layout are known.
func (s *Session) Geometry() projector.DisplayGeometry {
	if !s.hasSource {
		return projector.DisplayGeometry{}
	}
	return projector.ComputeDisplayGeometry(s.containerW, s.containerH, float64(s.source.Width), float64(s.source.Height))
}

// Project maps the current selection to source pixels
func (s *Session) Project() (image.Rectangle, error) {
	if !s.hasSource {
		return image.Rectangle{}, ErrNoSource
	}
	return s.cropper.Plan(s.source, s.overlay.CropRect(), s.Geometry())
}

// Crop cuts the current selection out of the source. With the default
// policy a selection that cannot be projected yields the whole source and
// a result marked Fallback.
func (s *Session) Crop() (cropper.CropResult, error) {
	if !s.hasSource {
		return cropper.CropResult{}, ErrNoSource
	}
	return s.crop(s.source, s.overlay.CropRect(), s.Geometry())
}

func (s *Session) crop(src imageio.SourceImage, sel types.Rect, geom projector.DisplayGeometry) (cropper.CropResult, error) {
	res, err := s.cropper.CropSelection(src, sel, geom)
	if err != nil {
		return cropper.CropResult{}, err
	}
	if res.Fallback {
		s.logger.Warn("selection not projectable, keeping full image", "selection", sel, "error", res.Reason)
	}
	return res, nil
}

// Result is delivered by CropAsync
type Result struct {
	Crop cropper.CropResult
	// Path is where the crop was written; empty when output is in memory.
	Path string
	Err  error
}

// CropAsync snapshots the selection and geometry, then crops and saves on a
// worker goroutine. The channel yields at most one Result and is closed;
// when ctx is done first the result is dropped.
func (s *Session) CropAsync(ctx context.Context) <-chan Result {
	out := make(chan Result, 1)
	if !s.hasSource {
		out <- Result{Err: ErrNoSource}
		close(out)
		return out
	}

	src, sel, geom := s.source, s.overlay.CropRect(), s.Geometry()
	go func() {
		defer close(out)

		var r Result
		r.Crop, r.Err = s.crop(src, sel, geom)
		if r.Err == nil && s.output.Dir != "" && ctx.Err() == nil {
			r.Path, r.Err = s.Save(r.Crop.Image)
		}
		if ctx.Err() != nil {
			s.logger.Debug("crop dropped", "error", ctx.Err())
			return
		}
		out <- r
	}()
	return out
}

// Save writes img into the output directory as <prefix>_<unix millis>.<ext>
func (s *Session) Save(img image.Image) (string, error) {
	if img == nil {
		return "", imageio.ErrEmptyCrop
	}
	if err := utils.EnsureDir(s.output.Dir); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	prefix := s.output.Prefix
	if prefix == "" {
		prefix = "crop"
	}
	ext := s.output.Extension
	if ext == "" {
		ext = "jpg"
	}
	quality := s.output.Quality
	if quality <= 0 {
		quality = 95
	}

	path := utils.UniquePath(s.output.Dir, utils.TimestampedName(prefix, ext, s.now()))
	if err := s.processor.SaveImage(img, path, ext, quality, s.output.Lossless); err != nil {
		return "", fmt.Errorf("failed to save crop: %w", err)
	}
	s.logger.Info("crop saved", "path", path)
	return path, nil
}

// Record copies the image at path into the history with an example note
func (s *Session) Record(path, example string) (types.HistoryItem, error) {
	if s.history == nil {
		return types.HistoryItem{}, ErrNoHistory
	}
	return s.history.SaveImageFile(path, example)
}

// Suggest asks the suggester for the dominant subject and, when it is
// usable, moves the selection over it. It reports whether the selection
// changed.
func (s *Session) Suggest(ctx context.Context) (types.Subject, bool, error) {
	if s.suggester == nil {
		return types.Subject{}, false, ErrNoSuggester
	}
	if !s.hasSource {
		return types.Subject{}, false, ErrNoSource
	}

	subject, err := s.suggester.Suggest(ctx, s.source.Image)
	if err != nil {
		return types.Subject{}, false, fmt.Errorf("failed to suggest selection: %w", err)
	}
	seeded := suggest.SeedSelection(s.overlay, subject, s.Geometry(), s.minConfidence)
	s.logger.Debug("suggestion", "label", subject.Label, "confidence", subject.Confidence, "seeded", seeded)
	return subject, seeded, nil
}

// Preview renders the container as the user sees it: the source fitted and
// centered, with the overlay on top.
func (s *Session) Preview() (*image.NRGBA, error) {
	w, h := round(s.containerW), round(s.containerH)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("preview needs a layout, got %vx%v", s.containerW, s.containerH)
	}

	base := imaging.New(w, h, color.NRGBA{0, 0, 0, 255})
	if geom := s.Geometry(); !geom.Empty() {
		dw, dh := max(round(geom.Width), 1), max(round(geom.Height), 1)
		fitted := imaging.Resize(s.source.Image, dw, dh, imaging.Linear)
		base = imaging.Paste(base, fitted, image.Pt(round(geom.OffsetX), round(geom.OffsetY)))
	}
	return s.overlay.Composite(base), nil
}

// SavePreview writes Preview to path in the format its extension names
func (s *Session) SavePreview(path string) error {
	img, err := s.Preview()
	if err != nil {
		return err
	}
	format := utils.GetFileExtension(path)
	switch format {
	case "jpg", "jpeg", "png", "webp":
	default:
		format = "png"
	}
	return s.processor.SaveImage(img, path, format, 92, false)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}

func round(v float64) int {
	return int(math.Round(v))
}
