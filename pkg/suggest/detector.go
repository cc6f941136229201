// Package suggest proposes an initial selection from the dominant subject of
// a photo, found by a vision model or by local saliency.
package suggest

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/menta2k/snapcrop/pkg/client"
	"github.com/menta2k/snapcrop/pkg/imageio"
	"github.com/menta2k/snapcrop/pkg/types"
	"github.com/menta2k/snapcrop/pkg/vision"
)

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// DefaultPrompt is the default prompt for subject detection
const DefaultPrompt = `You are an image subject locator.

Return JSON only:
{
  "subject": {
    "label": "string",
    "confidence": 0.0,
    "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}
  },
  "description": "short neutral sentence (≤ 20 words)",
  "tags": ["tag1", "tag2", "tag3", "tag4", "tag5"]
}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels). x,y is the top-left corner.
- The box should tightly include the visually dominant subject (prefer people/vehicles/animals/documents; else the most central salient object).
- Description must be brief and factual. Do not guess real identities.
- Tags: lowercase, concise, no punctuation or duplicates.
- If no subject is found, return:
  {
    "subject":{"label":"none","confidence":0.0,"box":{"x":0.25,"y":0.25,"w":0.50,"h":0.50}},
    "description":"centered generic scene",
    "tags":["generic","center","subject","photo","scene"]
  }
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Suggester finds the dominant subject of an image
type Suggester interface {
	Suggest(ctx context.Context, img image.Image) (types.Subject, error)
}

// PayloadOptions controls the image sent to a model
type PayloadOptions struct {
	Format  string
	MaxDim  int
	Quality int
}

// Detector handles subject detection using vision models
type Detector struct {
	client    client.VisionClient
	processor *imageio.Processor
	model     string
	prompt    string
	payload   PayloadOptions
	logger    *slog.Logger
}

// Option configures a Detector
type Option func(*Detector)

// WithPrompt replaces DefaultPrompt
func WithPrompt(prompt string) Option {
	return func(d *Detector) { d.prompt = prompt }
}

// WithPayload sets the encoding of the image sent to the model
func WithPayload(p PayloadOptions) Option {
	return func(d *Detector) { d.payload = p }
}

// WithLogger sets the logger; the default discards.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDetector creates a new detector with a vision client
func NewDetector(c client.VisionClient, model string, opts ...Option) *Detector {
	d := &Detector{
		client:    c,
		processor: imageio.NewProcessor(),
		model:     model,
		prompt:    DefaultPrompt,
		payload:   PayloadOptions{Format: "jpg", MaxDim: 1024, Quality: 85},
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Suggest encodes img and asks the model for its dominant subject
func (d *Detector) Suggest(ctx context.Context, img image.Image) (types.Subject, error) {
	imgB64, err := d.processor.PrepareImageForModel(img, d.payload.Format, d.payload.MaxDim, d.payload.Quality)
	if err != nil {
		return types.Subject{}, fmt.Errorf("failed to prepare image: %w", err)
	}

	result, err := d.DetectSubject(ctx, imgB64)
	if err != nil {
		return types.Subject{}, err
	}
	d.logger.Debug("subject detected",
		"model", d.model,
		"label", result.Subject.Label,
		"confidence", result.Subject.Confidence,
		"box", result.Subject.Box)
	return result.Subject, nil
}

// DetectSubject analyzes a base64 image and returns the validated detection
func (d *Detector) DetectSubject(ctx context.Context, imageB64 string) (*types.Detection, error) {
	result, err := d.client.DetectSubject(ctx, d.model, d.prompt, imageB64)
	if err != nil {
		return nil, fmt.Errorf("subject detection failed: %w", err)
	}

	result.Subject.Box = normalizeBox(result.Subject.Box)
	result.Tags = normalizeTags(result.Tags)
	return validateResult(result), nil
}

// TestVision tests if the model can actually see the image with a simple prompt
func (d *Detector) TestVision(ctx context.Context, imageB64 string) (string, error) {
	return d.client.SimpleQuery(ctx, d.model, SimpleTestPrompt, imageB64)
}

// validateResult demotes fallback answers to the "none" subject
func validateResult(result *types.Detection) *types.Detection {
	if strings.EqualFold(result.Subject.Label, "none") {
		return result
	}

	fallbackIndicators := []string{"unclear", "empty", "parse", "error", "fallback", "non-json", "generic"}
	label := strings.ToLower(result.Subject.Label)
	desc := strings.ToLower(result.Description)
	for _, indicator := range fallbackIndicators {
		if strings.Contains(label, indicator) || strings.Contains(desc, indicator) {
			result.Subject.Label = "none"
			result.Subject.Confidence = 0
			break
		}
	}
	return result
}

// Local wraps the saliency detector as a Suggester
type Local struct {
	detector *vision.SubjectDetector
}

// NewLocal creates a Suggester that needs no model
func NewLocal(detector *vision.SubjectDetector) *Local {
	if detector == nil {
		detector = vision.New()
	}
	return &Local{detector: detector}
}

// Suggest returns the most salient region of img
func (l *Local) Suggest(ctx context.Context, img image.Image) (types.Subject, error) {
	if err := ctx.Err(); err != nil {
		return types.Subject{}, err
	}
	return l.detector.FindSubject(img)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normalizeBox keeps the box inside the unit square
func normalizeBox(b types.Box) types.Box {
	x := clamp(b.X, 0, 1)
	y := clamp(b.Y, 0, 1)
	return types.Box{
		X: x,
		Y: y,
		W: clamp(b.W, 0, 1-x),
		H: clamp(b.H, 0, 1-y),
	}
}

// normalizeTags ensures tags are cleaned and limited to 5 entries
func normalizeTags(tags []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, 5)
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == 5 {
			break
		}
	}
	return out
}
