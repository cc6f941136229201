// Package client defines the contract of vision model backends and the
// tolerant parsing of their JSON answers.
package client

import (
	"context"

	"github.com/menta2k/snapcrop/pkg/types"
)

// VisionClient is a model backend able to look at a base64 encoded image
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	DetectSubject(ctx context.Context, model, prompt, imgB64 string) (*types.Detection, error)
}
