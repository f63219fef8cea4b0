// Package capture provides the platform capability that produces a bitmap of
// the currently visible viewport.
package capture

import (
	"context"
	"fmt"

	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

// Capturer grabs the visible viewport. Implementations may block and may
// fail; callers bound them with ctx.
type Capturer interface {
	CaptureVisible(ctx context.Context) (api.Image, error)
}

// CaptureFunc adapts a plain function to Capturer.
type CaptureFunc func(ctx context.Context) (api.Image, error)

func (f CaptureFunc) CaptureVisible(ctx context.Context) (api.Image, error) {
	return f(ctx)
}

// Static always returns the same image. It is mainly useful in tests and
// demos where no browser is attached.
type Static struct {
	Image api.Image
}

func (s Static) CaptureVisible(ctx context.Context) (api.Image, error) {
	if err := ctx.Err(); err != nil {
		return api.Image{}, err
	}
	if s.Image.IsZero() {
		return api.Image{}, fmt.Errorf("%w: no image configured", api.ErrCaptureFailed)
	}
	return s.Image, nil
}

// Unavailable is the Capturer used when no browser bridge is attached.
type Unavailable struct{}

func (Unavailable) CaptureVisible(ctx context.Context) (api.Image, error) {
	return api.Image{}, fmt.Errorf("%w: no active tab", api.ErrCaptureFailed)
}
