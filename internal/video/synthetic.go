package video

import (
	"context"
	"errors"
	"image"
)

// Painter draws the content of one synthetic frame. It is called with a
// freshly allocated image each time, so implementations must be pure
// functions of the frame index.
type Painter func(index int, img *image.RGBA)

// SyntheticSource renders frames on demand from a Painter. It backs dev
// runs and tests: every decode allocates a new image, so concurrent reads
// of different indices are safe by construction.
type SyntheticSource struct {
	Width   int
	Height  int
	Frames  int
	Rate    float64
	Paint   Painter
	Corrupt map[int]bool // indices that fail to decode
}

// DecodeFrame renders the frame at index, or returns a DecodeError for
// corrupted or out-of-range indices.
func (s *SyntheticSource) DecodeFrame(ctx context.Context, index int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 || index >= s.Frames {
		return nil, &DecodeError{Index: index, Cause: errors.New("index out of range")}
	}
	if s.Corrupt[index] {
		return nil, &DecodeError{Index: index, Cause: errors.New("corrupted frame")}
	}
	img := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	if s.Paint != nil {
		s.Paint(index, img)
	}
	return img, nil
}

// FrameCount returns the number of frames the source renders.
func (s *SyntheticSource) FrameCount() int {
	return s.Frames
}

// FPS returns the synthetic frame rate.
func (s *SyntheticSource) FPS() float64 {
	if s.Rate <= 0 {
		return 30.0
	}
	return s.Rate
}
