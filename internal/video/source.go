// Package video defines the frame-source boundary. The engine consumes
// decoded frames through the Source interface; actual codec handling
// lives behind it and is not part of this module.
package video

import (
	"context"
	"fmt"
	"image"
	"image/draw"
)

// Source supplies decoded frames by index. Implementations must support
// concurrent reads of different indices (one decoder handle per worker or
// internal locking).
type Source interface {
	// DecodeFrame returns the frame at the given index.
	DecodeFrame(ctx context.Context, index int) (image.Image, error)
	// FrameCount returns the total number of frames in the recording.
	FrameCount() int
	// FPS returns the recording frame rate.
	FPS() float64
}

// DecodeError reports that a frame could not be read at all. The pipeline
// records such frames as all-roles-failed rather than aborting the batch.
type DecodeError struct {
	Index int
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode frame %d: %v", e.Index, e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// Crop returns a copy of the rectangular region r of img. Out-of-frame
// portions of r are clipped; an empty intersection yields a 0x0 image.
func Crop(img image.Image, r image.Rectangle) image.Image {
	r = r.Intersect(img.Bounds())
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
	return out
}
