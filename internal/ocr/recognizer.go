// Package ocr defines the text-recognition boundary. The engine consumes
// recognized text through the Recognizer interface; model inference lives
// behind it and is not part of this module.
package ocr

import (
	"fmt"
	"image"
)

// Recognizer turns a cropped region into raw text with a confidence in
// [0, 1]. Implementations may block on GPU or CPU inference; callers pass
// worker-local crops so implementations need not be re-entrant per image.
type Recognizer interface {
	RecognizeText(img image.Image) (text string, confidence float64, err error)
}

// RecognitionError reports that recognition failed outright for a crop,
// as opposed to succeeding with low confidence.
type RecognitionError struct {
	Cause error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("recognition failed: %v", e.Cause)
}

func (e *RecognitionError) Unwrap() error {
	return e.Cause
}
