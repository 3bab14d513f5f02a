package ocr

import (
	"errors"
	"image"
	"image/color"
)

// Synthetic text encoding used by dev runs and tests: the painter writes
// the text into the top row of a crop as gray levels, and the synthetic
// recognizer reads it back. Pixel (0,0) holds the text length, pixels
// (1..n,0) hold the character codes, and pixel (0,1) holds the confidence
// scaled to 0-255.

// EncodeText writes text and a confidence into the top rows of img at
// origin (x, y). Characters outside 7-bit ASCII are dropped.
func EncodeText(img *image.RGBA, x, y int, text string, confidence float64) {
	clean := make([]byte, 0, len(text))
	for i := 0; i < len(text); i++ {
		if text[i] < 128 {
			clean = append(clean, text[i])
		}
	}
	if len(clean) > 255 {
		clean = clean[:255]
	}
	gray := func(v uint8) color.RGBA { return color.RGBA{v, v, v, 255} }
	img.SetRGBA(x, y, gray(uint8(len(clean))))
	for i, c := range clean {
		img.SetRGBA(x+1+i, y, gray(c))
	}
	conf := confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	img.SetRGBA(x, y+1, gray(uint8(conf*255+0.5)))
}

// SyntheticRecognizer decodes text written by EncodeText from the
// top-left corner of a crop.
type SyntheticRecognizer struct{}

// RecognizeText reads the encoded text and confidence from img.
func (SyntheticRecognizer) RecognizeText(img image.Image) (string, float64, error) {
	b := img.Bounds()
	if b.Dx() < 2 || b.Dy() < 2 {
		return "", 0, &RecognitionError{Cause: errors.New("crop too small")}
	}
	gray := func(x, y int) int {
		r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
		return int(r >> 8)
	}
	n := gray(0, 0)
	if n == 0 {
		return "", 0, &RecognitionError{Cause: errors.New("no text in region")}
	}
	if b.Dx() < n+1 {
		return "", 0, &RecognitionError{Cause: errors.New("encoded text truncated by crop")}
	}
	text := make([]byte, n)
	for i := 0; i < n; i++ {
		text[i] = byte(gray(1+i, 0))
	}
	conf := float64(gray(0, 1)) / 255.0
	return string(text), conf, nil
}
