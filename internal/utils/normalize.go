package utils

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Reason classifies why an image could not be brought into canonical form.
type Reason string

const (
	ReasonUnreadable        Reason = "unreadable"
	ReasonUnsupportedFormat Reason = "unsupported-format"
	ReasonDecodeFailure     Reason = "decode-failure"
)

// NormalizationError reports a per-image failure. Callers treat it as a
// skip-this-image condition, never as a fatal error.
type NormalizationError struct {
	Path   string
	Reason Reason
	Err    error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %s: %s: %v", e.Path, e.Reason, e.Err)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

// Normalize converts an image to the canonical opaque RGB form used for all
// compositing math. Sources carrying transparency (RGBA, NRGBA,
// luminance-alpha) are composited over an opaque white background using
// their own alpha as the blend mask; already-opaque sources are converted
// without resampling. The result always has alpha 0xff everywhere.
func Normalize(img image.Image) *image.NRGBA {
	if op, ok := img.(interface{ Opaque() bool }); ok && op.Opaque() {
		return imaging.Clone(img)
	}
	b := img.Bounds()
	background := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(background, img, image.Point{}, 1.0)
}

// LoadNormalized loads an image file and returns its canonical form.
// The only side effect is reading the source file.
func LoadNormalized(path string) (*image.NRGBA, ImageMetadata, error) {
	img, meta, err := LoadImage(path)
	if err != nil {
		return nil, ImageMetadata{}, err
	}
	return Normalize(img), meta, nil
}
