package testutil

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

// NewPhoto creates an opaque synthetic photo of the given size. A diagonal
// gradient is mixed into the base color so resampling tests exercise more
// than a single flat tone.
func NewPhoto(width, height int, base color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			shade := uint8((x + y) % 64)
			img.SetNRGBA(x, y, color.NRGBA{
				R: addClamped(base.R, shade),
				G: addClamped(base.G, shade),
				B: addClamped(base.B, shade),
				A: 0xff,
			})
		}
	}
	return img
}

// NewTranslucentPhoto creates a photo whose alpha fades from opaque at the
// top row to fully transparent at the bottom row.
func NewTranslucentPhoto(width, height int, base color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		alpha := uint8(0xff)
		if height > 1 {
			alpha = uint8(255 - y*255/(height-1))
		}
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: base.R, G: base.G, B: base.B, A: alpha})
		}
	}
	return img
}

func addClamped(v, d uint8) uint8 {
	if int(v)+int(d) > 0xff {
		return 0xff
	}
	return v + d
}

// SavePNG writes an image to path as PNG.
func SavePNG(t *testing.T, img image.Image, path string) {
	t.Helper()

	require.NoError(t, EnsureDir(filepath.Dir(path)))

	file, err := os.Create(path) //nolint:gosec // G304: Test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()

	require.NoError(t, png.Encode(file, img), "Failed to encode PNG image")
}

// SaveJPEG writes an image to path as JPEG at a high quality setting.
func SaveJPEG(t *testing.T, img image.Image, path string) {
	t.Helper()

	require.NoError(t, EnsureDir(filepath.Dir(path)))
	require.NoError(t, imaging.Save(img, path, imaging.JPEGQuality(95)))
}

// WritePhotoPNG generates a photo and writes it as PNG in one step,
// returning the full path.
func WritePhotoPNG(t *testing.T, dir, name string, width, height int) string {
	t.Helper()

	path := filepath.Join(dir, name)
	SavePNG(t, NewPhoto(width, height, color.NRGBA{R: 0x80, G: 0x60, B: 0x40}), path)
	return path
}

// WriteCorruptImage writes a file that carries an image extension but does
// not decode.
func WriteCorruptImage(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	WriteFile(t, path, []byte("not an image"))
	return path
}

// LoadImage decodes an image from path, failing the test on error.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()

	file, err := os.Open(path) //nolint:gosec // G304: Test files with controlled paths
	require.NoError(t, err, "Failed to open file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()

	img, _, err := image.Decode(file)
	require.NoError(t, err, "Failed to decode image %s", path)
	return img
}
