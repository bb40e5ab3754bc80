package utils

import (
	"image/color"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/longimg/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSupportedImage(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"photo.jpg", true},
		{"photo.JPEG", true},
		{"photo.png", true},
		{"photo.bmp", true},
		{"photo.tiff", true},
		{"photo.webp", true},
		{"photo.gif", false},
		{"photo.txt", false},
		{"photo", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSupportedImage(tt.path), tt.path)
	}
}

func TestLoadImage_Metadata(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	path := testutil.WritePhotoPNG(t, dir, "photo.png", 320, 240)

	img, meta, err := LoadImage(path)
	require.NoError(t, err)
	require.NotNil(t, img)

	assert.Equal(t, path, meta.Path)
	assert.Equal(t, "png", meta.Format)
	assert.Equal(t, 320, meta.Width)
	assert.Equal(t, 240, meta.Height)
	assert.Positive(t, meta.SizeBytes)
	assert.InDelta(t, 320.0/240.0, meta.AspectRatio, 1e-9)
}

func TestLoadImage_EmptyPath(t *testing.T) {
	_, _, err := LoadImage("")
	var nerr *NormalizationError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, ReasonUnreadable, nerr.Reason)
}

func TestLoadImage_MissingFile(t *testing.T) {
	dir := testutil.CreateTempDir(t)

	_, _, err := LoadImage(filepath.Join(dir, "missing.png"))
	var nerr *NormalizationError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, ReasonUnreadable, nerr.Reason)
}

func TestLoadImage_UnsupportedFormat(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	path := filepath.Join(dir, "notes.txt")
	testutil.WriteFile(t, path, []byte("hello"))

	_, _, err := LoadImage(path)
	var nerr *NormalizationError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, ReasonUnsupportedFormat, nerr.Reason)
}

func TestLoadImage_DecodeFailure(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	path := testutil.WriteCorruptImage(t, dir, "broken.jpg")

	_, _, err := LoadImage(path)
	var nerr *NormalizationError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, ReasonDecodeFailure, nerr.Reason)
}

func TestLoadImage_JPEG(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	path := filepath.Join(dir, "photo.jpg")
	testutil.SaveJPEG(t, testutil.NewPhoto(64, 48, color.NRGBA{R: 0x20, G: 0x40, B: 0x60}), path)

	_, meta, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", meta.Format)
	assert.Equal(t, 64, meta.Width)
	assert.Equal(t, 48, meta.Height)
}
