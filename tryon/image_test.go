package tryon

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{34, 139, 34, 255})
	}
	return img
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(w, h), nil))
	return buf.Bytes()
}

func TestNewImageFilePNG(t *testing.T) {
	f, err := NewImageFile("/tmp/photos/model.png", bytes.NewReader(pngBytes(t, 64, 96)), 0)
	require.NoError(t, err)

	assert.Equal(t, "model.png", f.Name)
	assert.Equal(t, "image/png", f.ContentType)
	assert.True(t, strings.HasPrefix(f.DataURL(), "data:image/png;base64,"))

	w, h, err := f.Dimensions()
	require.NoError(t, err)
	assert.Equal(t, 64, w)
	assert.Equal(t, 96, h)
}

func TestNewImageFileJPEGContentWins(t *testing.T) {
	// a jpeg saved with a .png name is still sent as jpeg
	f, err := NewImageFile("garment.png", bytes.NewReader(jpegBytes(t, 32, 32)), 0)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", f.ContentType)
}

func TestNewImageFileRejects(t *testing.T) {
	_, err := NewImageFile("notes.txt", strings.NewReader("hello"), 0)
	assert.True(t, errors.Is(err, ErrUnsupportedImg))

	_, err = NewImageFile("fake.jpg", strings.NewReader("not really a jpeg"), 0)
	assert.True(t, errors.Is(err, ErrUnsupportedImg))

	_, err = NewImageFile("empty.png", bytes.NewReader(nil), 0)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestNewImageFileSizeLimit(t *testing.T) {
	data := pngBytes(t, 64, 64)
	_, err := NewImageFile("big.png", bytes.NewReader(data), int64(len(data)-1))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "file", ve.Field)

	_, err = NewImageFile("exact.png", bytes.NewReader(data), int64(len(data)))
	assert.NoError(t, err)
}

func TestLoadImageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.jpeg")
	require.NoError(t, os.WriteFile(path, jpegBytes(t, 16, 16), 0644))

	f, err := LoadImageFile(path)
	require.NoError(t, err)
	assert.Equal(t, "model.jpeg", f.Name)
	assert.Equal(t, int64(len(f.Data)), f.Size())
}
