package tryon

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ImageFile is a photo selected by the user, held in memory until it is uploaded.
type ImageFile struct {
	Name        string
	ContentType string
	Data        []byte
}

var acceptedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// NewImageFile reads r and checks that it holds a JPEG or PNG image.
// maxBytes <= 0 disables the size limit.
func NewImageFile(name string, r io.Reader, maxBytes int64) (*ImageFile, error) {
	if maxBytes > 0 {
		r = io.LimitReader(r, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, &ValidationError{Field: "file", Message: fmt.Sprintf("%s is larger than the %d byte limit", filepath.Base(name), maxBytes)}
	}
	if len(data) == 0 {
		return nil, &ValidationError{Field: "file", Message: fmt.Sprintf("%s is empty", filepath.Base(name))}
	}

	ext := strings.ToLower(filepath.Ext(name))
	byExt, ok := acceptedExtensions[ext]
	if !ok {
		return nil, fmt.Errorf("%s: %w", filepath.Base(name), ErrUnsupportedImg)
	}
	sniffed := http.DetectContentType(data)
	if sniffed != "image/jpeg" && sniffed != "image/png" {
		return nil, fmt.Errorf("%s: %w", filepath.Base(name), ErrUnsupportedImg)
	}
	if sniffed != byExt {
		// trust the bytes over the extension
		byExt = sniffed
	}

	return &ImageFile{
		Name:        filepath.Base(name),
		ContentType: byExt,
		Data:        data,
	}, nil
}

// LoadImageFile reads an image from disk.
func LoadImageFile(path string) (*ImageFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewImageFile(path, f, 0)
}

func (f *ImageFile) Reader() io.Reader {
	return bytes.NewReader(f.Data)
}

func (f *ImageFile) Size() int64 {
	return int64(len(f.Data))
}

// DataURL returns the image inlined as a data URL, suitable for a local preview.
func (f *ImageFile) DataURL() string {
	return "data:" + f.ContentType + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}

// Dimensions decodes only the image header.
func (f *ImageFile) Dimensions() (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
