package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/richinsley/tryon2go/tryon"
)

// UploadFileFromReader uploads the contents of r to the hosted storage service and
// returns the public URL of the stored file. Upload is a two step exchange: the
// storage service hands out a signed upload URL, then the bytes are PUT there.
func (c *FalClient) UploadFileFromReader(ctx context.Context, r io.Reader, filename string, contentType string) (string, error) {
	if filename == "" {
		filename = uuid.NewString()
	}
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(filename))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
	}

	// Ask for a signed upload location
	initiate := &uploadInitiateResponse{}
	err := c.doJSON(ctx, http.MethodPost, c.storageBaseURL+"/storage/upload/initiate", &uploadInitiateRequest{
		ContentType: contentType,
		FileName:    filename,
	}, initiate)
	if err != nil {
		slog.Error("Upload initiate failed", "file", filename, "error", err)
		return "", fmt.Errorf("%w: %w", tryon.ErrUploadFailed, err)
	}
	if initiate.UploadURL == "" || initiate.FileURL == "" {
		return "", fmt.Errorf("%w: storage returned an incomplete upload location", tryon.ErrUploadFailed)
	}

	// The signed url carries its own credentials
	req, err := c.newRequest(ctx, http.MethodPut, initiate.UploadURL, r, false)
	if err != nil {
		return "", fmt.Errorf("%w: %w", tryon.ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpclient.Do(req)
	if err != nil {
		slog.Error("Upload failed", "file", filename, "error", err)
		return "", fmt.Errorf("%w: %w", tryon.ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := newAPIError(resp.StatusCode, body)
		slog.Error("Upload rejected", "file", filename, "status", resp.StatusCode, "error", apiErr)
		return "", fmt.Errorf("%w: %w", tryon.ErrUploadFailed, apiErr)
	}
	io.Copy(io.Discard, resp.Body)

	slog.Debug("Uploaded file", "file", filename, "url", initiate.FileURL)
	return initiate.FileURL, nil
}

func (c *FalClient) UploadFileFromPath(ctx context.Context, filePath string) (string, error) {
	// Open the file
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	return c.UploadFileFromReader(ctx, file, filepath.Base(filePath), "")
}

// UploadImageFile uploads a validated in-memory image.
func (c *FalClient) UploadImageFile(ctx context.Context, img *tryon.ImageFile) (string, error) {
	return c.UploadFileFromReader(ctx, img.Reader(), img.Name, img.ContentType)
}
