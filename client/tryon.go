package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/richinsley/tryon2go/tryon"
)

// Progress texts reported by TryOn before the hosted service takes over.
const (
	ProgressStarting         = "Starting try-on process..."
	ProgressUploadingModel   = "Uploading model image..."
	ProgressUploadingGarment = "Uploading garment image..."
	ProgressSubmitting       = "Submitting try-on request..."
	ProgressQueuedFormat     = "Waiting in queue (position %d)..."
	ProgressCompleted        = "Try-on completed successfully!"
)

// TryOn runs the whole try-on sequence: upload the model image, upload the garment
// image, submit the job and wait for its output. progress receives the text to show
// the user at each step; while the job runs that is the job's log so far.
//
// Returned errors can be turned into display text with tryon.UserMessage.
func (c *FalClient) TryOn(ctx context.Context, model, garment *tryon.ImageFile, opts tryon.Options, progress func(string)) (*tryon.Result, error) {
	if progress == nil {
		progress = func(string) {}
	}
	if model == nil || garment == nil {
		return nil, tryon.ErrMissingImages
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	progress(ProgressStarting)

	// Step 1: Upload model image
	progress(ProgressUploadingModel)
	modelURL, err := c.UploadImageFile(ctx, model)
	if err != nil {
		return nil, err
	}

	// Step 2: Upload garment image
	progress(ProgressUploadingGarment)
	garmentURL, err := c.UploadImageFile(ctx, garment)
	if err != nil {
		return nil, err
	}

	// Step 3: Submit try-on request
	progress(ProgressSubmitting)
	handlers := &MessageHandlers{
		OnQueued: func(msg *QueueMessageQueued) {
			slog.Debug("Try-on queued", "request_id", msg.RequestID, "position", msg.Position)
			progress(fmt.Sprintf(ProgressQueuedFormat, msg.Position))
		},
		// a running job without logs clears the progress text
		OnInProgress: func(msg *QueueMessageInProgress) {
			progress(msg.Text())
		},
	}
	item, err := c.Subscribe(ctx, c.tryOnApp, tryon.NewInput(modelURL, garmentURL, opts), handlers)
	if err != nil {
		return nil, err
	}

	var out *tryon.Output
	if err := c.Result(ctx, item, &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, tryon.ErrNoResponse
	}
	if out.Error != nil {
		if out.Error.Message != "" {
			return nil, &APIError{Message: out.Error.Message}
		}
		return nil, tryon.ErrAPIReturned
	}
	if len(out.Images) == 0 {
		return nil, tryon.ErrNoImages
	}

	progress(ProgressCompleted)
	return &tryon.Result{
		RequestID: item.RequestID,
		URLs:      out.URLs(),
		Images:    out.Images,
	}, nil
}
