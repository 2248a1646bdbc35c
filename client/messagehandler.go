package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrStreamClosed is returned by ProcessMessages when the message channel closes
// without a "stopped" message, which happens when the watch was abandoned.
var ErrStreamClosed = errors.New("queue message stream closed before the request stopped")

// MessageHandlers defines optional callback functions for handling different message types
// from a QueueItem. All handlers are optional - only provide handlers for the messages you care about.
type MessageHandlers struct {
	// OnQueued is called when the request waits in the queue, and again when its position changes
	OnQueued func(*QueueMessageQueued)

	// OnInProgress is called whenever the running request produced new log lines
	OnInProgress func(*QueueMessageInProgress)

	// OnCompleted is called when the hosted service reports the request as completed
	OnCompleted func(*QueueMessageCompleted)

	// OnStopped is called when watching stops (completion, error, or interruption)
	OnStopped func(*QueueMessageStopped)

	// OnError is called before OnStopped when the request failed
	OnError func(error)

	// OnComplete is called after the message loop exits, regardless of success or failure
	OnComplete func()
}

// DefaultMessageHandlers returns MessageHandlers that log queue position, new log
// lines, errors and completion.
func DefaultMessageHandlers() *MessageHandlers {
	return &MessageHandlers{
		OnQueued: func(msg *QueueMessageQueued) {
			slog.Info("Request queued", "request_id", msg.RequestID, "position", msg.Position)
		},
		OnInProgress: func(msg *QueueMessageInProgress) {
			if n := len(msg.Logs); n > 0 {
				slog.Info("Request in progress", "request_id", msg.RequestID, "log", msg.Logs[n-1].Message)
			}
		},
		OnError: func(err error) {
			slog.Error("Request failed", "error", err)
		},
		OnStopped: func(msg *QueueMessageStopped) {
			if msg.Err == nil {
				slog.Info("Request completed successfully", "request_id", msg.QueueItem.RequestID)
			}
		},
	}
}

// WithQueuedHandler adds a queued handler (builder pattern)
func (h *MessageHandlers) WithQueuedHandler(fn func(*QueueMessageQueued)) *MessageHandlers {
	h.OnQueued = fn
	return h
}

// WithInProgressHandler adds an in progress handler (builder pattern)
func (h *MessageHandlers) WithInProgressHandler(fn func(*QueueMessageInProgress)) *MessageHandlers {
	h.OnInProgress = fn
	return h
}

// WithCompletedHandler adds a completed handler (builder pattern)
func (h *MessageHandlers) WithCompletedHandler(fn func(*QueueMessageCompleted)) *MessageHandlers {
	h.OnCompleted = fn
	return h
}

// WithStoppedHandler adds a stopped handler (builder pattern)
func (h *MessageHandlers) WithStoppedHandler(fn func(*QueueMessageStopped)) *MessageHandlers {
	h.OnStopped = fn
	return h
}

// WithErrorHandler adds an error handler (builder pattern)
func (h *MessageHandlers) WithErrorHandler(fn func(error)) *MessageHandlers {
	h.OnError = fn
	return h
}

// WithCompleteHandler adds a complete handler (builder pattern)
func (h *MessageHandlers) WithCompleteHandler(fn func()) *MessageHandlers {
	h.OnComplete = fn
	return h
}

// ProcessMessages processes messages from the QueueItem using the provided handlers.
// This function blocks until the request stops.
// Returns the request's error, nil if it completed.
func (qi *QueueItem) ProcessMessages(handlers *MessageHandlers) error {
	if handlers == nil {
		handlers = &MessageHandlers{}
	}

	// Ensure OnComplete is called when we exit
	if handlers.OnComplete != nil {
		defer handlers.OnComplete()
	}

	for msg := range qi.Messages {
		switch msg.Type {
		case "queued":
			if handlers.OnQueued != nil {
				handlers.OnQueued(msg.ToQueueMessageQueued())
			}

		case "in_progress":
			if handlers.OnInProgress != nil {
				handlers.OnInProgress(msg.ToQueueMessageInProgress())
			}

		case "completed":
			if handlers.OnCompleted != nil {
				handlers.OnCompleted(msg.ToQueueMessageCompleted())
			}

		case "stopped":
			stopped := msg.ToQueueMessageStopped()
			if stopped.Err != nil && handlers.OnError != nil {
				handlers.OnError(stopped.Err)
			}
			if handlers.OnStopped != nil {
				handlers.OnStopped(stopped)
			}
			return stopped.Err

		default:
			slog.Warn("Unknown message type received", "type", msg.Type)
		}
	}
	return ErrStreamClosed
}

// Subscribe submits input, then blocks processing queue messages until the request
// stops. On success the item's ResponseURL points at the output, see Result.
//
// Example:
//
//	item, err := c.Subscribe(ctx, "fashn/tryon", input,
//	    client.DefaultMessageHandlers().
//	        WithInProgressHandler(func(msg *client.QueueMessageInProgress) {
//	            fmt.Println(msg.Text())
//	        }),
//	)
func (c *FalClient) Subscribe(ctx context.Context, appID string, input any, handlers *MessageHandlers) (*QueueItem, error) {
	item, err := c.Submit(ctx, appID, input)
	if err != nil {
		return nil, fmt.Errorf("failed to submit request: %w", err)
	}

	c.Watch(ctx, item)
	if err := item.ProcessMessages(handlers); err != nil {
		return item, err
	}
	return item, nil
}
