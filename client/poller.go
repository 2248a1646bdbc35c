package client

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Watch polls the queue status of item until it completes, fails or ctx is done,
// translating each change into a QueueMessage on item.Messages. The channel is
// closed after the final "stopped" message, so callers must drain it, usually
// through ProcessMessages.
func (c *FalClient) Watch(ctx context.Context, item *QueueItem) {
	go c.poll(ctx, item)
}

func (c *FalClient) poll(ctx context.Context, item *QueueItem) {
	defer close(item.Messages)

	lastPosition := -1
	lastLogCount := -1
	var lastStatus QueueStatusType

	for {
		status, err := c.Status(ctx, item, true)
		if err != nil {
			if ctx.Err() != nil {
				c.cancelQuietly(item)
				c.stopItem(ctx, item, QueueItemStoppedReasonInterrupted, ctx.Err())
				return
			}
			slog.Error("Queue status request failed", "request_id", item.RequestID, "error", err)
			c.stopItem(ctx, item, QueueItemStoppedReasonError, err)
			return
		}

		if status.Status != lastStatus && c.callbacks != nil && c.callbacks.QueueItemStatusChanged != nil {
			c.callbacks.QueueItemStatusChanged(c, item, status)
		}

		switch status.Status {
		case StatusInQueue:
			pos := 0
			if status.QueuePosition != nil {
				pos = *status.QueuePosition
			}
			if pos != lastPosition {
				lastPosition = pos
				item.QueuePosition = pos
				c.emit(ctx, item, QueueMessage{
					Type:    "queued",
					Message: &QueueMessageQueued{RequestID: item.RequestID, Position: pos},
				})
			}
		case StatusInProgress:
			// the status endpoint returns the full log each time, only forward growth
			if status.Status != lastStatus || len(status.Logs) != lastLogCount {
				lastLogCount = len(status.Logs)
				c.emit(ctx, item, QueueMessage{
					Type:    "in_progress",
					Message: &QueueMessageInProgress{RequestID: item.RequestID, Logs: status.Logs},
				})
			}
		case StatusCompleted:
			if status.ResponseURL != "" {
				item.ResponseURL = status.ResponseURL
			}
			c.emit(ctx, item, QueueMessage{
				Type:    "completed",
				Message: &QueueMessageCompleted{RequestID: item.RequestID, Logs: status.Logs},
			})
			if status.Error != "" {
				c.stopItem(ctx, item, QueueItemStoppedReasonError, &APIError{Message: status.Error})
				return
			}
			c.stopItem(ctx, item, QueueItemStoppedReasonFinished, nil)
			return
		default:
			slog.Warn("Unhandled queue status", "status", status.Status, "request_id", item.RequestID)
		}
		lastStatus = status.Status

		select {
		case <-c.clock.After(c.pollInterval):
		case <-ctx.Done():
			c.cancelQuietly(item)
			c.stopItem(ctx, item, QueueItemStoppedReasonInterrupted, ctx.Err())
			return
		}
	}
}

func (c *FalClient) emit(ctx context.Context, item *QueueItem, m QueueMessage) {
	select {
	case item.Messages <- m:
	case <-ctx.Done():
	}
}

// stopItem removes the item from the client and sends the final message. The
// final message is never dropped while a consumer is reading.
func (c *FalClient) stopItem(ctx context.Context, item *QueueItem, reason QueueItemStoppedReason, err error) {
	c.forgetItem(item)
	if c.callbacks != nil && c.callbacks.QueueItemStopped != nil {
		c.callbacks.QueueItemStopped(c, item, reason)
	}
	m := QueueMessage{
		Type:    "stopped",
		Message: &QueueMessageStopped{QueueItem: item, Reason: reason, Err: err},
	}
	if ctx.Err() == nil {
		item.Messages <- m
		return
	}
	select {
	case item.Messages <- m:
	default:
	}
}

func (c *FalClient) cancelQuietly(item *QueueItem) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Cancel(ctx, item); err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			slog.Warn("Cancelling request failed", "request_id", item.RequestID, "error", err)
		}
	}
}
