package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/gorilla/websocket"
)

// JobWatcher follows a job's progress stream from another process. It reconnects
// with exponential backoff when the connection drops before the job finished; the
// server replays the current snapshot on every new connection.
type JobWatcher struct {
	URL      string
	MaxRetry int
	Dialer   websocket.Dialer

	// Exponential backoff configuration
	BaseDelay time.Duration // The initial delay, e.g., 1 second
	MaxDelay  time.Duration // The maximum delay, e.g., 1 minute

	retryCount int
}

func NewJobWatcher(wsURL string) *JobWatcher {
	return &JobWatcher{
		URL:       wsURL,
		MaxRetry:  5,
		Dialer:    *websocket.DefaultDialer,
		BaseDelay: time.Second,
		MaxDelay:  30 * time.Second,
	}
}

// Watch blocks until the job finishes and returns its final snapshot. onUpdate is
// called for every snapshot received, including the final one.
func (w *JobWatcher) Watch(ctx context.Context, onUpdate func(JobSnapshot)) (JobSnapshot, error) {
	var last JobSnapshot
	retries := 0
	for {
		snap, err := w.follow(ctx, onUpdate)
		if snap != nil {
			last = *snap
			if last.State.Done() {
				return last, nil
			}
			retries = 0
		}
		if ctx.Err() != nil {
			return last, ctx.Err()
		}
		if errors.Is(err, errJobNotFound) {
			return last, err
		}

		retries++
		if retries > w.MaxRetry {
			return last, fmt.Errorf("maximum number of retries reached (%d): %w", w.MaxRetry, err)
		}
		delay := w.getReconnectDelay()
		slog.Warn("Job stream dropped, reconnecting", "error", err, "delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return last, ctx.Err()
		}
	}
}

var errJobNotFound = errors.New("job not found")

// follow reads snapshots from one connection. It returns the last snapshot seen.
func (w *JobWatcher) follow(ctx context.Context, onUpdate func(JobSnapshot)) (*JobSnapshot, error) {
	conn, resp, err := w.Dialer.DialContext(ctx, w.URL, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return nil, errJobNotFound
		}
		return nil, err
	}
	defer conn.Close()

	// a connection that got through resets the backoff
	w.retryCount = 0

	// unblock ReadJSON when ctx ends
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var last *JobSnapshot
	for {
		var snap JobSnapshot
		if err := conn.ReadJSON(&snap); err != nil {
			if last != nil && last.State.Done() {
				return last, nil
			}
			return last, err
		}
		last = &snap
		if onUpdate != nil {
			onUpdate(snap)
		}
		if snap.State.Done() {
			return last, nil
		}
	}
}

// exponential backoff calculation
func (w *JobWatcher) getReconnectDelay() time.Duration {
	// Calculate the delay as BaseDelay * 2^(RetryCount), capped at MaxDelay
	delay := w.BaseDelay * time.Duration(math.Pow(2, float64(w.retryCount)))
	if delay > w.MaxDelay {
		delay = w.MaxDelay
	}
	w.retryCount++ // Increment the retry counter for the next attempt
	return delay
}
