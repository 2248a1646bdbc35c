package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

/*
POST {queue}/{app}                           submit, returns request_id and urls
GET  {queue}/{app}/requests/{id}/status      queue status, ?logs=1 adds logs
GET  {queue}/{app}/requests/{id}             completed output
PUT  {queue}/{app}/requests/{id}/cancel      cancel a queued request

POST {storage}/storage/upload/initiate       returns upload_url and file_url
PUT  {upload_url}                            raw file bytes
*/

func (c *FalClient) newRequest(ctx context.Context, method, target string, body io.Reader, authorize bool) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if authorize && c.apiKey != "" {
		req.Header.Set("Authorization", "Key "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// doJSON sends in as a JSON body (when non-nil) and decodes the response into out (when non-nil).
func (c *FalClient) doJSON(ctx context.Context, method, target string, in any, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, target, body, true)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp.StatusCode, respBody)
		slog.Debug("hosted api request failed", "method", method, "url", target, "status", resp.StatusCode, "error", apiErr.Message)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", target, err)
	}
	return nil
}

// appBase returns the queue URL for an app. Request urls only use the owner/alias
// part of the app id, sub paths are dropped.
func (c *FalClient) appBase(appID string) string {
	parts := strings.Split(strings.Trim(appID, "/"), "/")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return c.queueBaseURL + "/" + strings.Join(parts, "/")
}

// Submit enqueues input on the hosted app and returns the queued item.
func (c *FalClient) Submit(ctx context.Context, appID string, input any) (*QueueItem, error) {
	item := &QueueItem{
		AppID:    appID,
		Messages: make(chan QueueMessage, messageBuffer),
	}
	target := c.queueBaseURL + "/" + strings.Trim(appID, "/")
	if err := c.doJSON(ctx, http.MethodPost, target, input, item); err != nil {
		return nil, err
	}
	if item.RequestID == "" {
		return nil, fmt.Errorf("queue response for %s carried no request id", appID)
	}

	base := c.appBase(appID) + "/requests/" + url.PathEscape(item.RequestID)
	if item.StatusURL == "" {
		item.StatusURL = base + "/status"
	}
	if item.ResponseURL == "" {
		item.ResponseURL = base
	}
	if item.CancelURL == "" {
		item.CancelURL = base + "/cancel"
	}

	c.trackItem(item)
	slog.Info("Queued request", "app", appID, "request_id", item.RequestID, "client_id", c.clientid)
	if c.callbacks != nil && c.callbacks.QueueItemSubmitted != nil {
		c.callbacks.QueueItemSubmitted(c, item)
	}
	return item, nil
}

// Status fetches the current queue status of item.
func (c *FalClient) Status(ctx context.Context, item *QueueItem, logs bool) (*QueueStatus, error) {
	target := item.StatusURL
	if logs {
		u, err := url.Parse(target)
		if err != nil {
			return nil, err
		}
		q := u.Query()
		q.Set("logs", "1")
		u.RawQuery = q.Encode()
		target = u.String()
	}

	status := &QueueStatus{}
	if err := c.doJSON(ctx, http.MethodGet, target, nil, status); err != nil {
		return nil, err
	}
	return status, nil
}

// Result fetches the output of a completed item and decodes it into out.
func (c *FalClient) Result(ctx context.Context, item *QueueItem, out any) error {
	return c.doJSON(ctx, http.MethodGet, item.ResponseURL, nil, out)
}

// Cancel asks the queue to drop item. Items already running may still complete.
func (c *FalClient) Cancel(ctx context.Context, item *QueueItem) error {
	return c.doJSON(ctx, http.MethodPut, item.CancelURL, nil, nil)
}

// DownloadImage streams the file at fileURL into w.
func (c *FalClient) DownloadImage(ctx context.Context, fileURL string, w io.Writer) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fileURL, nil, false)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return 0, newAPIError(resp.StatusCode, body)
	}
	return io.Copy(w, resp.Body)
}
