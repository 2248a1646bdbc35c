package client

const messageBuffer = 16

type QueueItem struct {
	RequestID     string            `json:"request_id"`
	StatusURL     string            `json:"status_url"`
	ResponseURL   string            `json:"response_url"`
	CancelURL     string            `json:"cancel_url"`
	QueuePosition int               `json:"queue_position"`
	AppID         string            `json:"-"`
	Messages      chan QueueMessage `json:"-"`
}
