package client

import "strings"

type QueueStatusType string

const (
	StatusInQueue    QueueStatusType = "IN_QUEUE"
	StatusInProgress QueueStatusType = "IN_PROGRESS"
	StatusCompleted  QueueStatusType = "COMPLETED"
)

type LogEntry struct {
	Message   string `json:"message"`
	Level     string `json:"level,omitempty"`
	Source    string `json:"source,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

/*
{"status": "IN_QUEUE", "queue_position": 2, "response_url": "https://queue.fal.run/fashn/tryon/requests/764cabcf-b745-4b3e-ae38-1200304cf45b"}
{"status": "IN_PROGRESS", "logs": [{"message": "Loading model", "level": "INFO", "source": "user", "timestamp": "2024-05-01T10:00:00.000Z"}]}
{"status": "COMPLETED", "logs": [...], "response_url": "..."}
*/

type QueueStatus struct {
	Status        QueueStatusType `json:"status"`
	QueuePosition *int            `json:"queue_position,omitempty"`
	Logs          []LogEntry      `json:"logs"`
	ResponseURL   string          `json:"response_url,omitempty"`
	Error         string          `json:"error,omitempty"`
}

type uploadInitiateRequest struct {
	ContentType string `json:"content_type"`
	FileName    string `json:"file_name"`
}

type uploadInitiateResponse struct {
	UploadURL string `json:"upload_url"`
	FileURL   string `json:"file_url"`
}

func joinLogMessages(logs []LogEntry) string {
	messages := make([]string, 0, len(logs))
	for _, l := range logs {
		messages = append(messages, l.Message)
	}
	return strings.Join(messages, "\n")
}
