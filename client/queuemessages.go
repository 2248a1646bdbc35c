package client

type QueueMessage struct {
	Type    string
	Message interface{}
}

// our cast of characters:
// queued
// in_progress
// completed
// stopped

type QueueMessageQueued struct {
	RequestID string
	Position  int
}

func (p *QueueMessage) ToQueueMessageQueued() *QueueMessageQueued {
	return p.Message.(*QueueMessageQueued)
}

type QueueMessageInProgress struct {
	RequestID string
	Logs      []LogEntry
}

// Text joins the log messages received so far, one per line.
func (m *QueueMessageInProgress) Text() string {
	return joinLogMessages(m.Logs)
}

func (p *QueueMessage) ToQueueMessageInProgress() *QueueMessageInProgress {
	return p.Message.(*QueueMessageInProgress)
}

type QueueMessageCompleted struct {
	RequestID string
	Logs      []LogEntry
}

func (p *QueueMessage) ToQueueMessageCompleted() *QueueMessageCompleted {
	return p.Message.(*QueueMessageCompleted)
}

type QueueMessageStopped struct {
	QueueItem *QueueItem
	Reason    QueueItemStoppedReason
	Err       error
}

func (p *QueueMessage) ToQueueMessageStopped() *QueueMessageStopped {
	return p.Message.(*QueueMessageStopped)
}
