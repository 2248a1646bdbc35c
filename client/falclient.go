package client

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/richinsley/tryon2go/tryon"
)

const (
	DefaultQueueURL     = "https://queue.fal.run"
	DefaultStorageURL   = "https://rest.alpha.fal.ai"
	DefaultPollInterval = 500 * time.Millisecond
)

type QueueItemStoppedReason string

const (
	QueueItemStoppedReasonFinished    QueueItemStoppedReason = "finished"
	QueueItemStoppedReasonInterrupted QueueItemStoppedReason = "interrupted"
	QueueItemStoppedReasonError       QueueItemStoppedReason = "error"
)

type FalClientCallbacks struct {
	QueueItemSubmitted     func(*FalClient, *QueueItem)
	QueueItemStatusChanged func(*FalClient, *QueueItem, *QueueStatus)
	QueueItemStopped       func(*FalClient, *QueueItem, QueueItemStoppedReason)
}

// FalClient is the top level object that talks to the hosted queue and storage services
type FalClient struct {
	apiKey         string
	queueBaseURL   string
	storageBaseURL string
	tryOnApp       string
	clientid       string
	callbacks      *FalClientCallbacks
	pollInterval   time.Duration
	clock          clockwork.Clock
	httpclient     *http.Client

	mu          sync.Mutex
	queueditems map[string]*QueueItem
}

type Option func(*FalClient)

func WithQueueURL(u string) Option {
	return func(c *FalClient) { c.queueBaseURL = strings.TrimRight(u, "/") }
}

func WithStorageURL(u string) Option {
	return func(c *FalClient) { c.storageBaseURL = strings.TrimRight(u, "/") }
}

// WithTryOnApp overrides the endpoint used by TryOn.
func WithTryOnApp(appID string) Option {
	return func(c *FalClient) { c.tryOnApp = strings.Trim(appID, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *FalClient) { c.httpclient = hc }
}

func WithPollInterval(d time.Duration) Option {
	return func(c *FalClient) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *FalClient) { c.clock = clock }
}

// NewFalClient creates a new client authenticated with apiKey
func NewFalClient(apiKey string, callbacks *FalClientCallbacks, opts ...Option) *FalClient {
	c := &FalClient{
		apiKey:         apiKey,
		queueBaseURL:   DefaultQueueURL,
		storageBaseURL: DefaultStorageURL,
		tryOnApp:       tryon.AppID,
		clientid:       uuid.New().String(),
		callbacks:      callbacks,
		pollInterval:   DefaultPollInterval,
		clock:          clockwork.NewRealClock(),
		httpclient:     &http.Client{Timeout: 2 * time.Minute},
		queueditems:    make(map[string]*QueueItem),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClientID returns the unique id of this client instance
func (c *FalClient) ClientID() string {
	return c.clientid
}

// GetQueuedItem returns a QueueItem submitted by this client that has not stopped yet.
// Once a QueueItem has stopped it is no longer available with this method.
func (c *FalClient) GetQueuedItem(requestID string) *QueueItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queueditems[requestID]
}

// QueuedItemCount returns the number of submitted items that have not stopped.
func (c *FalClient) QueuedItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queueditems)
}

func (c *FalClient) trackItem(item *QueueItem) {
	c.mu.Lock()
	c.queueditems[item.RequestID] = item
	c.mu.Unlock()
}

func (c *FalClient) forgetItem(item *QueueItem) {
	c.mu.Lock()
	delete(c.queueditems, item.RequestID)
	c.mu.Unlock()
}
