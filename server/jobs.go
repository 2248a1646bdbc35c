package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/richinsley/tryon2go/tryon"
)

type JobState string

const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

func (s JobState) Done() bool {
	return s == JobSucceeded || s == JobFailed
}

type JobResult struct {
	URL          string `json:"url"`
	DownloadName string `json:"download_name"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
}

// JobSnapshot is the externally visible state of a job. Snapshots are values and
// never change after they are handed out.
type JobSnapshot struct {
	ID         uuid.UUID   `json:"id"`
	State      JobState    `json:"state"`
	Progress   string      `json:"progress,omitempty"`
	Error      string      `json:"error,omitempty"`
	RequestID  string      `json:"request_id,omitempty"`
	Results    []JobResult `json:"results"`
	CreatedAt  time.Time   `json:"created_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

const subscriberBuffer = 8

// JobRegistry keeps jobs in memory and fans state changes out to subscribers.
type JobRegistry struct {
	mu          sync.Mutex
	clock       clockwork.Clock
	jobs        map[uuid.UUID]*JobSnapshot
	subscribers map[uuid.UUID]map[chan JobSnapshot]struct{}
}

func NewJobRegistry(clock clockwork.Clock) *JobRegistry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &JobRegistry{
		clock:       clock,
		jobs:        make(map[uuid.UUID]*JobSnapshot),
		subscribers: make(map[uuid.UUID]map[chan JobSnapshot]struct{}),
	}
}

func (r *JobRegistry) Create() JobSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	job := &JobSnapshot{
		ID:        uuid.New(),
		State:     JobPending,
		Results:   []JobResult{},
		CreatedAt: r.clock.Now(),
	}
	r.jobs[job.ID] = job
	return copySnapshot(job)
}

func (r *JobRegistry) Get(id uuid.UUID) (JobSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return JobSnapshot{}, false
	}
	return copySnapshot(job), true
}

// Len returns the number of jobs held, finished or not.
func (r *JobRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func (r *JobRegistry) SetProgress(id uuid.UUID, progress string) {
	r.update(id, func(j *JobSnapshot) {
		if j.State == JobPending {
			j.State = JobRunning
		}
		j.Progress = progress
	})
}

func (r *JobRegistry) Succeed(id uuid.UUID, result *tryon.Result, progress string) {
	r.update(id, func(j *JobSnapshot) {
		j.State = JobSucceeded
		j.Progress = progress
		j.RequestID = result.RequestID
		j.Results = make([]JobResult, 0, len(result.Images))
		for i, img := range result.Images {
			j.Results = append(j.Results, JobResult{
				URL:          img.URL,
				DownloadName: tryon.DownloadName(i),
				Width:        img.Width,
				Height:       img.Height,
			})
		}
		now := r.clock.Now()
		j.FinishedAt = &now
	})
}

func (r *JobRegistry) Fail(id uuid.UUID, message string) {
	r.update(id, func(j *JobSnapshot) {
		j.State = JobFailed
		j.Error = message
		now := r.clock.Now()
		j.FinishedAt = &now
	})
}

// update applies fn to a job that has not finished and notifies subscribers.
func (r *JobRegistry) update(id uuid.UUID, fn func(*JobSnapshot)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.State.Done() {
		return
	}
	fn(job)
	snap := copySnapshot(job)
	for ch := range r.subscribers[id] {
		publish(ch, snap)
	}
	if snap.State.Done() {
		for ch := range r.subscribers[id] {
			close(ch)
		}
		delete(r.subscribers, id)
	}
}

// Subscribe returns a channel carrying the job's current snapshot followed by every
// later change. The channel is closed once the job finishes. A slow reader only
// loses intermediate snapshots, never the last one.
func (r *JobRegistry) Subscribe(id uuid.UUID) (<-chan JobSnapshot, func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, func() {}, false
	}

	ch := make(chan JobSnapshot, subscriberBuffer)
	ch <- copySnapshot(job)
	if job.State.Done() {
		close(ch)
		return ch, func() {}, true
	}

	if r.subscribers[id] == nil {
		r.subscribers[id] = make(map[chan JobSnapshot]struct{})
	}
	r.subscribers[id][ch] = struct{}{}

	unsubscribe := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if subs, ok := r.subscribers[id]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
		}
	}
	return ch, unsubscribe, true
}

// Sweep drops finished jobs older than ttl and returns how many were removed.
func (r *JobRegistry) Sweep(ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.clock.Now().Add(-ttl)
	removed := 0
	for id, job := range r.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed
}

func publish(ch chan JobSnapshot, snap JobSnapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
		}
		// full, drop the oldest pending snapshot
		select {
		case <-ch:
		default:
		}
	}
}

func copySnapshot(j *JobSnapshot) JobSnapshot {
	c := *j
	c.Results = append([]JobResult(nil), j.Results...)
	if c.Results == nil {
		c.Results = []JobResult{}
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	return c
}
