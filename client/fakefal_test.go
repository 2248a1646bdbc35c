package client

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const testKey = "test-key"

// fakeFal stands in for the hosted queue and storage services.
type fakeFal struct {
	t   *testing.T
	srv *httptest.Server

	mu        sync.Mutex
	uploads   map[string][]byte
	uploadCT  map[string]string
	putAuth   []string
	submitted []map[string]interface{}
	statuses  []string
	statusIdx int
	output    string
	statusQ   []string

	initiateStatus int
	cancelled      atomic.Bool
}

func newFakeFal(t *testing.T) *fakeFal {
	f := &fakeFal{
		t:        t,
		uploads:  map[string][]byte{},
		uploadCT: map[string]string{},
		statuses: []string{`{"status":"COMPLETED"}`},
		output:   `{"images":[{"url":"https://cdn.example/result-1.png","width":864,"height":1296}]}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /storage/upload/initiate", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		if f.initiateStatus != 0 {
			w.WriteHeader(f.initiateStatus)
			io.WriteString(w, `{"detail":"storage unavailable"}`)
			return
		}
		var req uploadInitiateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeTestJSON(w, uploadInitiateResponse{
			UploadURL: f.srv.URL + "/upload/" + req.FileName + "?sig=abc",
			FileURL:   "https://cdn.example/files/" + req.FileName,
		})
	})
	mux.HandleFunc("PUT /upload/{name}", func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.uploads[r.PathValue("name")] = data
		f.uploadCT[r.PathValue("name")] = r.Header.Get("Content-Type")
		f.putAuth = append(f.putAuth, r.Header.Get("Authorization"))
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /fashn/tryon", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		var input map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.submitted = append(f.submitted, input)
		f.mu.Unlock()
		io.WriteString(w, `{"request_id":"req-1","queue_position":0}`)
	})
	mux.HandleFunc("GET /fashn/tryon/requests/req-1/status", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		f.mu.Lock()
		body := f.statuses[f.statusIdx]
		if f.statusIdx < len(f.statuses)-1 {
			f.statusIdx++
		}
		f.statusQ = append(f.statusQ, r.URL.RawQuery)
		f.mu.Unlock()
		io.WriteString(w, body)
	})
	mux.HandleFunc("GET /fashn/tryon/requests/req-1", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		io.WriteString(w, f.output)
	})
	mux.HandleFunc("PUT /fashn/tryon/requests/req-1/cancel", func(w http.ResponseWriter, r *http.Request) {
		f.cancelled.Store(true)
		io.WriteString(w, `{"status":"CANCELLATION_REQUESTED"}`)
	})
	mux.HandleFunc("GET /files/{name}", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "image-bytes-"+r.PathValue("name"))
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeFal) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Key "+testKey {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"detail":"No user found for Key ID and Secret"}`)
		return false
	}
	return true
}

func (f *fakeFal) setStatuses(statuses ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = statuses
	f.statusIdx = 0
}

func (f *fakeFal) statusCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.statusQ)
}

func (f *fakeFal) client(callbacks *FalClientCallbacks) *FalClient {
	return NewFalClient(testKey, callbacks,
		WithQueueURL(f.srv.URL+"/"),
		WithStorageURL(f.srv.URL),
		WithPollInterval(time.Millisecond),
	)
}

func writeTestJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
