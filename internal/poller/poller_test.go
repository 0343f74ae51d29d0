package poller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"iffy/internal/domain"
)

type scriptedClient struct {
	mu        sync.Mutex
	submitErr error
	statuses  []domain.IffyStatus
	pollErr   error
	submitted time.Time
	polls     []time.Time
}

func (c *scriptedClient) Submit(ctx context.Context, image []byte, filename string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitted = time.Now()
	if c.submitErr != nil {
		return "", c.submitErr
	}
	return "job-1", nil
}

func (c *scriptedClient) Status(ctx context.Context, id string) (domain.IffyStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.polls = append(c.polls, time.Now())
	if c.pollErr != nil {
		return "", c.pollErr
	}
	if len(c.statuses) == 0 {
		return domain.IffyStatusProcessing, nil
	}
	s := c.statuses[0]
	if len(c.statuses) > 1 {
		c.statuses = c.statuses[1:]
	}
	return s, nil
}

func (c *scriptedClient) pollCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.polls)
}

var fast = Budget{InitialDelay: time.Millisecond, Interval: time.Millisecond, MaxAttempts: 4}

func TestRunTimesOutWithinBudget(t *testing.T) {
	client := &scriptedClient{}
	m := New(client, fast)

	snap, err := m.Run(context.Background(), []byte("img"), "a.png")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if snap.State != StateFailed || snap.Message != MessageTimeout {
		t.Fatalf("snapshot = %+v, want failed with timeout message", snap)
	}
	if got := client.pollCount(); got != fast.MaxAttempts {
		t.Fatalf("polls = %d, want %d", got, fast.MaxAttempts)
	}
	time.Sleep(10 * time.Millisecond)
	if got := client.pollCount(); got != fast.MaxAttempts {
		t.Fatalf("poll issued after budget exhaustion: %d", got)
	}
}

func TestRunWaitsInitialDelayBeforeFirstPoll(t *testing.T) {
	client := &scriptedClient{statuses: []domain.IffyStatus{domain.IffyStatusCompleted}}
	budget := Budget{InitialDelay: 40 * time.Millisecond, Interval: time.Millisecond, MaxAttempts: 2}

	snap, err := New(client, budget).Run(context.Background(), []byte("img"), "a.png")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if snap.State != StateCompleted || snap.ResultID != "job-1" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if gap := client.polls[0].Sub(client.submitted); gap < budget.InitialDelay {
		t.Fatalf("first poll after %s, before the initial delay", gap)
	}
}

func TestRunTerminalOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		client   *scriptedClient
		want     State
		message  string
		attempts int
	}{
		{
			name:     "completed after processing",
			client:   &scriptedClient{statuses: []domain.IffyStatus{domain.IffyStatusProcessing, domain.IffyStatusCompleted}},
			want:     StateCompleted,
			attempts: 2,
		},
		{
			name:     "server failed",
			client:   &scriptedClient{statuses: []domain.IffyStatus{domain.IffyStatusFailed}},
			want:     StateFailed,
			message:  MessageServerFailed,
			attempts: 1,
		},
		{
			name:     "poll transport error",
			client:   &scriptedClient{pollErr: errors.New("connection reset")},
			want:     StateFailed,
			message:  MessagePollFailed,
			attempts: 1,
		},
		{
			name:    "upload rejected",
			client:  &scriptedClient{submitErr: &RejectionError{StatusCode: 500}},
			want:    StateFailed,
			message: MessageUploadFailed,
		},
		{
			name:    "quota rejected",
			client:  &scriptedClient{submitErr: &RejectionError{StatusCode: 500, Code: "quota_exceeded"}},
			want:    StateFailed,
			message: MessageQuotaExceeded,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			snap, err := New(tc.client, fast).Run(context.Background(), []byte("img"), "a.png")
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			if snap.State != tc.want || snap.Message != tc.message {
				t.Fatalf("snapshot = %+v, want %s %q", snap, tc.want, tc.message)
			}
			if tc.client.pollCount() != tc.attempts {
				t.Fatalf("polls = %d, want %d", tc.client.pollCount(), tc.attempts)
			}
		})
	}
}

func TestRunReportsTransitions(t *testing.T) {
	client := &scriptedClient{statuses: []domain.IffyStatus{domain.IffyStatusProcessing, domain.IffyStatusCompleted}}
	var states []State
	m := New(client, fast, WithObserver(func(s Snapshot) { states = append(states, s.State) }))

	if _, err := m.Run(context.Background(), []byte("img"), "a.png"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	want := []State{StateSubmitting, StateSubmitting, StateProcessing, StateProcessing, StateCompleted}
	if len(states) != len(want) {
		t.Fatalf("transitions = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", states, want)
		}
	}

	m.Dismiss()
	if m.Snapshot().State != StateIdle {
		t.Fatalf("state after Dismiss = %s", m.Snapshot().State)
	}
}

func TestRunCancelResetsToIdle(t *testing.T) {
	client := &scriptedClient{}
	ctx, cancel := context.WithCancel(context.Background())
	m := New(client, Budget{InitialDelay: time.Hour, Interval: time.Hour, MaxAttempts: 3})

	done := make(chan struct{})
	var snap Snapshot
	var err error
	go func() {
		snap, err = m.Run(ctx, []byte("img"), "a.png")
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if snap.State != StateIdle || m.Snapshot().State != StateIdle {
		t.Fatalf("state after cancel = %s", m.Snapshot().State)
	}
	if client.pollCount() != 0 {
		t.Fatal("poll issued after cancel")
	}
}

func TestAPIClientRoundTrip(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /gift", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token")
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		file.Close()
		_ = json.NewEncoder(w).Encode(domain.Iffy{ID: "abc", Status: domain.IffyStatusProcessing})
	})
	mux.HandleFunc("GET /gift", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "abc" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Iffy not found","error_code":"not_found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(domain.Iffy{ID: "abc", Status: domain.IffyStatusCompleted})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewAPIClient(srv.URL, "tok", srv.Client())
	id, err := c.Submit(context.Background(), []byte("img"), "a.png")
	if err != nil || id != "abc" {
		t.Fatalf("Submit = %q, %v", id, err)
	}
	status, err := c.Status(context.Background(), id)
	if err != nil || status != domain.IffyStatusCompleted {
		t.Fatalf("Status = %q, %v", status, err)
	}
	if _, err := c.Status(context.Background(), "zzz"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAPIClientQuotaRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"id":"x","is_error":true,"status":"failed","error_code":"quota_exceeded","commentary":"AI 최대 사용량을 초과했어요."}`))
	}))
	defer srv.Close()

	m := New(NewAPIClient(srv.URL, "", srv.Client()), fast)
	snap, err := m.Run(context.Background(), []byte("img"), "a.png")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if snap.State != StateFailed || snap.Message != MessageQuotaExceeded {
		t.Fatalf("snapshot = %+v", snap)
	}
}
