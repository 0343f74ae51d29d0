package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"iffy/internal/domain"
	"iffy/internal/metrics"
)

type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

const (
	MessageQuotaExceeded = "AI 최대 사용량을 초과했어요."
	MessageUploadFailed  = "업로드 중 오류가 발생했습니다."
	MessageServerFailed  = "서버 처리 중 오류가 발생했습니다."
	MessagePollFailed    = "결과 확인 중 오류가 발생했습니다."
	MessageTimeout       = "결과 처리 시간이 초과되었습니다. 잠시 후 다시 시도해주세요."
)

// Budget bounds how long a job is watched. No poll is issued before
// InitialDelay has elapsed and at most MaxAttempts polls are issued.
type Budget struct {
	InitialDelay time.Duration
	Interval     time.Duration
	MaxAttempts  int
}

func DefaultBudget() Budget {
	return Budget{InitialDelay: 15 * time.Second, Interval: 5 * time.Second, MaxAttempts: 15}
}

// Snapshot is the observable state of a Machine.
type Snapshot struct {
	State    State  `json:"state"`
	JobID    string `json:"job_id,omitempty"`
	ResultID string `json:"result_id,omitempty"`
	Message  string `json:"message,omitempty"`
	Attempts int    `json:"attempts"`
}

// Client is the server side of a job.
type Client interface {
	Submit(ctx context.Context, image []byte, filename string) (string, error)
	Status(ctx context.Context, id string) (domain.IffyStatus, error)
}

type Observer func(Snapshot)

type Option func(*Machine)

func WithObserver(fn Observer) Option {
	return func(m *Machine) { m.observers = append(m.observers, fn) }
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Machine) { m.metrics = mt }
}

// Machine drives one submission at a time from idle to a terminal state.
type Machine struct {
	client    Client
	budget    Budget
	observers []Observer
	metrics   *metrics.Metrics

	mu   sync.Mutex
	snap Snapshot
}

func New(client Client, budget Budget, opts ...Option) *Machine {
	if budget.MaxAttempts <= 0 {
		budget.MaxAttempts = DefaultBudget().MaxAttempts
	}
	m := &Machine{client: client, budget: budget, snap: Snapshot{State: StateIdle}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Dismiss returns a settled machine to idle. It has no effect while a job is
// in flight; cancel the context passed to Run for that.
func (m *Machine) Dismiss() {
	m.mu.Lock()
	if !m.snap.State.Terminal() {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.set(Snapshot{State: StateIdle})
}

// Run submits image and watches the job until it settles, the budget runs
// out or ctx is cancelled. Cancellation resets the machine to idle and
// returns ctx.Err(); the server-side job is left alone.
func (m *Machine) Run(ctx context.Context, image []byte, filename string) (Snapshot, error) {
	m.set(Snapshot{State: StateSubmitting})

	id, err := m.client.Submit(ctx, image, filename)
	if ctx.Err() != nil {
		return m.dismissed(ctx)
	}
	if err != nil {
		msg := MessageUploadFailed
		if errors.Is(err, domain.ErrQuotaExceeded) {
			msg = MessageQuotaExceeded
		}
		return m.settle(Snapshot{State: StateFailed, Message: msg}), nil
	}

	m.set(Snapshot{State: StateSubmitting, JobID: id})
	if err := wait(ctx, m.budget.InitialDelay); err != nil {
		return m.dismissed(ctx)
	}
	m.set(Snapshot{State: StateProcessing, JobID: id})

	for attempt := 1; attempt <= m.budget.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := wait(ctx, m.budget.Interval); err != nil {
				return m.dismissed(ctx)
			}
		}
		status, err := m.client.Status(ctx, id)
		if ctx.Err() != nil {
			return m.dismissed(ctx)
		}
		switch {
		case err != nil:
			return m.settle(Snapshot{State: StateFailed, JobID: id, Message: MessagePollFailed, Attempts: attempt}), nil
		case status == domain.IffyStatusCompleted:
			return m.settle(Snapshot{State: StateCompleted, JobID: id, ResultID: id, Attempts: attempt}), nil
		case status == domain.IffyStatusFailed:
			return m.settle(Snapshot{State: StateFailed, JobID: id, Message: MessageServerFailed, Attempts: attempt}), nil
		}
		m.set(Snapshot{State: StateProcessing, JobID: id, Attempts: attempt})
	}
	return m.settle(Snapshot{State: StateFailed, JobID: id, Message: MessageTimeout, Attempts: m.budget.MaxAttempts}), nil
}

func (m *Machine) settle(s Snapshot) Snapshot {
	m.metrics.ObservePollAttempts(string(s.State), s.Attempts)
	m.set(s)
	return s
}

func (m *Machine) dismissed(ctx context.Context) (Snapshot, error) {
	s := Snapshot{State: StateIdle}
	m.set(s)
	return s, ctx.Err()
}

func (m *Machine) set(s Snapshot) {
	m.mu.Lock()
	m.snap = s
	observers := m.observers
	m.mu.Unlock()
	for _, fn := range observers {
		fn(s)
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
