package userbot

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/reshetovitsme/keyword-monitor/internal/modules/monitor/domain"
	monitorService "github.com/reshetovitsme/keyword-monitor/internal/modules/monitor/service"
	sessionDomain "github.com/reshetovitsme/keyword-monitor/internal/modules/session/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/shared/errors"
)

type mockSessionStore struct {
	mu       sync.Mutex
	online   []sessionDomain.WorkerSession
	touched  []int64
	statuses map[int64]sessionDomain.WorkerStatus
}

func (m *mockSessionStore) ListOnline(ctx context.Context) ([]sessionDomain.WorkerSession, error) {
	return m.online, nil
}

func (m *mockSessionStore) Touch(ctx context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched = append(m.touched, id)
	return nil
}

func (m *mockSessionStore) MarkStatus(ctx context.Context, id int64, status sessionDomain.WorkerStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statuses == nil {
		m.statuses = make(map[int64]sessionDomain.WorkerStatus)
	}
	m.statuses[id] = status
	return nil
}

type mockPipeline struct {
	mu       sync.Mutex
	messages []*domain.Message
}

func (m *mockPipeline) Handle(ctx context.Context, msg *domain.Message) (*monitorService.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return &monitorService.Result{Matched: true, Keyword: "go"}, nil
}

func newTestListener(store *mockSessionStore, pipeline *mockPipeline, run ClientRunner) *Listener {
	return &Listener{
		sessions: store,
		pipeline: pipeline,
		run:      run,
		retry:    time.Millisecond,
		now:      time.Now,
	}
}

func TestListener_NoSessions(t *testing.T) {
	l := newTestListener(&mockSessionStore{}, &mockPipeline{}, nil)

	if err := l.Run(context.Background()); !stderrors.Is(err, errors.ErrNoListeningSessions) {
		t.Errorf("Expected ErrNoListeningSessions, got %v", err)
	}
}

func TestListener_DispatchesUntilCancelled(t *testing.T) {
	store := &mockSessionStore{online: []sessionDomain.WorkerSession{{ID: 1}, {ID: 2}}}
	pipeline := &mockPipeline{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var started sync.WaitGroup
	started.Add(2)
	run := func(ctx context.Context, ws sessionDomain.WorkerSession, onMessage func(context.Context, *domain.Message), onReady func(context.Context)) error {
		onReady(ctx)
		onMessage(ctx, &domain.Message{ChatID: ws.ID, Text: "go"})
		started.Done()
		<-ctx.Done()
		return ctx.Err()
	}
	l := newTestListener(store, pipeline, run)

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	started.Wait()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Listener did not stop")
	}

	if len(pipeline.messages) != 2 {
		t.Errorf("Expected 2 dispatched messages, got %d", len(pipeline.messages))
	}
	if len(store.touched) != 2 {
		t.Errorf("Expected both sessions touched, got %v", store.touched)
	}
}

func TestListener_UnauthorizedSessionMarkedOffline(t *testing.T) {
	store := &mockSessionStore{online: []sessionDomain.WorkerSession{{ID: 5}}}
	run := func(ctx context.Context, ws sessionDomain.WorkerSession, onMessage func(context.Context, *domain.Message), onReady func(context.Context)) error {
		return errors.ErrSessionUnauthorized
	}
	l := newTestListener(store, &mockPipeline{}, run)

	err := l.Run(context.Background())
	if !stderrors.Is(err, errors.ErrNoListeningSessions) {
		t.Errorf("Expected ErrNoListeningSessions when no session could start, got %v", err)
	}
	if store.statuses[5] != sessionDomain.WorkerStatusOffline {
		t.Errorf("Expected session 5 offline, got %v", store.statuses[5])
	}
}

func TestListener_ReconnectsAfterDisconnect(t *testing.T) {
	store := &mockSessionStore{online: []sessionDomain.WorkerSession{{ID: 1}}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	attempts := 0
	run := func(ctx context.Context, ws sessionDomain.WorkerSession, onMessage func(context.Context, *domain.Message), onReady func(context.Context)) error {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()

		onReady(ctx)
		if n < 3 {
			return stderrors.New("connection reset")
		}
		cancel()
		return ctx.Err()
	}
	l := newTestListener(store, &mockPipeline{}, run)

	if err := l.Run(ctx); err != nil {
		t.Errorf("Expected nil after cancellation, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestSessionStorage(t *testing.T) {
	ctx := context.Background()

	if _, err := sessionStorage(ctx, "  "); !stderrors.Is(err, errors.ErrSessionUnauthorized) {
		t.Errorf("Expected ErrSessionUnauthorized for empty credential, got %v", err)
	}

	blob := `{"Version":1,"Data":{"DC":2}}`
	storage, err := sessionStorage(ctx, blob)
	if err != nil {
		t.Fatalf("sessionStorage failed: %v", err)
	}
	data, err := storage.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if string(data) != blob {
		t.Errorf("Expected raw session blob, got %s", data)
	}
}
