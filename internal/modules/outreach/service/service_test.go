package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/reshetovitsme/keyword-monitor/internal/modules/outreach/domain"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/redisbus"
	"github.com/reshetovitsme/keyword-monitor/internal/platform/workerpool"
	sharedErrors "github.com/reshetovitsme/keyword-monitor/internal/shared/errors"
)

type mockRepo struct {
	plan        *domain.Plan
	lookupErr   error
	incremented []int64
}

func (m *mockRepo) LookupPlan(ctx context.Context, tgID int64) (*domain.Plan, error) {
	return m.plan, m.lookupErr
}

func (m *mockRepo) IncrementDailySent(ctx context.Context, accountID int64, at time.Time) error {
	m.incremented = append(m.incremented, accountID)
	return nil
}

func (m *mockRepo) SetAutoReply(ctx context.Context, tgID int64, enabled bool) error { return nil }
func (m *mockRepo) SetTemplate(ctx context.Context, tgID int64, content string) error { return nil }
func (m *mockRepo) ListAccounts(ctx context.Context, tgID int64, limit int) ([]domain.Account, error) {
	return nil, nil
}
func (m *mockRepo) Overview(ctx context.Context, tgID int64) (*domain.Overview, error) {
	return &domain.Overview{}, nil
}

type mockSender struct {
	mu    sync.Mutex
	sent  []string
	err   error
	creds []string
}

func (m *mockSender) SendDirect(ctx context.Context, credential, username, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = append(m.creds, credential)
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, username+":"+text)
	return nil
}

// inlineScheduler runs tasks synchronously.
type inlineScheduler struct {
	calls int
}

func (s *inlineScheduler) TrySubmit(task workerpool.Task) error {
	s.calls++
	task(context.Background())
	return nil
}

func readyPlan() *domain.Plan {
	return &domain.Plan{
		AutoReply: true,
		Account:   &domain.Account{ID: 7, SessionString: "cred", Status: domain.AccountStatusReady},
		Content:   "hello",
	}
}

func TestTrigger_SendsAndCounts(t *testing.T) {
	repo := &mockRepo{plan: readyPlan()}
	sender := &mockSender{}
	stats := redisbus.NewMemoryStats()
	svc := New(repo, sender, &inlineScheduler{}, stats, time.Second)

	scheduled, err := svc.Trigger(context.Background(), 1, "@target")
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if !scheduled {
		t.Fatal("Expected direct message to be scheduled")
	}
	if len(sender.sent) != 1 || sender.sent[0] != "target:hello" {
		t.Errorf("Unexpected sends: %v", sender.sent)
	}
	if len(repo.incremented) != 1 || repo.incremented[0] != 7 {
		t.Errorf("Expected counter bump for account 7, got %v", repo.incremented)
	}

	snapshot, _ := stats.Snapshot(context.Background(), time.Now())
	if snapshot[redisbus.MetricDMScheduled] != 1 || snapshot[redisbus.MetricDMSent] != 1 {
		t.Errorf("Unexpected stats: %v", snapshot)
	}
}

func TestTrigger_SkipsIncompletePlans(t *testing.T) {
	cases := map[string]*domain.Plan{
		"disabled":    {AutoReply: false, Account: &domain.Account{ID: 1}, Content: "x"},
		"no account":  {AutoReply: true, Content: "x"},
		"no template": {AutoReply: true, Account: &domain.Account{ID: 1}},
	}

	for name, plan := range cases {
		t.Run(name, func(t *testing.T) {
			scheduler := &inlineScheduler{}
			svc := New(&mockRepo{plan: plan}, &mockSender{}, scheduler, nil, time.Second)

			scheduled, err := svc.Trigger(context.Background(), 1, "target")
			if err != nil {
				t.Fatalf("Trigger failed: %v", err)
			}
			if scheduled || scheduler.calls != 0 {
				t.Errorf("Expected nothing scheduled for %s", name)
			}
		})
	}
}

func TestTrigger_NoUsername(t *testing.T) {
	repo := &mockRepo{lookupErr: errors.New("should not be called")}
	svc := New(repo, &mockSender{}, &inlineScheduler{}, nil, time.Second)

	scheduled, err := svc.Trigger(context.Background(), 1, " ")
	if err != nil || scheduled {
		t.Errorf("Expected silent skip, got scheduled=%v err=%v", scheduled, err)
	}
}

func TestTrigger_LookupError(t *testing.T) {
	svc := New(&mockRepo{lookupErr: errors.New("db down")}, &mockSender{}, &inlineScheduler{}, nil, time.Second)

	if _, err := svc.Trigger(context.Background(), 1, "target"); err == nil {
		t.Error("Expected lookup error to be returned")
	}
}

func TestSend_FailureDoesNotCount(t *testing.T) {
	repo := &mockRepo{}
	sender := &mockSender{err: errors.New("FLOOD_WAIT")}
	stats := redisbus.NewMemoryStats()
	svc := New(repo, sender, &inlineScheduler{}, stats, time.Second)

	svc.Send(context.Background(), domain.Task{AccountID: 7, Session: "cred", TargetUsername: "target", Text: "hi"})

	if len(repo.incremented) != 0 {
		t.Errorf("Expected no counter bump on failure, got %v", repo.incremented)
	}
	snapshot, _ := stats.Snapshot(context.Background(), time.Now())
	if snapshot[redisbus.MetricDMFailed] != 1 {
		t.Errorf("Expected failure counted, got %v", snapshot)
	}
}

func TestTrigger_WithWorkerPool(t *testing.T) {
	repo := &mockRepo{plan: readyPlan()}
	sender := &mockSender{}
	pool := workerpool.New("dm", 2)
	svc := New(repo, sender, pool, nil, time.Second)

	if _, err := svc.Trigger(context.Background(), 1, "target"); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := pool.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.sent) != 1 {
		t.Errorf("Expected pooled send to complete before close, got %v", sender.sent)
	}
}

type blockingSender struct {
	release chan struct{}
}

func (b *blockingSender) SendDirect(ctx context.Context, credential, username, text string) error {
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return nil
}

func TestTrigger_SaturatedPoolDoesNotWait(t *testing.T) {
	sender := &blockingSender{release: make(chan struct{})}
	pool := workerpool.New("dm", 1)
	stats := redisbus.NewMemoryStats()
	svc := New(&mockRepo{plan: readyPlan()}, sender, pool, stats, time.Minute)

	scheduled, err := svc.Trigger(context.Background(), 1, "first")
	if err != nil || !scheduled {
		t.Fatalf("Expected first send scheduled, got %v %v", scheduled, err)
	}

	start := time.Now()
	scheduled, err = svc.Trigger(context.Background(), 2, "second")
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Expected Trigger to return immediately on a full pool, took %s", elapsed)
	}
	if scheduled {
		t.Error("Expected second send to be dropped")
	}
	if !errors.Is(err, sharedErrors.ErrPoolFull) {
		t.Errorf("Expected ErrPoolFull, got %v", err)
	}

	close(sender.release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := pool.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	snapshot, _ := stats.Snapshot(context.Background(), time.Now())
	if snapshot[redisbus.MetricDMScheduled] != 1 {
		t.Errorf("Expected 1 scheduled DM, got %v", snapshot)
	}
}
