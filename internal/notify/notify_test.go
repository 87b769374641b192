package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/erazemk/fieldstock/internal/clock"
	"github.com/erazemk/fieldstock/internal/model"
)

var fcmToken = strings.Repeat("f", 140)

type fakeMembers struct {
	members map[int64][]Member
	err     error
}

func (f *fakeMembers) CrewMembers(_ context.Context, crewID int64) ([]Member, error) {
	return f.members[crewID], f.err
}

type fakeExpo struct {
	mu     sync.Mutex
	tokens []string
	reject map[string]bool
	err    error
	msg    Message
}

func (f *fakeExpo) SendExpo(_ context.Context, tokens []string, msg Message) ([]error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, tokens...)
	f.msg = msg
	if f.err != nil {
		return nil, f.err
	}
	results := make([]error, len(tokens))
	for i, t := range tokens {
		if f.reject[t] {
			results[i] = errors.New("DeviceNotRegistered")
		}
	}
	return results, nil
}

type fakeFCM struct {
	tokens   []string
	err      error
	deadline bool
}

func (f *fakeFCM) SendMulticast(ctx context.Context, tokens []string, _ Message) (int, int, error) {
	f.tokens = append(f.tokens, tokens...)
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return 0, 0, f.err
	}
	return len(tokens), 0, nil
}

type memStats struct {
	mu   sync.Mutex
	rows map[[2]string]model.NotificationStat
}

func newMemStats() *memStats {
	return &memStats{rows: make(map[[2]string]model.NotificationStat)}
}

func (m *memStats) Increment(_ context.Context, day, kind string, sent, succeeded, failed int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.rows[[2]string{day, kind}]
	st.Day, st.Kind = day, kind
	st.Sent += sent
	st.Succeeded += succeeded
	st.Failed += failed
	m.rows[[2]string{day, kind}] = st
	return nil
}

func (m *memStats) List(context.Context, string, string) ([]model.NotificationStat, error) {
	return nil, nil
}

func (m *memStats) get(day, kind string) model.NotificationStat {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[[2]string{day, kind}]
}

var now = time.Date(2025, 3, 14, 23, 59, 0, 0, time.UTC)

func newTestDispatcher(members *fakeMembers, expo ExpoSender, fcm FCMSender, stats StatsStore) *Dispatcher {
	return NewDispatcher(members, expo, fcm, stats, clock.NewManual(now), zap.NewNop(), time.Second)
}

func TestClassifyToken(t *testing.T) {
	tests := []struct {
		token string
		want  Family
	}{
		{"ExponentPushToken[xxxxxxxxxxxxxxxxxxxxxx]", FamilyExpo},
		{"ExpoPushToken[abc]", FamilyExpo},
		{"ExponentPushToken[]", FamilyUnknown},
		{"ExponentPushToken[abc", FamilyUnknown},
		{fcmToken, FamilyFCM},
		{strings.Repeat("f", 99), FamilyUnknown},
		{strings.Repeat("f", 60) + " " + strings.Repeat("f", 60), FamilyUnknown},
		{"", FamilyUnknown},
	}
	for _, tt := range tests {
		if got := ClassifyToken(tt.token); got != tt.want {
			t.Errorf("ClassifyToken(%.30q) = %v, want %v", tt.token, got, tt.want)
		}
	}
}

func TestRender(t *testing.T) {
	got := Render("Order {order_id} is now {status} ({missing})", map[string]string{"order_id": "42", "status": "completed"})
	if got != "Order 42 is now completed ({missing})" {
		t.Errorf("unexpected render: %q", got)
	}
}

func TestDispatcher_RoutesAndExcludesActor(t *testing.T) {
	members := &fakeMembers{members: map[int64][]Member{
		7: {
			{UserID: 1, Token: "ExponentPushToken[leader]"},
			{UserID: 2, Token: "ExponentPushToken[actor]"},
			{UserID: 3, Token: fcmToken},
			{UserID: 4, Token: ""},
			{UserID: 5, Token: "garbage"},
		},
	}}
	expo := &fakeExpo{}
	fcm := &fakeFCM{}
	stats := newMemStats()
	d := newTestDispatcher(members, expo, fcm, stats)

	ev := NewEvent(model.EventReassigned, 7, map[string]string{"order_id": "abc", "address": "Calle 5"}, 2)
	if got := d.Notify(context.Background(), ev); got != 2 {
		t.Errorf("expected 2 accepted deliveries, got %d", got)
	}

	if len(expo.tokens) != 1 || expo.tokens[0] != "ExponentPushToken[leader]" {
		t.Errorf("unexpected expo recipients: %v", expo.tokens)
	}
	if len(fcm.tokens) != 1 {
		t.Errorf("unexpected fcm recipients: %v", fcm.tokens)
	}
	if !fcm.deadline {
		t.Error("expected transport call to carry a deadline")
	}
	if !strings.Contains(expo.msg.Body, "abc") || expo.msg.Data["kind"] != model.EventReassigned {
		t.Errorf("unexpected message: %+v", expo.msg)
	}

	st := stats.get("2025-03-14", model.EventReassigned)
	if st.Sent != 3 || st.Succeeded != 2 || st.Failed != 1 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestDispatcher_FamilyFailureIsIsolated(t *testing.T) {
	members := &fakeMembers{members: map[int64][]Member{
		1: {
			{UserID: 1, Token: "ExponentPushToken[a]"},
			{UserID: 2, Token: "ExponentPushToken[b]"},
			{UserID: 3, Token: fcmToken},
		},
	}}
	expo := &fakeExpo{err: errors.New("expo down")}
	fcm := &fakeFCM{}
	stats := newMemStats()
	d := newTestDispatcher(members, expo, fcm, stats)

	if got := d.Notify(context.Background(), NewEvent(model.EventStatusChanged, 1, nil, 0)); got != 1 {
		t.Errorf("expected the FCM delivery to succeed, got %d", got)
	}
	st := stats.get("2025-03-14", model.EventStatusChanged)
	if st.Sent != 3 || st.Succeeded != 1 || st.Failed != 2 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestDispatcher_PerTokenRejections(t *testing.T) {
	members := &fakeMembers{members: map[int64][]Member{
		1: {
			{UserID: 1, Token: "ExponentPushToken[a]"},
			{UserID: 2, Token: "ExponentPushToken[b]"},
		},
	}}
	expo := &fakeExpo{reject: map[string]bool{"ExponentPushToken[b]": true}}
	stats := newMemStats()
	d := newTestDispatcher(members, expo, nil, stats)

	if got := d.Notify(context.Background(), NewEvent(model.EventOrderAssigned, 1, nil, 0)); got != 1 {
		t.Errorf("expected 1 accepted, got %d", got)
	}
	if st := stats.get("2025-03-14", model.EventOrderAssigned); st.Failed != 1 {
		t.Errorf("expected 1 failure, got %+v", st)
	}
}

func TestDispatcher_ResolverErrorIsSwallowed(t *testing.T) {
	d := newTestDispatcher(&fakeMembers{err: errors.New("db closed")}, &fakeExpo{}, &fakeFCM{}, newMemStats())
	if got := d.Notify(context.Background(), NewEvent(model.EventReassigned, 1, nil, 0)); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

type panicky struct{}

func (panicky) Notify(context.Context, Event) int { panic("boom") }

type recorder struct {
	mu     sync.Mutex
	events []Event
	ctxErr error
}

func (r *recorder) Notify(ctx context.Context, ev Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	r.ctxErr = ctx.Err()
	return 1
}

func TestAsync_DetachesFromCaller(t *testing.T) {
	rec := &recorder{}
	a := NewAsync(rec, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := a.Notify(ctx, NewEvent(model.EventReassigned, 1, nil, 0)); got != 0 {
		t.Errorf("expected Async to return 0, got %d", got)
	}
	a.Wait()

	if len(rec.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(rec.events))
	}
	if rec.ctxErr != nil {
		t.Errorf("caller cancellation leaked into dispatch: %v", rec.ctxErr)
	}
}

func TestAsync_RecoversPanics(t *testing.T) {
	a := NewAsync(panicky{}, zap.NewNop())
	a.Notify(context.Background(), Event{Kind: "x"})
	a.Wait()
}
