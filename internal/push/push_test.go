package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"firebase.google.com/go/v4/messaging"

	"github.com/erazemk/fieldstock/internal/notify"
)

func TestExpoClient_PerTokenResults(t *testing.T) {
	var got []expoMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing access token header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"status":"ok","id":"a"},
			{"status":"error","message":"not registered","details":{"error":"DeviceNotRegistered"}}
		]}`))
	}))
	defer srv.Close()

	c := NewExpoClient(srv.URL, "secret")
	tokens := []string{"ExponentPushToken[a]", "ExponentPushToken[b]"}
	results, err := c.SendExpo(context.Background(), tokens, notify.Message{Title: "t", Body: "b", Data: map[string]string{"order_id": "1"}})
	if err != nil {
		t.Fatalf("SendExpo: %v", err)
	}

	if len(got) != 2 || got[0].To != tokens[0] || got[1].Data["order_id"] != "1" {
		t.Errorf("unexpected request payload: %+v", got)
	}
	if len(results) != 2 || results[0] != nil || results[1] == nil {
		t.Fatalf("unexpected results: %v", results)
	}
	if !strings.Contains(results[1].Error(), "DeviceNotRegistered") {
		t.Errorf("expected error detail, got %v", results[1])
	}
}

func TestExpoClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewExpoClient(srv.URL, "")
	if _, err := c.SendExpo(context.Background(), []string{"ExpoPushToken[x]"}, notify.Message{}); err == nil {
		t.Error("expected error for 503 response")
	}
}

type fakeMulticaster struct {
	calls [][]string
	err   error
}

func (f *fakeMulticaster) SendEachForMulticast(_ context.Context, m *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	f.calls = append(f.calls, m.Tokens)
	if f.err != nil {
		return nil, f.err
	}
	return &messaging.BatchResponse{SuccessCount: len(m.Tokens) - 1, FailureCount: 1}, nil
}

func TestFCMClient_SplitsLargeMulticasts(t *testing.T) {
	fake := &fakeMulticaster{}
	c := &FCMClient{client: fake}

	tokens := make([]string, 501)
	for i := range tokens {
		tokens[i] = strings.Repeat("t", 120)
	}
	ok, failed, err := c.SendMulticast(context.Background(), tokens, notify.Message{Title: "x"})
	if err != nil {
		t.Fatalf("SendMulticast: %v", err)
	}
	if len(fake.calls) != 2 || len(fake.calls[0]) != 500 || len(fake.calls[1]) != 1 {
		t.Errorf("unexpected chunking: %d calls", len(fake.calls))
	}
	if ok != 499 || failed != 2 {
		t.Errorf("expected 499 ok and 2 failed, got %d and %d", ok, failed)
	}
}

func TestFCMClient_TransportError(t *testing.T) {
	c := &FCMClient{client: &fakeMulticaster{err: errors.New("unavailable")}}
	ok, failed, err := c.SendMulticast(context.Background(), []string{"a", "b"}, notify.Message{})
	if err == nil || ok != 0 || failed != 2 {
		t.Errorf("expected total failure, got %d, %d, %v", ok, failed, err)
	}
}
