package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/erazemk/fieldstock/internal/db"
	"github.com/erazemk/fieldstock/internal/model"
)

func TestSQLStats(t *testing.T) {
	s := &SQLStats{DB: db.NewTestDB(t)}
	ctx := context.Background()

	if err := s.Increment(ctx, "2025-03-14", model.EventReassigned, 2, 1, 1); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	s.Increment(ctx, "2025-03-14", model.EventReassigned, 1, 1, 0)

	stats, err := s.List(ctx, "2025-03-01", "2025-03-31")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(stats) != 1 || stats[0].Sent != 3 || stats[0].Succeeded != 2 || stats[0].Failed != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		from, to string
		ok       bool
	}{
		{"2025-03-14", "2025-03-14", true},
		{"2025-01-01", "2025-12-31", true},
		{"2024-01-01", "2024-12-31", true},
		{"2024-01-01", "2025-01-01", false},
		{"0001-01-01", "9999-12-31", false},
		{"2025-03-14", "2025-03-13", false},
		{"14/03/2025", "2025-03-14", false},
		{"2025-03-14", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.from+".."+tt.to, func(t *testing.T) {
			_, _, err := ParseRange(tt.from, tt.to)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, model.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestSQLStats_RejectsLongRange(t *testing.T) {
	s := &SQLStats{DB: db.NewTestDB(t)}
	if _, err := s.List(context.Background(), "0001-01-01", "9999-12-31"); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestStatsFromHash(t *testing.T) {
	got := statsFromHash("2025-03-14", map[string]string{
		"reassigned:sent":          "4",
		"reassigned:succeeded":     "3",
		"reassigned:failed":        "1",
		"order_assigned:sent":      "1",
		"order_assigned:succeeded": "1",
		"junk":                     "9",
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 kinds, got %+v", got)
	}
	if got[0].Kind != "order_assigned" || got[1].Sent != 4 || got[1].Failed != 1 {
		t.Errorf("unexpected stats: %+v", got)
	}
}

func TestRedisStats(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}

	prefix := "fieldstock-test:" + time.Now().Format("150405.000000")
	s := &RedisStats{Client: client, Prefix: prefix, TTL: time.Minute}
	t.Cleanup(func() { client.Del(context.Background(), prefix+":2025-03-14") })

	s.Increment(ctx, "2025-03-14", model.EventStatusChanged, 2, 2, 0)
	s.Increment(ctx, "2025-03-14", model.EventStatusChanged, 1, 0, 1)

	stats, err := s.List(ctx, "2025-03-13", "2025-03-14")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(stats) != 1 || stats[0].Sent != 3 || stats[0].Succeeded != 2 || stats[0].Failed != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
