package notify

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/erazemk/fieldstock/internal/model"
	"github.com/erazemk/fieldstock/internal/store"
)

// StatsStore keeps durable daily counters keyed by (UTC day, event kind).
type StatsStore interface {
	Increment(ctx context.Context, day, kind string, sent, succeeded, failed int) error
	List(ctx context.Context, from, to string) ([]model.NotificationStat, error)
}

// MaxStatsDays is the longest day range a stats query may cover.
const MaxStatsDays = 366

// ParseRange validates an inclusive YYYY-MM-DD day range.
func ParseRange(from, to string) (start, end time.Time, err error) {
	start, err = time.Parse(time.DateOnly, from)
	if err != nil {
		return start, end, fmt.Errorf("%w: bad from day %q", model.ErrInvalidInput, from)
	}
	end, err = time.Parse(time.DateOnly, to)
	if err != nil {
		return start, end, fmt.Errorf("%w: bad to day %q", model.ErrInvalidInput, to)
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("%w: day range %s..%s is reversed", model.ErrInvalidInput, from, to)
	}
	if days := int(end.Sub(start)/(24*time.Hour)) + 1; days > MaxStatsDays {
		return start, end, fmt.Errorf("%w: day range covers %d days, at most %d allowed", model.ErrInvalidInput, days, MaxStatsDays)
	}
	return start, end, nil
}

// SQLStats stores counters in the notification_stats table.
type SQLStats struct {
	DB *sqlx.DB
}

func (s *SQLStats) Increment(ctx context.Context, day, kind string, sent, succeeded, failed int) error {
	return store.IncrementNotificationStats(ctx, s.DB, day, kind, sent, succeeded, failed)
}

func (s *SQLStats) List(ctx context.Context, from, to string) ([]model.NotificationStat, error) {
	if _, _, err := ParseRange(from, to); err != nil {
		return nil, err
	}
	return store.ListNotificationStats(ctx, s.DB, from, to)
}

// RedisStats stores counters in one hash per day. Fields are "<kind>:sent",
// "<kind>:succeeded" and "<kind>:failed".
type RedisStats struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
}

func (s *RedisStats) key(day string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "fieldstock:notify"
	}
	return prefix + ":" + day
}

func (s *RedisStats) Increment(ctx context.Context, day, kind string, sent, succeeded, failed int) error {
	key := s.key(day)
	pipe := s.Client.TxPipeline()
	pipe.HIncrBy(ctx, key, kind+":sent", int64(sent))
	pipe.HIncrBy(ctx, key, kind+":succeeded", int64(succeeded))
	pipe.HIncrBy(ctx, key, kind+":failed", int64(failed))
	if s.TTL > 0 {
		pipe.Expire(ctx, key, s.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("incrementing notification stats: %w", err)
	}
	return nil
}

func (s *RedisStats) List(ctx context.Context, from, to string) ([]model.NotificationStat, error) {
	start, end, err := ParseRange(from, to)
	if err != nil {
		return nil, err
	}

	var stats []model.NotificationStat
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		d := day.Format(time.DateOnly)
		fields, err := s.Client.HGetAll(ctx, s.key(d)).Result()
		if err != nil {
			return nil, fmt.Errorf("reading notification stats: %w", err)
		}
		stats = append(stats, statsFromHash(d, fields)...)
	}
	return stats, nil
}

func statsFromHash(day string, fields map[string]string) []model.NotificationStat {
	byKind := make(map[string]*model.NotificationStat)
	var kinds []string
	for field, value := range fields {
		kind, counter, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		st, ok := byKind[kind]
		if !ok {
			st = &model.NotificationStat{Day: day, Kind: kind}
			byKind[kind] = st
			kinds = append(kinds, kind)
		}
		switch counter {
		case "sent":
			st.Sent = n
		case "succeeded":
			st.Succeeded = n
		case "failed":
			st.Failed = n
		}
	}
	slices.Sort(kinds)
	out := make([]model.NotificationStat, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, *byKind[k])
	}
	return out
}
