package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/erazemk/fieldstock/internal/clock"
)

// Member is a crew member and the delivery token registered for them.
type Member struct {
	UserID int64
	Token  string
}

// MemberResolver lists the leader and members of a crew.
type MemberResolver interface {
	CrewMembers(ctx context.Context, crewID int64) ([]Member, error)
}

// ExpoSender delivers to Expo tokens in one request and reports one result
// per token, in order. A nil error in the slice means the ticket was accepted.
type ExpoSender interface {
	SendExpo(ctx context.Context, tokens []string, msg Message) ([]error, error)
}

// FCMSender delivers to FCM registration tokens in one multicast.
type FCMSender interface {
	SendMulticast(ctx context.Context, tokens []string, msg Message) (succeeded, failed int, err error)
}

// DefaultTimeout bounds each transport call.
const DefaultTimeout = 10 * time.Second

// Dispatcher resolves recipients, routes them per transport family and
// records the outcome.
type Dispatcher struct {
	members MemberResolver
	expo    ExpoSender
	fcm     FCMSender
	stats   StatsStore
	clock   clock.Clock
	logger  *zap.Logger
	timeout time.Duration
}

// NewDispatcher creates a dispatcher. A nil sender disables its family: tokens
// of that family count as failed.
func NewDispatcher(members MemberResolver, expo ExpoSender, fcm FCMSender, stats StatsStore, clk clock.Clock, logger *zap.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		members: members,
		expo:    expo,
		fcm:     fcm,
		stats:   stats,
		clock:   clk,
		logger:  logger,
		timeout: timeout,
	}
}

// Notify delivers ev to the crew and returns how many recipients the
// transports accepted.
func (d *Dispatcher) Notify(ctx context.Context, ev Event) int {
	log := d.logger.With(zap.String("kind", ev.Kind), zap.Int64("crew_id", ev.CrewID))

	members, err := d.members.CrewMembers(ctx, ev.CrewID)
	if err != nil {
		log.Error("resolving crew members", zap.Error(err))
		return 0
	}

	var expoTokens, fcmTokens []string
	seen := make(map[string]bool)
	failed := 0
	for _, m := range members {
		if ev.ExcludeUserID != 0 && m.UserID == ev.ExcludeUserID {
			continue
		}
		if m.Token == "" {
			log.Debug("member has no push token", zap.Int64("user_id", m.UserID))
			continue
		}
		if seen[m.Token] {
			continue
		}
		seen[m.Token] = true

		switch ClassifyToken(m.Token) {
		case FamilyExpo:
			expoTokens = append(expoTokens, m.Token)
		case FamilyFCM:
			fcmTokens = append(fcmTokens, m.Token)
		default:
			log.Warn("unrecognized push token", zap.Int64("user_id", m.UserID))
			failed++
		}
	}

	sent := len(expoTokens) + len(fcmTokens) + failed
	if sent == 0 {
		log.Debug("no recipients")
		return 0
	}

	msg := ev.message()
	succeeded := 0

	if len(expoTokens) > 0 {
		ok := d.sendExpo(ctx, log, expoTokens, msg)
		succeeded += ok
		failed += len(expoTokens) - ok
	}
	if len(fcmTokens) > 0 {
		ok := d.sendFCM(ctx, log, fcmTokens, msg)
		succeeded += ok
		failed += len(fcmTokens) - ok
	}

	if err := d.stats.Increment(ctx, clock.Day(d.clock.Now()), ev.Kind, sent, succeeded, failed); err != nil {
		log.Error("recording notification stats", zap.Error(err))
	}

	log.Info("notification dispatched",
		zap.Int("sent", sent), zap.Int("succeeded", succeeded), zap.Int("failed", failed))
	return succeeded
}

func (d *Dispatcher) sendExpo(ctx context.Context, log *zap.Logger, tokens []string, msg Message) int {
	if d.expo == nil {
		log.Warn("expo transport not configured", zap.Int("tokens", len(tokens)))
		return 0
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	results, err := d.expo.SendExpo(ctx, tokens, msg)
	if err != nil {
		log.Error("expo send failed", zap.Int("tokens", len(tokens)), zap.Error(err))
		return 0
	}
	ok := 0
	for i, r := range results {
		if i >= len(tokens) {
			break
		}
		if r != nil {
			log.Warn("expo ticket rejected", zap.Error(r))
			continue
		}
		ok++
	}
	return ok
}

func (d *Dispatcher) sendFCM(ctx context.Context, log *zap.Logger, tokens []string, msg Message) int {
	if d.fcm == nil {
		log.Warn("fcm transport not configured", zap.Int("tokens", len(tokens)))
		return 0
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	ok, bad, err := d.fcm.SendMulticast(ctx, tokens, msg)
	if err != nil {
		log.Error("fcm multicast failed", zap.Int("tokens", len(tokens)), zap.Error(err))
		return 0
	}
	if bad > 0 {
		log.Warn("fcm rejected tokens", zap.Int("failed", bad))
	}
	return min(ok, len(tokens))
}
