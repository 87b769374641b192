package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/erazemk/fieldstock/internal/clock"
	"github.com/erazemk/fieldstock/internal/notify"
)

// NotificationsHandler exposes the daily delivery counters.
type NotificationsHandler struct {
	Store  notify.StatsStore
	Clock  clock.Clock
	Logger *zap.Logger
}

// Stats handles GET /api/notifications/stats?from=YYYY-MM-DD&to=YYYY-MM-DD.
// The range defaults to the last seven days and may span at most a year.
func (h *NotificationsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	now := h.Clock.Now()
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if to == "" {
		to = clock.Day(now)
	}
	if from == "" {
		from = clock.Day(now.AddDate(0, 0, -6))
	}
	if _, _, err := notify.ParseRange(from, to); err != nil {
		writeError(w, h.Logger, "list notification stats", err)
		return
	}

	stats, err := h.Store.List(r.Context(), from, to)
	if err != nil {
		writeError(w, h.Logger, "list notification stats", err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(stats))
}
