package orders

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/erazemk/fieldstock/internal/model"
	"github.com/erazemk/fieldstock/internal/store"
)

// orderChanges records which dimensions of an order an update touched.
type orderChanges struct {
	status         bool
	previousStatus string
	nextStatus     string
	crew           bool
	materials      bool
	fields         []string
}

func (c orderChanges) empty() bool {
	return !c.status && !c.crew && !c.materials && len(c.fields) == 0
}

func (c orderChanges) completing() bool {
	return c.status && c.nextStatus == model.OrderStatusCompleted
}

func (c orderChanges) names() []string {
	var names []string
	if c.status {
		names = append(names, model.ChangeStatus)
	}
	if c.crew {
		names = append(names, model.ChangeCrewAssignment)
	}
	if c.materials {
		names = append(names, model.ChangeMaterialsAdded)
	}
	return append(names, c.fields...)
}

// history builds one entry per changed dimension, in a fixed order.
func (c orderChanges) history(ctx context.Context, q store.Querier, old, next *model.Order) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry

	if c.status {
		entries = append(entries, model.HistoryEntry{
			ChangeType:    model.ChangeStatus,
			PreviousValue: c.previousStatus,
			NewValue:      next.Status,
			Description:   fmt.Sprintf("Status changed from %s to %s", c.previousStatus, next.Status),
		})
	}

	if c.crew {
		from, err := crewLabel(ctx, q, old.AssignedTo)
		if err != nil {
			return nil, err
		}
		to, err := crewLabel(ctx, q, next.AssignedTo)
		if err != nil {
			return nil, err
		}
		var desc string
		switch {
		case next.AssignedTo == nil:
			desc = "Unassigned from " + from
		case old.AssignedTo == nil:
			desc = "Assigned to " + to
		default:
			desc = fmt.Sprintf("Reassigned from %s to %s", from, to)
		}
		entries = append(entries, model.HistoryEntry{
			ChangeType:    model.ChangeCrewAssignment,
			PreviousValue: crewValue(old.AssignedTo),
			NewValue:      crewValue(next.AssignedTo),
			Description:   desc,
		})
	}

	if c.materials {
		desc, err := describeMaterials(ctx, q, next.Materials)
		if err != nil {
			return nil, err
		}
		entries = append(entries, model.HistoryEntry{
			ChangeType:    model.ChangeMaterialsAdded,
			PreviousValue: materialsJSON(old.Materials),
			NewValue:      materialsJSON(next.Materials),
			Description:   desc,
		})
	}

	if len(c.fields) > 0 {
		entries = append(entries, model.HistoryEntry{
			ChangeType:  model.ChangeUpdated,
			NewValue:    strings.Join(c.fields, ","),
			Description: "Updated " + strings.Join(c.fields, ", "),
		})
	}

	return entries, nil
}

func materialsJSON(m model.Materials) string {
	v, err := m.Value()
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func crewValue(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func crewLabel(ctx context.Context, q store.Querier, id *int64) (string, error) {
	if id == nil {
		return "no crew", nil
	}
	crew, err := store.GetCrew(ctx, q, *id)
	if err != nil {
		return "", err
	}
	if crew == nil {
		return fmt.Sprintf("crew id %d", *id), nil
	}
	return fmt.Sprintf("crew %d", crew.Number), nil
}

func describeMaterials(ctx context.Context, q store.Querier, lines model.Materials) (string, error) {
	if len(lines) == 0 {
		return "Materials cleared", nil
	}
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		code := strconv.FormatInt(line.ItemID, 10)
		item, err := store.GetCatalogItem(ctx, q, line.ItemID)
		if err != nil {
			return "", err
		}
		if item != nil {
			code = item.Code
		}
		part := fmt.Sprintf("%d x %s", line.Quantity, code)
		if line.BatchCode != "" {
			part += " from " + line.BatchCode
		}
		parts = append(parts, part)
	}
	return "Materials recorded: " + strings.Join(parts, ", "), nil
}
