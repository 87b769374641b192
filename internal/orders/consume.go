package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/erazemk/fieldstock/internal/model"
	"github.com/erazemk/fieldstock/internal/store"
)

// consumeMaterials takes every material line of a completed order out of the
// assigned crew's holdings. Holdings are checked for the whole list first so
// a shortfall is reported before anything is written.
func consumeMaterials(ctx context.Context, tx *sqlx.Tx, o *model.Order, actor model.Actor, at time.Time) error {
	crewID := *o.AssignedTo
	if err := checkHoldings(ctx, tx, crewID, o.Materials); err != nil {
		return err
	}

	orderID := o.ID
	notes := "order " + o.ID
	if o.TicketID != nil {
		notes = "ticket " + *o.TicketID
	}

	for _, line := range o.Materials {
		switch {
		case len(line.InstanceIDs) > 0:
			if err := checkInstanceItems(ctx, tx, line); err != nil {
				return err
			}
			if _, err := store.ConsumeInstancesForOrder(ctx, tx, line.InstanceIDs, orderID, crewID, store.InstanceChange{
				OrderID: &orderID, ActorID: actor.Ref(), At: at,
			}); err != nil {
				return err
			}
		default:
			if line.BatchCode != "" {
				if err := consumeBatch(ctx, tx, line, orderID, crewID, actor, at); err != nil {
					return err
				}
			}
			if _, err := store.ConsumeFromCrew(ctx, tx, store.HoldingChange{
				CrewID:   crewID,
				ItemID:   line.ItemID,
				Quantity: line.Quantity,
				OrderID:  &orderID,
				Notes:    notes,
				ActorID:  actor.Ref(),
				At:       at,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkHoldings(ctx context.Context, q store.Querier, crewID int64, lines model.Materials) error {
	need := make(map[int64]int)
	var order []int64
	for _, line := range lines {
		if _, ok := need[line.ItemID]; !ok {
			order = append(order, line.ItemID)
		}
		need[line.ItemID] += line.Quantity
	}
	for _, itemID := range order {
		held, err := store.GetHolding(ctx, q, crewID, itemID)
		if err != nil {
			return err
		}
		if held < need[itemID] {
			return fmt.Errorf("%w: crew %d holds %d of item %d, order needs %d",
				model.ErrInsufficientHolding, crewID, held, itemID, need[itemID])
		}
	}
	return nil
}

func checkInstanceItems(ctx context.Context, q store.Querier, line model.MaterialUsage) error {
	for _, id := range line.InstanceIDs {
		in, err := store.GetInstance(ctx, q, id)
		if err != nil {
			return err
		}
		if in == nil {
			return fmt.Errorf("%w: instance %d", model.ErrNotFound, id)
		}
		if in.ItemID != line.ItemID {
			return fmt.Errorf("%w: instance %q is not item %d", model.ErrInvalidInput, in.UniqueID, line.ItemID)
		}
	}
	return nil
}

func consumeBatch(ctx context.Context, tx *sqlx.Tx, line model.MaterialUsage, orderID string, crewID int64, actor model.Actor, at time.Time) error {
	b, err := store.GetBatch(ctx, tx, line.BatchCode)
	if err != nil {
		return err
	}
	if b == nil {
		return fmt.Errorf("%w: batch %q", model.ErrNotFound, line.BatchCode)
	}
	if b.ItemID != line.ItemID {
		return fmt.Errorf("%w: batch %q is not item %d", model.ErrInvalidInput, b.Code, line.ItemID)
	}
	if b.HolderCrewID == nil || *b.HolderCrewID != crewID {
		return fmt.Errorf("%w: batch %q is not held by crew %d", model.ErrNotHeldByCrew, b.Code, crewID)
	}
	_, err = store.ConsumeBatch(ctx, tx, store.BatchUsage{
		Code:     line.BatchCode,
		Quantity: decimal.NewFromInt(int64(line.Quantity)),
		OrderID:  &orderID,
		CrewID:   &crewID,
		ActorID:  actor.Ref(),
		At:       at,
	})
	return err
}
