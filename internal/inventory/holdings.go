package inventory

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/erazemk/fieldstock/internal/model"
	"github.com/erazemk/fieldstock/internal/store"
)

// GrantToCrew hands warehouse stock to a crew.
func (s *Service) GrantToCrew(ctx context.Context, actor model.Actor, crewID, itemID int64, quantity int, notes string) (*model.Movement, error) {
	var m *model.Movement
	var payload map[string]string
	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		var err error
		m, err = store.GrantToCrew(ctx, tx, store.HoldingChange{
			CrewID: crewID, ItemID: itemID, Quantity: quantity, Notes: notes, ActorID: actor.Ref(), At: s.clock.Now(),
		})
		if err != nil {
			return err
		}
		payload = itemPayload(ctx, tx, itemID, quantity)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("materials granted to crew",
		zap.Int64("crew_id", crewID), zap.Int64("item_id", itemID), zap.Int("quantity", quantity))
	s.notifyCrew(ctx, model.EventMaterialsAssigned, crewID, actor, payload)
	return m, nil
}

// ConsumeFromCrew records crew usage of an item outside order completion.
func (s *Service) ConsumeFromCrew(ctx context.Context, actor model.Actor, crewID, itemID int64, quantity int, orderID *string, notes string) (*model.Movement, error) {
	var m *model.Movement
	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		var err error
		m, err = store.ConsumeFromCrew(ctx, tx, store.HoldingChange{
			CrewID: crewID, ItemID: itemID, Quantity: quantity, OrderID: orderID, Notes: notes,
			ActorID: actor.Ref(), At: s.clock.Now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ReturnFromCrew moves crew stock back to the warehouse.
func (s *Service) ReturnFromCrew(ctx context.Context, actor model.Actor, crewID, itemID int64, quantity int, notes string) (*model.Movement, error) {
	var m *model.Movement
	var payload map[string]string
	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		var err error
		m, err = store.ReturnFromCrew(ctx, tx, store.HoldingChange{
			CrewID: crewID, ItemID: itemID, Quantity: quantity, Notes: notes, ActorID: actor.Ref(), At: s.clock.Now(),
		})
		if err != nil {
			return err
		}
		payload = itemPayload(ctx, tx, itemID, quantity)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("materials returned by crew",
		zap.Int64("crew_id", crewID), zap.Int64("item_id", itemID), zap.Int("quantity", quantity))
	s.notifyCrew(ctx, model.EventMaterialsReturned, crewID, actor, payload)
	return m, nil
}

// Holdings lists what a crew currently holds.
func (s *Service) Holdings(ctx context.Context, crewID int64) ([]model.Holding, error) {
	return store.ListCrewHoldings(ctx, s.db, crewID)
}
