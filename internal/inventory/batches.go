package inventory

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erazemk/fieldstock/internal/model"
	"github.com/erazemk/fieldstock/internal/store"
)

func (s *Service) CreateBatch(ctx context.Context, actor model.Actor, b store.NewBatch) (*model.Batch, error) {
	var created *model.Batch
	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		var err error
		created, err = store.CreateBatch(ctx, tx, b, actor.Ref(), s.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("batch created", zap.String("code", created.Code), zap.Stringer("meters", created.InitialQuantity))
	return created, nil
}

func (s *Service) AssignMetersToBatch(ctx context.Context, actor model.Actor, code string, meters decimal.Decimal) (*model.Batch, error) {
	var b *model.Batch
	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		var err error
		b, err = store.AssignMetersToBatch(ctx, tx, code, meters, actor.Ref(), s.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) ConsumeBatch(ctx context.Context, actor model.Actor, code string, meters decimal.Decimal, orderID *string) (*model.Batch, error) {
	var b *model.Batch
	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		var err error
		b, err = store.ConsumeBatch(ctx, tx, store.BatchUsage{
			Code: code, Quantity: meters, OrderID: orderID, ActorID: actor.Ref(), At: s.clock.Now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if b.Status == model.BatchStatusExhausted {
		s.logger.Info("batch exhausted", zap.String("code", b.Code))
	}
	return b, nil
}

// AssignBatchToCrew hands a batch to a crew, or to the warehouse when crewID
// is nil.
func (s *Service) AssignBatchToCrew(ctx context.Context, actor model.Actor, code string, crewID *int64) (*model.Batch, error) {
	var b *model.Batch
	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		var err error
		b, err = store.AssignBatchToCrew(ctx, tx, code, crewID, actor.Ref(), s.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	if crewID != nil {
		s.notifyCrew(ctx, model.EventMaterialsAssigned, *crewID, actor, map[string]string{
			"item":     "batch " + b.Code,
			"quantity": b.RemainingQuantity.String(),
		})
	}
	return b, nil
}

func (s *Service) DeleteBatch(ctx context.Context, actor model.Actor, code string) error {
	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		return store.DeleteBatch(ctx, tx, code)
	})
	if err != nil {
		return err
	}
	s.logger.Info("batch deleted", zap.String("code", code), zap.String("actor", actor.Username))
	return nil
}

func (s *Service) GetBatch(ctx context.Context, code string) (*model.Batch, error) {
	return store.GetBatch(ctx, s.db, code)
}

func (s *Service) ListBatches(ctx context.Context, f store.BatchFilter) ([]model.Batch, error) {
	return store.ListBatches(ctx, s.db, f)
}
