package inventory

import (
	"context"
	"strconv"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/erazemk/fieldstock/internal/model"
	"github.com/erazemk/fieldstock/internal/store"
)

func (s *Service) RegisterInstance(ctx context.Context, actor model.Actor, n store.NewInstance) (*model.Instance, error) {
	var in *model.Instance
	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		var err error
		in, err = store.RegisterInstance(ctx, tx, n, actor.Ref(), s.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return in, nil
}

// AssignInstances hands in-stock instances to a crew.
func (s *Service) AssignInstances(ctx context.Context, actor model.Actor, ids []int64, crewID int64) ([]model.Instance, error) {
	var instances []model.Instance
	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		var err error
		instances, err = store.AssignInstancesToCrew(ctx, tx, ids, crewID, store.InstanceChange{
			ActorID: actor.Ref(), At: s.clock.Now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("instances assigned", zap.Int64("crew_id", crewID), zap.Int("count", len(instances)))
	s.notifyCrew(ctx, model.EventMaterialsAssigned, crewID, actor, map[string]string{
		"item":     "equipment",
		"quantity": strconv.Itoa(len(instances)),
	})
	return instances, nil
}

// ReturnInstances brings assigned instances back to the warehouse.
func (s *Service) ReturnInstances(ctx context.Context, actor model.Actor, ids []int64, reason string) ([]model.Instance, error) {
	var instances []model.Instance
	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		var err error
		instances, err = store.ReturnInstances(ctx, tx, ids, store.InstanceChange{
			Reason: reason, ActorID: actor.Ref(), At: s.clock.Now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("instances returned", zap.Int("count", len(instances)), zap.String("reason", reason))
	return instances, nil
}

// MarkDamaged takes an assigned instance out of circulation.
func (s *Service) MarkDamaged(ctx context.Context, actor model.Actor, id int64, reason string) (*model.Instance, error) {
	var in *model.Instance
	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		var err error
		in, err = store.MarkInstanceDamaged(ctx, tx, id, store.InstanceChange{
			Reason: reason, ActorID: actor.Ref(), At: s.clock.Now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Warn("instance damaged", zap.String("unique_id", in.UniqueID), zap.String("reason", reason))
	return in, nil
}

func (s *Service) GetInstance(ctx context.Context, id int64) (*model.Instance, error) {
	return store.GetInstance(ctx, s.db, id)
}

func (s *Service) ListInstances(ctx context.Context, f store.InstanceFilter) ([]model.Instance, error) {
	return store.ListInstances(ctx, s.db, f)
}
