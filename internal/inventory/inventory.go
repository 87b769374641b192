// Package inventory runs catalog, batch, instance and crew holding operations.
// Every mutation is one transaction that writes the ledger change together
// with its movement. Crew notifications go out after commit.
package inventory

import (
	"context"
	"strconv"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/erazemk/fieldstock/internal/clock"
	"github.com/erazemk/fieldstock/internal/model"
	"github.com/erazemk/fieldstock/internal/notify"
	"github.com/erazemk/fieldstock/internal/store"
)

type Service struct {
	db       *sqlx.DB
	clock    clock.Clock
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewService(db *sqlx.DB, clk clock.Clock, notifier notify.Notifier, logger *zap.Logger) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{db: db, clock: clk, notifier: notifier, logger: logger}
}

func (s *Service) tx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return store.WithTx(ctx, s.db, fn)
}

func (s *Service) notifyCrew(ctx context.Context, kind string, crewID int64, actor model.Actor, payload map[string]string) {
	s.notifier.Notify(ctx, notify.NewEvent(kind, crewID, payload, actor.ExcludedFromNotifications()))
}

func itemPayload(ctx context.Context, q store.Querier, itemID int64, quantity int) map[string]string {
	payload := map[string]string{
		"item_id":  strconv.FormatInt(itemID, 10),
		"item":     strconv.FormatInt(itemID, 10),
		"quantity": strconv.Itoa(quantity),
	}
	if item, err := store.GetCatalogItem(ctx, q, itemID); err == nil && item != nil {
		payload["item"] = item.Code
	}
	return payload
}

// CreateCatalogItem adds an item type to the catalog.
func (s *Service) CreateCatalogItem(ctx context.Context, actor model.Actor, item model.CatalogItem) (*model.CatalogItem, error) {
	var created *model.CatalogItem
	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		var err error
		created, err = store.CreateCatalogItem(ctx, tx, item, s.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("catalog item created", zap.String("code", created.Code), zap.String("actor", actor.Username))
	return created, nil
}

// UpdateCatalogItem changes an item's description, unit, threshold or, while
// unreferenced, its code.
func (s *Service) UpdateCatalogItem(ctx context.Context, actor model.Actor, item model.CatalogItem) (*model.CatalogItem, error) {
	var updated *model.CatalogItem
	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		if err := store.UpdateCatalogItem(ctx, tx, item, s.clock.Now()); err != nil {
			return err
		}
		var err error
		updated, err = store.GetCatalogItem(ctx, tx, item.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ReceiveStock adds delivered stock to the warehouse.
func (s *Service) ReceiveStock(ctx context.Context, actor model.Actor, itemID int64, quantity int, notes string) (*model.Movement, error) {
	var m *model.Movement
	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		var err error
		m, err = store.ReceiveStock(ctx, tx, itemID, quantity, notes, actor.Ref(), s.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("stock received", zap.Int64("item_id", itemID), zap.Int("quantity", quantity))
	return m, nil
}

// LowStock lists items at or below their low-stock threshold.
func (s *Service) LowStock(ctx context.Context) ([]model.WarehouseStock, error) {
	return store.ListLowStock(ctx, s.db)
}

// WarehouseStock lists the warehouse quantity of every item.
func (s *Service) WarehouseStock(ctx context.Context) ([]model.WarehouseStock, error) {
	return store.ListWarehouseStock(ctx, s.db)
}

// Movements lists inventory movements.
func (s *Service) Movements(ctx context.Context, f model.MovementFilter) ([]model.Movement, error) {
	return store.ListMovements(ctx, s.db, f)
}
