// Package orders runs the work order lifecycle: creation with duplicate
// guards, field updates with an audit history, and material consumption when
// an order is completed.
package orders

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/erazemk/fieldstock/internal/clock"
	"github.com/erazemk/fieldstock/internal/model"
	"github.com/erazemk/fieldstock/internal/notify"
	"github.com/erazemk/fieldstock/internal/store"
)

// RecentFaultWindow is how far back a repair for the same subscriber and
// address counts as a duplicate.
const RecentFaultWindow = 7 * 24 * time.Hour

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

// CreateOrderCommand is a normalized order creation request.
type CreateOrderCommand struct {
	TicketID         string
	SubscriberName   string
	SubscriberNumber string
	Address          string
	Phone            string
	Type             string
	Status           string
	CrewNumber       int
	CrewID           int64
	Notes            string
	PhotoURLs        []string
	ReceptionDate    time.Time
}

// Create stores a new order. Orders that repeat a ticket, an installation
// address or a recent repair are rejected.
func (s *Service) Create(ctx context.Context, actor model.Actor, cmd CreateOrderCommand) (*model.Order, error) {
	if strings.TrimSpace(cmd.SubscriberName) == "" && strings.TrimSpace(cmd.Address) == "" {
		return nil, fmt.Errorf("%w: subscriber name or address is required", model.ErrInvalidInput)
	}
	orderType := cmd.Type
	if orderType == "" {
		orderType = Classify(cmd.Notes)
	}
	if !model.ValidOrderType(orderType) {
		return nil, fmt.Errorf("%w: unknown order type %q", model.ErrInvalidInput, orderType)
	}
	status := cmd.Status
	if status == "" {
		status = model.OrderStatusPending
	}
	if !model.ValidOrderStatus(status) {
		return nil, fmt.Errorf("%w: unknown order status %q", model.ErrInvalidInput, status)
	}

	now := s.clock.Now()
	o := &model.Order{
		ID:               uuid.NewString(),
		SubscriberName:   cmd.SubscriberName,
		SubscriberNumber: cmd.SubscriberNumber,
		Address:          cmd.Address,
		Phone:            cmd.Phone,
		Type:             orderType,
		Status:           status,
		Materials:        model.Materials{},
		Notes:            cmd.Notes,
		PhotoURLs:        model.URLList(cmd.PhotoURLs),
		ReceptionDate:    cmd.ReceptionDate,
		CreatedBy:        actor.Ref(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if o.ReceptionDate.IsZero() {
		o.ReceptionDate = now
	}
	if o.PhotoURLs == nil {
		o.PhotoURLs = model.URLList{}
	}
	if ticket := strings.TrimSpace(cmd.TicketID); ticket != "" {
		o.TicketID = &ticket
	}

	var crew *model.Crew
	err := store.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.checkDuplicates(ctx, tx, o, now); err != nil {
			return err
		}

		var err error
		crew, err = s.resolveCrew(ctx, tx, cmd)
		if err != nil {
			return err
		}
		if crew != nil {
			o.AssignedTo = &crew.ID
			if o.Status == model.OrderStatusPending {
				o.Status = model.OrderStatusAssigned
			}
		}
		if crew != nil || o.Status == model.OrderStatusAssigned {
			o.AssignmentDate = &now
		}
		if o.Status == model.OrderStatusCompleted {
			o.CompletionDate = &now
		}

		if err := store.InsertOrder(ctx, tx, o); err != nil {
			return err
		}

		entries := []model.HistoryEntry{{
			ChangeType:  model.ChangeCreated,
			NewValue:    o.Status,
			Description: fmt.Sprintf("Order created (%s, %s)", o.Type, o.Status),
		}}
		if crew != nil {
			entries = append(entries, model.HistoryEntry{
				ChangeType:  model.ChangeCrewAssignment,
				NewValue:    strconv.FormatInt(crew.ID, 10),
				Description: fmt.Sprintf("Assigned to crew %d", crew.Number),
			})
		}
		return appendHistory(ctx, tx, o.ID, actor, now, entries)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order_id", o.ID), zap.String("type", o.Type), zap.String("status", o.Status),
		zap.String("actor", actor.Username))
	if crew != nil {
		s.notifyOrder(ctx, model.EventOrderAssigned, crew.ID, actor, o)
	}
	return o, nil
}

func (s *Service) checkDuplicates(ctx context.Context, q store.Querier, o *model.Order, now time.Time) error {
	if o.TicketID != nil {
		exists, err := store.TicketExists(ctx, q, *o.TicketID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: ticket %q", model.ErrDuplicateTicket, *o.TicketID)
		}
	}

	switch o.Type {
	case model.OrderTypeInstallation:
		exists, err := store.AddressExists(ctx, q, o.Address)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: an order already exists for %q", model.ErrDuplicateAddress, o.Address)
		}
	case model.OrderTypeRepair:
		times, err := store.RepairCreationTimes(ctx, q, o.SubscriberName, o.Address)
		if err != nil {
			return err
		}
		since := now.Add(-RecentFaultWindow)
		for _, t := range times {
			if !t.Before(since) {
				return fmt.Errorf("%w: repair for %q at %q opened %s",
					model.ErrDuplicateRecentFault, o.SubscriberName, o.Address, t.Format(time.DateOnly))
			}
		}
	}
	return nil
}

// resolveCrew returns the crew named by the command. An unknown crew number
// leaves the order unassigned; an unknown crew id is an error.
func (s *Service) resolveCrew(ctx context.Context, q store.Querier, cmd CreateOrderCommand) (*model.Crew, error) {
	switch {
	case cmd.CrewID > 0:
		crew, err := store.GetCrew(ctx, q, cmd.CrewID)
		if err != nil {
			return nil, err
		}
		if crew == nil || crew.DeletedAt != nil {
			return nil, fmt.Errorf("%w: crew %d", model.ErrNotFound, cmd.CrewID)
		}
		return crew, nil
	case cmd.CrewNumber > 0:
		crew, err := store.GetCrewByNumber(ctx, q, cmd.CrewNumber)
		if err != nil {
			return nil, err
		}
		if crew == nil {
			s.logger.Warn("unknown crew number on new order", zap.Int("crew_number", cmd.CrewNumber))
		}
		return crew, nil
	}
	return nil, nil
}

// UpdateOrderCommand carries the fields to change. Nil fields are left as
// they are. A CrewID of zero unassigns the order.
type UpdateOrderCommand struct {
	Status       *string
	CrewID       *int64
	Materials    *model.Materials
	Notes        *string
	Address      *string
	Phone        *string
	PhotoURLs    *[]string
	SignatureURL *string
}

// Update applies a change to an order and records one history entry per kind
// of change. Completing an order with materials consumes them from the
// assigned crew in the same transaction; any failure leaves the order and the
// inventory untouched.
func (s *Service) Update(ctx context.Context, actor model.Actor, id string, cmd UpdateOrderCommand) (*model.Order, error) {
	if cmd.Status != nil && !model.ValidOrderStatus(*cmd.Status) {
		return nil, fmt.Errorf("%w: unknown order status %q", model.ErrInvalidInput, *cmd.Status)
	}

	var updated *model.Order
	var changes orderChanges
	err := store.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		old, err := store.GetOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if old == nil {
			return fmt.Errorf("%w: order %s", model.ErrNotFound, id)
		}

		now := s.clock.Now()
		o := *old
		changes, err = s.applyUpdate(ctx, tx, &o, cmd, now)
		if err != nil {
			return err
		}
		if changes.empty() {
			updated = old
			return nil
		}

		// Materials are consumed once, on the first completion. A reopened
		// order that is completed again keeps its earlier consumption.
		if changes.completing() && old.CompletionDate == nil && len(o.Materials) > 0 {
			if o.AssignedTo == nil {
				return fmt.Errorf("%w: order %s", model.ErrNoCrewAssigned, o.ID)
			}
			if err := consumeMaterials(ctx, tx, &o, actor, now); err != nil {
				return err
			}
		}

		o.UpdatedAt = now
		if err := store.UpdateOrder(ctx, tx, &o); err != nil {
			return err
		}
		entries, err := changes.history(ctx, tx, old, &o)
		if err != nil {
			return err
		}
		if err := appendHistory(ctx, tx, o.ID, actor, now, entries); err != nil {
			return err
		}
		updated = &o
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changes.empty() {
		return updated, nil
	}

	s.logger.Info("order updated",
		zap.String("order_id", updated.ID), zap.String("status", updated.Status),
		zap.Strings("changes", changes.names()), zap.String("actor", actor.Username))

	switch {
	case changes.status && updated.AssignedTo != nil:
		s.notifyOrder(ctx, model.EventStatusChanged, *updated.AssignedTo, actor, updated)
	case changes.crew && updated.AssignedTo != nil:
		s.notifyOrder(ctx, model.EventReassigned, *updated.AssignedTo, actor, updated)
	}
	return updated, nil
}

// applyUpdate copies the command onto o and reports what changed.
func (s *Service) applyUpdate(ctx context.Context, q store.Querier, o *model.Order, cmd UpdateOrderCommand, now time.Time) (orderChanges, error) {
	var c orderChanges

	if cmd.CrewID != nil {
		next := *cmd.CrewID
		current := int64(0)
		if o.AssignedTo != nil {
			current = *o.AssignedTo
		}
		if next != current {
			if next == 0 {
				o.AssignedTo = nil
			} else {
				crew, err := store.GetCrew(ctx, q, next)
				if err != nil {
					return c, err
				}
				if crew == nil || crew.DeletedAt != nil {
					return c, fmt.Errorf("%w: crew %d", model.ErrNotFound, next)
				}
				o.AssignedTo = &crew.ID
			}
			c.crew = true
		}
	}

	if cmd.Status != nil && *cmd.Status != o.Status {
		c.previousStatus = o.Status
		o.Status = *cmd.Status
		c.nextStatus = o.Status
		c.status = true
		switch o.Status {
		case model.OrderStatusAssigned:
			if o.AssignmentDate == nil {
				o.AssignmentDate = &now
			}
		case model.OrderStatusCompleted:
			if o.CompletionDate == nil {
				o.CompletionDate = &now
			}
		}
	}
	if c.crew && o.AssignedTo != nil && o.AssignmentDate == nil {
		o.AssignmentDate = &now
	}

	if cmd.Materials != nil {
		materials, err := normalizeMaterials(*cmd.Materials)
		if err != nil {
			return c, err
		}
		if !materials.Equal(o.Materials) {
			o.Materials = materials
			c.materials = true
		}
	}

	setString := func(name string, dst *string, src *string) {
		if src != nil && *src != *dst {
			*dst = *src
			c.fields = append(c.fields, name)
		}
	}
	setString("notes", &o.Notes, cmd.Notes)
	setString("address", &o.Address, cmd.Address)
	setString("phone", &o.Phone, cmd.Phone)
	setString("signature", &o.SignatureURL, cmd.SignatureURL)
	if cmd.PhotoURLs != nil && strings.Join(*cmd.PhotoURLs, "\n") != strings.Join(o.PhotoURLs, "\n") {
		o.PhotoURLs = model.URLList(append([]string{}, *cmd.PhotoURLs...))
		c.fields = append(c.fields, "photos")
	}

	return c, nil
}

// normalizeMaterials validates material lines. Lines with instance ids take
// their quantity from the number of ids when none is given.
func normalizeMaterials(lines model.Materials) (model.Materials, error) {
	out := make(model.Materials, 0, len(lines))
	for i, line := range lines {
		if line.ItemID <= 0 {
			return nil, fmt.Errorf("%w: material line %d has no item", model.ErrInvalidInput, i+1)
		}
		if len(line.InstanceIDs) > 0 {
			if line.Quantity == 0 {
				line.Quantity = len(line.InstanceIDs)
			}
			if line.Quantity != len(line.InstanceIDs) {
				return nil, fmt.Errorf("%w: material line %d lists %d instances for quantity %d",
					model.ErrInvalidQuantity, i+1, len(line.InstanceIDs), line.Quantity)
			}
			if line.BatchCode != "" {
				return nil, fmt.Errorf("%w: material line %d has both a batch and instances", model.ErrInvalidInput, i+1)
			}
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: material line %d quantity must be positive", model.ErrInvalidQuantity, i+1)
		}
		out = append(out, line)
	}
	return out, nil
}

func appendHistory(ctx context.Context, q store.Querier, orderID string, actor model.Actor, at time.Time, entries []model.HistoryEntry) error {
	for i := range entries {
		e := entries[i]
		e.OrderID = &orderID
		e.ActorID = actor.Ref()
		e.CreatedAt = at
		if err := store.AppendHistory(ctx, q, &e); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) notifyOrder(ctx context.Context, kind string, crewID int64, actor model.Actor, o *model.Order) {
	payload := map[string]string{
		"order_id":   o.ID,
		"type":       o.Type,
		"status":     o.Status,
		"address":    o.Address,
		"subscriber": o.SubscriberName,
	}
	if o.TicketID != nil {
		payload["ticket_id"] = *o.TicketID
	}
	s.notifier.Notify(ctx, notify.NewEvent(kind, crewID, payload, actor.ExcludedFromNotifications()))
}

// Get returns an order by id.
func (s *Service) Get(ctx context.Context, id string) (*model.Order, error) {
	o, err := store.GetOrder(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("%w: order %s", model.ErrNotFound, id)
	}
	return o, nil
}

// List returns orders matching the filter, newest first.
func (s *Service) List(ctx context.Context, f store.OrderFilter) ([]model.Order, error) {
	return store.ListOrders(ctx, s.db, f)
}

// History returns the change history of an order, oldest first.
func (s *Service) History(ctx context.Context, id string) ([]model.HistoryEntry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return store.ListOrderHistory(ctx, s.db, id)
}
