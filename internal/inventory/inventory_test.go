package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erazemk/fieldstock/internal/clock"
	"github.com/erazemk/fieldstock/internal/db"
	"github.com/erazemk/fieldstock/internal/model"
	"github.com/erazemk/fieldstock/internal/notify"
	"github.com/erazemk/fieldstock/internal/store"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, ev notify.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return 1
}

type fixture struct {
	svc      *Service
	notifier *recordingNotifier
	crew     *model.Crew
	item     *model.CatalogItem
}

var (
	warehouse = model.Actor{ID: 10, Username: "ana", Role: model.RoleWarehouse}
	installer = model.Actor{ID: 11, Username: "luis", Role: model.RoleInstaller}
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()
	rec := &recordingNotifier{}
	svc := NewService(database, clock.NewManual(time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)), rec, zap.NewNop())

	crew, err := store.CreateCrew(ctx, database, 1, "North", time.Now())
	if err != nil {
		t.Fatalf("CreateCrew: %v", err)
	}
	item, err := svc.CreateCatalogItem(ctx, warehouse, model.CatalogItem{Code: "CONN-SC", Type: model.ItemTypeMaterial})
	if err != nil {
		t.Fatalf("CreateCatalogItem: %v", err)
	}
	if _, err := svc.ReceiveStock(ctx, warehouse, item.ID, 20, "delivery"); err != nil {
		t.Fatalf("ReceiveStock: %v", err)
	}
	return &fixture{svc: svc, notifier: rec, crew: crew, item: item}
}

func TestGrantToCrew_NotifiesCrew(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.svc.GrantToCrew(ctx, warehouse, f.crew.ID, f.item.ID, 5, "")
	if err != nil {
		t.Fatalf("GrantToCrew: %v", err)
	}
	if m.Type != model.MovementAssignment || m.QuantityChange != 5 || m.ActorID == nil || *m.ActorID != warehouse.ID {
		t.Errorf("unexpected movement: %+v", m)
	}

	if len(f.notifier.events) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(f.notifier.events))
	}
	ev := f.notifier.events[0]
	if ev.Kind != model.EventMaterialsAssigned || ev.CrewID != f.crew.ID || ev.Payload["item"] != "CONN-SC" {
		t.Errorf("unexpected event: %+v", ev)
	}
	if ev.ExcludeUserID != 0 {
		t.Errorf("warehouse staff must not be excluded, got %d", ev.ExcludeUserID)
	}
}

func TestReturnFromCrew_ExcludesInstallerActor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.GrantToCrew(ctx, warehouse, f.crew.ID, f.item.ID, 5, "")

	if _, err := f.svc.ReturnFromCrew(ctx, installer, f.crew.ID, f.item.ID, 2, "leftover"); err != nil {
		t.Fatalf("ReturnFromCrew: %v", err)
	}
	ev := f.notifier.events[len(f.notifier.events)-1]
	if ev.Kind != model.EventMaterialsReturned || ev.ExcludeUserID != installer.ID {
		t.Errorf("unexpected event: %+v", ev)
	}

	holdings, _ := f.svc.Holdings(ctx, f.crew.ID)
	if len(holdings) != 1 || holdings[0].Quantity != 3 {
		t.Errorf("expected holding of 3, got %+v", holdings)
	}
}

func TestFailedMutation_SendsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ReturnFromCrew(ctx, installer, f.crew.ID, f.item.ID, 1, "")
	if !errors.Is(err, model.ErrInsufficientHolding) {
		t.Fatalf("expected ErrInsufficientHolding, got %v", err)
	}
	if len(f.notifier.events) != 0 {
		t.Errorf("expected no notifications, got %d", len(f.notifier.events))
	}
	movements, _ := f.svc.Movements(ctx, model.MovementFilter{CrewID: f.crew.ID})
	if len(movements) != 0 {
		t.Errorf("failed return left %d movements", len(movements))
	}
}

func TestInstanceFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ont, err := f.svc.CreateCatalogItem(ctx, warehouse, model.CatalogItem{Code: "ONT", Type: model.ItemTypeEquipment})
	if err != nil {
		t.Fatalf("CreateCatalogItem: %v", err)
	}

	var ids []int64
	for _, serial := range []string{"hwtc-0001", "hwtc-0002"} {
		in, err := f.svc.RegisterInstance(ctx, warehouse, store.NewInstance{ItemID: ont.ID, SerialNumber: serial})
		if err != nil {
			t.Fatalf("RegisterInstance: %v", err)
		}
		ids = append(ids, in.ID)
	}

	if _, err := f.svc.AssignInstances(ctx, warehouse, ids, f.crew.ID); err != nil {
		t.Fatalf("AssignInstances: %v", err)
	}
	if _, err := f.svc.MarkDamaged(ctx, installer, ids[0], ""); !errors.Is(err, model.ErrReasonRequired) {
		t.Errorf("expected ErrReasonRequired, got %v", err)
	}
	if _, err := f.svc.MarkDamaged(ctx, installer, ids[0], "dropped"); err != nil {
		t.Fatalf("MarkDamaged: %v", err)
	}
	returned, err := f.svc.ReturnInstances(ctx, installer, ids[1:], "not needed")
	if err != nil {
		t.Fatalf("ReturnInstances: %v", err)
	}
	if returned[0].Status != model.InstanceStatusInStock || returned[0].HolderCrewID != nil {
		t.Errorf("unexpected returned instance: %+v", returned[0])
	}

	instances, _ := f.svc.ListInstances(ctx, store.InstanceFilter{ItemID: ont.ID, Status: model.InstanceStatusInStock})
	if len(instances) != 1 {
		t.Errorf("expected 1 instance in stock, got %d", len(instances))
	}
}

func TestBatchFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.CreateBatch(ctx, warehouse, store.NewBatch{Code: "R-9", ItemID: f.item.ID, InitialQuantity: mustDecimal(t, "150")})
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	if _, err := f.svc.AssignBatchToCrew(ctx, warehouse, b.Code, &f.crew.ID); err != nil {
		t.Fatalf("AssignBatchToCrew: %v", err)
	}
	if _, err := f.svc.ConsumeBatch(ctx, installer, b.Code, mustDecimal(t, "150"), nil); err != nil {
		t.Fatalf("ConsumeBatch: %v", err)
	}
	if err := f.svc.DeleteBatch(ctx, warehouse, b.Code); err != nil {
		t.Fatalf("DeleteBatch: %v", err)
	}
	if got, _ := f.svc.GetBatch(ctx, b.Code); got != nil {
		t.Error("expected batch to be gone")
	}
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}
