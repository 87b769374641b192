package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/fieldstock/internal/db"
	"github.com/erazemk/fieldstock/internal/model"
)

func registerInstances(t *testing.T, database *sqlx.DB, itemID int64, serials ...string) []int64 {
	t.Helper()
	var ids []int64
	mustTx(t, database, func(tx *sqlx.Tx) error {
		for _, s := range serials {
			in, err := RegisterInstance(context.Background(), tx, NewInstance{ItemID: itemID, SerialNumber: s}, nil, testTime)
			if err != nil {
				return err
			}
			ids = append(ids, in.ID)
		}
		return nil
	})
	return ids
}

// checkHolderInvariant verifies holder is nil exactly for in-stock and
// returned instances.
func checkHolderInvariant(t *testing.T, database *sqlx.DB) {
	t.Helper()
	instances, err := ListInstances(context.Background(), database, InstanceFilter{})
	if err != nil {
		t.Fatalf("ListInstances: %v", err)
	}
	for _, in := range instances {
		free := in.Status == model.InstanceStatusInStock || in.Status == model.InstanceStatusReturned
		if free != (in.HolderCrewID == nil) {
			t.Errorf("instance %q: status %q with holder %v", in.UniqueID, in.Status, in.HolderCrewID)
		}
	}
}

func TestRegisterInstance(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	ont := createTestItem(t, database, "ONT-HG8245", model.ItemTypeEquipment, 0)
	cable := createTestItem(t, database, "DROP", model.ItemTypeMaterial, 0)

	ids := registerInstances(t, database, ont.ID, "48:57-54:43 a1b2")
	in, _ := GetInstance(ctx, database, ids[0])
	if in.UniqueID != "48575443A1B2" {
		t.Errorf("expected unique id 48575443A1B2, got %q", in.UniqueID)
	}
	if in.Status != model.InstanceStatusInStock || in.HolderCrewID != nil {
		t.Errorf("expected in-stock instance without holder, got %+v", in)
	}
	if stock, _ := GetWarehouseQuantity(ctx, database, ont.ID); stock != 1 {
		t.Errorf("expected warehouse 1, got %d", stock)
	}

	tests := []struct {
		name string
		n    NewInstance
		want error
	}{
		{"same serial different format", NewInstance{ItemID: ont.ID, SerialNumber: "48575443A1B2"}, model.ErrDuplicateKey},
		{"material item", NewInstance{ItemID: cable.ID, SerialNumber: "X1"}, model.ErrInvalidItemType},
		{"empty serial", NewInstance{ItemID: ont.ID, SerialNumber: " - "}, model.ErrInvalidInput},
		{"unknown item", NewInstance{ItemID: 999, SerialNumber: "X2"}, model.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WithTx(ctx, database, func(tx *sqlx.Tx) error {
				_, err := RegisterInstance(ctx, tx, tt.n, nil, testTime)
				return err
			})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestInstanceLifecycle(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	crewA := createTestCrew(t, database, 1)
	crewB := createTestCrew(t, database, 2)
	ont := createTestItem(t, database, "ONT", model.ItemTypeEquipment, 0)
	ids := registerInstances(t, database, ont.ID, "SN1", "SN2", "SN3", "SN4")

	mustTx(t, database, func(tx *sqlx.Tx) error {
		_, err := AssignInstancesToCrew(ctx, tx, ids[:3], crewA.ID, InstanceChange{At: testTime})
		return err
	})
	checkHolderInvariant(t, database)
	if held, _ := GetHolding(ctx, database, crewA.ID, ont.ID); held != 3 {
		t.Errorf("expected crew A to hold 3, got %d", held)
	}
	if stock, _ := GetWarehouseQuantity(ctx, database, ont.ID); stock != 1 {
		t.Errorf("expected warehouse 1, got %d", stock)
	}

	err := WithTx(ctx, database, func(tx *sqlx.Tx) error {
		_, err := AssignInstancesToCrew(ctx, tx, ids[2:], crewB.ID, InstanceChange{})
		return err
	})
	if !errors.Is(err, model.ErrAlreadyAssigned) {
		t.Errorf("expected ErrAlreadyAssigned, got %v", err)
	}
	if in, _ := GetInstance(ctx, database, ids[3]); in.Status != model.InstanceStatusInStock {
		t.Errorf("failed assignment changed instance 4 to %q", in.Status)
	}

	orderID := insertTestOrder(t, database, "order-1")

	err = WithTx(ctx, database, func(tx *sqlx.Tx) error {
		_, err := ConsumeInstancesForOrder(ctx, tx, ids[:1], orderID, crewB.ID, InstanceChange{})
		return err
	})
	if !errors.Is(err, model.ErrNotHeldByCrew) {
		t.Errorf("expected ErrNotHeldByCrew, got %v", err)
	}

	mustTx(t, database, func(tx *sqlx.Tx) error {
		_, err := ConsumeInstancesForOrder(ctx, tx, ids[:1], orderID, crewA.ID, InstanceChange{At: testTime})
		return err
	})
	installed, _ := GetInstance(ctx, database, ids[0])
	if installed.Status != model.InstanceStatusInstalled || installed.OrderID == nil || *installed.OrderID != orderID {
		t.Errorf("expected instance installed at %s, got %+v", orderID, installed)
	}

	mustTx(t, database, func(tx *sqlx.Tx) error {
		_, err := MarkInstanceDamaged(ctx, tx, ids[1], InstanceChange{Reason: "water damage"})
		return err
	})
	damaged, _ := GetInstance(ctx, database, ids[1])
	if damaged.Status != model.InstanceStatusDamaged || damaged.HolderCrewID == nil || *damaged.HolderCrewID != crewA.ID {
		t.Errorf("expected damaged instance held by crew A, got %+v", damaged)
	}

	checkHolderInvariant(t, database)
	held, _ := GetHolding(ctx, database, crewA.ID, ont.ID)
	sum, _ := SumMovements(ctx, database, crewA.ID, ont.ID)
	if held != 1 || sum != 1 {
		t.Errorf("expected crew A holding and movement sum 1, got %d and %d", held, sum)
	}
}

func TestReturnInstances(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	crewA := createTestCrew(t, database, 1)
	crewB := createTestCrew(t, database, 2)
	ont := createTestItem(t, database, "ONT", model.ItemTypeEquipment, 0)
	ids := registerInstances(t, database, ont.ID, "SN1", "SN2", "SN3")

	mustTx(t, database, func(tx *sqlx.Tx) error {
		if _, err := AssignInstancesToCrew(ctx, tx, ids[:2], crewA.ID, InstanceChange{}); err != nil {
			return err
		}
		_, err := AssignInstancesToCrew(ctx, tx, ids[2:], crewB.ID, InstanceChange{})
		return err
	})

	err := WithTx(ctx, database, func(tx *sqlx.Tx) error {
		_, err := ReturnInstances(ctx, tx, ids, InstanceChange{Reason: "  "})
		return err
	})
	if !errors.Is(err, model.ErrReasonRequired) {
		t.Errorf("expected ErrReasonRequired, got %v", err)
	}

	mustTx(t, database, func(tx *sqlx.Tx) error {
		_, err := ReturnInstances(ctx, tx, ids, InstanceChange{Reason: "end of contract"})
		return err
	})
	checkHolderInvariant(t, database)

	returns, _ := ListMovements(ctx, database, model.MovementFilter{Type: model.MovementReturn})
	if len(returns) != 2 {
		t.Errorf("expected one return movement per crew, got %d", len(returns))
	}
	if stock, _ := GetWarehouseQuantity(ctx, database, ont.ID); stock != 3 {
		t.Errorf("expected warehouse 3, got %d", stock)
	}

	err = WithTx(ctx, database, func(tx *sqlx.Tx) error {
		_, err := ReturnInstances(ctx, tx, ids, InstanceChange{Reason: "again"})
		return err
	})
	if !errors.Is(err, model.ErrNotAssigned) {
		t.Errorf("expected ErrNotAssigned on second return, got %v", err)
	}
	if stock, _ := GetWarehouseQuantity(ctx, database, ont.ID); stock != 3 {
		t.Errorf("second return credited the warehouse: %d", stock)
	}
}

func TestMarkInstanceDamaged_RequiresAssignment(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	ont := createTestItem(t, database, "ONT", model.ItemTypeEquipment, 0)
	ids := registerInstances(t, database, ont.ID, "SN1")

	err := WithTx(ctx, database, func(tx *sqlx.Tx) error {
		_, err := MarkInstanceDamaged(ctx, tx, ids[0], InstanceChange{Reason: "cracked"})
		return err
	})
	if !errors.Is(err, model.ErrNotAssigned) {
		t.Errorf("expected ErrNotAssigned, got %v", err)
	}
}
