package orders

import (
	"errors"
	"testing"
	"time"

	"github.com/erazemk/fieldstock/internal/model"
)

func TestNormalizeCreateAliases(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want string
	}{
		{"canonical", map[string]any{"subscriber_number": "A-1"}, "A-1"},
		{"camel case", map[string]any{"subscriberNumber": "A-2"}, "A-2"},
		{"spanish", map[string]any{"numero_abonado": "A-3"}, "A-3"},
		{"short", map[string]any{"abonado": "A-4"}, "A-4"},
		{"client number", map[string]any{"nro_cliente": float64(5512)}, "5512"},
		{"priority", map[string]any{"abonado": "low", "subscriber_number": "high"}, "high"},
		{"empty alias skipped", map[string]any{"subscriber_number": " ", "abonado": "A-6"}, "A-6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := NormalizeCreate(tt.raw)
			if err != nil {
				t.Fatalf("NormalizeCreate: %v", err)
			}
			if cmd.SubscriberNumber != tt.want {
				t.Errorf("SubscriberNumber = %q, want %q", cmd.SubscriberNumber, tt.want)
			}
		})
	}
}

func TestNormalizeCreateFields(t *testing.T) {
	cmd, err := NormalizeCreate(map[string]any{
		"nro_ticket":      "T-100",
		"nombre":          "Rosa Díaz",
		"direccion":       "Calle 5 #20",
		"telefono":        "555-0101",
		"tipo":            "Instalación",
		"estado":          "Asignada",
		"cuadrilla":       "3",
		"observaciones":   "tocar timbre",
		"fecha_recepcion": "2025-03-14",
		"fotos":           []any{"https://files.example/a.jpg"},
	})
	if err != nil {
		t.Fatalf("NormalizeCreate: %v", err)
	}
	want := CreateOrderCommand{
		TicketID:       "T-100",
		SubscriberName: "Rosa Díaz",
		Address:        "Calle 5 #20",
		Phone:          "555-0101",
		Type:           model.OrderTypeInstallation,
		Status:         model.OrderStatusAssigned,
		CrewNumber:     3,
		Notes:          "tocar timbre",
		ReceptionDate:  time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
	}
	if cmd.TicketID != want.TicketID || cmd.SubscriberName != want.SubscriberName || cmd.Address != want.Address ||
		cmd.Phone != want.Phone || cmd.Type != want.Type || cmd.Status != want.Status ||
		cmd.CrewNumber != want.CrewNumber || cmd.Notes != want.Notes || !cmd.ReceptionDate.Equal(want.ReceptionDate) {
		t.Errorf("got %+v, want %+v", cmd, want)
	}
	if len(cmd.PhotoURLs) != 1 {
		t.Errorf("PhotoURLs = %v", cmd.PhotoURLs)
	}
}

func TestNormalizeCreateClassifiesNotes(t *testing.T) {
	cmd, err := NormalizeCreate(map[string]any{"address": "Calle 1", "notes": "cliente sin servicio"})
	if err != nil {
		t.Fatalf("NormalizeCreate: %v", err)
	}
	if cmd.Type != model.OrderTypeRepair {
		t.Errorf("Type = %q, want repair", cmd.Type)
	}
	if cmd.Status != "" {
		t.Errorf("Status = %q, want empty", cmd.Status)
	}
}

func TestNormalizeCreateErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"bad crew number", map[string]any{"cuadrilla": "tres"}},
		{"bad date", map[string]any{"fecha": "mañana"}},
		{"object field", map[string]any{"address": map[string]any{"street": "x"}}},
		{"bad photos", map[string]any{"photos": []any{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NormalizeCreate(tt.raw); !errors.Is(err, model.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
