// Package notify fans out order and inventory events to the members of a crew.
//
// Delivery is best effort. Dispatch never returns an error: failures are
// logged and counted in the daily notification statistics.
package notify

import (
	"context"
	"strings"

	"github.com/erazemk/fieldstock/internal/model"
)

// Event is one logical notification addressed to a crew.
type Event struct {
	Kind          string
	CrewID        int64
	TitleTemplate string
	BodyTemplate  string
	Payload       map[string]string

	// ExcludeUserID is removed from the recipients. Zero excludes nobody.
	ExcludeUserID int64
}

// Notifier delivers events. It is the port the order and inventory services
// depend on.
type Notifier interface {
	Notify(ctx context.Context, ev Event) int
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) int { return 0 }

// Message is the rendered payload handed to a transport.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

var templates = map[string][2]string{
	model.EventOrderAssigned:     {"New order assigned", "Order {order_id} ({type}) at {address} was assigned to your crew."},
	model.EventStatusChanged:     {"Order status changed", "Order {order_id} is now {status}."},
	model.EventReassigned:        {"Order reassigned", "Order {order_id} at {address} was reassigned to your crew."},
	model.EventMaterialsAssigned: {"Materials assigned", "{quantity} x {item} were added to your crew's stock."},
	model.EventMaterialsReturned: {"Materials returned", "{quantity} x {item} were returned to the warehouse."},
}

// NewEvent builds an event of a known kind with its default templates.
func NewEvent(kind string, crewID int64, payload map[string]string, excludeUserID int64) Event {
	t := templates[kind]
	return Event{
		Kind:          kind,
		CrewID:        crewID,
		TitleTemplate: t[0],
		BodyTemplate:  t[1],
		Payload:       payload,
		ExcludeUserID: excludeUserID,
	}
}

// Render fills {key} placeholders from payload. Unknown placeholders are left
// as they are.
func Render(template string, payload map[string]string) string {
	if len(payload) == 0 || !strings.Contains(template, "{") {
		return template
	}
	pairs := make([]string, 0, len(payload)*2)
	for k, v := range payload {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func (ev Event) message() Message {
	data := make(map[string]string, len(ev.Payload)+1)
	for k, v := range ev.Payload {
		data[k] = v
	}
	data["kind"] = ev.Kind
	return Message{
		Title: Render(ev.TitleTemplate, ev.Payload),
		Body:  Render(ev.BodyTemplate, ev.Payload),
		Data:  data,
	}
}
