package orders

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/erazemk/fieldstock/internal/model"
)

// fieldAliases lists the accepted request keys of each order field, in
// priority order.
var fieldAliases = map[string][]string{
	"ticket_id":         {"ticket_id", "ticketId", "ticket", "numero_ticket", "nro_ticket", "id_ticket"},
	"subscriber_name":   {"subscriber_name", "subscriberName", "nombre_abonado", "nombre", "cliente", "client_name", "name"},
	"subscriber_number": {"subscriber_number", "subscriberNumber", "numero_abonado", "abonado", "nro_cliente", "nro_abonado", "customer_number"},
	"address":           {"address", "direccion", "dirección", "domicilio"},
	"phone":             {"phone", "telefono", "teléfono", "celular", "contacto"},
	"type":              {"type", "tipo", "order_type", "orderType"},
	"status":            {"status", "estado"},
	"crew_number":       {"crew_number", "crewNumber", "cuadrilla", "numero_cuadrilla", "crew"},
	"crew_id":           {"crew_id", "crewId", "assigned_to"},
	"notes":             {"notes", "observaciones", "notas", "comentarios", "description", "descripcion"},
	"reception_date":    {"reception_date", "receptionDate", "fecha_recepcion", "fecha"},
	"photo_urls":        {"photo_urls", "photoUrls", "photos", "fotos"},
}

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", time.DateOnly, "02/01/2006"}

// NormalizeCreate turns a decoded JSON request into a creation command. Free
// text type and status values are classified; when no type is given the notes
// are classified instead.
func NormalizeCreate(raw map[string]any) (CreateOrderCommand, error) {
	var cmd CreateOrderCommand
	get := func(field string) (string, error) { return lookupString(raw, field) }

	var err error
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"ticket_id", &cmd.TicketID},
		{"subscriber_name", &cmd.SubscriberName},
		{"subscriber_number", &cmd.SubscriberNumber},
		{"address", &cmd.Address},
		{"phone", &cmd.Phone},
		{"type", &cmd.Type},
		{"status", &cmd.Status},
		{"notes", &cmd.Notes},
	} {
		if *f.dst, err = get(f.name); err != nil {
			return cmd, err
		}
	}

	if cmd.Type != "" {
		cmd.Type = Classify(cmd.Type)
	} else {
		cmd.Type = Classify(cmd.Notes)
	}
	if cmd.Status != "" {
		cmd.Status = ClassifyStatus(cmd.Status)
	}

	if s, err := get("crew_number"); err != nil {
		return cmd, err
	} else if s != "" {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return cmd, fmt.Errorf("%w: crew number %q", model.ErrInvalidInput, s)
		}
		cmd.CrewNumber = n
	}
	if s, err := get("crew_id"); err != nil {
		return cmd, err
	} else if s != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return cmd, fmt.Errorf("%w: crew id %q", model.ErrInvalidInput, s)
		}
		cmd.CrewID = id
	}

	if s, err := get("reception_date"); err != nil {
		return cmd, err
	} else if s != "" {
		t, err := parseDate(s)
		if err != nil {
			return cmd, err
		}
		cmd.ReceptionDate = t
	}

	urls, err := lookupStrings(raw, "photo_urls")
	if err != nil {
		return cmd, err
	}
	cmd.PhotoURLs = urls
	return cmd, nil
}

func lookup(raw map[string]any, field string) (any, string, bool) {
	for _, key := range fieldAliases[field] {
		if v, ok := raw[key]; ok && v != nil {
			return v, key, true
		}
	}
	return nil, "", false
}

// lookupString returns the first alias holding a non-empty value. Numbers are
// accepted and formatted without a fraction when they are whole.
func lookupString(raw map[string]any, field string) (string, error) {
	for _, key := range fieldAliases[field] {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		var s string
		switch v := v.(type) {
		case string:
			s = v
		case float64:
			s = strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			s = v.String()
		case int:
			s = strconv.Itoa(v)
		case int64:
			s = strconv.FormatInt(v, 10)
		case bool:
			s = strconv.FormatBool(v)
		default:
			return "", fmt.Errorf("%w: field %q has unsupported type %T", model.ErrInvalidInput, key, v)
		}
		if strings.TrimSpace(s) != "" {
			return s, nil
		}
	}
	return "", nil
}

func lookupStrings(raw map[string]any, field string) ([]string, error) {
	v, key, ok := lookup(raw, field)
	if !ok {
		return nil, nil
	}
	switch v := v.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%w: field %q must be a list of strings", model.ErrInvalidInput, key)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		return []string{v}, nil
	}
	return nil, fmt.Errorf("%w: field %q must be a list of strings", model.ErrInvalidInput, key)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised date %q", model.ErrInvalidInput, s)
}
