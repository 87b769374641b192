package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/erazemk/fieldstock/internal/inventory"
)

// HoldingsHandler handles crew holding endpoints.
type HoldingsHandler struct {
	Inventory *inventory.Service
	Logger    *zap.Logger
}

type holdingRequest struct {
	ItemID   int64   `json:"item_id"`
	Quantity int     `json:"quantity"`
	OrderID  *string `json:"order_id"`
	Notes    string  `json:"notes"`
}

// List handles GET /api/crews/{id}/holdings.
func (h *HoldingsHandler) List(w http.ResponseWriter, r *http.Request) {
	crewID, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid crew id")
		return
	}

	holdings, err := h.Inventory.Holdings(r.Context(), crewID)
	if err != nil {
		writeError(w, h.Logger, "list holdings", err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(holdings))
}

// Grant handles POST /api/crews/{id}/holdings/grant.
func (h *HoldingsHandler) Grant(w http.ResponseWriter, r *http.Request) {
	crewID, req, ok := h.request(w, r)
	if !ok {
		return
	}
	m, err := h.Inventory.GrantToCrew(r.Context(), actorFrom(r), crewID, req.ItemID, req.Quantity, req.Notes)
	if err != nil {
		writeError(w, h.Logger, "grant to crew", err)
		return
	}
	jsonResponse(w, http.StatusCreated, m)
}

// Consume handles POST /api/crews/{id}/holdings/consume.
func (h *HoldingsHandler) Consume(w http.ResponseWriter, r *http.Request) {
	crewID, req, ok := h.request(w, r)
	if !ok {
		return
	}
	m, err := h.Inventory.ConsumeFromCrew(r.Context(), actorFrom(r), crewID, req.ItemID, req.Quantity, req.OrderID, req.Notes)
	if err != nil {
		writeError(w, h.Logger, "consume from crew", err)
		return
	}
	jsonResponse(w, http.StatusCreated, m)
}

// Return handles POST /api/crews/{id}/holdings/return.
func (h *HoldingsHandler) Return(w http.ResponseWriter, r *http.Request) {
	crewID, req, ok := h.request(w, r)
	if !ok {
		return
	}
	m, err := h.Inventory.ReturnFromCrew(r.Context(), actorFrom(r), crewID, req.ItemID, req.Quantity, req.Notes)
	if err != nil {
		writeError(w, h.Logger, "return from crew", err)
		return
	}
	jsonResponse(w, http.StatusCreated, m)
}

func (h *HoldingsHandler) request(w http.ResponseWriter, r *http.Request) (int64, holdingRequest, bool) {
	var req holdingRequest
	crewID, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid crew id")
		return 0, req, false
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return 0, req, false
	}
	return crewID, req, true
}
