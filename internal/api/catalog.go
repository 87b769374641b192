package api

import (
	"net/http"
	"strconv"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/erazemk/fieldstock/internal/inventory"
	"github.com/erazemk/fieldstock/internal/model"
	"github.com/erazemk/fieldstock/internal/store"
)

// CatalogHandler handles catalog, warehouse stock and movement endpoints.
type CatalogHandler struct {
	DB        *sqlx.DB
	Inventory *inventory.Service
	Logger    *zap.Logger
}

type catalogItemRequest struct {
	Code              string `json:"code"`
	Description       string `json:"description"`
	Unit              string `json:"unit"`
	Type              string `json:"type"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

type receiveStockRequest struct {
	ItemID   int64  `json:"item_id"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes"`
}

// List handles GET /api/catalog.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListCatalogItems(r.Context(), h.DB, r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, h.Logger, "list catalog", err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(items))
}

// Create handles POST /api/catalog.
func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req catalogItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Inventory.CreateCatalogItem(r.Context(), actorFrom(r), model.CatalogItem{
		Code:              req.Code,
		Description:       req.Description,
		Unit:              req.Unit,
		Type:              req.Type,
		LowStockThreshold: req.LowStockThreshold,
	})
	if err != nil {
		writeError(w, h.Logger, "create catalog item", err)
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/catalog/{id}.
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetCatalogItem(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, h.Logger, "get catalog item", err)
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/catalog/{id}.
func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req catalogItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Inventory.UpdateCatalogItem(r.Context(), actorFrom(r), model.CatalogItem{
		ID:                id,
		Code:              req.Code,
		Description:       req.Description,
		Unit:              req.Unit,
		LowStockThreshold: req.LowStockThreshold,
	})
	if err != nil {
		writeError(w, h.Logger, "update catalog item", err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Stock handles GET /api/stock. With ?low=1 only items at or below their
// threshold are listed.
func (h *CatalogHandler) Stock(w http.ResponseWriter, r *http.Request) {
	var (
		stock []model.WarehouseStock
		err   error
	)
	if low, _ := strconv.ParseBool(r.URL.Query().Get("low")); low {
		stock, err = h.Inventory.LowStock(r.Context())
	} else {
		stock, err = h.Inventory.WarehouseStock(r.Context())
	}
	if err != nil {
		writeError(w, h.Logger, "list stock", err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(stock))
}

// Receive handles POST /api/stock/receive.
func (h *CatalogHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var req receiveStockRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.Inventory.ReceiveStock(r.Context(), actorFrom(r), req.ItemID, req.Quantity, req.Notes)
	if err != nil {
		writeError(w, h.Logger, "receive stock", err)
		return
	}
	jsonResponse(w, http.StatusCreated, m)
}

// Movements handles GET /api/movements.
func (h *CatalogHandler) Movements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	crewID, ok1 := queryID(r, "crew_id")
	itemID, ok2 := queryID(r, "item_id")
	limit, err := strconv.Atoi(q.Get("limit"))
	if q.Get("limit") == "" {
		limit, err = 100, nil
	}
	if !ok1 || !ok2 || err != nil || limit < 0 {
		jsonError(w, http.StatusBadRequest, "invalid filter")
		return
	}

	movements, err := h.Inventory.Movements(r.Context(), model.MovementFilter{
		CrewID:  crewID,
		ItemID:  itemID,
		OrderID: q.Get("order_id"),
		Type:    q.Get("type"),
		Limit:   limit,
	})
	if err != nil {
		writeError(w, h.Logger, "list movements", err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(movements))
}
