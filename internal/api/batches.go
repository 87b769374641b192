package api

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erazemk/fieldstock/internal/inventory"
	"github.com/erazemk/fieldstock/internal/model"
	"github.com/erazemk/fieldstock/internal/store"
)

// BatchesHandler handles metered batch endpoints.
type BatchesHandler struct {
	Inventory *inventory.Service
	Logger    *zap.Logger
}

type createBatchRequest struct {
	Code            string          `json:"code"`
	ItemID          int64           `json:"item_id"`
	InitialQuantity decimal.Decimal `json:"initial_quantity"`
	Supplier        string          `json:"supplier"`
	AcquiredAt      *time.Time      `json:"acquired_at"`
	HolderCrewID    *int64          `json:"holder_crew_id"`
}

type batchMetersRequest struct {
	Meters  decimal.Decimal `json:"meters"`
	OrderID *string         `json:"order_id"`
}

type batchHolderRequest struct {
	CrewID *int64 `json:"crew_id"`
}

// List handles GET /api/batches.
func (h *BatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	itemID, ok1 := queryID(r, "item_id")
	crewID, ok2 := queryID(r, "crew_id")
	if !ok1 || !ok2 {
		jsonError(w, http.StatusBadRequest, "invalid filter")
		return
	}

	batches, err := h.Inventory.ListBatches(r.Context(), store.BatchFilter{
		ItemID: itemID,
		CrewID: crewID,
		Status: r.URL.Query().Get("status"),
	})
	if err != nil {
		writeError(w, h.Logger, "list batches", err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(batches))
}

// Create handles POST /api/batches.
func (h *BatchesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	b, err := h.Inventory.CreateBatch(r.Context(), actorFrom(r), store.NewBatch{
		Code:            req.Code,
		ItemID:          req.ItemID,
		InitialQuantity: req.InitialQuantity,
		Supplier:        req.Supplier,
		AcquiredAt:      req.AcquiredAt,
		HolderCrewID:    req.HolderCrewID,
	})
	if err != nil {
		writeError(w, h.Logger, "create batch", err)
		return
	}
	jsonResponse(w, http.StatusCreated, b)
}

// Get handles GET /api/batches/{code}.
func (h *BatchesHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.Inventory.GetBatch(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, h.Logger, "get batch", err)
		return
	}
	if b == nil {
		jsonError(w, http.StatusNotFound, "batch not found")
		return
	}
	jsonResponse(w, http.StatusOK, b)
}

// AddMeters handles POST /api/batches/{code}/meters.
func (h *BatchesHandler) AddMeters(w http.ResponseWriter, r *http.Request) {
	var req batchMetersRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.respond(w, "assign meters")(h.Inventory.AssignMetersToBatch(r.Context(), actorFrom(r), r.PathValue("code"), req.Meters))
}

// Consume handles POST /api/batches/{code}/consume.
func (h *BatchesHandler) Consume(w http.ResponseWriter, r *http.Request) {
	var req batchMetersRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.respond(w, "consume batch")(h.Inventory.ConsumeBatch(r.Context(), actorFrom(r), r.PathValue("code"), req.Meters, req.OrderID))
}

// AssignHolder handles PUT /api/batches/{code}/holder. A null crew_id
// returns the batch to the warehouse.
func (h *BatchesHandler) AssignHolder(w http.ResponseWriter, r *http.Request) {
	var req batchHolderRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.respond(w, "assign batch")(h.Inventory.AssignBatchToCrew(r.Context(), actorFrom(r), r.PathValue("code"), req.CrewID))
}

// Delete handles DELETE /api/batches/{code}.
func (h *BatchesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Inventory.DeleteBatch(r.Context(), actorFrom(r), r.PathValue("code")); err != nil {
		writeError(w, h.Logger, "delete batch", err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "batch deleted"})
}

func (h *BatchesHandler) respond(w http.ResponseWriter, op string) func(*model.Batch, error) {
	return func(b *model.Batch, err error) {
		if err != nil {
			writeError(w, h.Logger, op, err)
			return
		}
		jsonResponse(w, http.StatusOK, b)
	}
}
