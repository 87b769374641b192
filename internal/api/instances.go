package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/erazemk/fieldstock/internal/inventory"
	"github.com/erazemk/fieldstock/internal/store"
)

// InstancesHandler handles serialized equipment endpoints.
type InstancesHandler struct {
	Inventory *inventory.Service
	Logger    *zap.Logger
}

type registerInstanceRequest struct {
	ItemID       int64  `json:"item_id"`
	SerialNumber string `json:"serial_number"`
	MACAddress   string `json:"mac_address"`
}

type assignInstancesRequest struct {
	InstanceIDs []int64 `json:"instance_ids"`
	CrewID      int64   `json:"crew_id"`
}

type returnInstancesRequest struct {
	InstanceIDs []int64 `json:"instance_ids"`
	Reason      string  `json:"reason"`
}

type damagedRequest struct {
	Reason string `json:"reason"`
}

// List handles GET /api/instances.
func (h *InstancesHandler) List(w http.ResponseWriter, r *http.Request) {
	itemID, ok1 := queryID(r, "item_id")
	crewID, ok2 := queryID(r, "crew_id")
	if !ok1 || !ok2 {
		jsonError(w, http.StatusBadRequest, "invalid filter")
		return
	}

	instances, err := h.Inventory.ListInstances(r.Context(), store.InstanceFilter{
		ItemID: itemID,
		CrewID: crewID,
		Status: r.URL.Query().Get("status"),
	})
	if err != nil {
		writeError(w, h.Logger, "list instances", err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(instances))
}

// Register handles POST /api/instances.
func (h *InstancesHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerInstanceRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in, err := h.Inventory.RegisterInstance(r.Context(), actorFrom(r), store.NewInstance{
		ItemID:       req.ItemID,
		SerialNumber: req.SerialNumber,
		MACAddress:   req.MACAddress,
	})
	if err != nil {
		writeError(w, h.Logger, "register instance", err)
		return
	}
	jsonResponse(w, http.StatusCreated, in)
}

// Get handles GET /api/instances/{id}.
func (h *InstancesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid instance id")
		return
	}

	in, err := h.Inventory.GetInstance(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, "get instance", err)
		return
	}
	if in == nil {
		jsonError(w, http.StatusNotFound, "instance not found")
		return
	}
	jsonResponse(w, http.StatusOK, in)
}

// Assign handles POST /api/instances/assign.
func (h *InstancesHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignInstancesRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	instances, err := h.Inventory.AssignInstances(r.Context(), actorFrom(r), req.InstanceIDs, req.CrewID)
	if err != nil {
		writeError(w, h.Logger, "assign instances", err)
		return
	}
	jsonResponse(w, http.StatusOK, instances)
}

// Return handles POST /api/instances/return.
func (h *InstancesHandler) Return(w http.ResponseWriter, r *http.Request) {
	var req returnInstancesRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	instances, err := h.Inventory.ReturnInstances(r.Context(), actorFrom(r), req.InstanceIDs, req.Reason)
	if err != nil {
		writeError(w, h.Logger, "return instances", err)
		return
	}
	jsonResponse(w, http.StatusOK, instances)
}

// Damaged handles POST /api/instances/{id}/damaged.
func (h *InstancesHandler) Damaged(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid instance id")
		return
	}

	var req damagedRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in, err := h.Inventory.MarkDamaged(r.Context(), actorFrom(r), id, req.Reason)
	if err != nil {
		writeError(w, h.Logger, "mark instance damaged", err)
		return
	}
	jsonResponse(w, http.StatusOK, in)
}
