package api

import (
	"net/http"
	"strconv"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/erazemk/fieldstock/internal/model"
	"github.com/erazemk/fieldstock/internal/orders"
	"github.com/erazemk/fieldstock/internal/store"
)

// OrdersHandler handles work order endpoints.
type OrdersHandler struct {
	DB     *sqlx.DB
	Orders *orders.Service
	Logger *zap.Logger
}

type updateOrderRequest struct {
	Status       *string          `json:"status"`
	CrewID       *int64           `json:"crew_id"`
	CrewNumber   *int             `json:"crew_number"`
	Materials    *model.Materials `json:"materials_used"`
	Notes        *string          `json:"notes"`
	Address      *string          `json:"address"`
	Phone        *string          `json:"phone"`
	PhotoURLs    *[]string        `json:"photo_urls"`
	SignatureURL *string          `json:"signature_url"`
}

// List handles GET /api/orders. Installers only see their own crew's orders.
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	crewID, ok := queryID(r, "crew_id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid crew id")
		return
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	if claims := GetClaims(r.Context()); claims != nil && claims.Role == model.RoleInstaller {
		if claims.CrewID == nil {
			jsonResponse(w, http.StatusOK, []model.Order{})
			return
		}
		crewID = *claims.CrewID
	}

	list, err := h.Orders.List(r.Context(), store.OrderFilter{
		Status: q.Get("status"),
		CrewID: crewID,
		Type:   q.Get("type"),
		Limit:  limit,
	})
	if err != nil {
		writeError(w, h.Logger, "list orders", err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(list))
}

// Create handles POST /api/orders. The body may use any of the accepted
// field aliases.
func (h *OrdersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := decodeJSON(r, &raw); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cmd, err := orders.NormalizeCreate(raw)
	if err != nil {
		writeError(w, h.Logger, "normalize order", err)
		return
	}

	o, err := h.Orders.Create(r.Context(), actorFrom(r), cmd)
	if err != nil {
		writeError(w, h.Logger, "create order", err)
		return
	}
	jsonResponse(w, http.StatusCreated, o)
}

// Get handles GET /api/orders/{id}.
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.Logger, "get order", err)
		return
	}
	if !canAccessOrder(r, o) {
		jsonError(w, http.StatusForbidden, "order belongs to another crew")
		return
	}
	jsonResponse(w, http.StatusOK, o)
}

// Update handles PATCH /api/orders/{id}.
func (h *OrdersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	current, err := h.Orders.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, "get order", err)
		return
	}
	if !canAccessOrder(r, current) {
		jsonError(w, http.StatusForbidden, "order belongs to another crew")
		return
	}

	cmd := orders.UpdateOrderCommand{
		Status:       req.Status,
		CrewID:       req.CrewID,
		Materials:    req.Materials,
		Notes:        req.Notes,
		Address:      req.Address,
		Phone:        req.Phone,
		PhotoURLs:    req.PhotoURLs,
		SignatureURL: req.SignatureURL,
	}
	if req.CrewNumber != nil && req.CrewID == nil {
		crew, err := store.GetCrewByNumber(r.Context(), h.DB, *req.CrewNumber)
		if err != nil {
			writeError(w, h.Logger, "get crew", err)
			return
		}
		if crew == nil {
			jsonError(w, http.StatusNotFound, "crew not found")
			return
		}
		cmd.CrewID = &crew.ID
	}

	o, err := h.Orders.Update(r.Context(), actorFrom(r), id, cmd)
	if err != nil {
		writeError(w, h.Logger, "update order", err)
		return
	}
	jsonResponse(w, http.StatusOK, o)
}

// History handles GET /api/orders/{id}/history.
func (h *OrdersHandler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Orders.History(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.Logger, "order history", err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(entries))
}

// canAccessOrder limits installers to orders assigned to their crew.
func canAccessOrder(r *http.Request, o *model.Order) bool {
	claims := GetClaims(r.Context())
	if claims == nil || claims.Role != model.RoleInstaller {
		return true
	}
	return claims.CrewID != nil && o.AssignedTo != nil && *claims.CrewID == *o.AssignedTo
}
