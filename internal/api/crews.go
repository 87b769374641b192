package api

import (
	"context"
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/erazemk/fieldstock/internal/clock"
	"github.com/erazemk/fieldstock/internal/inventory"
	"github.com/erazemk/fieldstock/internal/store"
)

// CrewsHandler handles crew and crew membership endpoints.
type CrewsHandler struct {
	DB        *sqlx.DB
	Inventory *inventory.Service
	Clock     clock.Clock
	Logger    *zap.Logger
}

type createCrewRequest struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

type updateCrewRequest struct {
	Name string `json:"name"`
}

type crewMemberRequest struct {
	UserID int64 `json:"user_id"`
}

// List handles GET /api/crews.
func (h *CrewsHandler) List(w http.ResponseWriter, r *http.Request) {
	crews, err := store.ListCrews(r.Context(), h.DB)
	if err != nil {
		writeError(w, h.Logger, "list crews", err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(crews))
}

// Create handles POST /api/crews.
func (h *CrewsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCrewRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	crew, err := store.CreateCrew(r.Context(), h.DB, req.Number, req.Name, h.Clock.Now())
	if err != nil {
		writeError(w, h.Logger, "create crew", err)
		return
	}

	h.Logger.Info("crew created", zap.String("user", actorFrom(r).Username), zap.Int("number", crew.Number))
	jsonResponse(w, http.StatusCreated, crew)
}

// Get handles GET /api/crews/{id}.
func (h *CrewsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid crew id")
		return
	}

	crew, err := store.GetCrew(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, h.Logger, "get crew", err)
		return
	}
	if crew == nil {
		jsonError(w, http.StatusNotFound, "crew not found")
		return
	}
	jsonResponse(w, http.StatusOK, crew)
}

// Update handles PUT /api/crews/{id}.
func (h *CrewsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid crew id")
		return
	}

	var req updateCrewRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := store.UpdateCrew(r.Context(), h.DB, id, req.Name); err != nil {
		writeError(w, h.Logger, "update crew", err)
		return
	}

	crew, err := store.GetCrew(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, h.Logger, "get crew", err)
		return
	}
	jsonResponse(w, http.StatusOK, crew)
}

// Delete handles DELETE /api/crews/{id}. Crews still holding stock cannot be
// deleted.
func (h *CrewsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid crew id")
		return
	}

	if err := h.Inventory.DeleteCrew(r.Context(), id); err != nil {
		writeError(w, h.Logger, "delete crew", err)
		return
	}

	h.Logger.Info("crew deleted", zap.String("user", actorFrom(r).Username), zap.Int64("crew_id", id))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "crew deleted"})
}

// Members handles GET /api/crews/{id}/members.
func (h *CrewsHandler) Members(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid crew id")
		return
	}

	members, err := h.Inventory.CrewMembers(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, "list crew members", err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(members))
}

// AddMember handles POST /api/crews/{id}/members.
func (h *CrewsHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	h.changeMember(w, r, "add crew member", h.Inventory.AddCrewMember)
}

// SetLeader handles PUT /api/crews/{id}/leader.
func (h *CrewsHandler) SetLeader(w http.ResponseWriter, r *http.Request) {
	h.changeMember(w, r, "set crew leader", h.Inventory.SetCrewLeader)
}

// RemoveMember handles DELETE /api/crews/{id}/members/{userID}.
func (h *CrewsHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	crewID, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid crew id")
		return
	}
	userID, ok := pathID(r, "userID")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.Inventory.RemoveCrewMember(r.Context(), crewID, userID); err != nil {
		writeError(w, h.Logger, "remove crew member", err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "member removed"})
}

func (h *CrewsHandler) changeMember(w http.ResponseWriter, r *http.Request, op string,
	fn func(ctx context.Context, crewID, userID int64) error) {
	crewID, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid crew id")
		return
	}

	var req crewMemberRequest
	if err := decodeJSON(r, &req); err != nil || req.UserID <= 0 {
		jsonError(w, http.StatusBadRequest, "user_id required")
		return
	}

	if err := fn(r.Context(), crewID, req.UserID); err != nil {
		writeError(w, h.Logger, op, err)
		return
	}

	h.Logger.Info(op, zap.String("user", actorFrom(r).Username),
		zap.Int64("crew_id", crewID), zap.Int64("member_id", req.UserID))
	members, err := h.Inventory.CrewMembers(r.Context(), crewID)
	if err != nil {
		writeError(w, h.Logger, "list crew members", err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(members))
}
