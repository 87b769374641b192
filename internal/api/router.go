package api

import (
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/erazemk/fieldstock/internal/clock"
	"github.com/erazemk/fieldstock/internal/inventory"
	"github.com/erazemk/fieldstock/internal/model"
	"github.com/erazemk/fieldstock/internal/notify"
	"github.com/erazemk/fieldstock/internal/orders"
)

// Deps are the collaborators the API needs.
type Deps struct {
	DB        *sqlx.DB
	JWTSecret string
	Clock     clock.Clock
	Inventory *inventory.Service
	Orders    *orders.Service
	Stats     notify.StatsStore
	Logger    *zap.Logger
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()
	logger := d.Logger

	authHandler := &AuthHandler{DB: d.DB, JWTSecret: d.JWTSecret, Clock: d.Clock, Logger: logger}
	usersHandler := &UsersHandler{DB: d.DB, Clock: d.Clock, Logger: logger}
	crewsHandler := &CrewsHandler{DB: d.DB, Inventory: d.Inventory, Clock: d.Clock, Logger: logger}
	holdingsHandler := &HoldingsHandler{Inventory: d.Inventory, Logger: logger}
	catalogHandler := &CatalogHandler{DB: d.DB, Inventory: d.Inventory, Logger: logger}
	batchesHandler := &BatchesHandler{Inventory: d.Inventory, Logger: logger}
	instancesHandler := &InstancesHandler{Inventory: d.Inventory, Logger: logger}
	ordersHandler := &OrdersHandler{DB: d.DB, Orders: d.Orders, Logger: logger}
	notificationsHandler := &NotificationsHandler{Store: d.Stats, Clock: d.Clock, Logger: logger}

	authMW := AuthMiddleware(d.JWTSecret)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireSupervisor := RequireRole(model.RoleSupervisor)
	requireWarehouse := RequireRole(model.RoleWarehouse)

	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authMW(h))
	}
	handleAs := func(pattern string, role func(http.Handler) http.Handler, h http.HandlerFunc) {
		mux.Handle(pattern, authMW(role(h)))
	}

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Own account.
	handle("GET /api/auth/me", authHandler.Me)
	handle("PUT /api/auth/password", authHandler.ChangePassword)
	handle("PUT /api/auth/push-token", authHandler.SetPushToken)

	// Users (admin only).
	handleAs("GET /api/users", requireAdmin, usersHandler.List)
	handleAs("POST /api/users", requireAdmin, usersHandler.Create)
	handleAs("GET /api/users/{id}", requireAdmin, usersHandler.Get)
	handleAs("PUT /api/users/{id}", requireAdmin, usersHandler.Update)
	handleAs("PUT /api/users/{id}/password", requireAdmin, usersHandler.ResetPassword)
	handleAs("DELETE /api/users/{id}", requireAdmin, usersHandler.Delete)

	// Crews: read (all roles), write (supervisor+).
	handle("GET /api/crews", crewsHandler.List)
	handleAs("POST /api/crews", requireSupervisor, crewsHandler.Create)
	handle("GET /api/crews/{id}", crewsHandler.Get)
	handleAs("PUT /api/crews/{id}", requireSupervisor, crewsHandler.Update)
	handleAs("DELETE /api/crews/{id}", requireSupervisor, crewsHandler.Delete)
	handle("GET /api/crews/{id}/members", crewsHandler.Members)
	handleAs("POST /api/crews/{id}/members", requireSupervisor, crewsHandler.AddMember)
	handleAs("DELETE /api/crews/{id}/members/{userID}", requireSupervisor, crewsHandler.RemoveMember)
	handleAs("PUT /api/crews/{id}/leader", requireSupervisor, crewsHandler.SetLeader)

	// Crew holdings: grants and returns go through the warehouse, usage is
	// recorded by anyone.
	handle("GET /api/crews/{id}/holdings", holdingsHandler.List)
	handleAs("POST /api/crews/{id}/holdings/grant", requireWarehouse, holdingsHandler.Grant)
	handleAs("POST /api/crews/{id}/holdings/return", requireWarehouse, holdingsHandler.Return)
	handle("POST /api/crews/{id}/holdings/consume", holdingsHandler.Consume)

	// Catalog and warehouse stock: read (all), write (warehouse+).
	handle("GET /api/catalog", catalogHandler.List)
	handleAs("POST /api/catalog", requireWarehouse, catalogHandler.Create)
	handle("GET /api/catalog/{id}", catalogHandler.Get)
	handleAs("PUT /api/catalog/{id}", requireWarehouse, catalogHandler.Update)
	handle("GET /api/stock", catalogHandler.Stock)
	handleAs("POST /api/stock/receive", requireWarehouse, catalogHandler.Receive)
	handleAs("GET /api/movements", requireWarehouse, catalogHandler.Movements)

	// Batches.
	handle("GET /api/batches", batchesHandler.List)
	handleAs("POST /api/batches", requireWarehouse, batchesHandler.Create)
	handle("GET /api/batches/{code}", batchesHandler.Get)
	handleAs("POST /api/batches/{code}/meters", requireWarehouse, batchesHandler.AddMeters)
	handle("POST /api/batches/{code}/consume", batchesHandler.Consume)
	handleAs("PUT /api/batches/{code}/holder", requireWarehouse, batchesHandler.AssignHolder)
	handleAs("DELETE /api/batches/{code}", requireWarehouse, batchesHandler.Delete)

	// Equipment instances.
	handle("GET /api/instances", instancesHandler.List)
	handleAs("POST /api/instances", requireWarehouse, instancesHandler.Register)
	handle("GET /api/instances/{id}", instancesHandler.Get)
	handleAs("POST /api/instances/assign", requireWarehouse, instancesHandler.Assign)
	handleAs("POST /api/instances/return", requireWarehouse, instancesHandler.Return)
	handle("POST /api/instances/{id}/damaged", instancesHandler.Damaged)

	// Orders: created by the office, updated by anyone with access.
	handle("GET /api/orders", ordersHandler.List)
	handleAs("POST /api/orders", requireSupervisor, ordersHandler.Create)
	handle("GET /api/orders/{id}", ordersHandler.Get)
	handle("PATCH /api/orders/{id}", ordersHandler.Update)
	handle("GET /api/orders/{id}/history", ordersHandler.History)

	// Notification delivery counters.
	handleAs("GET /api/notifications/stats", requireSupervisor, notificationsHandler.Stats)

	return LoggingMiddleware(logger)(mux)
}
