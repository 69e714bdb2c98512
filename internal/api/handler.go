package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tripperhq/tripper/internal/auth"
	"github.com/tripperhq/tripper/internal/middleware"
	"github.com/tripperhq/tripper/internal/service"
)

// Handler bundles the services behind the HTTP surface.
type Handler struct {
	Auth        *service.AuthService
	Trips       *service.TripService
	Expenses    *service.ExpenseService
	Settlements *service.SettlementService
	JWT         *auth.JWTManager
}

// NewHandler creates a Handler with its service dependencies.
func NewHandler(authSvc *service.AuthService, trips *service.TripService,
	expenses *service.ExpenseService, settlements *service.SettlementService,
	jwtManager *auth.JWTManager) *Handler {
	return &Handler{
		Auth:        authSvc,
		Trips:       trips,
		Expenses:    expenses,
		Settlements: settlements,
		JWT:         jwtManager,
	}
}

// Router builds the gin engine with all routes and middleware attached.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logging())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.register)
	authGroup.POST("/login", h.login)

	protected := api.Group("")
	protected.Use(middleware.RequireAuth(h.JWT))
	protected.GET("/me", h.currentUser)

	trips := protected.Group("/trips")
	trips.POST("", h.createTrip)
	trips.GET("", h.listTrips)
	trips.GET("/:id", h.getTrip)
	trips.POST("/:id/participants", h.addParticipant)
	trips.DELETE("/:id/participants/:userId", h.removeParticipant)
	trips.POST("/:id/expenses", h.addExpense)
	trips.DELETE("/:id/expenses/:expenseId", h.deleteExpense)
	trips.GET("/:id/balances", h.balances)
	trips.GET("/:id/settlements", h.listSettlements)
	trips.GET("/:id/settlements/history", h.settlementHistory)
	trips.POST("/:id/settlements/:settlementId/settle", h.settle)

	return router
}
