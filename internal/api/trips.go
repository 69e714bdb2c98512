package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tripperhq/tripper/internal/middleware"
	"github.com/tripperhq/tripper/internal/service"
)

type createTripRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Currency    string `json:"currency" binding:"required"`
	StartDate   int64  `json:"startDate" binding:"required"`
	EndDate     int64  `json:"endDate" binding:"required"`
}

type addParticipantRequest struct {
	UserID  string `json:"userId" binding:"required"`
	Version int64  `json:"version"`
}

// queryVersion reads the optional expected trip version from the query
// string; DELETE requests have no body to carry it in.
func queryVersion(c *gin.Context) int64 {
	version, _ := strconv.ParseInt(c.Query("version"), 10, 64)
	return version
}

func (h *Handler) createTrip(c *gin.Context) {
	var req createTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	trip, err := h.Trips.CreateTrip(c.Request.Context(), middleware.GetUserID(c.Request.Context()), service.CreateTripInput{
		Name:        req.Name,
		Description: req.Description,
		Currency:    req.Currency,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"trip": trip})
}

func (h *Handler) listTrips(c *gin.Context) {
	trips, err := h.Trips.ListTrips(c.Request.Context(), middleware.GetUserID(c.Request.Context()))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trips": trips})
}

func (h *Handler) getTrip(c *gin.Context) {
	details, err := h.Trips.GetTripDetails(c.Request.Context(), middleware.GetUserID(c.Request.Context()), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *Handler) addParticipant(c *gin.Context) {
	var req addParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	trip, err := h.Trips.AddParticipant(c.Request.Context(),
		middleware.GetUserID(c.Request.Context()), c.Param("id"), req.UserID, req.Version)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip": trip})
}

func (h *Handler) removeParticipant(c *gin.Context) {
	trip, err := h.Trips.RemoveParticipant(c.Request.Context(),
		middleware.GetUserID(c.Request.Context()), c.Param("id"), c.Param("userId"), queryVersion(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip": trip})
}
