// Package handler contains the gin HTTP handlers. Actor identity arrives in
// the X-Sharer-User-Id header and is parsed by the actor middleware.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gearshare/service-booking/internal/application"
	"github.com/gearshare/service-booking/pkg/middleware"
	"github.com/gearshare/service-booking/pkg/response"
)

// BookingHandler handles HTTP requests for booking operations.
type BookingHandler struct {
	service *application.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup) {
	bookings := r.Group("/bookings")
	bookings.Use(middleware.ActorMiddleware())
	{
		bookings.POST("", h.Create)
		bookings.GET("", h.ListForBooker)
		bookings.GET("/owner", h.ListForOwner)
		bookings.GET("/:id", h.Get)
		bookings.PATCH("/:id", h.Decide)
	}
}

// Create handles POST /bookings.
func (h *BookingHandler) Create(c *gin.Context) {
	actorID, ok := middleware.GetActorID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing actor id"})
		return
	}

	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Create(c.Request.Context(), actorID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// Decide handles PATCH /bookings/:id?approved={bool}.
func (h *BookingHandler) Decide(c *gin.Context) {
	actorID, ok := middleware.GetActorID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing actor id"})
		return
	}

	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid booking id")
		return
	}

	approved, err := strconv.ParseBool(c.Query("approved"))
	if err != nil {
		response.BadRequest(c, "approved query parameter must be true or false")
		return
	}

	result, err := h.service.Decide(c.Request.Context(), bookingID, approved, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Get handles GET /bookings/:id.
func (h *BookingHandler) Get(c *gin.Context) {
	actorID, ok := middleware.GetActorID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing actor id"})
		return
	}

	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid booking id")
		return
	}

	result, err := h.service.Get(c.Request.Context(), bookingID, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ListForBooker handles GET /bookings?state=&from=&size=.
func (h *BookingHandler) ListForBooker(c *gin.Context) {
	actorID, ok := middleware.GetActorID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing actor id"})
		return
	}

	state, from, size, err := parseListingParams(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ListForBooker(c.Request.Context(), actorID, state, from, size)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ListForOwner handles GET /bookings/owner?state=&from=&size=.
func (h *BookingHandler) ListForOwner(c *gin.Context) {
	actorID, ok := middleware.GetActorID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing actor id"})
		return
	}

	state, from, size, err := parseListingParams(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ListForOwner(c.Request.Context(), actorID, state, from, size)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// parseListingParams extracts state/from/size query parameters with the
// documented defaults (ALL, 0, 10). Range validation happens in the service.
func parseListingParams(c *gin.Context) (string, int, int, error) {
	state := c.DefaultQuery("state", "ALL")

	from, err := strconv.Atoi(c.DefaultQuery("from", "0"))
	if err != nil {
		return "", 0, 0, err
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "10"))
	if err != nil {
		return "", 0, 0, err
	}
	return state, from, size, nil
}
