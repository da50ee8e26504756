package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"parking-service/internal/http/middleware"
	"parking-service/internal/model"
	"parking-service/internal/reconcile"
	"parking-service/internal/service"
	"parking-service/internal/utils"
)

type Handler struct {
	sessionService *service.SessionService
	refresher      *service.Refresher
	log            zerolog.Logger
}

func NewHandler(sessionService *service.SessionService, refresher *service.Refresher, log zerolog.Logger) *Handler {
	return &Handler{
		sessionService: sessionService,
		refresher:      refresher,
		log:            log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := r.Group("/api")
	protected.Use(authMiddleware)

	sessions := protected.Group("/sessions")
	{
		sessions.GET("", h.listSessions)
		sessions.GET("/grouped", h.groupedSessions)
		sessions.GET("/enhanced", h.enhancedSessions)
		sessions.GET("/plate/:plate", h.sessionsByPlate)
		sessions.POST("/refresh", h.refreshSessions)
		sessions.POST("/finalize-exit/:id",
			middleware.RequireRole(model.UserRoleAdmin, model.UserRoleOperator),
			h.finalizeExit)
	}

	dashboard := protected.Group("/dashboard")
	{
		dashboard.GET("/stats", h.dashboardStats)
		dashboard.PATCH("/total-slots", middleware.RequireRole(model.UserRoleAdmin), h.updateTotalSlots)
	}
}

// listSessions serves the current snapshot, optionally filtered.
func (h *Handler) listSessions(c *gin.Context) {
	filter := reconcile.Filter{Plate: c.Query("plate")}
	if raw := c.Query("date_from"); raw != "" {
		from, err := parseTime(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid date_from"))
			return
		}
		filter.DateFrom = &from
	}
	if raw := c.Query("date_to"); raw != "" {
		to, err := parseTime(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid date_to"))
			return
		}
		filter.DateTo = &to
	}
	if filter.DateFrom != nil && filter.DateTo != nil && reconcile.StartOfDay(*filter.DateTo).Before(reconcile.StartOfDay(*filter.DateFrom)) {
		c.JSON(http.StatusBadRequest, errorResponse("date_to is before date_from"))
		return
	}

	snap := h.refresher.Snapshot()
	c.JSON(http.StatusOK, snapshotResponse(h.sessionService.Search(snap.Sessions, filter), snap))
}

func (h *Handler) groupedSessions(c *gin.Context) {
	sessions, err := h.sessionService.GetGroupedSessions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"data":  sessions,
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, successResponse(sessions))
}

func (h *Handler) enhancedSessions(c *gin.Context) {
	outcome := h.sessionService.GetEnhancedGroupedSessions(c.Request.Context())
	meta := gin.H{"path": outcome.Path}
	if outcome.Cause != nil {
		meta["error"] = outcome.Cause.Error()
	}
	c.JSON(http.StatusOK, gin.H{
		"data": outcome.Sessions,
		"meta": meta,
	})
}

func (h *Handler) sessionsByPlate(c *gin.Context) {
	plate := utils.NormalizePlate(c.Param("plate"))
	if plate == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid plate"))
		return
	}

	snap := h.refresher.Snapshot()
	matched := make([]model.ParkingSession, 0)
	for _, s := range snap.Sessions {
		if utils.NormalizePlate(s.LicensePlate) == plate {
			matched = append(matched, s)
		}
	}
	c.JSON(http.StatusOK, snapshotResponse(matched, snap))
}

func (h *Handler) refreshSessions(c *gin.Context) {
	started := h.refresher.Start(c.Request.Context())
	c.JSON(http.StatusAccepted, successResponse(gin.H{"started": started}))
}

func (h *Handler) finalizeExit(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid exit session id"))
		return
	}

	result, err := h.sessionService.FinalizeExit(c.Request.Context(), principal, id)
	if err != nil {
		if errors.Is(err, model.ErrFinalizeRejected) {
			c.JSON(http.StatusConflict, gin.H{
				"data":  result,
				"error": result.Message,
			})
			return
		}
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) dashboardStats(c *gin.Context) {
	snap := h.refresher.Snapshot()
	stats, err := h.sessionService.Stats(c.Request.Context(), snap.Sessions)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(stats))
}

func (h *Handler) updateTotalSlots(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req struct {
		TotalSlots *int `json:"total_slots" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	if err := h.sessionService.UpdateTotalSlots(c.Request.Context(), principal, *req.TotalSlots); err != nil {
		h.handleError(c, err)
		return
	}

	snap := h.refresher.Snapshot()
	stats, err := h.sessionService.Stats(c.Request.Context(), snap.Sessions)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(stats))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	case errors.Is(err, model.ErrSourceUnavailable):
		h.log.Warn().Err(err).Msg("gate source unavailable")
		c.JSON(http.StatusServiceUnavailable, errorResponse("gate source unavailable"))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}

func snapshotResponse(sessions []model.ParkingSession, snap *service.Snapshot) gin.H {
	meta := gin.H{"path": snap.Path}
	if !snap.RefreshedAt.IsZero() {
		meta["refreshed_at"] = snap.RefreshedAt.Format(time.RFC3339)
	}
	if snap.Err != nil {
		meta["error"] = snap.Err.Error()
	}
	return gin.H{
		"data": sessions,
		"meta": meta,
	}
}

// parseTime accepts a full timestamp or a bare date, read in the local zone.
func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local); err == nil {
		return parsed, nil
	}
	return model.ParseTimestamp(raw)
}
