package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"patrol-service/internal/domain/patrol"
	"patrol-service/internal/http/middleware"
	"patrol-service/internal/model"
	"patrol-service/internal/report"
	"patrol-service/internal/resolver"
	"patrol-service/internal/service"
	"patrol-service/internal/settlement"
	"patrol-service/internal/ticket"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	patrolService *service.PatrolService
	log           zerolog.Logger
}

func NewHandler(
	patrolService *service.PatrolService,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		patrolService: patrolService,
		log:           log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := r.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.POST("/sessions", h.openSession)
		protected.DELETE("/sessions/:id", h.closeSession)
		protected.POST("/sessions/:id/stops", h.startStop)
		protected.GET("/sessions/:id/stop", h.currentStop)

		protected.GET("/sessions/:id/cart", h.getCart)
		protected.POST("/sessions/:id/cart/items", h.addCartItems)
		protected.POST("/sessions/:id/cart/inspection", h.addInspectionDefects)
		protected.POST("/sessions/:id/cart/describe", h.describeOffense)
		protected.DELETE("/sessions/:id/cart", h.clearCart)

		protected.GET("/inspection/checklist", h.listChecklist)
		protected.GET("/statutes", h.listStatutes)

		protected.POST("/sessions/:id/tickets", h.compileTicket)
		protected.GET("/sessions/:id/tickets/:ticketId", h.getTicket)
		protected.GET("/sessions/:id/payment-methods", h.listPaymentMethods)
		protected.POST("/sessions/:id/tickets/:ticketId/settlement", h.settleTicket)

		protected.GET("/reports/settlements.xlsx", h.settlementReport)
		protected.DELETE("/reports/settlements", h.pruneSettlements)
	}
}

func (h *Handler) openSession(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	info, err := h.patrolService.OpenSession(principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(info))
}

func (h *Handler) closeSession(c *gin.Context) {
	principal, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	if err := h.patrolService.CloseSession(principal, sessionID); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) startStop(c *gin.Context) {
	principal, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	var req struct {
		VRN string `json:"vrn" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	stop, err := h.patrolService.StartStop(c.Request.Context(), principal, sessionID, req.VRN)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(stop))
}

func (h *Handler) currentStop(c *gin.Context) {
	principal, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	stop, err := h.patrolService.CurrentStop(principal, sessionID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(stop))
}

func (h *Handler) getCart(c *gin.Context) {
	principal, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	summary, err := h.patrolService.CartSummary(principal, sessionID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(summary))
}

func (h *Handler) addCartItems(c *gin.Context) {
	principal, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	var req struct {
		Items []patrol.OffenseLineItem `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	added, summary, err := h.patrolService.AddOffenses(principal, sessionID, req.Items)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{
		"added":      added.Added,
		"duplicates": added.Duplicates,
		"cart":       summary,
	}))
}

func (h *Handler) addInspectionDefects(c *gin.Context) {
	principal, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	var req struct {
		FailedItemIDs []string `json:"failed_item_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	added, summary, err := h.patrolService.AddInspectionDefects(principal, sessionID, req.FailedItemIDs)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{
		"added":      added.Added,
		"duplicates": added.Duplicates,
		"cart":       summary,
	}))
}

func (h *Handler) describeOffense(c *gin.Context) {
	principal, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	resolution, added, summary, err := h.patrolService.DescribeOffense(principal, sessionID, req.Text)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{
		"resolution": resolution,
		"added":      added.Added,
		"duplicates": added.Duplicates,
		"cart":       summary,
	}))
}

func (h *Handler) clearCart(c *gin.Context) {
	principal, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	if err := h.patrolService.ClearCart(principal, sessionID); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) listChecklist(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse(resolver.Checklist()))
}

func (h *Handler) listStatutes(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse(resolver.Statutes()))
}

func (h *Handler) compileTicket(c *gin.Context) {
	principal, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	var req struct {
		Offender patrol.Offender `json:"offender"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	t, err := h.patrolService.CompileTicket(c.Request.Context(), principal, sessionID, req.Offender)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(t))
}

func (h *Handler) getTicket(c *gin.Context) {
	principal, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}
	ticketID, ok := uuidParam(c, "ticketId")
	if !ok {
		return
	}

	t, err := h.patrolService.GetTicket(principal, sessionID, ticketID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(t))
}

func (h *Handler) listPaymentMethods(c *gin.Context) {
	principal, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	online := true
	if raw := strings.TrimSpace(c.Query("online")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("online must be a boolean"))
			return
		}
		online = parsed
	}

	methods, err := h.patrolService.PaymentMethods(principal, sessionID, online)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(methods))
}

// settleTicket blocks for the duration of a digital push. A client that goes
// away cancels the request context, which resolves the attempt as CANCELLED.
func (h *Handler) settleTicket(c *gin.Context) {
	principal, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}
	ticketID, ok := uuidParam(c, "ticketId")
	if !ok {
		return
	}

	var req struct {
		Method       string `json:"method" binding:"required"`
		PayerContact string `json:"payer_contact"`
		Online       *bool  `json:"online"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	online := true
	if req.Online != nil {
		online = *req.Online
	}

	result, err := h.patrolService.Settle(c.Request.Context(), principal, sessionID, ticketID, settlement.Request{
		Method:       req.Method,
		PayerContact: req.PayerContact,
		Online:       online,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.log.Info().
		Str("ticket_id", ticketID.String()).
		Str("method", result.Method).
		Str("status", string(result.Status)).
		Msg("settlement attempt finished")

	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) settlementReport(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		parsed, err := parseTime(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("from must be RFC3339 or YYYY-MM-DD"))
			return
		}
		from = parsed
	}
	to := from.Add(24 * time.Hour)
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		parsed, err := parseTime(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("to must be RFC3339 or YYYY-MM-DD"))
			return
		}
		to = parsed
	}

	records, err := h.patrolService.SettlementReport(c.Request.Context(), principal, from, to)
	if err != nil {
		h.handleError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteSettlements(&buf, records); err != nil {
		h.handleError(c, err)
		return
	}

	filename := fmt.Sprintf("settlements-%s.xlsx", from.Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *Handler) pruneSettlements(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	days, err := strconv.Atoi(c.Query("older_than_days"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("older_than_days must be a whole number of days"))
		return
	}

	removed, err := h.patrolService.PruneSettlements(c.Request.Context(), principal, days)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(gin.H{"removed": removed}))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, ticket.ErrEmptyCart),
		errors.Is(err, settlement.ErrUnknownMethod),
		errors.Is(err, settlement.ErrInvalidTicket):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, errorResponse(err.Error()))
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNoActiveStop),
		errors.Is(err, service.ErrTicketingBlocked),
		errors.Is(err, settlement.ErrAlreadySettled),
		errors.Is(err, settlement.ErrInProgress):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	case errors.Is(err, settlement.ErrOffline):
		c.JSON(http.StatusUnprocessableEntity, errorResponse(err.Error()))
	case errors.Is(err, service.ErrReportsDisabled):
		c.JSON(http.StatusServiceUnavailable, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func (h *Handler) principal(c *gin.Context) (model.Principal, bool) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("unauthorized"))
		return model.Principal{}, false
	}
	return principal, true
}

func (h *Handler) sessionParams(c *gin.Context) (model.Principal, uuid.UUID, bool) {
	principal, ok := h.principal(c)
	if !ok {
		return model.Principal{}, uuid.Nil, false
	}
	sessionID, ok := uuidParam(c, "id")
	if !ok {
		return model.Principal{}, uuid.Nil, false
	}
	return principal, sessionID, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Sprintf("invalid %s", name)))
		return uuid.Nil, false
	}
	return id, true
}

func parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
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
