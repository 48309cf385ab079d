package handler

import (
	"context"
	"net/http"

	"restock/internal/apierror"
	"restock/internal/dto"
	"restock/internal/middleware"
	"restock/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PurchaseOrdersHandler struct{ svc service.PurchaseOrderService }

func NewPurchaseOrdersHandler(svc service.PurchaseOrderService) *PurchaseOrdersHandler {
	return &PurchaseOrdersHandler{svc: svc}
}

// Suggestions returns reorder-flagged items grouped per vendor, ready to be
// turned into draft orders.
func (h *PurchaseOrdersHandler) Suggestions(c *gin.Context) {
	resp, err := h.svc.Suggestions(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": resp})
}

func (h *PurchaseOrdersHandler) Create(c *gin.Context) {
	var req dto.CreatePORequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req, middleware.Actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *PurchaseOrdersHandler) List(c *gin.Context) {
	var filter dto.POFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	orders, total, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  total,
		"page":   filter.Page,
		"limit":  filter.Limit,
	})
}

func (h *PurchaseOrdersHandler) Get(c *gin.Context) {
	id, ok := h.poID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PurchaseOrdersHandler) Audit(c *gin.Context) {
	id, ok := h.poID(c)
	if !ok {
		return
	}
	entries, err := h.svc.Audit(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *PurchaseOrdersHandler) Submit(c *gin.Context) {
	h.transition(c, h.svc.Submit)
}

func (h *PurchaseOrdersHandler) Approve(c *gin.Context) {
	h.transition(c, h.svc.Approve)
}

func (h *PurchaseOrdersHandler) Reject(c *gin.Context) {
	id, ok := h.poID(c)
	if !ok {
		return
	}
	var req dto.RejectPORequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Reject(c.Request.Context(), id, middleware.Actor(c), req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PurchaseOrdersHandler) Send(c *gin.Context) {
	h.transition(c, h.svc.Send)
}

func (h *PurchaseOrdersHandler) Cancel(c *gin.Context) {
	h.transition(c, h.svc.Cancel)
}

func (h *PurchaseOrdersHandler) Receive(c *gin.Context) {
	id, ok := h.poID(c)
	if !ok {
		return
	}
	var req dto.ReceivePORequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Receive(c.Request.Context(), id, middleware.Actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PurchaseOrdersHandler) poID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid purchase order id"))
		return uuid.Nil, false
	}
	return id, true
}

type transitionFunc func(ctx context.Context, id uuid.UUID, actor string) (*dto.PurchaseOrderResponse, error)

func (h *PurchaseOrdersHandler) transition(c *gin.Context, fn transitionFunc) {
	id, ok := h.poID(c)
	if !ok {
		return
	}
	resp, err := fn(c.Request.Context(), id, middleware.Actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
