package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	domain "github.com/Markko1982/order-manager/internal/entity"
	"github.com/Markko1982/order-manager/internal/usecase"
	"github.com/gin-gonic/gin"
)

// RequestLimits are the checks applied before a request reaches a use case.
type RequestLimits struct {
	MaxItemQuantity int
	DefaultPageSize int
	MaxPageSize     int
	Timeout         time.Duration
}

type OrderHandler struct {
	create *usecase.CreateOrder
	update *usecase.UpdateOrderStatus
	del    *usecase.DeleteOrder
	query  *usecase.QueryOrders
	limits RequestLimits
}

func NewOrderHandler(create *usecase.CreateOrder, update *usecase.UpdateOrderStatus, del *usecase.DeleteOrder,
	query *usecase.QueryOrders, limits RequestLimits) *OrderHandler {
	return &OrderHandler{create: create, update: update, del: del, query: query, limits: limits}
}

type createOrderReq struct {
	Items []itemReq `json:"items"`
}

type itemReq struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type pageResp[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

func toPageResp[T any](p usecase.Page[T]) pageResp[T] {
	content := p.Content
	if content == nil {
		content = []T{}
	}
	return pageResp[T]{
		Content:       content,
		Page:          p.Number,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages(),
	}
}

func (h *OrderHandler) timeout(c *gin.Context) (context.Context, context.CancelFunc) {
	d := h.limits.Timeout
	if d <= 0 {
		d = 3 * time.Second
	}
	return context.WithTimeout(c.Request.Context(), d)
}

func (r createOrderReq) validate(maxQty int) map[string]string {
	fields := map[string]string{}
	if len(r.Items) == 0 {
		fields["items"] = "must not be empty"
	}
	for i, it := range r.Items {
		if it.ProductID <= 0 {
			fields[fmt.Sprintf("items[%d].productId", i)] = "is required"
		}
		switch {
		case it.Quantity < 1:
			fields[fmt.Sprintf("items[%d].quantity", i)] = "must be at least 1"
		case maxQty > 0 && it.Quantity > maxQty:
			fields[fmt.Sprintf("items[%d].quantity", i)] = fmt.Sprintf("must be at most %d", maxQty)
		}
	}
	return fields
}

// CreateOrder handler: translate to use case input
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		validationFailed(c, map[string]string{"body": "malformed JSON"})
		return
	}
	if fields := req.validate(h.limits.MaxItemQuantity); len(fields) > 0 {
		validationFailed(c, fields)
		return
	}

	in := usecase.CreateOrderInput{
		ClientID:       c.GetString(ClientIDKey),
		IdempotencyKey: c.GetHeader("X-Idempotency-Key"), // prevent duplicated requests
		Items:          make([]usecase.ItemRequest, 0, len(req.Items)),
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, usecase.ItemRequest{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	ctx, cancel := h.timeout(c)
	defer cancel()

	out, err := h.create.Execute(ctx, in)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Location", "/v1/orders/"+strconv.FormatInt(out.ID, 10))
	c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx, cancel := h.timeout(c)
	defer cancel()

	out, err := h.query.GetByID(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// ListOrders: GET /v1/orders?status=&page=&size=
func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, ok := pageParams(c, h.limits)
	if !ok {
		return
	}
	filter := usecase.AnyStatus()
	if raw := c.Query("status"); raw != "" {
		st, err := domain.ParseStatus(raw)
		if err != nil {
			writeError(c, err)
			return
		}
		filter = usecase.OnlyStatus(st)
	}

	ctx, cancel := h.timeout(c)
	defer cancel()

	res, err := h.query.List(ctx, filter, page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPageResp(res))
}

// UpdateStatus: PUT /v1/orders/:id/status?status=CONFIRMED
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	raw := c.Query("status")
	if raw == "" {
		validationFailed(c, map[string]string{"status": "is required"})
		return
	}
	next, err := domain.ParseStatus(raw)
	if err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := h.timeout(c)
	defer cancel()

	if err := h.update.Execute(ctx, id, next); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx, cancel := h.timeout(c)
	defer cancel()

	if err := h.del.Execute(ctx, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		validationFailed(c, map[string]string{"id": "must be a positive integer"})
		return 0, false
	}
	return id, true
}

func pageParams(c *gin.Context, l RequestLimits) (usecase.PageRequest, bool) {
	var p usecase.PageRequest
	fields := map[string]string{}
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fields["page"] = "must be a non-negative integer"
		}
		p.Number = n
	}
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fields["size"] = "must be a positive integer"
		}
		p.Size = n
	}
	if len(fields) > 0 {
		validationFailed(c, fields)
		return p, false
	}
	return p.Normalize(l.DefaultPageSize, l.MaxPageSize), true
}
