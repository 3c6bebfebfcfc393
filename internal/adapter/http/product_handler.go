package http

import (
	"net/http"
	"strconv"
	"time"

	domain "github.com/Markko1982/order-manager/internal/entity"
	"github.com/Markko1982/order-manager/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ProductHandler struct {
	catalog *usecase.Catalog
	limits  RequestLimits
}

func NewProductHandler(catalog *usecase.Catalog, limits RequestLimits) *ProductHandler {
	return &ProductHandler{catalog: catalog, limits: limits}
}

type createProductReq struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

type productResp struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toProductResp(p domain.Product) productResp {
	return productResp{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price.StringFixed(2),
		Stock:     p.Stock,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req createProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		validationFailed(c, map[string]string{"body": "malformed JSON"})
		return
	}

	p, err := h.catalog.Create(c.Request.Context(), usecase.NewProduct{Name: req.Name, Price: req.Price, Stock: req.Stock})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Location", "/v1/products/"+strconv.FormatInt(p.ID, 10))
	c.JSON(http.StatusCreated, toProductResp(*p))
}

// UpdateProduct: PUT /v1/products/:id replaces name, price and stock.
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req createProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		validationFailed(c, map[string]string{"body": "malformed JSON"})
		return
	}

	p, err := h.catalog.Update(c.Request.Context(), id, usecase.NewProduct{Name: req.Name, Price: req.Price, Stock: req.Stock})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResp(*p))
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.catalog.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResp(*p))
}

// ListProducts: GET /v1/products?name=&page=&size=
func (h *ProductHandler) ListProducts(c *gin.Context) {
	page, ok := pageParams(c, h.limits)
	if !ok {
		return
	}
	res, err := h.catalog.List(c.Request.Context(), c.Query("name"), page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPageResp(usecase.MapPage(res, toProductResp)))
}
