package http

import (
	"net/http"
	"strconv"
	"time"

	domain "github.com/Markko1982/order-manager/internal/entity"
	"github.com/Markko1982/order-manager/internal/usecase"
	"github.com/gin-gonic/gin"
)

type CategoryHandler struct {
	categories *usecase.Categories
}

func NewCategoryHandler(categories *usecase.Categories) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

type categoryReq struct {
	Name string `json:"name"`
}

type categoryResp struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toCategoryResp(c domain.Category) categoryResp {
	return categoryResp{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

func (h *CategoryHandler) ListCategories(c *gin.Context) {
	list, err := h.categories.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]categoryResp, 0, len(list))
	for _, cat := range list {
		out = append(out, toCategoryResp(cat))
	}
	c.JSON(http.StatusOK, out)
}

func (h *CategoryHandler) GetCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	cat, err := h.categories.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCategoryResp(*cat))
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req categoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		validationFailed(c, map[string]string{"body": "malformed JSON"})
		return
	}
	cat, err := h.categories.Create(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Location", "/v1/categories/"+strconv.FormatInt(cat.ID, 10))
	c.JSON(http.StatusCreated, toCategoryResp(*cat))
}

func (h *CategoryHandler) RenameCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req categoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		validationFailed(c, map[string]string{"body": "malformed JSON"})
		return
	}
	cat, err := h.categories.Rename(c.Request.Context(), id, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCategoryResp(*cat))
}

func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.categories.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
