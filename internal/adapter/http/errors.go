package http

import (
	"errors"
	"net/http"

	"github.com/Markko1982/order-manager/internal/adapter/http/middleware"
	domain "github.com/Markko1982/order-manager/internal/entity"
	"github.com/Markko1982/order-manager/internal/logging"
	"github.com/gin-gonic/gin"
)

func abortJSON(c *gin.Context, status int, code, msg string, extra gin.H) {
	c.Set(middleware.ErrorCodeKey, code)
	body := gin.H{"status": status, "error": code, "message": msg}
	for k, v := range extra {
		body[k] = v
	}
	c.AbortWithStatusJSON(status, body)
}

func validationFailed(c *gin.Context, fields map[string]string) {
	abortJSON(c, http.StatusBadRequest, "validation_failed", "request is invalid", gin.H{"fields": fields})
}

// writeError maps domain failures to HTTP responses.
func writeError(c *gin.Context, err error) {
	var (
		vErr     *domain.ValidationError
		nfErr    *domain.NotFoundError
		stockErr *domain.InsufficientStockError
		valErr   *domain.OrderValueExceededError
		trErr    *domain.TransitionError
		cfErr    *domain.ConflictError
	)
	switch {
	case errors.As(err, &vErr):
		validationFailed(c, map[string]string{vErr.Field: vErr.Reason})
	case errors.As(err, &nfErr):
		abortJSON(c, http.StatusNotFound, "not_found", err.Error(), gin.H{"entity": nfErr.Entity, "id": nfErr.ID})
	case errors.As(err, &stockErr):
		abortJSON(c, http.StatusConflict, "insufficient_stock", err.Error(), gin.H{
			"productId":   stockErr.ProductID,
			"productName": stockErr.ProductName,
			"requested":   stockErr.Requested,
			"available":   stockErr.Available,
		})
	case errors.As(err, &valErr):
		abortJSON(c, http.StatusConflict, "order_value_exceeded", err.Error(), gin.H{
			"total": valErr.Total.StringFixed(2),
			"limit": valErr.Limit.StringFixed(2),
		})
	case errors.As(err, &trErr):
		abortJSON(c, http.StatusConflict, "invalid_transition", err.Error(), gin.H{
			"from": trErr.From,
			"to":   trErr.To,
		})
	case errors.As(err, &cfErr):
		abortJSON(c, http.StatusConflict, "already_exists", err.Error(), gin.H{"field": cfErr.Field})
	case errors.Is(err, domain.ErrDuplicate):
		abortJSON(c, http.StatusConflict, "duplicate_request", "a request with this idempotency key is in progress", nil)
	default:
		_ = c.Error(err)
		logging.From(c).ErrorContext(c.Request.Context(), "request failed", "error", err)
		abortJSON(c, http.StatusInternalServerError, "internal_error", "internal server error", nil)
	}
}
