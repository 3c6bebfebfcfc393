package http

import (
	"net/http"

	"github.com/Markko1982/order-manager/internal/adapter/http/middleware"
	"github.com/Markko1982/order-manager/internal/logging"
	"github.com/Markko1982/order-manager/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
)

// ClientIDKey is where the authz middleware leaves the caller's client id.
const ClientIDKey = middleware.ClientIDKey

func NewRouter(h *OrderHandler, ph *ProductHandler, ch *CategoryHandler, th *TokenHandler, authz *middleware.Authz) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics())
	r.Use(middleware.Tracing(otel.GetTracerProvider()), middleware.Logging(logging.New("http")))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		v1.POST("/token", th.IssueToken)

		v1.POST("/orders", authz.Require(security.PermOrdersWrite), h.CreateOrder)
		v1.GET("/orders", authz.Require(security.PermOrdersRead), h.ListOrders)
		v1.GET("/orders/:id", authz.Require(security.PermOrdersRead), h.GetOrderByID)
		v1.PUT("/orders/:id/status", authz.Require(security.PermOrdersAdmin), h.UpdateStatus)
		v1.DELETE("/orders/:id", authz.Require(security.PermOrdersAdmin), h.DeleteOrder)

		v1.POST("/products", authz.Require(security.PermCatalogWrite), ph.CreateProduct)
		v1.GET("/products", authz.Require(security.PermOrdersRead), ph.ListProducts)
		v1.GET("/products/:id", authz.Require(security.PermOrdersRead), ph.GetProduct)
		v1.PUT("/products/:id", authz.Require(security.PermCatalogWrite), ph.UpdateProduct)
		v1.DELETE("/products/:id", authz.Require(security.PermCatalogWrite), ph.DeleteProduct)

		v1.GET("/categories", authz.Require(security.PermOrdersRead), ch.ListCategories)
		v1.GET("/categories/:id", authz.Require(security.PermOrdersRead), ch.GetCategory)
		v1.POST("/categories", authz.Require(security.PermCatalogWrite), ch.CreateCategory)
		v1.PUT("/categories/:id", authz.Require(security.PermCatalogWrite), ch.RenameCategory)
		v1.DELETE("/categories/:id", authz.Require(security.PermCatalogWrite), ch.DeleteCategory)
	}

	return r
}
