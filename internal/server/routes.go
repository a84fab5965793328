package server

import (
	"net/http"

	"storefront/internal/handler"
	"storefront/internal/middleware"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Orders      *handler.OrderHandler
	AdminOrders *handler.AdminOrderHandler
	AdminStock  *handler.AdminStockHandler
	Products    *handler.ProductHandler
}

func RegisterRoutes(e *echo.Echo, jwtSecret string, gatherer prometheus.Gatherer, h Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, handler.SuccessResponse{Message: "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	adminMW := middleware.AdminOnly(jwtSecret)
	admin := e.Group("/admin", adminMW...)

	h.Orders.RegisterRoutes(e)
	h.Products.RegisterRoutes(e)
	h.AdminOrders.RegisterRoutes(e, admin, adminMW...)
	h.AdminStock.RegisterRoutes(admin)
}
