package handler

import (
	"net/http"
	"strconv"
	"time"

	"storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminOrderHandler struct {
	uc *usecase.AdminOrderUsecase
}

func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc}
}

type OrderStatusUpdateRequest struct {
	Status string `json:"status"`
}

// adminMWはAuthJWT + AdminRoleGuard
func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, admin *echo.Group, adminMW ...echo.MiddlewareFunc) {
	e.PATCH("/orders/:id", h.UpdateStatus, adminMW...)

	admin.GET("/orders", h.list)
	admin.GET("/orders/:id", h.detail)
	admin.GET("/orders/:id/history", h.history)
}

// GET /admin/orders?page=&limit=&status=&from=&to=
func (h *AdminOrderHandler) list(c echo.Context) error {
	f, msg := listFilterFromQuery(c)
	if msg != "" {
		return badRequest(c, msg)
	}

	out, err := h.uc.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// クエリを一覧条件にする。値の範囲チェックはusecase側。
func listFilterFromQuery(c echo.Context) (repository.AdminOrderListFilter, string) {
	f := repository.AdminOrderListFilter{
		Page:   1,
		Limit:  50,
		Status: c.QueryParam("status"),
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"page", &f.Page},
		{"limit", &f.Limit},
	}
	for _, q := range ints {
		v := c.QueryParam(q.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, "invalid " + q.name
		}
		*q.dst = n
	}

	times := []struct {
		name string
		dst  **time.Time
	}{
		{"from", &f.From},
		{"to", &f.To},
	}
	for _, q := range times {
		v := c.QueryParam(q.name)
		if v == "" {
			continue
		}
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, "invalid " + q.name
		}
		*q.dst = &tm
	}
	return f, ""
}

func (h *AdminOrderHandler) detail(c echo.Context) error {
	orderID, ok := orderIDParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.Get(c.Request().Context(), orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ステータス変更の監査ログ（新しい順）
func (h *AdminOrderHandler) history(c echo.Context) error {
	orderID, ok := orderIDParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.History(c.Request().Context(), orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func orderIDParam(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// PATCH /orders/:id {status}
func (h *AdminOrderHandler) UpdateStatus(c echo.Context) error {
	orderID, ok := orderIDParam(c)
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req OrderStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	// 操作した管理者ID（監査ログ用）
	adminID, found := getUserIDFromContext(c)
	if !found {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Kind: string(usecase.KindUnauthorized)})
	}

	out, err := h.uc.SetOrderStatus(
		c.Request().Context(),
		adminID,
		orderID,
		usecase.SetOrderStatusInput{Status: req.Status},
	)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
