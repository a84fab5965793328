package handler

import (
	"net/http"
	"strconv"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 在庫の編集は物理ロケーションだけ
type StockUpdateRequest struct {
	StockID  int64 `json:"stock_id"`
	Quantity int64 `json:"quantity"`
}

// {"updates": {"12": 5, "13": 0}}
type StockBatchUpdateRequest struct {
	Updates map[string]int64 `json:"updates"`
}

type RecalculateResponse struct {
	Tuples int `json:"tuples"`
}

type AdminStockHandler struct {
	uc *usecase.StockUsecase
}

func NewAdminStockHandler(uc *usecase.StockUsecase) *AdminStockHandler {
	return &AdminStockHandler{uc: uc}
}

func (h *AdminStockHandler) RegisterRoutes(admin *echo.Group) {
	admin.PUT("/stock", h.update)
	admin.PUT("/stock/batch", h.batch)
	admin.POST("/stock/recalculate", h.recalculate)
}

func (h *AdminStockHandler) update(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Kind: string(usecase.KindUnauthorized)})
	}

	var req StockUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.SetStock(c.Request().Context(), adminID, usecase.SetStockInput{
		StockID:  req.StockID,
		Quantity: req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminStockHandler) batch(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Kind: string(usecase.KindUnauthorized)})
	}

	var req StockBatchUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	// JSONのキーは文字列なのでIDに直す
	updates := make(map[int64]int64, len(req.Updates))
	for k, qty := range req.Updates {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return badRequest(c, "invalid stock_id")
		}
		updates[id] = qty
	}

	out, err := h.uc.BatchSetStock(c.Request().Context(), adminID, updates)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminStockHandler) recalculate(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Kind: string(usecase.KindUnauthorized)})
	}

	n, err := h.uc.RecalculateAll(c.Request().Context(), adminID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, RecalculateResponse{Tuples: n})
}
