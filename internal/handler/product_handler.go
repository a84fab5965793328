package handler

import (
	"net/http"
	"strconv"

	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Details any    `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Kind: string(usecase.KindInvalidInput)})
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		if he.Status >= 500 && he.Err != nil {
			// 原因はアクセスログにだけ出す
			c.Set(middleware.CtxErrorCauseKey, he.Err)
		}
		return c.JSON(he.Status, ErrorResponse{Error: he.Message, Kind: string(he.Kind), Details: he.Details})
	}

	//500
	c.Set(middleware.CtxErrorCauseKey, err)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Kind: string(usecase.KindPersistenceFailure)})
}

// 商品の在庫参照（公開）
type ProductHandler struct {
	uc *usecase.StockUsecase
}

// DI
func NewProductHandler(uc *usecase.StockUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

func (h *ProductHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/products/:id/stock", h.stock)
}

// GET /products/:id/stock?colorId=1&size=M
func (h *ProductHandler) stock(c echo.Context) error {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid id")
	}

	colorID, err := strconv.ParseInt(c.QueryParam("colorId"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid colorId")
	}

	size := c.QueryParam("size")
	if size == "" {
		return badRequest(c, "size required")
	}

	rows, err := h.uc.ListStock(c.Request().Context(), productID, colorID, size)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

// AuthJWTが入れたuser_idを取り出す
func getUserIDFromContext(c echo.Context) (int64, bool) {
	id, ok := c.Get(middleware.CtxUserIDKey).(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}
