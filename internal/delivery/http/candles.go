package http

import (
	"net/http"

	"golang-quant/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupCandles(base *echo.Group) {
	candlesGroup := base.Group("/candles")
	candlesGroup.GET("", h.getCandles)
	candlesGroup.POST("/sync", h.syncCandles)
}

func (h *HttpAPIHandler) getCandles(c echo.Context) error {
	ctx := c.Request().Context()

	req := new(dto.GetCandlesRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid query parameters"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	data, err := h.service.DataSyncService.GetCandles(ctx, *req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewInternalErrorResponse(err.Error()))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", data))
}

func (h *HttpAPIHandler) syncCandles(c echo.Context) error {
	ctx := c.Request().Context()

	req := new(dto.SyncCandlesRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	result, err := h.service.DataSyncService.SyncCandles(ctx, *req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewInternalErrorResponse(err.Error()))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("candle sync completed", result))
}
