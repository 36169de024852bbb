package http

import (
	"net/http"

	"golang-quant/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupBacktest(base *echo.Group) {
	backtestGroup := base.Group("/backtest")
	backtestGroup.POST("", h.runBacktest)
	backtestGroup.POST("/portfolio", h.runPortfolioBacktest)
	backtestGroup.POST("/rebalance", h.runRebalanceBacktest)
	backtestGroup.GET("/runs", h.getBacktestRuns)
}

func (h *HttpAPIHandler) runBacktest(c echo.Context) error {
	ctx := c.Request().Context()

	req := new(dto.BacktestRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	result, err := h.service.BacktestService.RunSingle(ctx, *req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewInternalErrorResponse(err.Error()))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("backtest completed", result))
}

func (h *HttpAPIHandler) runPortfolioBacktest(c echo.Context) error {
	ctx := c.Request().Context()

	req := new(dto.PortfolioBacktestRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	result, err := h.service.BacktestService.RunPortfolio(ctx, *req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewInternalErrorResponse(err.Error()))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("portfolio backtest completed", result))
}

func (h *HttpAPIHandler) runRebalanceBacktest(c echo.Context) error {
	ctx := c.Request().Context()

	req := new(dto.RebalanceBacktestRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	result, err := h.service.BacktestService.RunRebalance(ctx, *req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewInternalErrorResponse(err.Error()))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("rebalance backtest completed", result))
}

func (h *HttpAPIHandler) getBacktestRuns(c echo.Context) error {
	ctx := c.Request().Context()

	req := new(dto.GetBacktestRunsRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid query parameters"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	runs, err := h.service.BacktestService.GetRuns(ctx, *req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewInternalErrorResponse(err.Error()))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", runs))
}
