package api

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	models "FlipSight/internal/domain/models"
	"FlipSight/internal/usecase"
	xhttp "FlipSight/pkg/http"
	xlogger "FlipSight/pkg/logger"
)

// MarketHandler serves the read side: snapshots, suggestions, signals and
// history bars.
type MarketHandler struct {
	logger    *xlogger.Logger
	market    *usecase.Market
	suggest   *usecase.SuggestUseCase
	history   *usecase.HistoryUseCase
	refresher *usecase.Refresher
}

func NewMarketHandler(logger *xlogger.Logger, market *usecase.Market, suggest *usecase.SuggestUseCase, history *usecase.HistoryUseCase, refresher *usecase.Refresher) *MarketHandler {
	return &MarketHandler{logger: logger, market: market, suggest: suggest, history: history, refresher: refresher}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/items", h.List)
	g.GET("/items/:id", h.Item)
	g.GET("/items/:id/signals", h.Signals)
	g.GET("/items/:id/history", h.History)
	g.GET("/suggestions", h.Suggestions)
	g.POST("/refresh", h.Refresh)
}

func (h *MarketHandler) List(c echo.Context) error {
	req := &models.ListItemsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	snaps := h.market.Snapshots(usecase.SnapshotFilter{
		Tier:       models.LiquidityTier(req.Tier),
		SafeOnly:   req.SafeOnly,
		ActiveOnly: req.ActiveOnly,
		MinVolume:  req.MinVolume,
		MaxBuy:     req.MaxBuy,
		Query:      req.Search,
		SortBy:     req.SortBy,
		Asc:        req.Asc,
		Limit:      req.Limit,
	})
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.ListResponse(c, snaps, int64(len(snaps)))
}

func (h *MarketHandler) Item(c echo.Context) error {
	id, err := itemID(c)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	snap, ok := h.market.Snapshot(id)
	if !ok {
		return xhttp.NotFoundResponse(c, "no snapshot for item")
	}
	return xhttp.SuccessResponse(c, snap)
}

func (h *MarketHandler) Signals(c echo.Context) error {
	id, err := itemID(c)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	req := &models.WindowRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.suggest.GetItemSignals(c.Request().Context(), id, req.WindowDays)
	if err != nil {
		h.logger.Error("item signals error", xlogger.Int("item_id", id), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketHandler) History(c echo.Context) error {
	id, err := itemID(c)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	req := &models.WindowRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	params := usecase.GetBarsParams{
		ItemID:     id,
		WindowDays: req.WindowDays,
	}
	// Explicit range beats the rolling window when both are given. Bars
	// are daily, so the bounds snap to day boundaries and the end bound
	// covers its whole day.
	if from, ok := xhttp.ParseTime(c.QueryParam("from")); ok {
		to := xhttp.ParseTimeDefault(c.QueryParam("to"), time.Now().UTC())
		from, to = xhttp.AlignFromTo(from, to, "1d")
		params.From, params.To = from, to.Add(24*time.Hour-time.Second)
	}

	res, err := h.history.GetDailyBars(c.Request().Context(), params)
	if err != nil {
		h.logger.Error("history error", xlogger.Int("item_id", id), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketHandler) Suggestions(c echo.Context) error {
	req := &models.SuggestionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ranked, err := h.suggest.GetSuggestions(c.Request().Context(), usecase.GetSuggestionsParams{
		Budget:            req.Budget,
		MinScore:          req.MinScore,
		MaxResults:        req.MaxResults,
		IncludeStale:      req.IncludeStale,
		IncludeExtremeVol: req.IncludeExtremeVol,
		WindowDays:        req.WindowDays,
	})
	if err != nil {
		h.logger.Error("suggestions error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, ranked, int64(len(ranked)))
}

// Refresh triggers an immediate quote refresh outside the schedule.
func (h *MarketHandler) Refresh(c echo.Context) error {
	if err := h.refresher.RefreshQuotes(c.Request().Context()); err != nil {
		h.logger.Error("manual refresh error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"updatedAt": h.market.UpdatedAt(),
	})
}

func itemID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(400, "invalid item id")
	}
	return id, nil
}
