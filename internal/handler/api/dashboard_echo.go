package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"PlantDash/internal/domain/models"
	dsvc "PlantDash/internal/domain/service"
	"PlantDash/internal/services/render"
	xhttp "PlantDash/pkg/http"
	xlogger "PlantDash/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Dashboard is the controller behind the HTTP surface.
type Dashboard interface {
	Device() string
	Refresh(ctx context.Context, force bool) models.Outcome
	Current() (*models.ChartSeriesBundle, models.RefreshStatus)
	Render(ctx context.Context, r dsvc.ChartRenderer, w io.Writer) error
}

// RateLimiter guards forced refreshes per client.
type RateLimiter interface {
	Allow(key string) bool
	RetryAfter(key string) time.Duration
}

// Renderers are the output formats served by the dashboard handler.
type Renderers struct {
	Page      dsvc.ChartRenderer
	Workbook  dsvc.ChartRenderer
	PNGWidth  int
	PNGHeight int
}

// DashboardEchoHandler serves the dashboard page, its JSON API and chart exports.
type DashboardEchoHandler struct {
	logger    *xlogger.Logger
	dash      Dashboard
	limiter   RateLimiter
	renderers Renderers
}

func NewDashboardEchoHandler(logger *xlogger.Logger, dash Dashboard, limiter RateLimiter, r Renderers) *DashboardEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &DashboardEchoHandler{logger: logger, dash: dash, limiter: limiter, renderers: r}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Page)
	e.GET("/charts/:file", h.ChartImage)
	e.GET("/export.xlsx", h.Export)

	g := e.Group("/api")
	g.GET("/series", h.Series)
	g.GET("/status", h.Status)
	g.POST("/refresh", h.Refresh)
}

// Page refreshes and renders the Chart.js dashboard. Failures are shown in the
// page's status banner, so the response is 200 unless rendering itself fails.
func (h *DashboardEchoHandler) Page(c echo.Context) error {
	ctx := c.Request().Context()
	h.dash.Refresh(ctx, false)

	var buf bytes.Buffer
	if err := h.dash.Render(ctx, h.renderers.Page, &buf); err != nil {
		h.logger.Error("dashboard render error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("render failed").WithError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.Blob(http.StatusOK, h.renderers.Page.ContentType(), buf.Bytes())
}

type seriesResponse struct {
	Device string                    `json:"device"`
	Bundle *models.ChartSeriesBundle `json:"bundle"`
	Status models.RefreshStatus      `json:"status"`
	Cached bool                      `json:"cached"`
}

// Series returns the chart bundle. A stale bundle is still served with its status.
func (h *DashboardEchoHandler) Series(c echo.Context) error {
	req := &models.SeriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	out := h.dash.Refresh(c.Request().Context(), req.Force)
	if out.Bundle == nil {
		return xhttp.AppErrorResponse(c, outcomeError(out.Err, out.Status))
	}
	return xhttp.SuccessResponse(c, seriesResponse{
		Device: h.dash.Device(),
		Bundle: out.Bundle,
		Status: out.Status,
		Cached: out.Cached,
	})
}

func (h *DashboardEchoHandler) Status(c echo.Context) error {
	_, st := h.dash.Current()
	return xhttp.SuccessResponse(c, st)
}

// Refresh forces a fetch from the device. It is rate limited per client IP.
func (h *DashboardEchoHandler) Refresh(c echo.Context) error {
	key := c.RealIP()
	if h.limiter != nil && !h.limiter.Allow(key) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("refresh rate exceeded", h.limiter.RetryAfter(key)))
	}

	out := h.dash.Refresh(c.Request().Context(), true)
	if out.Err != nil {
		h.logger.Warn("forced refresh failed", xlogger.String("remote", key), xlogger.Error(out.Err))
		return xhttp.AppErrorResponse(c, outcomeError(out.Err, out.Status))
	}
	return xhttp.SuccessResponse(c, out.Status)
}

// ChartImage renders one chart as PNG.
func (h *DashboardEchoHandler) ChartImage(c echo.Context) error {
	req := &models.ChartImageRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	width, height := req.Width, req.Height
	if width == 0 {
		width = h.renderers.PNGWidth
	}
	if height == 0 {
		height = h.renderers.PNGHeight
	}
	r, err := render.NewPNG(req.Chart(), width, height)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	return h.serve(c, r, "")
}

// Export downloads the current bundle as a workbook.
func (h *DashboardEchoHandler) Export(c echo.Context) error {
	return h.serve(c, h.renderers.Workbook, fmt.Sprintf("%s.xlsx", h.dash.Device()))
}

func (h *DashboardEchoHandler) serve(c echo.Context, r dsvc.ChartRenderer, filename string) error {
	ctx := c.Request().Context()
	out := h.dash.Refresh(ctx, false)

	var buf bytes.Buffer
	if err := h.dash.Render(ctx, r, &buf); err != nil {
		if errors.Is(err, render.ErrNoData) {
			return xhttp.AppErrorResponse(c, outcomeError(out.Err, out.Status))
		}
		h.logger.Error("chart render error", xlogger.String("format", r.Name()), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("render failed").WithError(err))
	}
	if filename != "" {
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.Blob(http.StatusOK, r.ContentType(), buf.Bytes())
}

// outcomeError maps a failed refresh onto the API error codes.
func outcomeError(err error, st models.RefreshStatus) *xhttp.AppError {
	msg := st.Message
	switch {
	case errors.Is(err, models.ErrNetworkFailure) || (err == nil && st.State == models.StateNetworkFailure):
		if msg == "" {
			msg = "device unreachable"
		}
		return xhttp.BadGatewayError(msg).WithError(err)
	case errors.Is(err, models.ErrInvalidPayload) || (err == nil && st.State == models.StateInvalidPayload):
		if msg == "" {
			msg = "device returned unusable data"
		}
		return xhttp.UnprocessableError(msg).WithError(err)
	case err != nil:
		return xhttp.InternalError("refresh failed").WithError(err)
	default:
		return xhttp.NotFoundError("no data yet")
	}
}
