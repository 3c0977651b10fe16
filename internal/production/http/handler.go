package http

import (
	"net/http"
	"strconv"
	"time"

	httpapi "github.com/bamul/packline-analytics/internal/api/http"
	"github.com/bamul/packline-analytics/internal/production/domain"
	"github.com/bamul/packline-analytics/internal/production/service"
	"github.com/gin-gonic/gin"
)

// TruncatedHeader is set on list responses cut at the row cap
const TruncatedHeader = "X-Result-Truncated"

// Handler serves the dashboard read endpoints
type Handler struct {
	queries service.Queries
	loc     *time.Location
	errors  httpapi.Errors
}

func NewHandler(queries service.Queries, loc *time.Location, errs httpapi.Errors) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{queries: queries, loc: loc, errors: errs}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/optical-counts", h.ListOpticalCounts)
	rg.GET("/optical-counts/hourly", h.HourlyOpticalCounts)
	rg.GET("/trays", h.ListTrays)
	rg.GET("/trays/hourly", h.HourlyTrays)
	rg.GET("/packet-types/summary", h.PacketTypeSummary)
	rg.GET("/stats", h.Stats)
	rg.GET("/stats/total-packets", h.TotalPackets)
}

// GET /api/optical-counts
func (h *Handler) ListOpticalCounts(c *gin.Context) {
	res, err := h.queries.ListToday(c.Request.Context(), domain.EventOpticalCount)
	if err != nil {
		h.errors.Internal(c, "Failed to fetch optical counts", err)
		return
	}
	c.Header(TruncatedHeader, strconv.FormatBool(res.Truncated))
	c.JSON(http.StatusOK, ListResponse[OpticalCountRow]{
		Items:     toOpticalRows(res.Items, h.loc),
		Truncated: res.Truncated,
	})
}

// GET /api/optical-counts/hourly
func (h *Handler) HourlyOpticalCounts(c *gin.Context) {
	buckets, err := h.queries.HourlySeries(c.Request.Context(), domain.EventOpticalCount, []string{domain.DimLine})
	if err != nil {
		h.errors.Internal(c, "Failed to fetch hourly data", err)
		return
	}
	c.JSON(http.StatusOK, toLineHours(buckets))
}

// GET /api/trays
func (h *Handler) ListTrays(c *gin.Context) {
	res, err := h.queries.ListToday(c.Request.Context(), domain.EventTray)
	if err != nil {
		h.errors.Internal(c, "Failed to fetch tray data", err)
		return
	}
	c.Header(TruncatedHeader, strconv.FormatBool(res.Truncated))
	c.JSON(http.StatusOK, ListResponse[TrayRow]{
		Items:     toTrayRows(res.Items, h.loc),
		Truncated: res.Truncated,
	})
}

// GET /api/trays/hourly
func (h *Handler) HourlyTrays(c *gin.Context) {
	buckets, err := h.queries.HourlySeries(c.Request.Context(), domain.EventTray, nil)
	if err != nil {
		h.errors.Internal(c, "Failed to fetch hourly tray counts", err)
		return
	}
	c.JSON(http.StatusOK, toTrayHours(buckets))
}

// GET /api/packet-types/summary
func (h *Handler) PacketTypeSummary(c *gin.Context) {
	groups, err := h.queries.DimensionSummary(c.Request.Context(), domain.EventTray, domain.DimPacketType)
	if err != nil {
		h.errors.Internal(c, "Failed to fetch packet type summary", err)
		return
	}
	c.JSON(http.StatusOK, toPacketTypeSummaries(groups))
}

// GET /api/stats
func (h *Handler) Stats(c *gin.Context) {
	snap, err := h.queries.DashboardStats(c.Request.Context())
	if err != nil {
		h.errors.Internal(c, "Failed to fetch statistics", err)
		return
	}
	c.JSON(http.StatusOK, StatsResponse{
		TotalPackets:        snap.TotalQuantity,
		ActiveLines:         snap.ActiveDimensionCount,
		TotalTrays:          snap.TotalEventCount,
		CapacityUtilization: snap.CapacityUtilizationPercent,
		TotalVolumeLiters:   snap.VolumeTotalLiters,
	})
}

// GET /api/stats/total-packets
func (h *Handler) TotalPackets(c *gin.Context) {
	n, err := h.queries.LatestDerivedCount(c.Request.Context())
	if err != nil {
		h.errors.Internal(c, "Failed to fetch today total packets from opticalcounter", err)
		return
	}
	c.JSON(http.StatusOK, TotalPacketsResponse{TotalPackets: n})
}
