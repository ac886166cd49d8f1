package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/andresuchdata/restock/internal/domain"
	"github.com/andresuchdata/restock/internal/replenishment"
	"github.com/andresuchdata/restock/internal/repository"
	"github.com/andresuchdata/restock/internal/service"
	"github.com/andresuchdata/restock/internal/source"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// maxPayloadBytes bounds uploaded backend payloads.
const maxPayloadBytes = 64 << 20

type ReportHandler struct {
	service *service.ReportService
}

func NewReportHandler(service *service.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

type fetchRequest struct {
	Ref string `json:"ref" binding:"required"`
}

type scenarioRequest struct {
	Rows []replenishment.ScenarioRow `json:"rows" binding:"required"`
}

// CreateReport builds a report from a backend payload sent as the request body.
func (h *ReportHandler) CreateReport(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxPayloadBytes))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Failed to read payload", "details": err.Error()})
		return
	}

	ref := strings.TrimSpace(c.Query("source"))
	if ref == "" {
		ref = "upload"
	}

	res, err := h.service.BuildFromPayload(c.Request.Context(), body, ref)
	if err != nil {
		h.buildError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

// FetchReport builds a report from a local, s3:// or drive:// reference.
func (h *ReportHandler) FetchReport(c *gin.Context) {
	var req fetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	res, err := h.service.BuildFromRef(c.Request.Context(), req.Ref)
	if err != nil {
		h.buildError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

// GetView returns the report recomputed over the filter given in the query.
func (h *ReportHandler) GetView(c *gin.Context) {
	view, err := h.service.View(c.Param("id"), parseFilter(c))
	if err != nil {
		h.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetReport returns the unfiltered report.
func (h *ReportHandler) GetReport(c *gin.Context) {
	session, err := h.service.Session(c.Param("id"))
	if err != nil {
		h.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Report())
}

func (h *ReportHandler) GetFilterOptions(c *gin.Context) {
	opts, err := h.service.FilterOptions(c.Param("id"))
	if err != nil {
		h.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

func (h *ReportHandler) GetMostUrgent(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = n
	}

	items, err := h.service.MostUrgent(c.Param("id"), limit)
	if err != nil {
		h.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "total": len(items)})
}

// GetTransfers returns the transfer suggestions in priority order.
func (h *ReportHandler) GetTransfers(c *gin.Context) {
	session, err := h.service.Session(c.Param("id"))
	if err != nil {
		h.sessionError(c, err)
		return
	}

	transfers := session.Report().Transfers
	out := make([]gin.H, 0, len(transfers))
	for _, it := range transfers {
		out = append(out, gin.H{
			"item":     it,
			"priority": replenishment.PriorityOf(it).String(),
			"method":   replenishment.MethodDisplayName(it.MethodUsed),
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "total": len(out)})
}

func (h *ReportHandler) DeleteReport(c *gin.Context) {
	if err := h.service.DeleteSession(c.Param("id")); err != nil {
		h.sessionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ComputeScenario runs the manual calculator over the submitted rows.
func (h *ReportHandler) ComputeScenario(c *gin.Context) {
	var req scenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.service.Scenario(req.Rows))
}

func (h *ReportHandler) GetMethods(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.service.Methods()})
}

func (h *ReportHandler) GetThresholds(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Thresholds())
}

func (h *ReportHandler) ListRuns(c *gin.Context) {
	filter := domain.RunFilter{SourceRef: strings.TrimSpace(c.Query("source"))}

	if raw := c.Query("status"); raw != "" {
		status, ok := domain.ParseRunStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status parameter"})
			return
		}
		filter.Status = &status
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil && limit > 0 {
		filter.Limit = limit
	}

	runs, err := h.service.Runs(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list runs", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": runs, "total": len(runs)})
}

func (h *ReportHandler) GetRun(c *gin.Context) {
	run, err := h.service.Run(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get run", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *ReportHandler) buildError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload", "details": err.Error()})
	case errors.Is(err, source.ErrUnsupportedRef):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported source", "details": err.Error()})
	default:
		log.Error().Err(err).Msg("report build failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load report", "details": err.Error()})
	}
}

func (h *ReportHandler) sessionError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read report", "details": err.Error()})
}

// parseFilter reads the filter dimensions from the query. List values may be
// repeated (?flow=a&flow=b) or comma-separated (?flow=a,b).
func parseFilter(c *gin.Context) replenishment.Filter {
	filter := replenishment.Filter{
		Destinations: queryList(c, "destination"),
		Suppliers:    queryList(c, "supplier"),
		SKUQuery:     strings.TrimSpace(c.Query("sku")),
	}

	for _, raw := range queryList(c, "flow") {
		flow, ok := replenishment.ParseFlowKind(raw)
		if !ok {
			flow = replenishment.FlowKind(strings.ToUpper(raw))
		}
		filter.Flows = append(filter.Flows, flow)
	}
	for _, raw := range queryList(c, "tier") {
		filter.Tiers = append(filter.Tiers, replenishment.UrgencyTier(strings.ToUpper(raw)))
	}

	filter.OnlyToOrder, _ = strconv.ParseBool(c.DefaultQuery("only_to_order", "false"))
	filter.OnlyAtRisk, _ = strconv.ParseBool(c.DefaultQuery("only_at_risk", "false"))

	return filter
}

func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.QueryArray(key) {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
