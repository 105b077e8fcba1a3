package audithttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-campus/internal/audit"
	"github.com/odyssey-erp/odyssey-campus/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-campus/internal/rbac"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

const (
	defaultDateRange  = 7 * 24 * time.Hour
	maxDateRangeHours = 24 * 90
	dateLayout        = "2006-01-02"
)

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
	Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error)
}

// Handler menangani permintaan audit timeline.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler membuat handler audit baru.
func NewHandler(logger *slog.Logger, service TimelineService, mw rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:  logger,
		service: service,
		rbac:    mw,
		now:     time.Now,
	}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.handleServerError(w, "load audit timeline", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.handleServerError(w, "export audit timeline", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"audit-timeline.csv\"")
	if err := audit.WriteCSV(w, rows); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	q := r.URL.Query()
	now := h.now().UTC()
	toStr := strings.TrimSpace(q.Get("to"))
	if toStr == "" {
		toStr = now.Format(dateLayout)
	}
	toTime, err := time.Parse(dateLayout, toStr)
	if err != nil {
		return audit.TimelineFilters{}, invalid("to")
	}
	fromStr := strings.TrimSpace(q.Get("from"))
	if fromStr == "" {
		fromStr = toTime.Add(-defaultDateRange).Format(dateLayout)
	}
	fromTime, err := time.Parse(dateLayout, fromStr)
	if err != nil {
		return audit.TimelineFilters{}, invalid("from")
	}
	if fromTime.After(toTime) || toTime.Sub(fromTime) > maxDateRangeHours*time.Hour {
		return audit.TimelineFilters{}, invalid("range")
	}

	page, err := positiveInt(q.Get("page"), 1)
	if err != nil {
		return audit.TimelineFilters{}, invalid("page")
	}
	pageSize, err := positiveInt(q.Get("page_size"), 0)
	if err != nil {
		return audit.TimelineFilters{}, invalid("page_size")
	}
	var actorID int64
	if v := strings.TrimSpace(q.Get("actor_id")); v != "" {
		actorID, err = strconv.ParseInt(v, 10, 64)
		if err != nil || actorID <= 0 {
			return audit.TimelineFilters{}, invalid("actor_id")
		}
	}

	return audit.TimelineFilters{
		From:     fromTime,
		To:       toTime,
		ActorID:  actorID,
		Entity:   strings.TrimSpace(q.Get("entity")),
		Action:   strings.TrimSpace(q.Get("action")),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func positiveInt(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, errors.New("must be a positive integer")
	}
	return v, nil
}

func invalid(field string) error {
	return fmt.Errorf("%w: invalid %s", shared.ErrValidation, field)
}

func (h *Handler) handleServerError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, slog.Any("error", err))
	httpx.RespondError(w, err)
}
