package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	domain "github.com/vishalahire/banayan-task-tracker/internal/domain/reminder"
	"github.com/vishalahire/banayan-task-tracker/internal/shared/logging"
	id "github.com/vishalahire/banayan-task-tracker/internal/shared/utils/id"
)

// TriggerName tags batches started through the API.
const TriggerName = "http"

// maxWindowHours caps window_hours at one year.
const maxWindowHours = 24 * 366

// ReminderHandler serves the /api/reminders routes.
type ReminderHandler struct {
	service ReminderService
	records domain.RecordReader
	logger  logging.Logger
}

func NewReminderHandler(service ReminderService, records domain.RecordReader, logger logging.Logger) *ReminderHandler {
	return &ReminderHandler{service: service, records: records, logger: logging.OrNop(logger)}
}

func (h *ReminderHandler) logFor(c *gin.Context) logging.Logger {
	return logging.FromContext(c.Request.Context(), h.logger)
}

type pendingReminderResponse struct {
	domain.PendingReminder
	HoursUntilDue float64 `json:"hours_until_due"`
}

type logReminderRequest struct {
	TaskID             string `json:"task_id" binding:"required"`
	ReminderType       string `json:"reminder_type" binding:"required"`
	DeliverySuccessful *bool  `json:"delivery_successful"`
	DeliveryDetails    string `json:"delivery_details"`
}

type logReminderResponse struct {
	Logged bool `json:"logged"`
}

// parseWindow reads window_hours. Absent means the service default.
func parseWindow(c *gin.Context) (time.Duration, bool) {
	raw := strings.TrimSpace(c.Query("window_hours"))
	if raw == "" {
		return 0, true
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 || hours > maxWindowHours {
		return 0, false
	}
	return time.Duration(hours) * time.Hour, true
}

// HandleGetPending handles GET /api/reminders/pending.
func (h *ReminderHandler) HandleGetPending(c *gin.Context) {
	window, ok := parseWindow(c)
	if !ok {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "window_hours must be a positive integer"})
		return
	}

	pending, err := h.service.GetPendingReminders(c.Request.Context(), window)
	if err != nil {
		h.writeMappedError(c, err, http.StatusInternalServerError, "An error occurred while fetching pending reminders")
		return
	}

	resp := make([]pendingReminderResponse, 0, len(pending))
	for _, p := range pending {
		resp = append(resp, pendingReminderResponse{PendingReminder: p, HoursUntilDue: p.HoursUntilDue()})
	}
	h.logFor(c).Info("Found %d pending reminders", len(resp))
	c.JSON(http.StatusOK, resp)
}

// HandleProcess handles POST /api/reminders/process.
func (h *ReminderHandler) HandleProcess(c *gin.Context) {
	window, ok := parseWindow(c)
	if !ok {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "window_hours must be a positive integer"})
		return
	}

	ctx := id.WithTrigger(c.Request.Context(), TriggerName)
	result, err := h.service.ProcessPendingReminders(ctx, window)
	if err != nil {
		h.writeMappedError(c, err, http.StatusInternalServerError, "An error occurred while processing reminders")
		return
	}
	h.logFor(c).Info("Processed %d reminders. Success: %d, Failed: %d, Skipped: %d",
		result.ProcessedCount, result.SuccessfulCount, result.FailedCount, result.SkippedCount)
	c.JSON(http.StatusOK, result)
}

// HandleLogSent handles POST /api/reminders/log.
func (h *ReminderHandler) HandleLogSent(c *gin.Context) {
	var req logReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	reminderType, err := domain.ParseReminderType(req.ReminderType)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	delivered := true
	if req.DeliverySuccessful != nil {
		delivered = *req.DeliverySuccessful
	}

	logged, err := h.service.LogReminderSent(c.Request.Context(), strings.TrimSpace(req.TaskID), reminderType, delivered, req.DeliveryDetails)
	if err != nil {
		h.writeMappedError(c, err, http.StatusInternalServerError, "An error occurred while logging the reminder")
		return
	}
	c.JSON(http.StatusOK, logReminderResponse{Logged: logged})
}

// HandleTaskHistory handles GET /api/reminders/tasks/:id.
func (h *ReminderHandler) HandleTaskHistory(c *gin.Context) {
	if h.records == nil {
		c.JSON(http.StatusNotImplemented, errorResponse{Error: "reminder history is not available"})
		return
	}
	records, err := h.records.ListByTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeMappedError(c, err, http.StatusInternalServerError, "An error occurred while reading reminder history")
		return
	}
	c.JSON(http.StatusOK, records)
}
