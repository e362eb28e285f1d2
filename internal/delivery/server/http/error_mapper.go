package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	alexerrors "github.com/vishalahire/banayan-task-tracker/internal/shared/errors"
)

type errorResponse struct {
	Error string `json:"error"`
}

// mapDomainError translates a service error into a status code and message.
// Returns (0, "") when the error is not recognized, leaving the caller's
// default in place.
func mapDomainError(err error) (int, string) {
	switch {
	case err == nil:
		return 0, ""
	case alexerrors.IsNotFound(err):
		return http.StatusNotFound, err.Error()
	default:
		return 0, ""
	}
}

// writeMappedError writes the mapped status, or defaultStatus with defaultMsg.
// Internal error text is never sent for unmapped errors.
func (h *ReminderHandler) writeMappedError(c *gin.Context, err error, defaultStatus int, defaultMsg string) {
	status, msg := mapDomainError(err)
	if status == 0 {
		status, msg = defaultStatus, defaultMsg
	}
	if status >= http.StatusInternalServerError {
		h.logFor(c).Error("%s: %v", defaultMsg, err)
	}
	c.JSON(status, errorResponse{Error: msg})
}
