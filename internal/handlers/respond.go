package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/transitworks/bus-booking-backend/internal/errs"
)

// respondError maps a service error to its HTTP status. Internal errors are
// logged with their cause and returned with a generic message.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	status := errs.HTTPStatus(err)

	if status == http.StatusInternalServerError {
		logger.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
		c.JSON(status, gin.H{"error": "internal_error", "message": "Something went wrong"})
		return
	}

	body := gin.H{
		"error":   string(errs.KindOf(err)),
		"message": err.Error(),
	}
	if details := errs.DetailsOf(err); len(details) > 0 {
		body["details"] = details
	}
	c.JSON(status, body)
}

// respondBindError reports a request body that failed binding
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "validation_error",
		"message": "Invalid request format",
		"details": []string{err.Error()},
	})
}

// respondList wraps a paginated listing in the standard envelope
func respondList(c *gin.Context, items interface{}, total, page, pageSize int) {
	c.JSON(http.StatusOK, gin.H{
		"data": items,
		"pagination": gin.H{
			"total":     total,
			"page":      page,
			"page_size": pageSize,
		},
	})
}

// queryInt parses an integer query parameter, falling back on absence or junk
func queryInt(c *gin.Context, key string, fallback int) int {
	if value := c.Query(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
