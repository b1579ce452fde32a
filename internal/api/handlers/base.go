package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fintrack/recon-backend/internal/api/dto"
	"github.com/fintrack/recon-backend/internal/application/service"
)

// userIDHeader carries the authenticated user id, set by the upstream
// gateway. Authentication itself happens there.
const userIDHeader = "X-User-ID"

const dateLayout = "2006-01-02"

// UserID extracts the caller's user id. Returns false after writing a
// validation error when the header is absent or malformed.
func UserID(c *gin.Context) (int64, bool) {
	raw := c.GetHeader(userIDHeader)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, dto.ValidationError("missing or invalid "+userIDHeader+" header"))
		return 0, false
	}
	return id, true
}

// ParseDate parses a 2006-01-02 date field. Returns false after writing a
// validation error when it does not parse.
func ParseDate(c *gin.Context, name, value string) (time.Time, bool) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ValidationError("invalid "+name+" date, expected "+dateLayout))
		return time.Time{}, false
	}
	return t, true
}

// WriteServiceError maps the service error taxonomy onto HTTP statuses.
func WriteServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, dto.ValidationError(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.NotFoundError(err.Error()))
	case errors.Is(err, service.ErrAlreadyMatched):
		c.JSON(http.StatusConflict, dto.ConflictError(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, dto.InternalError())
	}
}
