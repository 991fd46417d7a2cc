package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ArowuTest/draft-lottery-backend/internal/lottery"
	"github.com/ArowuTest/draft-lottery-backend/internal/repositories"
	"github.com/ArowuTest/draft-lottery-backend/internal/services"
)

// statusFor maps service and engine errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, repositories.ErrSessionNotFound),
		errors.Is(err, repositories.ErrUserNotFound),
		errors.Is(err, services.ErrTeamNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, lottery.ErrConfiguration):
		return http.StatusUnprocessableEntity
	case errors.Is(err, repositories.ErrDuplicateEmail),
		errors.Is(err, repositories.ErrStaleSession),
		errors.Is(err, services.ErrWrongStatus),
		errors.Is(err, lottery.ErrInvalidTransition),
		errors.Is(err, lottery.ErrVerifierQuorum),
		errors.Is(err, lottery.ErrNotAllocated),
		errors.Is(err, lottery.ErrDrawComplete),
		errors.Is(err, lottery.ErrDrawIncomplete),
		errors.Is(err, lottery.ErrDrawExhausted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err), zap.String("path", c.FullPath()))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
