package handler

import (
	"errors"
	"net/http"

	"quest-bot/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Коды ошибок API.
const (
	ErrCodeBadRequest = 40000
	ErrCodeNotFound   = 40400
	ErrCodeInternal   = 50000
)

// ErrorResponse - тело ответа с ошибкой.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func handleServiceError(c *gin.Context, err error, logger *zap.Logger) {
	var (
		statusCode int
		errResp    ErrorResponse
	)

	switch {
	case errors.Is(err, models.ErrBranchNotFound), errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
		errResp = ErrorResponse{Code: ErrCodeNotFound, Message: err.Error()}
	default:
		logger.Error("Unhandled internal error", zap.String("path", c.FullPath()), zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResp = ErrorResponse{Code: ErrCodeInternal, Message: "An unexpected internal error occurred"}
	}

	c.AbortWithStatusJSON(statusCode, errResp)
}
