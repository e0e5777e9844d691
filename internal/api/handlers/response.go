package handlers

import (
	"errors"
	"net/http"

	"meal-engine/internal/core/confirm"
	"meal-engine/internal/core/nutrition"
	"meal-engine/internal/core/session"
	"meal-engine/internal/core/swap"
	"meal-engine/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestID 取得本次請求 ID
func RequestID(c *gin.Context) string {
	if id := requestid.Get(c); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// WriteError 將錯誤轉為統一的 JSON 錯誤響應並中止請求
func WriteError(c *gin.Context, err error) {
	cerr, details := toCustomError(err)

	fields := []zap.Field{
		zap.String("code", cerr.Code),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", RequestID(c)),
		zap.Error(err),
	}
	if cerr.Status >= http.StatusInternalServerError {
		common.LogError("請求處理失敗", fields...)
	} else {
		common.LogDebug("Request rejected", fields...)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(cerr.Status, common.ErrorResponse{
		Code:    cerr.Code,
		Message: cerr.Message,
		Details: details,
	})
}

func toCustomError(err error) (*common.CustomError, interface{}) {
	var incomplete *confirm.IncompleteError
	if errors.As(err, &incomplete) {
		return common.ErrQuantitiesRequired, gin.H{"unfilled": incomplete.Items}
	}

	if common.IsValidationError(err) {
		return common.ErrInvalidRequest, err.Error()
	}

	switch {
	case errors.Is(err, session.ErrNotFound):
		return common.ErrSessionNotFound, nil
	case errors.Is(err, session.ErrFull):
		return common.ErrStoreFull, nil
	case errors.Is(err, swap.ErrUnknownCategory):
		return common.ErrUnknownCategory, nil
	case errors.Is(err, nutrition.ErrDisabled):
		return common.ErrServiceUnavailable, nil
	}

	var cerr *common.CustomError
	if errors.As(err, &cerr) {
		if cerr.Err != nil {
			return cerr, cerr.Err.Error()
		}
		return cerr, nil
	}
	return common.ErrInternalError, nil
}
