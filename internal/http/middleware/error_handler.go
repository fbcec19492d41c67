package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/customs-pricing/internal/logger"
	"github.com/ignatzorin/customs-pricing/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки централизованно.
// AppError отдаётся клиенту с кодом и сообщением, остальные ошибки маскируются.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		statusCode := http.StatusInternalServerError
		code := apperror.ErrCodeInternal
		message := "внутренняя ошибка сервера"

		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			statusCode = appErr.HTTPStatus
			code = appErr.Code
			// Для 500 сообщение об ошибке базы не раскрываем
			if statusCode < http.StatusInternalServerError || statusCode == http.StatusServiceUnavailable {
				message = appErr.Message
			}
		}

		entry := logger.Log.WithFields(logrus.Fields{
			"error":  err.Error(),
			"code":   code,
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
		switch {
		case statusCode >= http.StatusInternalServerError:
			entry.Error("Request error")
		case apperror.IsNotFound(err) || apperror.IsValidation(err):
			// Ошибки ввода клиента, в warn не поднимаем
			entry.Info("Request error")
		default:
			entry.Warn("Request error")
		}

		c.JSON(statusCode, gin.H{"error": message, "code": code})
	}
}
