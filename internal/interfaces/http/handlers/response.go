// internal/interfaces/http/handlers/response.go
package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	applogger "github.com/your-org/marketplace-backend/internal/pkg/logger"
)

func respondOK(c *gin.Context, status int, message string, data any) {
	c.JSON(status, gin.H{
		"message": message,
		"data":    data,
	})
}

// respondError maps err to its HTTP status. Untyped errors are logged and
// reported as internal errors without their text.
func respondError(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)
	meta := apperrors.MetadataFor(code)

	body := gin.H{"code": code}
	if typed := apperrors.As(err); typed != nil && code != apperrors.CodeInternal {
		body["error"] = typed.Message()
		if meta.DetailsAllowed && typed.Details() != nil {
			body["details"] = typed.Details()
		}
	} else {
		applogger.FromContext(c.Request.Context(), nil).
			WithError(err).
			Error("request failed")
		body["error"] = meta.PublicMessage
	}

	_ = c.Error(err)
	c.JSON(meta.HTTPStatus, body)
}

// respondBindError reports a request binding failure as a validation error
func respondBindError(c *gin.Context, err error, message string) {
	respondError(c, apperrors.Validation(message).WithDetails(bindDetails(err)))
}

func bindDetails(err error) any {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
		return fields
	}
	return err.Error()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "movement_reason", "cart_status", "order_status":
		return fmt.Sprintf("%v is not a valid %s", fe.Value(), fe.Tag())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// parseID reads a positive numeric path parameter
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		respondError(c, apperrors.Validation(fmt.Sprintf("invalid %s", name)))
		return 0, false
	}
	return uint(id), true
}
