package handler

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medcore/hospital-api/internal/model"
	"github.com/medcore/hospital-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// IdentityFrom returns the Identity the auth middleware attached.
func IdentityFrom(c *gin.Context) (model.Identity, bool) {
	v, ok := c.Get("identity")
	if !ok {
		return model.Identity{}, false
	}
	identity, ok := v.(model.Identity)
	return identity, ok
}

// RespondError translates domain errors to HTTP statuses at the boundary:
// AuthzError to 403/404, SchedulingError variants to 400/409/404. Anything
// unrecognized is a 500.
func RespondError(c *gin.Context, err error) {
	var authzErr *errors.AuthzError
	if stderrors.As(err, &authzErr) {
		switch authzErr.Kind {
		case errors.AuthzNotFound:
			c.JSON(http.StatusNotFound, NewErrorResponse(authzErr.Error()))
		default:
			c.JSON(http.StatusForbidden, NewErrorResponse(authzErr.Error()))
		}
		return
	}

	var schedErr *errors.SchedulingError
	if stderrors.As(err, &schedErr) {
		switch schedErr.Code {
		case errors.SchedulingInvalidInterval, errors.SchedulingPastInterval:
			c.JSON(http.StatusBadRequest, NewErrorResponse(schedErr.Error()))
		case errors.SchedulingDoubleBooked, errors.SchedulingInvalidTransition:
			c.JSON(http.StatusConflict, NewErrorResponse(schedErr.Error()))
		case errors.SchedulingNotFound:
			c.JSON(http.StatusNotFound, NewErrorResponse(schedErr.Error()))
		default:
			c.JSON(http.StatusInternalServerError, NewErrorResponse(schedErr.Error()))
		}
		return
	}

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		switch appErr.Code {
		case errors.ErrNotFound:
			c.JSON(http.StatusNotFound, NewErrorResponse(appErr.Message))
		case errors.ErrBadRequest:
			c.JSON(http.StatusBadRequest, NewErrorResponse(appErr.Message))
		case errors.ErrUnauthorized:
			c.JSON(http.StatusUnauthorized, NewErrorResponse(appErr.Message))
		case errors.ErrForbidden:
			c.JSON(http.StatusForbidden, NewErrorResponse(appErr.Message))
		default:
			c.JSON(http.StatusInternalServerError, NewErrorResponse(appErr.Message))
		}
		return
	}

	c.JSON(http.StatusInternalServerError, NewErrorResponse("internal server error"))
}
