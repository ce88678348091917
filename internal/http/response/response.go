package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/ballot-consensus-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondErr classifies err with apierr.From. Internal errors never leak their message.
func RespondErr(c *gin.Context, err error) {
	ae := apierr.From(err)
	if ae == nil {
		ae = apierr.New(http.StatusInternalServerError, "internal", nil)
	}
	_ = c.Error(err)
	if ae.Status >= http.StatusInternalServerError {
		c.JSON(ae.Status, ErrorEnvelope{Error: APIError{Message: http.StatusText(ae.Status), Code: ae.Code}})
		return
	}
	RespondError(c, ae.Status, ae.Code, ae)
}

// AbortErr is RespondErr for middleware.
func AbortErr(c *gin.Context, err error) {
	RespondErr(c, err)
	c.Abort()
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
