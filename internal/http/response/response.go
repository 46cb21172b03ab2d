package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mediavault-backend/internal/platform/apierr"
)

type ErrorEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

type DataEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// RespondError writes the failure envelope. Status and code come from the
// *apierr.Error in err's chain; anything else is a 500.
func RespondError(c *gin.Context, err error) {
	ae := apierr.From(err, "internal_error")
	if ae == nil {
		ae = apierr.New(http.StatusInternalServerError, "internal_error", nil)
	}
	status := ae.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{Success: false, Message: msg, Error: ae.Code})
}

func RespondStatus(c *gin.Context, status int, code string, msg string) {
	c.JSON(status, ErrorEnvelope{Success: false, Message: msg, Error: code})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, DataEnvelope{Success: true, Data: payload})
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, DataEnvelope{Success: true, Data: payload})
}
