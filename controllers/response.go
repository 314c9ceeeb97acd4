package controllers

import (
	"errors"
	"net/http"

	"github.com/bradenn/hwdemo/schemas"
	"github.com/gin-gonic/gin"
)

func success(c *gin.Context, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["status"] = "success"
	c.JSON(http.StatusOK, body)
}

// fail maps an error onto the {status:"error", message} reply the front-end
// expects.
func fail(c *gin.Context, err error) {
	var se *schemas.SubmissionError
	if !errors.As(err, &se) {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": schemas.MsgServerFallback})
		return
	}
	code := http.StatusBadGateway
	if se.Kind == schemas.ValidationError {
		code = http.StatusBadRequest
	}
	c.JSON(code, gin.H{"status": "error", "message": se.Message})
}
