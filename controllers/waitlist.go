package controllers

import (
	"github.com/bradenn/hwdemo/schemas"
	"github.com/bradenn/hwdemo/waitlist"
	"github.com/gin-gonic/gin"
)

type WaitlistController struct {
	Client *waitlist.Client
}

// Join forwards a signup to the collection endpoint.
func (w WaitlistController) Join(c *gin.Context) {
	var entry schemas.WaitlistEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		fail(c, schemas.NewValidationError("Request body must be a JSON object"))
		return
	}
	if err := w.Client.Submit(c.Request.Context(), entry); err != nil {
		fail(c, err)
		return
	}
	success(c, nil)
}
