package controllers

import (
	"github.com/bradenn/hwdemo/schemas"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type GenerateController struct {
	Logger *zap.Logger
}

func (g GenerateController) Generate(c *gin.Context) {
	var req schemas.SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, schemas.NewValidationError("Request body must be a JSON object"))
		return
	}
	if err := req.ValidateSpec(); err != nil {
		fail(c, err)
		return
	}

	g.Logger.Info("generating design", zap.Int("specLength", len(req.Spec)))

	success(c, gin.H{
		schemas.FieldTitle:      sampleTitle,
		schemas.FieldRTL:        sampleVerilog,
		schemas.FieldTestbench:  sampleTestbench,
		schemas.FieldSimulation: sampleSimulation,
	})
}
