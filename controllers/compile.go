package controllers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/bradenn/hwdemo/enclave"
	"github.com/bradenn/hwdemo/schemas"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxUpload caps the size of an uploaded model file.
const maxUpload = 8 << 20

type CompileController struct {
	WorkDir string
	Jobs    *JobStore
	Logger  *zap.Logger

	// CheckCmd, when set, is run against the uploaded model before packaging,
	// e.g. ["python3", "-m", "py_compile"]. The model path is appended.
	CheckCmd     []string
	CheckTimeout time.Duration
}

func (e CompileController) Compile(c *gin.Context) {
	req, err := bindUpload(c)
	if err != nil {
		fail(c, err)
		return
	}
	if err = req.ValidateFile(); err != nil {
		fail(c, err)
		return
	}

	enc, err := enclave.NewEnclave(e.WorkDir)
	if err != nil {
		e.Logger.Error("could not allocate enclave", zap.Error(err))
		fail(c, schemas.NewServerError(""))
		return
	}
	if _, err = enc.WriteFile(filepath.Join("src", req.File.Name), req.File.Content); err != nil {
		_ = enc.Close()
		e.Logger.Error("could not store upload", zap.Error(err))
		fail(c, schemas.NewServerError(""))
		return
	}
	if err = e.check(c.Request.Context(), enc, req.File.Name); err != nil {
		_ = enc.Close()
		fail(c, err)
		return
	}
	pkg, err := buildPackage(enc, req)
	if err != nil {
		_ = enc.Close()
		e.Logger.Error("could not build package", zap.Error(err))
		fail(c, schemas.NewServerError(""))
		return
	}

	e.Jobs.Put(&Job{ID: enc.ID, Package: pkg, Name: filepath.Base(pkg), Enclave: enc})
	e.Logger.Info("compiled model",
		zap.String("job", enc.ID),
		zap.String("file", req.File.Name),
		zap.String("optimization", req.OptimizationLevel))

	success(c, gin.H{
		schemas.FieldJobID:       enc.ID,
		schemas.FieldDownloadURL: fmt.Sprintf("/api/v1/download/%s", enc.ID),
		schemas.FieldMessage:     "Compilation finished",
	})
}

func (e CompileController) Download(c *gin.Context) {
	job, ok := e.Jobs.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Unknown job"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", job.Name))
	c.File(job.Package)
}

// check runs CheckCmd on the stored model. A failing check is reported back
// to the user with the tail of its output.
func (e CompileController) check(ctx context.Context, enc *enclave.Enclave, name string) error {
	if len(e.CheckCmd) == 0 {
		return nil
	}
	timeout := e.CheckTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	args := append(append([]string(nil), e.CheckCmd[1:]...), filepath.Join("src", name))
	run, err := enc.Exec(ctx, timeout, e.CheckCmd[0], args...)
	if err != nil {
		e.Logger.Error("model check could not run", zap.Error(err))
		return schemas.NewServerError("")
	}
	if run.TimedOut {
		return schemas.NewServerError("Model check timed out")
	}
	if run.Exit != 0 {
		out := run.Stderr
		if len(out) == 0 {
			out = run.Stdout
		}
		if len(out) > 5 {
			out = out[len(out)-5:]
		}
		e.Logger.Info("model check failed", zap.Int("exit", run.Exit), zap.Strings("output", out))
		return schemas.NewValidationError("Model check failed: " + strings.Join(out, "\n"))
	}
	return nil
}

func bindUpload(c *gin.Context) (schemas.SubmissionRequest, error) {
	req := schemas.SubmissionRequest{
		ModelName:         c.PostForm("model_name"),
		InputShape:        c.PostForm("input_shape"),
		OptimizationLevel: c.PostForm("optimization_level"),
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return req, schemas.NewValidationError(schemas.MsgNoFile)
	}
	if fh.Size > maxUpload {
		return req, schemas.NewValidationError("The selected file is too large")
	}
	f, err := fh.Open()
	if err != nil {
		return req, schemas.NewServerError("")
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return req, schemas.NewServerError("")
	}
	req.File = &schemas.FileUpload{Name: filepath.Base(fh.Filename), Content: content}
	return req, nil
}
