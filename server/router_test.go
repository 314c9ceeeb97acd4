package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bradenn/hwdemo/controllers"
	"github.com/bradenn/hwdemo/enclave"
	"github.com/bradenn/hwdemo/schemas"
	"github.com/bradenn/hwdemo/services"
	"github.com/bradenn/hwdemo/submission"
	"github.com/bradenn/hwdemo/waitlist"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, sheetURL string) (*gin.Engine, *controllers.JobStore) {
	t.Helper()
	jobs := controllers.NewJobStore(time.Hour, nil)
	t.Cleanup(func() { _ = jobs.Close() })
	r := NewRouter(Deps{
		WorkDir:  t.TempDir(),
		Jobs:     jobs,
		Waitlist: waitlist.NewClient(sheetURL, time.Second, nil),
		Logger:   zap.NewNop(),
	})
	return r, jobs
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func uploadBody(t *testing.T, name, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGenerate(t *testing.T) {
	r, _ := newTestRouter(t, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate", strings.NewReader(`{"spec":"A 4-bit counter with synchronous reset"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "success", body["status"])
	assert.Contains(t, body[schemas.FieldRTL], "module counter_4bit")
	assert.Contains(t, body[schemas.FieldTestbench], "module testbench")
	assert.Contains(t, body[schemas.FieldSimulation], "Time: 170 | Output: 0")
}

func TestGenerateRejectsBlankSpec(t *testing.T) {
	r, _ := newTestRouter(t, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate", strings.NewReader(`{"spec":"   "}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, schemas.MsgEmptySpec, body["message"])
}

func TestCompileAndDownload(t *testing.T) {
	r, _ := newTestRouter(t, "")

	buf, ct := uploadBody(t, "mlp.py", "import torch\n", map[string]string{
		"model_name":         "mlp",
		"input_shape":        "1x784",
		"optimization_level": "O3",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/compile", buf)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "success", body["status"])
	require.NotEmpty(t, body[schemas.FieldJobID])
	assert.Equal(t, "/api/v1/download/"+body[schemas.FieldJobID], body[schemas.FieldDownloadURL])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, body[schemas.FieldDownloadURL], nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "mlp_hls.zip")

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)
	files := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, _ := io.ReadAll(rc)
		rc.Close()
		files[f.Name] = string(data)
	}
	assert.Equal(t, "import torch\n", files["src/mlp.py"])
	assert.Contains(t, files["hls/mlp.mlir"], "func.func @mlp")
	assert.Contains(t, files["hls/mlp.mlir"], "tensor<1x784xf32>")
	assert.Contains(t, files["manifest.json"], `"optimization_level": "O3"`)
}

func TestCompileRejectsNonPython(t *testing.T) {
	r, _ := newTestRouter(t, "")

	buf, ct := uploadBody(t, "notes.txt", "hello", nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/compile", buf)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please select/drop a Python (.py) file", decode(t, w)["message"])
}

func TestCompileRunsModelCheck(t *testing.T) {
	jobs := controllers.NewJobStore(time.Hour, nil)
	t.Cleanup(func() { _ = jobs.Close() })
	r := NewRouter(Deps{
		WorkDir:  t.TempDir(),
		Jobs:     jobs,
		Waitlist: waitlist.NewClient("", time.Second, nil),
		Logger:   zap.NewNop(),
		CheckCmd: []string{"grep", "-q", "import"},
	})

	buf, ct := uploadBody(t, "empty.py", "x = 1\n", nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/compile", buf)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["message"], "Model check failed")
}

func TestDownloadUnknownJob(t *testing.T) {
	r, _ := newTestRouter(t, "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/download/does-not-exist", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWaitlistForwards(t *testing.T) {
	got := make(chan map[string]string, 1)
	sheet := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		got <- body
	}))
	defer sheet.Close()

	r, _ := newTestRouter(t, sheet.URL)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/waitlist",
		strings.NewReader(`{"Name":"Grace","Email":"grace@example.com","Company":"Navy","Country":"US"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := <-got
	assert.Equal(t, "Grace", body["Name"])
	assert.NotEmpty(t, body["Timestamp"])
}

func TestWaitlistValidation(t *testing.T) {
	r, _ := newTestRouter(t, "http://unused.invalid")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/waitlist", strings.NewReader(`{"Name":"Grace"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error", decode(t, w)["status"])
}

// The controller, the HTTP transport and the demo backend together.
func TestControllerAgainstBackend(t *testing.T) {
	r, _ := newTestRouter(t, "")
	srv := httptest.NewServer(r)
	defer srv.Close()

	client := services.NewClient(srv.URL+"/api/v1/compile", 5*time.Second, nil)
	ctrl := submission.New(client, submission.WithMode(submission.FileMode), submission.WithLongWait(submission.CompileLongWait))

	require.NoError(t, ctrl.Submit(context.Background(), schemas.SubmissionRequest{
		File:      &schemas.FileUpload{Name: "cnn.py", Content: []byte("import torch.nn as nn\n")},
		ModelName: "cnn",
	}))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := ctrl.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, submission.Success, snap.State, "%+v", snap.Err)

	e, err := enclave.NewEnclave(t.TempDir())
	require.NoError(t, err)
	p, err := client.Download(ctx, snap.Result.DownloadURL(), e)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p, "cnn_hls.zip"))

	ctrl.Reset()
	assert.Equal(t, submission.Input, ctrl.State())
}
