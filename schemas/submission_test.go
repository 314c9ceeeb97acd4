package schemas

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldPlaceholder(t *testing.T) {
	r := &SubmissionResult{Fields: map[string]string{"rtl_code": "module m;", "testbench": ""}}

	assert.Equal(t, "module m;", r.Field("rtl_code"))
	assert.Equal(t, Placeholder, r.Field("testbench"))
	assert.Equal(t, Placeholder, r.Field("simulation"))

	var none *SubmissionResult
	assert.Equal(t, Placeholder, none.Field("rtl_code"))
	assert.Empty(t, none.JobID())
	assert.Nil(t, none.Clone())
}

func TestValidate(t *testing.T) {
	assert.Error(t, SubmissionRequest{Spec: " \t\n"}.ValidateSpec())
	assert.NoError(t, SubmissionRequest{Spec: "a 4-bit counter"}.ValidateSpec())

	err := SubmissionRequest{File: &FileUpload{Name: "model.ipynb"}}.ValidateFile()
	var se *SubmissionError
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, MsgNotPython, se.Message)

	assert.NoError(t, SubmissionRequest{File: &FileUpload{Name: "Model.PY"}}.ValidateFile())
	assert.Error(t, SubmissionRequest{}.ValidateFile())
}

func TestSubmissionErrorWraps(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("send: %w", NewNetworkError(cause))

	var se *SubmissionError
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, MsgNetworkFallback, se.Message)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, MsgServerFallback, NewServerError("").Message)
}

func TestWaitlistEntryValidate(t *testing.T) {
	e := WaitlistEntry{Name: "a", Email: "a@b.c", Company: "c", Country: "d"}
	assert.NoError(t, e.Validate())

	e.Email = "not-an-email"
	assert.Error(t, e.Validate())
}
