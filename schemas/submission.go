package schemas

import (
	"path/filepath"
	"sort"
	"strings"
)

// Placeholder is shown for any result field the remote service did not return.
const Placeholder = "Not available"

// Well known result fields.
const (
	FieldTitle       = "title"
	FieldRTL         = "rtl_code"
	FieldTestbench   = "testbench"
	FieldSimulation  = "simulation"
	FieldJobID       = "job_id"
	FieldDownloadURL = "download_url"
	FieldMessage     = "message"
)

// SubmissionRequest is what the user entered: either a free text hardware
// specification or a source file, plus optional compilation parameters.
type SubmissionRequest struct {
	Spec              string      `json:"spec,omitempty"`
	File              *FileUpload `json:"-"`
	ModelName         string      `json:"model_name,omitempty"`
	InputShape        string      `json:"input_shape,omitempty"`
	OptimizationLevel string      `json:"optimization_level,omitempty"`
}

type FileUpload struct {
	Name    string
	Content []byte
}

// Ext returns the lower cased extension of the uploaded file name.
func (f *FileUpload) Ext() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

// Clone returns a deep copy so a submitted request cannot be mutated by the caller.
func (r SubmissionRequest) Clone() SubmissionRequest {
	if r.File != nil {
		f := &FileUpload{Name: r.File.Name, Content: append([]byte(nil), r.File.Content...)}
		r.File = f
	}
	return r
}

// SubmissionResult maps named output fields to their text content.
type SubmissionResult struct {
	Fields map[string]string `json:"fields"`
}

func NewSubmissionResult() *SubmissionResult {
	return &SubmissionResult{Fields: make(map[string]string)}
}

// Field returns the named field or Placeholder when it is absent or empty.
func (r *SubmissionResult) Field(name string) string {
	if r == nil {
		return Placeholder
	}
	if v, ok := r.Fields[name]; ok && v != "" {
		return v
	}
	return Placeholder
}

func (r *SubmissionResult) Has(name string) bool {
	if r == nil {
		return false
	}
	v, ok := r.Fields[name]
	return ok && v != ""
}

func (r *SubmissionResult) JobID() string {
	if r == nil {
		return ""
	}
	return r.Fields[FieldJobID]
}

func (r *SubmissionResult) DownloadURL() string {
	if r == nil {
		return ""
	}
	return r.Fields[FieldDownloadURL]
}

// Names lists the populated fields in a stable order.
func (r *SubmissionResult) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (r *SubmissionResult) Clone() *SubmissionResult {
	if r == nil {
		return nil
	}
	c := NewSubmissionResult()
	for k, v := range r.Fields {
		c.Fields[k] = v
	}
	return c
}

// ValidateSpec rejects empty or whitespace only specifications.
func (r SubmissionRequest) ValidateSpec() error {
	if strings.TrimSpace(r.Spec) == "" {
		return NewValidationError(MsgEmptySpec)
	}
	return nil
}

// ValidateFile requires a Python source file.
func (r SubmissionRequest) ValidateFile() error {
	if r.File == nil || r.File.Name == "" {
		return NewValidationError(MsgNoFile)
	}
	if r.File.Ext() != ".py" {
		return NewValidationError(MsgNotPython)
	}
	return nil
}
