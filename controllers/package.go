package controllers

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bradenn/hwdemo/enclave"
	"github.com/bradenn/hwdemo/schemas"
)

type manifest struct {
	JobID             string    `json:"job_id"`
	Source            string    `json:"source"`
	ModelName         string    `json:"model_name"`
	InputShape        string    `json:"input_shape"`
	OptimizationLevel string    `json:"optimization_level"`
	CreatedAt         time.Time `json:"created_at"`
}

// buildPackage writes the HLS package for a compiled model into the enclave
// and returns its path.
func buildPackage(e *enclave.Enclave, req schemas.SubmissionRequest) (string, error) {
	m := manifest{
		JobID:             e.ID,
		Source:            req.File.Name,
		ModelName:         identifier(orDefault(req.ModelName, strings.TrimSuffix(req.File.Name, req.File.Ext()))),
		InputShape:        orDefault(req.InputShape, "1x3x224x224"),
		OptimizationLevel: orDefault(req.OptimizationLevel, "O2"),
		CreatedAt:         time.Now().UTC(),
	}

	f, err := e.Create(packageName(m.ModelName))
	if err != nil {
		return "", err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	meta, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	for _, entry := range []struct {
		name string
		data []byte
	}{
		{"manifest.json", meta},
		{"src/" + req.File.Name, req.File.Content},
		{"hls/" + m.ModelName + ".mlir", []byte(mlirStub(m))},
	} {
		w, err := zw.Create(entry.name)
		if err != nil {
			return "", err
		}
		if _, err = w.Write(entry.data); err != nil {
			return "", err
		}
	}
	if err = zw.Close(); err != nil {
		return "", err
	}
	return f.Name(), nil
}

func packageName(model string) string {
	return fmt.Sprintf("%s_hls.zip", model)
}

func mlirStub(m manifest) string {
	dims := strings.ReplaceAll(m.InputShape, ",", "x")
	return fmt.Sprintf(`// generated from %s (%s)
module {
  func.func @%s(%%arg0: tensor<%sxf32>) -> tensor<%sxf32> {
    return %%arg0 : tensor<%sxf32>
  }
}
`, m.Source, m.OptimizationLevel, m.ModelName, dims, dims, dims)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

// identifier reduces a model name to something safe for file names and MLIR
// symbols.
func identifier(name string) string {
	b := []byte(name)
	for i, ch := range b {
		ok := ch == '_' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9'
		if !ok {
			b[i] = '_'
		}
	}
	if len(b) == 0 {
		return "model"
	}
	return string(b)
}
