// Copyright 2021 Braden Nicholson. All rights reserved.

package enclave

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Enclave is a temporary on-disk workspace for a single job. Uploaded models,
// built packages and downloaded artifacts all live inside it.
type Enclave struct {
	ID  string
	Cwd string
}

// NewEnclave allocates a fresh directory under root named by a random UUID.
func NewEnclave(root string) (*Enclave, error) {
	return Open(root, uuid.NewString())
}

// Open returns the enclave with the given id under root, creating it if needed.
func Open(root string, id string) (*Enclave, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid enclave id %q: %w", id, err)
	}
	p, err := filepath.Abs(filepath.Join(root, id))
	if err != nil {
		return nil, err
	}
	if err = os.MkdirAll(p, 0o755); err != nil {
		return nil, fmt.Errorf("could not allocate enclave: %w", err)
	}
	return &Enclave{ID: id, Cwd: p}, nil
}

// Path joins name onto the enclave root, refusing to escape it.
func (e *Enclave) Path(name ...string) (string, error) {
	p := filepath.Join(append([]string{e.Cwd}, name...)...)
	if p != e.Cwd && !strings.HasPrefix(p, e.Cwd+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes enclave", filepath.Join(name...))
	}
	return p, nil
}

// AddDir creates a sub directory.
func (e *Enclave) AddDir(name string) (string, error) {
	p, err := e.Path(name)
	if err != nil {
		return "", err
	}
	return p, os.MkdirAll(p, 0o755)
}

func (e *Enclave) WriteFile(name string, data []byte) (string, error) {
	p, err := e.Path(name)
	if err != nil {
		return "", err
	}
	if err = os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	return p, os.WriteFile(p, data, 0o644)
}

// Create opens a new file for writing, directories must exist!
func (e *Enclave) Create(name string) (*os.File, error) {
	p, err := e.Path(name)
	if err != nil {
		return nil, err
	}
	return os.Create(p)
}

func (e *Enclave) ReadFile(name string) ([]byte, error) {
	p, err := e.Path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// CopyFrom streams r into a new file inside the enclave.
func (e *Enclave) CopyFrom(name string, r io.Reader) (string, int64, error) {
	f, err := e.Create(name)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	n, err := io.Copy(f, r)
	return f.Name(), n, err
}

// Close removes the enclave and everything in it.
func (e *Enclave) Close() error {
	return os.RemoveAll(e.Cwd)
}
