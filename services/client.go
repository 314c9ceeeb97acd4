package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/bradenn/hwdemo/schemas"
	"go.uber.org/zap"
)

// maxResponse bounds how much of a reply we are willing to buffer.
const maxResponse = 16 << 20

// Client talks to one remote generation or compilation endpoint.
type Client struct {
	Endpoint string
	HTTP     *http.Client
	Logger   *zap.Logger
}

func NewClient(endpoint string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		Endpoint: endpoint,
		HTTP:     &http.Client{Timeout: timeout},
		Logger:   logger,
	}
}

// Send posts req to the endpoint: a JSON body for text specifications, a
// multipart form when a file is attached.
func (c *Client) Send(ctx context.Context, req schemas.SubmissionRequest) (*schemas.SubmissionResult, error) {
	var (
		httpReq *http.Request
		err     error
	)
	if req.File != nil {
		httpReq, err = c.multipartRequest(ctx, req)
	} else {
		httpReq, err = c.jsonRequest(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		c.Logger.Warn("request failed", zap.String("endpoint", c.Endpoint), zap.Error(err))
		return nil, schemas.NewNetworkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return nil, schemas.NewNetworkError(fmt.Errorf("failed to read response body: %w", err))
	}
	c.Logger.Debug("received response",
		zap.String("endpoint", c.Endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)))

	return ParseResponse(resp.StatusCode, body)
}

func (c *Client) jsonRequest(ctx context.Context, req schemas.SubmissionRequest) (*http.Request, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	r.Header.Set("Content-Type", "application/json")
	return r, nil
}

func (c *Client) multipartRequest(ctx context.Context, req schemas.SubmissionRequest) (*http.Request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", req.File.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err = part.Write(req.File.Content); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	for _, f := range []struct{ key, value string }{
		{"model_name", req.ModelName},
		{"input_shape", req.InputShape},
		{"optimization_level", req.OptimizationLevel},
	} {
		if f.value == "" {
			continue
		}
		if err = w.WriteField(f.key, f.value); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", f.key, err)
		}
	}
	if err = w.Close(); err != nil {
		return nil, err
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	r.Header.Set("Content-Type", w.FormDataContentType())
	return r, nil
}

// ResolveDownload turns a download reference from a result into an absolute
// URL. Relative references are resolved against the endpoint.
func (c *Client) ResolveDownload(ref string) (string, error) {
	if ref == "" {
		return "", schemas.NewServerError("The response did not include a download link")
	}
	base, err := url.Parse(c.Endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", c.Endpoint, err)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid download reference %q: %w", ref, err)
	}
	return base.ResolveReference(u).String(), nil
}
