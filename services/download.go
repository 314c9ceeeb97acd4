package services

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"

	"github.com/bradenn/hwdemo/enclave"
	"github.com/bradenn/hwdemo/schemas"
	"go.uber.org/zap"
)

// Download fetches the package referenced by a result's download link into the
// enclave and returns the local path.
func (c *Client) Download(ctx context.Context, ref string, e *enclave.Enclave) (string, error) {
	link, err := c.ResolveDownload(ref)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", schemas.NewNetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", schemas.NewServerError(fmt.Sprintf("Download failed: %s", resp.Status))
	}

	name := downloadName(resp, link)
	p, n, err := e.CopyFrom(name, resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to save %s: %w", name, err)
	}
	c.Logger.Info("downloaded package", zap.String("url", link), zap.String("path", p), zap.Int64("bytes", n))
	return p, nil
}

func downloadName(resp *http.Response, link string) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if fn := path.Base(params["filename"]); fn != "" && fn != "." && fn != "/" {
				return fn
			}
		}
	}
	if u, err := url.Parse(link); err == nil {
		if b := path.Base(u.Path); b != "" && b != "." && b != "/" {
			return b
		}
	}
	return "package.bin"
}
