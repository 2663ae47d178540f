// Package census retrieves the CPS index page and the files it links to.
package census

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"
)

const userAgent = "cps-dct/1.0"

type Client struct {
	HTTP *http.Client
	log  *slog.Logger
}

// NewClient returns a client with a bounded request timeout.
func NewClient(log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{HTTP: &http.Client{Timeout: 10 * time.Minute}, log: log}
}

// Fetch GETs url and returns the body. Any non-2xx status is an error.
// There are no retries.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return b, nil
}

// Download saves each url into dir under its base name, skipping names that
// already exist there. It returns the local paths of every url, downloaded
// or cached, in input order.
func (c *Client) Download(ctx context.Context, urls []string, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(urls))
	for _, u := range urls {
		name := path.Base(u)
		dst := filepath.Join(dir, name)
		if _, err := os.Stat(dst); err == nil {
			c.log.Debug("already downloaded", "file", name)
			paths = append(paths, dst)
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return paths, err
		}

		c.log.Info("downloading", "file", name, "url", u)
		if err := c.save(ctx, u, dst); err != nil {
			return paths, err
		}
		paths = append(paths, dst)
	}
	return paths, nil
}

// save streams url to dst via a temp file, then renames it into place so a
// failed download never looks cached.
func (c *Client) save(ctx context.Context, url, dst string) error {
	resp, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	f, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		return fmt.Errorf("download %s: %w", url, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	if resp.StatusCode/100 != 2 {
		resp.Body.Close()
		return nil, fmt.Errorf("get %s: %s", url, resp.Status)
	}
	return resp, nil
}
