// Package download fetches remote plugin files over HTTP.
package download

import (
	"context"
	"io"
	"net/http"

	"github.com/rossmacarthur/sheldon/pkg/errors"
	"github.com/rossmacarthur/sheldon/pkg/logging"
)

// Client downloads files over HTTP. The zero value uses
// http.DefaultClient, which follows redirects.
type Client struct {
	HTTPClient *http.Client
}

// Download fetches url and streams the response body to w. Any non-2xx
// status is an error.
func (c *Client) Download(ctx context.Context, url string, w io.Writer) error {
	logger := logging.Logger("download")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrapf(err, errors.ErrDownload, "failed to build request for %q", url)
	}

	logger.Debug().Str("url", url).Msg("Downloading")
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrapf(err, errors.ErrDownload, "failed to download %q", url)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Newf(errors.ErrDownload, "failed to download %q: %s", url, resp.Status)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return errors.Wrapf(err, errors.ErrDownload, "failed to read response body for %q", url)
	}
	return nil
}
