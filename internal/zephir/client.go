// Package zephir checks the Zephir bibliographic metadata registry for a
// deposited record.
package zephir

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// HasBibRecord reports whether Zephir has metadata for the barcode. Records
// are keyed by HathiTrust id, which for our namespace is "mdp." plus the
// barcode. A 404 means the metadata has not arrived yet, not a failure.
func (c *Client) HasBibRecord(ctx context.Context, barcode string) (bool, error) {
	url := fmt.Sprintf("%s/mdp.%s", c.baseURL, barcode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("zephir request for %s failed with status %d", barcode, resp.StatusCode)
	}
}
