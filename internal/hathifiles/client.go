// Package hathifiles covers the two HathiTrust-facing concerns: looking up an
// item in the hathifiles holdings database, and polling hathitrust.org for
// new update files.
package hathifiles

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Record is the holdings row for one HathiTrust item. The API returns many
// more columns; we only need the rights timestamp.
type Record struct {
	HTID            string `json:"htid"`
	RightsTimestamp string `json:"rights_timestamp"`
}

// RightsTime parses the record's rights timestamp.
func (r Record) RightsTime() (time.Time, error) {
	layouts := []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}
	var lastErr error
	for _, layout := range layouts {
		ts, err := time.Parse(layout, r.RightsTimestamp)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("unparsable rights_timestamp %q: %w", r.RightsTimestamp, lastErr)
}

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

// GetItem fetches the holdings record for a HathiTrust id. A 404 returns
// (nil, nil): the item simply is not in the hathifiles yet.
func (c *Client) GetItem(ctx context.Context, htid string) (*Record, error) {
	url := fmt.Sprintf("%s/items/%s", c.baseURL, htid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hathifiles request for %s failed with status %d", htid, resp.StatusCode)
	}

	var record Record
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, err
	}
	return &record, nil
}
