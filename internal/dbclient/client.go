// Package dbclient is the HTTP client for the digifeeds item API. Pipeline
// code goes through this client rather than the database so transitions can
// run from hosts that only see the API service.
package dbclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"digifeeds/internal/domain"
)

var (
	ErrNotFound        = errors.New("item not found in database")
	ErrAlreadyExists   = errors.New("item already exists in database")
	ErrAlreadyHasValue = errors.New("hathifiles_timestamp already set")
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) GetItem(ctx context.Context, barcode string) (domain.Item, error) {
	var item domain.Item
	err := c.do(ctx, http.MethodGet, c.url("items/%s", barcode), map[int]error{
		http.StatusNotFound: ErrNotFound,
	}, &item)
	return item, err
}

func (c *Client) AddItem(ctx context.Context, barcode string) (domain.Item, error) {
	var item domain.Item
	err := c.do(ctx, http.MethodPost, c.url("items/%s", barcode), map[int]error{
		http.StatusBadRequest: ErrAlreadyExists,
	}, &item)
	return item, err
}

// GetOrCreateItem fetches the item, creating it on first encounter. If two
// callers race on the create, the loser picks up the winner's row.
func (c *Client) GetOrCreateItem(ctx context.Context, barcode string) (domain.Item, error) {
	item, err := c.GetItem(ctx, barcode)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return domain.Item{}, err
	}
	item, err = c.AddItem(ctx, barcode)
	if errors.Is(err, ErrAlreadyExists) {
		return c.GetItem(ctx, barcode)
	}
	return item, err
}

func (c *Client) AddItemStatus(ctx context.Context, barcode string, status domain.StatusName) (domain.Item, error) {
	var item domain.Item
	err := c.do(ctx, http.MethodPut, c.url("items/%s/status/%s", barcode, string(status)), map[int]error{
		http.StatusNotFound: ErrNotFound,
	}, &item)
	return item, err
}

func (c *Client) SetHathifilesTimestamp(ctx context.Context, barcode string, ts time.Time) (domain.Item, error) {
	var item domain.Item
	err := c.do(ctx, http.MethodPut, c.url("items/%s/hathifiles_timestamp/%s", barcode, ts.UTC().Format(time.RFC3339)), map[int]error{
		http.StatusNotFound:   ErrNotFound,
		http.StatusBadRequest: ErrAlreadyHasValue,
	}, &item)
	return item, err
}

func (c *Client) DeleteItem(ctx context.Context, barcode string) (domain.Item, error) {
	var item domain.Item
	err := c.do(ctx, http.MethodDelete, c.url("items/%s", barcode), map[int]error{
		http.StatusNotFound: ErrNotFound,
	}, &item)
	return item, err
}

func (c *Client) ListItems(ctx context.Context, filter domain.ItemFilter, q string, limit, offset int) (domain.PageOfItems, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	if filter != "" {
		params.Set("filter", string(filter))
	}
	if q != "" {
		params.Set("q", q)
	}

	var page domain.PageOfItems
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/items/?%s", c.baseURL, params.Encode()), nil, &page)
	return page, err
}

func (c *Client) url(format string, args ...any) string {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = url.PathEscape(fmt.Sprint(a))
	}
	return c.baseURL + "/" + fmt.Sprintf(format, escaped...)
}

func (c *Client) do(ctx context.Context, method, rawURL string, codes map[int]error, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if sentinel, ok := codes[resp.StatusCode]; ok {
		return sentinel
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("digifeeds api %s %s failed with status %d", method, rawURL, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
