// Package alma talks to the Alma ILS configuration API. The only operation
// digifeeds needs is adding a barcode to the digifeeds managed set.
package alma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// Alma error codes on the set membership endpoint.
	codeUnknownBarcode = "60120"
	codeAlreadyMember  = "60115"
)

var (
	ErrUnknownBarcode = errors.New("barcode not found in alma")
	ErrAlreadyMember  = errors.New("barcode already in digifeeds set")
)

type Client struct {
	apiKey     string
	baseURL    string
	setID      string
	httpClient *http.Client
}

func NewClient(apiKey, baseURL, setID string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		setID:      setID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type member struct {
	ID string `json:"id"`
}

type addMembersRequest struct {
	Members struct {
		Member []member `json:"member"`
	} `json:"members"`
}

type errorResponse struct {
	ErrorList struct {
		Error []struct {
			ErrorCode    string `json:"errorCode"`
			ErrorMessage string `json:"errorMessage"`
		} `json:"error"`
	} `json:"errorList"`
}

// AddBarcodeToDigifeedsSet posts the barcode as a new member of the digifeeds
// set. Failures Alma reports in its errorList are classified: an unknown
// barcode returns ErrUnknownBarcode, a barcode that is already a member
// returns ErrAlreadyMember, anything else is fatal.
func (c *Client) AddBarcodeToDigifeedsSet(ctx context.Context, barcode string) error {
	if c.apiKey == "" {
		return fmt.Errorf("ALMA_API_KEY is required")
	}

	params := url.Values{}
	params.Set("id_type", "BARCODE")
	params.Set("op", "add_members")
	params.Set("fail_on_invalid_id", "true")

	var payload addMembersRequest
	payload.Members.Member = []member{{ID: barcode}}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	reqURL := fmt.Sprintf("%s/conf/sets/%s?%s", c.baseURL, url.PathEscape(c.setID), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "apikey "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("alma request failed with status %d", resp.StatusCode)
	}
	return classifyError(resp.StatusCode, respBody)
}

func classifyError(status int, body []byte) error {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("alma request failed with status %d", status)
	}
	for _, e := range parsed.ErrorList.Error {
		if e.ErrorCode == codeUnknownBarcode {
			return ErrUnknownBarcode
		}
	}
	for _, e := range parsed.ErrorList.Error {
		if e.ErrorCode == codeAlreadyMember {
			return ErrAlreadyMember
		}
	}
	for _, e := range parsed.ErrorList.Error {
		if e.ErrorMessage != "" {
			return fmt.Errorf("alma request failed: %s", e.ErrorMessage)
		}
	}
	return fmt.Errorf("alma request failed with status %d", status)
}
