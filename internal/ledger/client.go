package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Client calls the attendance ledger on behalf of one scanning station.
type Client struct {
	BaseURL   string
	StationID string
	HTTP      *http.Client

	mu    sync.Mutex
	token string
}

// New creates a client with a bounded per-request timeout.
func New(baseURL, stationID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:   baseURL,
		StationID: stationID,
		HTTP:      &http.Client{Timeout: timeout},
	}
}

// Register obtains a fresh access token for the station.
func (c *Client) Register(ctx context.Context) error {
	body, _ := json.Marshal(RegisterRequest{StationID: c.StationID})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/stations/register", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("ledger register failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ledger register error %s: %s", resp.Status, string(bodyBytes))
	}

	var out Tokens
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("failed to decode tokens: %w", err)
	}
	if out.AccessToken == "" {
		return errors.New("ledger returned no access token")
	}

	c.mu.Lock()
	c.token = out.AccessToken
	c.mu.Unlock()
	return nil
}

// CheckStatus looks up the attendee for payload and reports its status for category.
// An unknown payload is not an error: it yields Found == false.
func (c *Client) CheckStatus(ctx context.Context, payload, category string) (StatusResult, error) {
	path := "/v1/attendance/check?category=" + url.QueryEscape(category)
	var out StatusResult
	err := c.post(ctx, path, ScanRequest{QRCodeData: payload}, &out)
	if errors.Is(err, ErrNotFound) {
		return StatusResult{Found: false}, nil
	}
	if err != nil {
		return StatusResult{}, err
	}
	return out, nil
}

// MarkAttendance records attendance for payload in category. A concurrent mark by
// another client is reported through MarkResult.AlreadyMarked, not as an error.
func (c *Client) MarkAttendance(ctx context.Context, payload, category string) (MarkResult, error) {
	path := "/v1/attendance/" + url.PathEscape(category) + "/mark"
	var out MarkResult
	if err := c.post(ctx, path, ScanRequest{QRCodeData: payload}, &out); err != nil {
		return MarkResult{}, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	resp, err := c.send(ctx, path, body)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if err := c.Register(ctx); err != nil {
			return err
		}
		if resp, err = c.send(ctx, path, body); err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 300:
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ledger error %s: %s", resp.Status, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ledger request failed: %w", err)
	}
	return resp, nil
}

// Health checks if the ledger is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/healthz", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("ledger unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("ledger unhealthy: %s", resp.Status)
	}
	return nil
}
