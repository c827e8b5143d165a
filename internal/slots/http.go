// SPDX-License-Identifier: MIT

package slots

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the external scheduling service over HTTP/JSON.
type Client struct {
	base *url.URL
	http *http.Client
}

// NewClient builds an Availability backed by the scheduler at baseURL.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("slots: parse base url: %w", err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		base: u,
		http: &http.Client{Timeout: timeout},
	}, nil
}

// ListCandidates fetches bookable slots for a preference.
func (c *Client) ListCandidates(ctx context.Context, preference string) ([]Slot, error) {
	u := c.endpoint("/v1/slots")
	q := u.Query()
	if preference != "" {
		q.Set("preference", preference)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("slots: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("slots: list candidates: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("slots: list candidates: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Slots []Slot `json:"slots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("slots: decode candidates: %w", err)
	}
	return payload.Slots, nil
}

// Book posts a reservation for the exact proposed slot.
func (c *Client) Book(ctx context.Context, slot Slot, contact ContactInfo) error {
	body, err := json.Marshal(struct {
		Slot    Slot        `json:"slot"`
		Contact ContactInfo `json:"contact"`
	}{slot, contact})
	if err != nil {
		return fmt.Errorf("slots: encode booking: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/v1/bookings").String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slots: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("slots: book: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusConflict:
		return ErrConflict
	default:
		return fmt.Errorf("slots: book: unexpected status %d", resp.StatusCode)
	}
}

// Cancel releases the caller's booking.
func (c *Client) Cancel(ctx context.Context, name string) error {
	body, err := json.Marshal(struct {
		Name string `json:"name"`
	}{name})
	if err != nil {
		return fmt.Errorf("slots: encode cancel: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/v1/cancellations").String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slots: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("slots: cancel: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("slots: cancel: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) endpoint(path string) *url.URL {
	u := *c.base
	u.Path = path
	return &u
}
