package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vencha/internal/auth"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Signup(ctx context.Context, email, password string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out, "")
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out, "")
	return out, err
}

func (c *Client) Portfolio(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/portfolio", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) ListStartups(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/startups", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) StartupDetail(ctx context.Context, accessToken, id string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/startups/"+url.PathEscape(id), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) Invest(ctx context.Context, accessToken, startupID string, amount float64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/investments", accessToken, map[string]any{
		"startup_id": startupID,
		"amount":     amount,
	}, &out, idem)
	return out, err
}

func (c *Client) Pledge(ctx context.Context, accessToken, startupID string, amount float64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/investments/pledge", accessToken, map[string]any{
		"startup_id": startupID,
		"amount":     amount,
	}, &out, idem)
	return out, err
}

func (c *Client) OpenNegotiation(ctx context.Context, accessToken, startupID string, amount, requestedEquity float64) (map[string]any, error) {
	body := map[string]any{
		"startup_id": startupID,
		"amount":     amount,
	}
	if requestedEquity > 0 {
		body["requested_equity"] = requestedEquity
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/negotiations", accessToken, body, &out, "")
	return out, err
}

func (c *Client) AcceptCounter(ctx context.Context, accessToken, negotiationID, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/negotiations/"+url.PathEscape(negotiationID)+"/accept", accessToken, map[string]any{}, &out, idem)
	return out, err
}

func (c *Client) ReviseOffer(ctx context.Context, accessToken, negotiationID, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/negotiations/"+url.PathEscape(negotiationID)+"/revise", accessToken, map[string]any{}, &out, idem)
	return out, err
}

func (c *Client) CancelNegotiation(ctx context.Context, accessToken, negotiationID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodDelete, "/v1/negotiations/"+url.PathEscape(negotiationID), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) ExitHolding(ctx context.Context, accessToken, holdingID, exitType string, sellFraction float64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/holdings/"+url.PathEscape(holdingID)+"/exit", accessToken, map[string]any{
		"exit_type":     exitType,
		"sell_fraction": sellFraction,
	}, &out, idem)
	return out, err
}

func (c *Client) PassSwipe(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/swipes/pass", accessToken, map[string]any{}, &out, "")
	return out, err
}

// Do replays an arbitrary queued command against the API.
func (c *Client) Do(ctx context.Context, method, path, accessToken string, body map[string]any, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, method, path, accessToken, body, &out, idem)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, accessToken string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
