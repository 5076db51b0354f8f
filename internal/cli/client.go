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

	"github.com/Hellboy20151011/Der-Kapitalist/internal/game"
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

type AuthResponse struct {
	UserID int64  `json:"user_id"`
	Token  string `json:"token"`
}

func (c *Client) Register(ctx context.Context, email, password string) (AuthResponse, error) {
	var out AuthResponse
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	var out AuthResponse
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out)
	return out, err
}

func (c *Client) State(ctx context.Context, token string) (game.StateView, error) {
	var out game.StateView
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/state", token, nil, &out)
	return out, err
}

func (c *Client) Sell(ctx context.Context, token string, resource string, quantity int64) (game.SellResult, error) {
	var out game.SellResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/economy/sell", token, map[string]any{
		"resource_type": resource,
		"quantity":      quantity,
	}, &out)
	return out, err
}

func (c *Client) Build(ctx context.Context, token, buildingType string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/economy/buildings/build", token, map[string]any{
		"building_type": buildingType,
	}, &out)
	return out, err
}

func (c *Client) Upgrade(ctx context.Context, token, buildingType string) error {
	return c.jsonRequest(ctx, http.MethodPost, "/v1/economy/buildings/upgrade", token, map[string]any{
		"building_type": buildingType,
	}, nil)
}

func (c *Client) StartProduction(ctx context.Context, token, buildingType string, quantity int64) (game.StartProductionResult, error) {
	var out game.StartProductionResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/production/start", token, map[string]any{
		"building_type": buildingType,
		"quantity":      quantity,
	}, &out)
	return out, err
}

func (c *Client) Collect(ctx context.Context, token, buildingType string) (game.CollectResult, error) {
	var out game.CollectResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/production/collect", token, map[string]any{
		"building_type": buildingType,
	}, &out)
	return out, err
}

func (c *Client) Listings(ctx context.Context, token, resource string, limit int) ([]game.ListingView, error) {
	path := "/v1/market/listings"
	q := url.Values{}
	if resource != "" {
		q.Set("resource", resource)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out struct {
		Listings []game.ListingView `json:"listings"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, path, token, nil, &out)
	return out.Listings, err
}

func (c *Client) CreateListing(ctx context.Context, token, resource string, quantity, pricePerUnit int64) (game.ListingView, error) {
	var out game.ListingView
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/market/listings", token, map[string]any{
		"resource_type":  resource,
		"quantity":       quantity,
		"price_per_unit": pricePerUnit,
	}, &out)
	return out, err
}

func (c *Client) BuyListing(ctx context.Context, token string, listingID int64) (game.PurchaseResult, error) {
	var out game.PurchaseResult
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/market/listings/%d/buy", listingID), token, nil, &out)
	return out, err
}

func (c *Client) CancelListing(ctx context.Context, token string, listingID int64) error {
	return c.jsonRequest(ctx, http.MethodDelete, fmt.Sprintf("/v1/market/listings/%d", listingID), token, nil, nil)
}

func (c *Client) ResetAccount(ctx context.Context, token string) error {
	return c.jsonRequest(ctx, http.MethodPost, "/v1/dev/reset-account", token, nil, nil)
}

func (c *Client) jsonRequest(ctx context.Context, method, path, token string, in any, out any) error {
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
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
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
