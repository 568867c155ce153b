// Package rest implements CatalogClient against the registry service's
// HTTP API.
package rest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/nuln/userstore"
)

// DefaultTimeout bounds a single registration request.
const DefaultTimeout = 30 * time.Second

// Config describes the registry endpoint.
type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// Client registers data products over HTTP. A Client carries the
// credentials of one user; create one per actor with [Client.WithToken].
type Client struct {
	resty     *resty.Client
	gatewayID string
}

type registerResponse struct {
	ProductURI string `json:"productUri"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// New creates a Client for the gateway.
func New(cfg Config, gatewayID string) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r := resty.New()
	r.
		SetBaseURL(cfg.Endpoint).
		SetTimeout(timeout).
		SetHeader("User-Agent", "userstore/1.0").
		SetHeader("X-Gateway-ID", gatewayID)
	return &Client{resty: r, gatewayID: gatewayID}
}

// WithToken returns a Client authenticating with the bearer token. The
// underlying connection pool is shared.
func (c *Client) WithToken(token string) *Client {
	return &Client{
		resty:     c.resty.Clone().SetAuthToken(token),
		gatewayID: c.gatewayID,
	}
}

// RegisterDataProduct posts p to the registry and returns the assigned URI.
func (c *Client) RegisterDataProduct(ctx context.Context, p *userstore.DataProduct) (string, error) {
	var out registerResponse
	var apiErr errorResponse
	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(p).
		SetResult(&out).
		SetError(&apiErr).
		Post("/data-products")
	if err != nil {
		return "", fmt.Errorf("register data product: %w", err)
	}
	if resp.IsError() {
		msg := apiErr.Message
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return "", fmt.Errorf("register data product: status %d: %s", resp.StatusCode(), msg)
	}
	if out.ProductURI == "" {
		return "", errors.New("register data product: response carries no productUri")
	}
	return out.ProductURI, nil
}
