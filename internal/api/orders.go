package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// CreateOrder places a new order. Requires a signer. Not retried: use
// ClientOrderID for idempotent resubmission by the caller.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	var resp orderResponse
	if err := c.post(ctx, "/portfolio/orders", req, &resp); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &resp.Order, nil
}

// GetOrders fetches a page of the account's orders. Requires a signer.
func (c *Client) GetOrders(ctx context.Context, opts GetOrdersOptions) (*OrdersResponse, error) {
	query := url.Values{}
	if opts.Ticker != "" {
		query.Set("ticker", opts.Ticker)
	}
	if opts.EventTicker != "" {
		query.Set("event_ticker", opts.EventTicker)
	}
	if opts.Status != "" {
		query.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		query.Set("cursor", opts.Cursor)
	}

	var resp OrdersResponse
	if err := c.get(ctx, "/portfolio/orders", query, &resp); err != nil {
		return nil, fmt.Errorf("get orders: %w", err)
	}
	return &resp, nil
}

// GetOrder fetches one of the account's orders by ID. Requires a signer.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var resp orderResponse
	if err := c.get(ctx, "/portfolio/orders/"+orderID, nil, &resp); err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return &resp.Order, nil
}

// AmendOrder rebooks a resting order at a new price. The server cancels the
// old order and issues a new order ID. Requires a signer. Not retried.
func (c *Client) AmendOrder(ctx context.Context, orderID string, req AmendOrderRequest) (*Order, error) {
	var resp orderResponse
	if err := c.post(ctx, "/portfolio/orders/"+orderID+"/amend", req, &resp); err != nil {
		return nil, fmt.Errorf("amend order %s: %w", orderID, err)
	}
	return &resp.Order, nil
}

// DecreaseOrder shrinks a resting order's quantity, keeping queue position.
// Requires a signer. Not retried.
func (c *Client) DecreaseOrder(ctx context.Context, orderID string, req DecreaseOrderRequest) (*Order, error) {
	var resp orderResponse
	if err := c.post(ctx, "/portfolio/orders/"+orderID+"/decrease", req, &resp); err != nil {
		return nil, fmt.Errorf("decrease order %s: %w", orderID, err)
	}
	return &resp.Order, nil
}

// CancelOrder cancels a resting order. Requires a signer.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (*Order, error) {
	var resp orderResponse
	if err := c.del(ctx, "/portfolio/orders/"+orderID, &resp); err != nil {
		return nil, fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	return &resp.Order, nil
}
