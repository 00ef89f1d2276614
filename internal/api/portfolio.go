package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// GetBalance fetches the account balance. Requires a signer.
func (c *Client) GetBalance(ctx context.Context) (*Balance, error) {
	var resp Balance
	if err := c.get(ctx, "/portfolio/balance", nil, &resp); err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return &resp, nil
}

// GetPositions fetches a page of open market positions. Requires a signer.
func (c *Client) GetPositions(ctx context.Context, ticker string, limit int, cursor string) (*PositionsResponse, error) {
	query := url.Values{}
	if ticker != "" {
		query.Set("ticker", ticker)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	var resp PositionsResponse
	if err := c.get(ctx, "/portfolio/positions", query, &resp); err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}
	return &resp, nil
}

// GetFills fetches a page of the account's fills. Requires a signer.
func (c *Client) GetFills(ctx context.Context, ticker string, limit int, cursor string) (*FillsResponse, error) {
	query := url.Values{}
	if ticker != "" {
		query.Set("ticker", ticker)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	var resp FillsResponse
	if err := c.get(ctx, "/portfolio/fills", query, &resp); err != nil {
		return nil, fmt.Errorf("get fills: %w", err)
	}
	return &resp, nil
}

// GetSettlements fetches a page of settled market payouts. Requires a signer.
func (c *Client) GetSettlements(ctx context.Context, limit int, cursor string) (*SettlementsResponse, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	var resp SettlementsResponse
	if err := c.get(ctx, "/portfolio/settlements", query, &resp); err != nil {
		return nil, fmt.Errorf("get settlements: %w", err)
	}
	return &resp, nil
}
